package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/BaSui01/pricescout/types"
)

func TestDedupe_KeyedByNamePriceStore(t *testing.T) {
	results := []types.ExtractionResult{
		{ProductName: "Air Max 90", CurrentPrice: 89.99, StoreName: "Zalando", Method: types.MethodDOMScan},
		{ProductName: "air max 90", CurrentPrice: 89.99, StoreName: "zalando", Method: types.MethodModelReport},
		{ProductName: "Air Max 90", CurrentPrice: 94.50, StoreName: "Zalando"},
		{ProductName: "Air Max 90", CurrentPrice: 89.99, StoreName: "Amazon"},
	}

	out := Dedupe(results)
	assert.Len(t, out, 3)
	// first occurrence wins
	assert.Equal(t, types.MethodDOMScan, out[0].Method)
}

func TestDedupe_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c"}), 0, 12).Draw(t, "names")
		results := make([]types.ExtractionResult, len(names))
		for i, n := range names {
			results[i] = types.ExtractionResult{
				ProductName:  n,
				CurrentPrice: float64(rapid.IntRange(1, 3).Draw(t, "price")),
				StoreName:    rapid.SampledFrom([]string{"x", "y"}).Draw(t, "store"),
			}
		}

		once := Dedupe(results)
		twice := Dedupe(once)
		assert.Equal(t, once, twice)
	})
}
