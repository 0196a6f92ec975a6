package agent

import (
	"fmt"
	"strings"

	"github.com/BaSui01/pricescout/types"
)

// Dedupe removes duplicate results keyed by (product name, price, store).
// The first occurrence of each triple wins, so result order is preserved.
// Deduplication is idempotent.
func Dedupe(results []types.ExtractionResult) []types.ExtractionResult {
	seen := make(map[string]bool, len(results))
	out := make([]types.ExtractionResult, 0, len(results))
	for _, r := range results {
		key := fmt.Sprintf("%s|%.2f|%s",
			strings.ToLower(strings.TrimSpace(r.ProductName)),
			r.CurrentPrice,
			strings.ToLower(strings.TrimSpace(r.StoreName)))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
