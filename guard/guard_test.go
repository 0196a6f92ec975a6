package guard

import (
	"testing"

	"github.com/BaSui01/pricescout/types"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func validTask() *types.ParsedTask {
	return &types.ParsedTask{
		TaskType: types.TaskTypePriceCheck,
		Product: types.Product{
			Brand:    types.StrPtr("Nike"),
			Category: types.StrPtr("shoes"),
		},
		Constraints: types.Constraints{
			MaxPrice: types.FloatPtr(100),
			Currency: types.StrPtr("EUR"),
		},
		Sources:    types.Sources{Mode: types.SourceModeGoogle},
		Confidence: 0.9,
	}
}

func TestValidate_OK(t *testing.T) {
	g := New(DefaultConfig(), []string{"zalando", "amazon"})
	r := g.Validate(validTask())
	assert.True(t, r.Valid)
	assert.Empty(t, r.Errors)
}

// A task violating two independent rules must report both violations: the
// guard never short-circuits.
func TestValidate_ReportsAllViolations(t *testing.T) {
	g := New(DefaultConfig(), nil)

	p := validTask()
	p.Product.Brand = nil
	p.Product.Model = nil
	p.Constraints.MaxPrice = types.FloatPtr(-5)

	r := g.Validate(p)
	assert.False(t, r.Valid)
	assert.GreaterOrEqual(t, len(r.Errors), 2)
}

func TestValidate_TaskType(t *testing.T) {
	g := New(DefaultConfig(), nil)
	p := validTask()
	p.TaskType = "stock_check"
	r := g.Validate(p)
	assert.False(t, r.Valid)
}

func TestValidate_PriceCeilingWarning(t *testing.T) {
	g := New(DefaultConfig(), nil)
	p := validTask()
	p.Constraints.MaxPrice = types.FloatPtr(5_000_000)
	r := g.Validate(p)
	assert.True(t, r.Valid, "sanity ceiling produces a warning, not an error")
	assert.NotEmpty(t, r.Warnings)
}

func TestValidate_SpecificSites(t *testing.T) {
	g := New(DefaultConfig(), []string{"zalando"})

	p := validTask()
	p.Sources = types.Sources{Mode: types.SourceModeSpecificSites}
	r := g.Validate(p)
	assert.False(t, r.Valid, "empty site list is an error")

	p.Sources.Sites = []string{"zalando", "obscureshop"}
	r = g.Validate(p)
	assert.True(t, r.Valid, "unknown site is only a warning")
	assert.NotEmpty(t, r.Warnings)
}

func TestValidate_LowConfidenceIsError(t *testing.T) {
	g := New(DefaultConfig(), nil)
	p := validTask()
	p.Confidence = 0.1
	r := g.Validate(p)
	assert.False(t, r.Valid)
}

func TestNeedsClarification(t *testing.T) {
	p := validTask()
	assert.Empty(t, NeedsClarification(p, 0.6))

	p.Confidence = 0.4
	assert.NotEmpty(t, NeedsClarification(p, 0.6))

	p = validTask()
	p.Product.Brand = nil
	p.Product.Model = nil
	assert.NotEmpty(t, NeedsClarification(p, 0.6))

	assert.NotEmpty(t, NeedsClarification(nil, 0.6))
}

// The clarification predicate depends only on (confidence, brand, model,
// sources): below-threshold confidence or a missing brand and model always
// triggers it, anything else never does.
func TestNeedsClarification_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := validTask()
		p.Confidence = rapid.Float64Range(0, 1).Draw(t, "confidence")
		if rapid.Bool().Draw(t, "noBrand") {
			p.Product.Brand = nil
		}
		if rapid.Bool().Draw(t, "noModel") {
			p.Product.Model = nil
		}

		questions := NeedsClarification(p, 0.6)
		shouldAsk := p.Confidence < 0.6 || (p.Product.Brand == nil && p.Product.Model == nil)
		if shouldAsk != (len(questions) > 0) {
			t.Fatalf("confidence=%v brand=%v model=%v: questions=%v", p.Confidence, p.Product.Brand, p.Product.Model, questions)
		}
	})
}
