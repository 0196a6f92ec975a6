package types

// TaskTypePriceCheck is the only task type the execution pipeline supports.
const TaskTypePriceCheck = "price_check"

// SourceMode selects how target pages are discovered.
type SourceMode string

const (
	SourceModeGoogle        SourceMode = "google"
	SourceModeSpecificSites SourceMode = "specific_sites"
	SourceModeDirectURL     SourceMode = "direct_url"
)

// Product describes the item being price-checked. All fields are normalized
// strings; nil means the parser could not extract the attribute.
type Product struct {
	Brand    *string `json:"brand"`
	Model    *string `json:"model"`
	Category *string `json:"category"`
	Color    *string `json:"color"`
	Gender   *string `json:"gender"`
}

// Constraints carries the user's purchase constraints.
type Constraints struct {
	MaxPrice *float64 `json:"max_price"`
	Currency *string  `json:"currency"`
	Size     *string  `json:"size"`
}

// Sources describes where to look for the product.
// If Mode is SourceModeSpecificSites, Sites should be non-empty; a violation
// triggers clarification rather than a hard failure.
type Sources struct {
	Mode  SourceMode `json:"mode"`
	Sites []string   `json:"sites,omitempty"`
	URL   string     `json:"url,omitempty"`
}

// ParsedTask is the structured interpretation of a free-text request.
// It is produced once per task and never mutated after creation.
type ParsedTask struct {
	TaskType    string      `json:"task_type"`
	Product     Product     `json:"product"`
	Constraints Constraints `json:"constraints"`
	Sources     Sources     `json:"sources"`
	Confidence  float64     `json:"confidence"`
}

// StrPtr returns a pointer to s. Convenience for building ParsedTask values.
func StrPtr(s string) *string { return &s }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }
