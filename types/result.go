package types

import "time"

// Availability represents stock state as extracted from a page.
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityUnknown    Availability = "unknown"
)

// ExtractionMethod tags which extraction tier produced a result, for
// diagnostics.
type ExtractionMethod string

const (
	MethodSiteSelector    ExtractionMethod = "site_selector"
	MethodGenericSelector ExtractionMethod = "generic_selector"
	MethodRegexScan       ExtractionMethod = "regex_scan"
	MethodDOMScan         ExtractionMethod = "dom_scan"
	MethodModelReport     ExtractionMethod = "model_report"
)

// ExtractionResult is one normalized price/availability observation.
// Immutable once appended to a Task's result list.
type ExtractionResult struct {
	ProductName    string           `json:"product_name"`
	CurrentPrice   float64          `json:"current_price"`
	Currency       string           `json:"currency"`
	StoreName      string           `json:"store_name"`
	Availability   Availability     `json:"availability"`
	SelectedSize   *string          `json:"selected_size,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	SourceURL      string           `json:"source_url"`
	ScreenshotPath *string          `json:"screenshot_path,omitempty"`
	MeetsCriteria  bool             `json:"meets_criteria"`
	Method         ExtractionMethod `json:"method,omitempty"`
}

// MeetsCriteria applies the single consistent rule used by both strategies:
// a price must be present, and when a ceiling exists it must not be exceeded.
func MeetsCriteria(price float64, maxPrice *float64) bool {
	if price < 0 {
		return false
	}
	if maxPrice == nil {
		return true
	}
	return price <= *maxPrice
}
