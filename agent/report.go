package agent

import (
	"regexp"
	"strings"
	"time"

	"github.com/BaSui01/pricescout/normalize"
	"github.com/BaSui01/pricescout/types"
)

// reportLine matches one "product name - price - store" finding in the
// model's terminal text, tolerating hyphen, en-dash and em-dash separators
// and list bullets.
var reportLine = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])?\s*(.+?)\s+[-–—]\s+(.+?)\s+[-–—]\s+(.+?)\s*$`)

// ParseReport extracts findings from the planning model's terminal text.
// Lines whose middle field carries no parseable price are skipped.
func ParseReport(text string, task *types.ParsedTask) []types.ExtractionResult {
	var results []types.ExtractionResult
	for _, m := range reportLine.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		price := normalize.ParsePrice(m[2])
		store := strings.TrimRight(strings.TrimSpace(m[3]), ".")
		if price.Amount == nil || name == "" || store == "" {
			continue
		}
		results = append(results, types.ExtractionResult{
			ProductName:   name,
			CurrentPrice:  *price.Amount,
			Currency:      price.Currency,
			StoreName:     store,
			Availability:  types.AvailabilityUnknown,
			SelectedSize:  task.Constraints.Size,
			Timestamp:     time.Now().UTC(),
			MeetsCriteria: types.MeetsCriteria(*price.Amount, task.Constraints.MaxPrice),
			Method:        types.MethodModelReport,
		})
	}
	return results
}

// normalizePriceText parses a DOM text fragment as a price, rejecting
// fragments that are too long to plausibly be a price label.
func normalizePriceText(text string) normalize.Price {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > 32 {
		return normalize.Price{}
	}
	return normalize.ParsePrice(text)
}

// storeFromURL reduces the current URL to a store label.
func storeFromURL(rawURL string) string {
	if s := normalize.SiteName(rawURL); s != "" {
		return s
	}
	return "unknown"
}
