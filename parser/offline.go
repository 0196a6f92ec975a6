package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/BaSui01/pricescout/normalize"
	"github.com/BaSui01/pricescout/types"
)

// OfflineParser is a deterministic keyword parser. It needs no network and
// backs the offline execution mode used in development and tests. Its
// confidence score is a crude coverage heuristic: the more product
// attributes it recognizes, the higher the confidence.
type OfflineParser struct{}

// NewOfflineParser creates the offline parser.
func NewOfflineParser() *OfflineParser { return &OfflineParser{} }

var knownBrands = []string{
	"nike", "adidas", "puma", "new balance", "asics", "reebok", "converse",
	"vans", "levis", "levi's", "zara", "h&m", "uniqlo",
}

var categoryKeywords = map[string]string{
	"sneaker":  "shoes",
	"sneakers": "shoes",
	"shoe":     "shoes",
	"shoes":    "shoes",
	"trainers": "shoes",
	"boots":    "shoes",
	"jacket":   "clothing",
	"hoodie":   "clothing",
	"shirt":    "clothing",
	"t-shirt":  "clothing",
	"jeans":    "clothing",
	"dress":    "clothing",
	"watch":    "accessories",
	"backpack": "accessories",
	"bag":      "accessories",
}

var colorWords = []string{
	"black", "white", "red", "blue", "green", "yellow", "gray", "grey",
	"navy", "beige", "pink", "purple", "orange", "brown",
}

// "under 100€", "below $50", "max 80 eur"
var ceilingPattern = regexp.MustCompile(`(?i)(?:under|below|max\.?|up to|less than)\s*([€$£]?\s*\d+(?:[.,]\d{1,2})?\s*[€$£]?|\d+\s*(?:eur|usd|gbp))`)

var sizePattern = regexp.MustCompile(`(?i)\bsize\s+(\d{1,2}(?:[.,]5)?|xxs|xs|s|m|l|xl|xxl)\b`)

var urlPattern = regexp.MustCompile(`https?://\S+`)

var sitePattern = regexp.MustCompile(`(?i)\b(?:on|at|from)\s+([a-z0-9][a-z0-9.-]*(?:\.[a-z]{2,})?)`)

// Parse extracts product attributes, constraints and sources from the query
// using keyword tables and small regexes.
func (p *OfflineParser) Parse(ctx context.Context, query string) (*Result, error) {
	_ = ctx
	lower := strings.ToLower(query)

	task := &types.ParsedTask{
		TaskType: types.TaskTypePriceCheck,
		Sources:  types.Sources{Mode: types.SourceModeGoogle},
	}

	matched := 0

	for _, brand := range knownBrands {
		if strings.Contains(lower, brand) {
			task.Product.Brand = types.StrPtr(normalize.Brand(brand))
			matched++
			break
		}
	}

	for keyword, category := range categoryKeywords {
		if containsWord(lower, keyword) {
			task.Product.Category = types.StrPtr(category)
			matched++
			break
		}
	}

	for _, color := range colorWords {
		if containsWord(lower, color) {
			task.Product.Color = types.StrPtr(normalize.Color(color))
			matched++
			break
		}
	}

	if gender := detectGender(lower); gender != "" {
		task.Product.Gender = types.StrPtr(gender)
		matched++
	}

	if m := ceilingPattern.FindStringSubmatch(query); m != nil {
		price := normalize.ParsePrice(m[1])
		if price.Amount != nil {
			task.Constraints.MaxPrice = price.Amount
			task.Constraints.Currency = types.StrPtr(price.Currency)
			matched++
		}
	}

	if m := sizePattern.FindStringSubmatch(query); m != nil {
		task.Constraints.Size = types.StrPtr(normalize.Size(m[1]))
		matched++
	}

	if m := urlPattern.FindString(query); m != "" {
		task.Sources = types.Sources{Mode: types.SourceModeDirectURL, URL: m}
	} else if m := sitePattern.FindStringSubmatch(query); m != nil {
		site := normalize.SiteName(m[1])
		if hasLetter(site) && site != "sale" && site != "google" {
			task.Sources = types.Sources{
				Mode:  types.SourceModeSpecificSites,
				Sites: []string{site},
			}
		}
	}

	task.Confidence = confidenceFor(matched, task)
	return &Result{Task: task}, nil
}

// confidenceFor maps attribute coverage to [0,1]. A query with neither
// brand nor category stays below every execution threshold.
func confidenceFor(matched int, task *types.ParsedTask) float64 {
	base := 0.3 + 0.15*float64(matched)
	if task.Product.Brand == nil && task.Product.Category == nil {
		base = 0.3
	}
	if base > 0.95 {
		base = 0.95
	}
	return base
}

func detectGender(lower string) string {
	for _, w := range strings.Fields(lower) {
		if g := normalize.Gender(strings.Trim(w, ",.!?")); g != "" {
			return g
		}
	}
	return ""
}

func containsWord(haystack, word string) bool {
	idx := strings.Index(haystack, word)
	if idx < 0 {
		return false
	}
	before := idx == 0 || !isAlnum(haystack[idx-1])
	afterIdx := idx + len(word)
	after := afterIdx >= len(haystack) || !isAlnum(haystack[afterIdx])
	return before && after
}

func hasLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			return true
		}
	}
	return false
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
