// Package normalize provides pure functions that convert free-form text
// fragments (brand, color, currency, price, size, gender, site name) into
// canonical values. No state, no I/O.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Price is the outcome of parsing a price-bearing text fragment. Amount is
// nil when the text carried no numeric content.
type Price struct {
	Amount   *float64
	Currency string
}

var currencySymbols = map[string]string{
	"€":   "EUR",
	"$":   "USD",
	"£":   "GBP",
	"¥":   "JPY",
	"₹":   "INR",
	"zł":  "PLN",
	"kr":  "SEK",
	"chf": "CHF",
	"eur": "EUR",
	"usd": "USD",
	"gbp": "GBP",
	"jpy": "JPY",
	"pln": "PLN",
	"sek": "SEK",
}

// currencyMarkers is probed in order so that symbol matches win over word
// matches regardless of map iteration order.
var currencyMarkers = []struct {
	marker string
	iso    string
}{
	{"€", "EUR"}, {"$", "USD"}, {"£", "GBP"}, {"¥", "JPY"}, {"₹", "INR"},
	{"eur", "EUR"}, {"usd", "USD"}, {"gbp", "GBP"}, {"jpy", "JPY"},
	{"chf", "CHF"}, {"pln", "PLN"}, {"zł", "PLN"}, {"sek", "SEK"},
}

// numericToken matches currency-marked or bare numeric tokens such as
// "99.99", "1,299.00", "1.299,00" or "99,99".
var numericToken = regexp.MustCompile(`\d{1,3}(?:[.,\s]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`)

// ParsePrice extracts a numeric amount and an ISO currency code from a text
// fragment. For text with no numeric content the amount is nil. Currency
// defaults to EUR when a number is present but no currency marker is found,
// matching the dominant target market.
func ParsePrice(text string) Price {
	p := Price{}
	if text == "" {
		return p
	}

	lower := strings.ToLower(text)
	for _, m := range currencyMarkers {
		if strings.Contains(lower, m.marker) {
			p.Currency = m.iso
			break
		}
	}

	token := numericToken.FindString(text)
	if token == "" {
		return p
	}

	amount, ok := parseAmount(token)
	if !ok {
		return p
	}
	p.Amount = &amount
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	return p
}

// parseAmount resolves the decimal separator ambiguity between EU and US
// formats: when both "." and "," appear, the last one is the decimal
// separator; a lone "," or "." followed by exactly two digits at the end is
// a decimal separator, otherwise a thousands separator.
func parseAmount(token string) (float64, bool) {
	token = strings.ReplaceAll(token, " ", "")
	lastDot := strings.LastIndex(token, ".")
	lastComma := strings.LastIndex(token, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// EU style: 1.299,00
			token = strings.ReplaceAll(token, ".", "")
			token = strings.Replace(token, ",", ".", 1)
		} else {
			// US style: 1,299.00
			token = strings.ReplaceAll(token, ",", "")
		}
	case lastComma >= 0:
		frac := len(token) - lastComma - 1
		if frac == 3 && len(token) > 4 {
			token = strings.ReplaceAll(token, ",", "")
		} else {
			token = strings.Replace(token, ",", ".", 1)
		}
	case lastDot >= 0:
		frac := len(token) - lastDot - 1
		if frac == 3 && len(token) > 4 {
			token = strings.ReplaceAll(token, ".", "")
		}
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Currency normalizes a currency symbol or word to an ISO 4217 code.
// Unrecognized input is uppercased and returned as-is when it already looks
// like an ISO code, otherwise empty.
func Currency(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}
	if iso, ok := currencySymbols[s]; ok {
		return iso
	}
	if len(s) == 3 {
		return strings.ToUpper(s)
	}
	return ""
}
