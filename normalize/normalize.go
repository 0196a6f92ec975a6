package normalize

import (
	"net/url"
	"strings"
)

var brandAliases = map[string]string{
	"nike":        "Nike",
	"adidas":      "Adidas",
	"puma":        "Puma",
	"new balance": "New Balance",
	"newbalance":  "New Balance",
	"asics":       "Asics",
	"reebok":      "Reebok",
	"converse":    "Converse",
	"vans":        "Vans",
	"levis":       "Levi's",
	"levi's":      "Levi's",
	"zara":        "Zara",
	"h&m":         "H&M",
	"hm":          "H&M",
	"uniqlo":      "Uniqlo",
}

// Brand canonicalizes a brand name. Unknown brands are title-cased rather
// than rejected since extraction stays best-effort for them.
func Brand(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}
	if canonical, ok := brandAliases[s]; ok {
		return canonical
	}
	return titleCase(s)
}

var colorAliases = map[string]string{
	"grey":      "gray",
	"navy":      "blue",
	"burgundy":  "red",
	"beige":     "beige",
	"khaki":     "beige",
	"off-white": "white",
}

// Color lowercases a color and folds common synonyms.
func Color(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if canonical, ok := colorAliases[s]; ok {
		return canonical
	}
	return s
}

// Gender folds free-form gender words into men, women, unisex or kids.
func Gender(raw string) string {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "men", "man", "male", "mens", "men's", "herren":
		return "men"
	case "women", "woman", "female", "womens", "women's", "damen", "ladies":
		return "women"
	case "kids", "kid", "children", "child", "junior", "kinder":
		return "kids"
	case "unisex":
		return "unisex"
	default:
		return ""
	}
}

// Size strips decoration like "size" or "EU" prefixes and uppercases letter
// sizes, so "size 42", "eu 42" and "42" all normalize to "42".
func Size(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	for _, prefix := range []string{"size ", "eu ", "us ", "uk "} {
		s = strings.TrimPrefix(s, prefix)
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// SiteName reduces a site reference (name, host or URL) to a lookup key:
// "www.Zalando.de", "https://zalando.de/shoes" and "Zalando" all become
// "zalando".
func SiteName(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			s = u.Host
		}
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
