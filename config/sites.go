package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteSelectors holds the CSS/text selectors a site-specific extraction
// attempt probes first, before falling back to generic heuristics.
type SiteSelectors struct {
	Price           string `yaml:"price"`
	Name            string `yaml:"name"`
	ResultContainer string `yaml:"result_container"`
}

// SiteConfig describes one known retail site. Read-only during a task.
type SiteConfig struct {
	Name      string        `yaml:"name"`
	SearchURL string        `yaml:"search_url"` // template with a "{query}" placeholder
	Selectors SiteSelectors `yaml:"selectors"`
	// RateLimit is the minimum delay before contacting the site.
	RateLimit time.Duration `yaml:"rate_limit"`
	// CaptchaIndicators and BlockIndicators extend the built-in generic
	// detection lists. Detection stays best-effort: static selectors are
	// brittle against site redesigns.
	CaptchaIndicators []string `yaml:"captcha_indicators,omitempty"`
	BlockIndicators   []string `yaml:"block_indicators,omitempty"`
}

// SearchURLFor substitutes the query into the site's search template.
func (s SiteConfig) SearchURLFor(query string) string {
	return strings.ReplaceAll(s.SearchURL, "{query}", query)
}

// DefaultSites returns the built-in site table.
func DefaultSites() map[string]SiteConfig {
	return map[string]SiteConfig{
		"zalando": {
			Name:      "Zalando",
			SearchURL: "https://www.zalando.de/katalog/?q={query}",
			Selectors: SiteSelectors{
				Price:           "[data-testid='product-price']",
				Name:            "[data-testid='product-name']",
				ResultContainer: "[data-testid='grid-item']",
			},
			RateLimit: 2 * time.Second,
		},
		"amazon": {
			Name:      "Amazon",
			SearchURL: "https://www.amazon.de/s?k={query}",
			Selectors: SiteSelectors{
				Price:           ".a-price .a-offscreen",
				Name:            "h2 a span",
				ResultContainer: "[data-component-type='s-search-result']",
			},
			RateLimit: 3 * time.Second,
		},
		"ebay": {
			Name:      "eBay",
			SearchURL: "https://www.ebay.de/sch/i.html?_nkw={query}",
			Selectors: SiteSelectors{
				Price:           ".s-item__price",
				Name:            ".s-item__title",
				ResultContainer: ".s-item",
			},
			RateLimit: 2 * time.Second,
		},
	}
}

// LoadSites reads a site table from a YAML file, or returns the built-in
// table when path is empty.
func LoadSites(path string) (map[string]SiteConfig, error) {
	if path == "" {
		return DefaultSites(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites %s: %w", path, err)
	}
	sites := make(map[string]SiteConfig)
	if err := yaml.Unmarshal(data, &sites); err != nil {
		return nil, fmt.Errorf("parse sites %s: %w", path, err)
	}
	for key, site := range sites {
		if site.SearchURL == "" {
			return nil, fmt.Errorf("site %q has no search_url", key)
		}
	}
	return sites, nil
}

// SiteKeys returns the sorted-insensitive key list of a site table.
func SiteKeys(sites map[string]SiteConfig) []string {
	keys := make([]string, 0, len(sites))
	for k := range sites {
		keys = append(keys, k)
	}
	return keys
}
