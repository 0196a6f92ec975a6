// Package guard contains the pre-execution validation rules for parsed
// tasks. The guard is a stateless rule evaluator: every rule is checked and
// every violation reported, so a caller sees all problems at once.
package guard

import (
	"fmt"

	"github.com/BaSui01/pricescout/types"
)

// Config tunes the guard thresholds.
type Config struct {
	// MinConfidence is the hard gate coupling parse quality to execution.
	// Confidence below it is an error, not a warning.
	MinConfidence float64 `yaml:"min_confidence"`
	// ClarifyConfidence is the higher threshold under which a task is sent
	// back with clarification questions instead of being executed.
	ClarifyConfidence float64 `yaml:"clarify_confidence"`
	// MaxPriceWarnCeiling produces a warning for implausibly large price
	// ceilings without rejecting them.
	MaxPriceWarnCeiling float64 `yaml:"max_price_warn_ceiling"`
}

// DefaultConfig returns the default guard thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence:       0.3,
		ClarifyConfidence:   0.6,
		MaxPriceWarnCeiling: 100000,
	}
}

// Result is the outcome of validating a parsed task.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Guard evaluates validation rules against parsed tasks.
type Guard struct {
	cfg        Config
	knownSites map[string]bool
}

// New creates a guard. knownSites lists the site keys present in the site
// configuration table; names outside it only produce warnings since generic
// extraction is still attempted for them.
func New(cfg Config, knownSites []string) *Guard {
	known := make(map[string]bool, len(knownSites))
	for _, s := range knownSites {
		known[s] = true
	}
	return &Guard{cfg: cfg, knownSites: known}
}

// Validate evaluates all rules independently, never short-circuiting.
func (g *Guard) Validate(p *types.ParsedTask) Result {
	var r Result
	if p == nil {
		r.Errors = append(r.Errors, "parsed task is missing")
		return r
	}

	if p.TaskType != types.TaskTypePriceCheck {
		r.Errors = append(r.Errors, fmt.Sprintf("unsupported task type %q, only %q is supported", p.TaskType, types.TaskTypePriceCheck))
	}

	if p.Product.Brand == nil && p.Product.Model == nil {
		r.Errors = append(r.Errors, "product must specify a brand or a model")
		if p.Product.Category == nil {
			r.Warnings = append(r.Warnings, "no brand, model or category: scope too broad for useful results")
		}
	}

	if p.Constraints.MaxPrice != nil {
		if *p.Constraints.MaxPrice <= 0 {
			r.Errors = append(r.Errors, "max_price must be a positive number")
		} else if *p.Constraints.MaxPrice > g.cfg.MaxPriceWarnCeiling {
			r.Warnings = append(r.Warnings, fmt.Sprintf("max_price %.2f exceeds sanity ceiling %.0f", *p.Constraints.MaxPrice, g.cfg.MaxPriceWarnCeiling))
		}
	}

	switch p.Sources.Mode {
	case "":
		r.Errors = append(r.Errors, "sources.mode must be set")
	case types.SourceModeSpecificSites:
		if len(p.Sources.Sites) == 0 {
			r.Errors = append(r.Errors, "specific_sites mode requires at least one site")
		}
		for _, site := range p.Sources.Sites {
			if !g.knownSites[site] {
				r.Warnings = append(r.Warnings, fmt.Sprintf("site %q is not in the known-site table, falling back to generic extraction", site))
			}
		}
	}

	if p.Confidence < 0 || p.Confidence > 1 {
		r.Errors = append(r.Errors, fmt.Sprintf("confidence %.2f outside [0,1]", p.Confidence))
	} else if p.Confidence < g.cfg.MinConfidence {
		r.Errors = append(r.Errors, fmt.Sprintf("confidence %.2f below minimum %.2f", p.Confidence, g.cfg.MinConfidence))
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// NeedsClarification is the pre-guard predicate. It is a pure function of
// (confidence, brand, model, sources) and returns the follow-up questions to
// ask, or nil when execution can proceed. It overlaps with Validate but is
// evaluated first and short-circuits validation and execution entirely.
func NeedsClarification(p *types.ParsedTask, confidenceThreshold float64) []string {
	if p == nil {
		return []string{"What product would you like to price-check?"}
	}

	var questions []string
	if p.Product.Brand == nil && p.Product.Model == nil {
		questions = append(questions, "Which brand or model are you looking for?")
	}
	if p.Confidence < confidenceThreshold {
		questions = append(questions, "Could you describe the product in more detail?")
	}
	if p.Sources.Mode == types.SourceModeSpecificSites && len(p.Sources.Sites) == 0 {
		questions = append(questions, "Which shops should be searched?")
	}
	return questions
}

// NeedsClarification applies the configured threshold.
func (g *Guard) NeedsClarification(p *types.ParsedTask) []string {
	return NeedsClarification(p, g.cfg.ClarifyConfidence)
}
