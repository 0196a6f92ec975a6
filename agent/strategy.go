// Package agent contains the two interchangeable execution strategies that
// turn a parsed task into extraction results: a deterministic
// selector/heuristic agent and a vision-model-directed agent. Both
// implement the same Strategy interface so the orchestrator can swap them
// by configuration.
package agent

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/BaSui01/pricescout/types"
)

// Outcome is what a strategy hands back to the orchestrator.
type Outcome struct {
	Status  types.TaskStatus
	Results []types.ExtractionResult
	Errors  []string
	// Turns is the number of planning turns consumed (directed agent only).
	Turns int
}

// Strategy is the execution capability both agents implement.
type Strategy interface {
	ExecuteTask(ctx context.Context, task *types.ParsedTask) (*Outcome, error)
}

// ScreenshotSaver persists screenshots and returns a stable reference path.
type ScreenshotSaver interface {
	Save(name string, png []byte) (string, error)
}

// SearchQuery flattens the product descriptor into a search string.
func SearchQuery(task *types.ParsedTask) string {
	var parts []string
	for _, p := range []*string{
		task.Product.Brand, task.Product.Model,
		task.Product.Category, task.Product.Color,
	} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, " ")
}

// GoogleShoppingURL builds the Google Shopping search URL for a query.
func GoogleShoppingURL(query string) string {
	return "https://www.google.com/search?tbm=shop&q=" + url.QueryEscape(query)
}

// BuildGoal turns a parsed task into the natural-language goal handed to
// the directed agent's planning model: navigation intent, product
// attributes, then the price ceiling.
func BuildGoal(task *types.ParsedTask) string {
	var b strings.Builder
	b.WriteString("Find the current retail price of: ")
	b.WriteString(SearchQuery(task))

	if task.Product.Gender != nil {
		fmt.Fprintf(&b, " (for %s)", *task.Product.Gender)
	}
	if task.Constraints.Size != nil {
		fmt.Fprintf(&b, ", size %s", *task.Constraints.Size)
	}
	if task.Constraints.MaxPrice != nil {
		currency := "EUR"
		if task.Constraints.Currency != nil {
			currency = *task.Constraints.Currency
		}
		fmt.Fprintf(&b, ". The price should stay under %.2f %s", *task.Constraints.MaxPrice, currency)
	}
	switch task.Sources.Mode {
	case types.SourceModeSpecificSites:
		fmt.Fprintf(&b, ". Check these shops: %s", strings.Join(task.Sources.Sites, ", "))
	case types.SourceModeDirectURL:
		fmt.Fprintf(&b, ". Start at %s", task.Sources.URL)
	}
	b.WriteString(". Report each finding as \"product name - price - store\".")
	return b.String()
}
