// Package parser turns free-text price-check requests into structured
// tasks. The orchestrator consumes it as a black box: it either returns a
// parsed task, a clarification request, or a parse error.
package parser

import (
	"context"

	"github.com/BaSui01/pricescout/types"
)

// Result is the outcome of parsing a query. Exactly one of Task or
// Clarification is populated.
type Result struct {
	Task *types.ParsedTask
	// Clarification holds follow-up questions when the parser itself could
	// not commit to a structured task.
	Clarification []string
}

// IntentParser is the parsing collaborator contract.
type IntentParser interface {
	Parse(ctx context.Context, query string) (*Result, error)
}
