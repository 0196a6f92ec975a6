// Package planner is the client for the remote vision action-planning
// service the directed agent delegates to. Each call sends the full
// conversation so far and receives either discrete browser actions or a
// terminal text response.
package planner

import (
	"context"

	"github.com/BaSui01/pricescout/types"
)

// Decision is one planning turn's outcome. When Actions is empty the Text
// response is terminal and ends the loop.
type Decision struct {
	Actions []types.Action
	Text    string
}

// Client plans the next browser actions from the conversation state.
type Client interface {
	NextTurn(ctx context.Context, conv *types.Conversation) (*Decision, error)
}

// IsRetryable reports whether a planning error is a transient infrastructure
// fault (rate-limited or unavailable) worth retrying with backoff.
func IsRetryable(err error) bool {
	switch types.GetErrorCode(err) {
	case types.ErrRateLimited, types.ErrServiceUnavailable:
		return true
	}
	return false
}
