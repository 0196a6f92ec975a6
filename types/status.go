package types

import "fmt"

// TaskStatus represents the lifecycle state of a price-check task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"

	// Pre-execution terminal states.
	StatusValidationFailed    TaskStatus = "validation_failed"
	StatusClarificationNeeded TaskStatus = "clarification_needed"

	// Execution terminal states.
	StatusOK       TaskStatus = "ok"
	StatusNotFound TaskStatus = "not_found"
	StatusCaptcha  TaskStatus = "captcha"
	StatusBlocked  TaskStatus = "blocked"
	StatusTimeout  TaskStatus = "timeout"

	// StatusLayoutChanged is part of the taxonomy but has no automatic
	// detector; it can only be set by a per-site probe.
	StatusLayoutChanged TaskStatus = "layout_changed"
)

var terminalStatuses = map[TaskStatus]bool{
	StatusValidationFailed:    true,
	StatusClarificationNeeded: true,
	StatusOK:                  true,
	StatusNotFound:            true,
	StatusCaptcha:             true,
	StatusBlocked:             true,
	StatusTimeout:             true,
	StatusLayoutChanged:       true,
}

// Clarification and validation failures are reachable only before execution;
// execution outcomes only from in_progress.
var validTransitions = map[TaskStatus]map[TaskStatus]bool{
	StatusPending: {
		StatusInProgress: true,
	},
	StatusInProgress: {
		StatusValidationFailed:    true,
		StatusClarificationNeeded: true,
		StatusOK:                  true,
		StatusNotFound:            true,
		StatusCaptcha:             true,
		StatusBlocked:             true,
		StatusTimeout:             true,
		StatusLayoutChanged:       true,
	},
}

// IsTerminal reports whether s is a terminal status.
func IsTerminal(s TaskStatus) bool {
	return terminalStatuses[s]
}

// ValidateTransition checks that from → to is an allowed status transition.
func ValidateTransition(from, to TaskStatus) error {
	if IsTerminal(from) {
		return fmt.Errorf("cannot transition from terminal status %q", from)
	}
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid task transition: %q → %q", from, to)
	}
	return nil
}
