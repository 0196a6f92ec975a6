package types

import (
	"time"

	"github.com/google/uuid"
)

// Task is one end-to-end price-check request and its lifecycle. It is owned
// exclusively by the orchestrator for its lifetime and removed from the
// active-task registry once a terminal status is reached.
type Task struct {
	ID            string             `json:"id"`
	Status        TaskStatus         `json:"status"`
	OriginalQuery string             `json:"original_query"`
	Parsed        *ParsedTask        `json:"parsed,omitempty"`
	Results       []ExtractionResult `json:"results,omitempty"`
	Errors        []string           `json:"errors,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	CompletedAt   time.Time          `json:"completed_at,omitempty"`
	ExecutionTime time.Duration      `json:"execution_time"`
}

// NewTask creates a pending task for the given query.
func NewTask(query string) *Task {
	return &Task{
		ID:            uuid.NewString(),
		Status:        StatusPending,
		OriginalQuery: query,
		CreatedAt:     time.Now(),
	}
}

// Transition moves the task to the given status, enforcing the state machine.
func (t *Task) Transition(to TaskStatus) error {
	if err := ValidateTransition(t.Status, to); err != nil {
		return err
	}
	t.Status = to
	return nil
}

// AppendResult appends a result to the task's append-only result list.
func (t *Task) AppendResult(r ExtractionResult) {
	t.Results = append(t.Results, r)
}

// AppendError records an error message on the task.
func (t *Task) AppendError(msg string) {
	t.Errors = append(t.Errors, msg)
}

// Finalize stamps completion time and execution duration.
func (t *Task) Finalize() {
	t.CompletedAt = time.Now()
	t.ExecutionTime = t.CompletedAt.Sub(t.CreatedAt)
}
