package types

// ResultSummary aggregates a task's results for the response projection.
type ResultSummary struct {
	TotalResults     int      `json:"total_results"`
	MatchingCriteria int      `json:"matching_criteria"`
	LowestPrice      *float64 `json:"lowest_price,omitempty"`
}

// TaskResponse is the documented projection of a finished task. It is the
// only shape the HTTP layer ever sees; internal task state stays private.
type TaskResponse struct {
	TaskID              string             `json:"task_id"`
	Status              TaskStatus         `json:"status"`
	OriginalQuery       string             `json:"original_query"`
	Parsed              *ParsedTask        `json:"parsed,omitempty"`
	Results             []ExtractionResult `json:"results,omitempty"`
	Summary             *ResultSummary     `json:"summary,omitempty"`
	ClarificationNeeded []string           `json:"clarification_needed,omitempty"`
	Errors              []string           `json:"errors,omitempty"`
	ExecutionTimeMs     int64              `json:"execution_time_ms"`
	Timestamp           string             `json:"timestamp"` // ISO-8601
}
