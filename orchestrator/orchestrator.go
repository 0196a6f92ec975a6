// Package orchestrator owns the task lifecycle: it turns a free-text query
// into a task, drives it through parse, clarification, validation and
// strategy execution, persists the outcome and answers status lookups.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pricescout/agent"
	"github.com/BaSui01/pricescout/guard"
	"github.com/BaSui01/pricescout/internal/metrics"
	"github.com/BaSui01/pricescout/parser"
	"github.com/BaSui01/pricescout/sink"
	"github.com/BaSui01/pricescout/types"
)

// Recorder stores finished task summaries.
type Recorder interface {
	Record(task *types.Task) error
}

// Options wires the orchestrator's collaborators. Parser, Guard and
// Strategy are required; the rest are optional.
type Options struct {
	Parser   parser.IntentParser
	Guard    *guard.Guard
	Strategy agent.Strategy
	Sink     sink.Sink
	History  Recorder
	Metrics  *metrics.Collector
	Logger   *zap.Logger
	// TaskTimeout bounds one task end to end. Zero disables the bound.
	TaskTimeout time.Duration
}

// Orchestrator coordinates the task pipeline. The active-task registry is
// its only mutable shared state: tasks are inserted on creation, removed at
// finalization, and never mutated through the registry.
type Orchestrator struct {
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]*types.Task
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		opts:   opts,
		logger: logger.With(zap.String("component", "orchestrator")),
		active: make(map[string]*types.Task),
	}
}

// ProcessQuery runs one price-check task end to end and returns its
// response projection. Pipeline phases fail fast: the first failing phase
// finalizes the task. A panic anywhere in the pipeline is mapped to the
// timeout status rather than crashing the process.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string) (resp *types.TaskResponse, err error) {
	task := types.NewTask(query)
	o.register(task)
	o.opts.Metrics.TaskStarted()

	o.logger.Info("task started",
		zap.String("task_id", task.ID), zap.String("query", query))

	finished := false
	defer func() {
		if r := recover(); r != nil && !finished {
			o.logger.Error("task panicked",
				zap.String("task_id", task.ID), zap.Any("panic", r))
			o.forceTimeout(task)
			task.AppendError(fmt.Sprintf("internal failure: %v", r))
			resp = o.finish(task, nil)
			err = nil
		}
	}()
	finish := func(clarifications []string) *types.TaskResponse {
		finished = true
		return o.finish(task, clarifications)
	}

	if o.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.TaskTimeout)
		defer cancel()
	}

	_ = task.Transition(types.StatusInProgress)

	parsed, err := o.opts.Parser.Parse(ctx, query)
	if err != nil {
		task.AppendError(fmt.Sprintf("parse: %v", err))
		_ = task.Transition(types.StatusValidationFailed)
		return finish(nil), nil
	}
	if len(parsed.Clarification) > 0 {
		_ = task.Transition(types.StatusClarificationNeeded)
		return finish(parsed.Clarification), nil
	}
	task.Parsed = parsed.Task

	if questions := o.opts.Guard.NeedsClarification(task.Parsed); len(questions) > 0 {
		_ = task.Transition(types.StatusClarificationNeeded)
		return finish(questions), nil
	}

	validation := o.opts.Guard.Validate(task.Parsed)
	for _, w := range validation.Warnings {
		o.logger.Warn("validation warning",
			zap.String("task_id", task.ID), zap.String("warning", w))
	}
	if !validation.Valid {
		for _, e := range validation.Errors {
			task.AppendError(e)
		}
		_ = task.Transition(types.StatusValidationFailed)
		return finish(nil), nil
	}

	outcome, execErr := o.opts.Strategy.ExecuteTask(ctx, task.Parsed)
	if execErr != nil {
		task.AppendError(execErr.Error())
		_ = task.Transition(types.StatusTimeout)
		return finish(nil), nil
	}

	for _, r := range outcome.Results {
		task.AppendResult(r)
		o.opts.Metrics.ResultExtracted(r.Method)
	}
	for _, e := range outcome.Errors {
		task.AppendError(e)
	}
	if err := task.Transition(outcome.Status); err != nil {
		o.logger.Error("strategy returned invalid status",
			zap.String("task_id", task.ID), zap.Error(err))
		_ = task.Transition(types.StatusTimeout)
	}
	return finish(nil), nil
}

// GetTaskStatus returns the projection of a currently active task.
func (o *Orchestrator) GetTaskStatus(id string) (*types.TaskResponse, error) {
	o.mu.Lock()
	task, ok := o.active[id]
	o.mu.Unlock()
	if !ok {
		return nil, types.NewError(types.ErrTaskNotFound, "no active task with id "+id).
			WithHTTPStatus(404)
	}
	return buildResponse(task, nil), nil
}

// ActiveTasks lists the ids of tasks currently in flight.
func (o *Orchestrator) ActiveTasks() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.active))
	for id := range o.active {
		ids = append(ids, id)
	}
	return ids
}

func (o *Orchestrator) register(task *types.Task) {
	o.mu.Lock()
	o.active[task.ID] = task
	o.mu.Unlock()
}

func (o *Orchestrator) unregister(id string) {
	o.mu.Lock()
	delete(o.active, id)
	o.mu.Unlock()
}

// finish finalizes the task, persists it, updates metrics and removes it
// from the registry.
func (o *Orchestrator) finish(task *types.Task, clarifications []string) *types.TaskResponse {
	task.Finalize()

	o.opts.Metrics.TaskFinished(task.Status, task.ExecutionTime)
	o.opts.Metrics.TaskDone()

	if o.opts.Sink != nil {
		if err := o.opts.Sink.Persist(task); err != nil {
			o.logger.Error("persist failed",
				zap.String("task_id", task.ID), zap.Error(err))
		}
	}
	if o.opts.History != nil {
		if err := o.opts.History.Record(task); err != nil {
			o.logger.Error("history record failed",
				zap.String("task_id", task.ID), zap.Error(err))
		}
	}

	o.unregister(task.ID)
	o.logger.Info("task finished",
		zap.String("task_id", task.ID),
		zap.String("status", string(task.Status)),
		zap.Int("results", len(task.Results)),
		zap.Duration("took", task.ExecutionTime))

	return buildResponse(task, clarifications)
}

// forceTimeout pushes a task to the timeout status from wherever it is.
func (o *Orchestrator) forceTimeout(task *types.Task) {
	if types.IsTerminal(task.Status) {
		return
	}
	if task.Status == types.StatusPending {
		_ = task.Transition(types.StatusInProgress)
	}
	_ = task.Transition(types.StatusTimeout)
}

func buildResponse(task *types.Task, clarifications []string) *types.TaskResponse {
	resp := &types.TaskResponse{
		TaskID:              task.ID,
		Status:              task.Status,
		OriginalQuery:       task.OriginalQuery,
		Parsed:              task.Parsed,
		Results:             task.Results,
		ClarificationNeeded: clarifications,
		Errors:              task.Errors,
		ExecutionTimeMs:     task.ExecutionTime.Milliseconds(),
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
	}
	if len(task.Results) > 0 {
		summary := &types.ResultSummary{TotalResults: len(task.Results)}
		for _, r := range task.Results {
			if r.MeetsCriteria {
				summary.MatchingCriteria++
			}
			if summary.LowestPrice == nil || r.CurrentPrice < *summary.LowestPrice {
				price := r.CurrentPrice
				summary.LowestPrice = &price
			}
		}
		resp.Summary = summary
	}
	return resp
}
