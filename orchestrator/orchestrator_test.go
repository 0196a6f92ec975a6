package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pricescout/agent"
	"github.com/BaSui01/pricescout/config"
	"github.com/BaSui01/pricescout/guard"
	"github.com/BaSui01/pricescout/parser"
	"github.com/BaSui01/pricescout/types"
)

// stubStrategy replays a canned outcome and records invocations.
type stubStrategy struct {
	mu      sync.Mutex
	outcome *agent.Outcome
	err     error
	panics  bool
	block   chan struct{} // when set, ExecuteTask waits for it to close
	calls   int
}

func (s *stubStrategy) ExecuteTask(ctx context.Context, _ *types.ParsedTask) (*agent.Outcome, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panics {
		panic("selector table corrupted")
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.outcome, s.err
}

func (s *stubStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// memorySink collects persisted tasks in memory.
type memorySink struct {
	mu    sync.Mutex
	tasks []*types.Task
	err   error
}

func (m *memorySink) Persist(task *types.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return m.err
}

func newOrchestrator(strategy agent.Strategy, sinkArg *memorySink) *Orchestrator {
	opts := Options{
		Parser:   parser.NewOfflineParser(),
		Guard:    guard.New(guard.DefaultConfig(), config.SiteKeys(config.DefaultSites())),
		Strategy: strategy,
	}
	if sinkArg != nil {
		opts.Sink = sinkArg
	}
	return New(opts)
}

func okOutcome() *agent.Outcome {
	return &agent.Outcome{
		Status: types.StatusOK,
		Results: []types.ExtractionResult{
			{
				ProductName:   "Nike Air Max 90",
				CurrentPrice:  89.99,
				Currency:      "EUR",
				StoreName:     "Zalando",
				Availability:  types.AvailabilityInStock,
				Timestamp:     time.Now().UTC(),
				MeetsCriteria: true,
			},
			{
				ProductName:   "Nike Air Max 95",
				CurrentPrice:  129.99,
				Currency:      "EUR",
				StoreName:     "Amazon",
				Availability:  types.AvailabilityInStock,
				Timestamp:     time.Now().UTC(),
				MeetsCriteria: false,
			},
		},
	}
}

func TestProcessQuery_HappyPath(t *testing.T) {
	strategy := &stubStrategy{outcome: okOutcome()}
	sink := &memorySink{}
	o := newOrchestrator(strategy, sink)

	resp, err := o.ProcessQuery(context.Background(), "Find Nike sneakers under 100€")
	require.NoError(t, err)

	assert.Equal(t, types.StatusOK, resp.Status)
	require.NotNil(t, resp.Parsed)
	assert.Equal(t, "Nike", *resp.Parsed.Product.Brand)
	require.NotNil(t, resp.Parsed.Constraints.MaxPrice)
	assert.Equal(t, 100.0, *resp.Parsed.Constraints.MaxPrice)

	require.Len(t, resp.Results, 2)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 2, resp.Summary.TotalResults)
	assert.Equal(t, 1, resp.Summary.MatchingCriteria)
	require.NotNil(t, resp.Summary.LowestPrice)
	assert.Equal(t, 89.99, *resp.Summary.LowestPrice)

	assert.Equal(t, 1, strategy.callCount())
	require.Len(t, sink.tasks, 1)
	assert.Empty(t, o.ActiveTasks())
}

func TestProcessQuery_VagueQueryAsksForClarification(t *testing.T) {
	strategy := &stubStrategy{outcome: okOutcome()}
	o := newOrchestrator(strategy, nil)

	resp, err := o.ProcessQuery(context.Background(), "find something cheap")
	require.NoError(t, err)

	assert.Equal(t, types.StatusClarificationNeeded, resp.Status)
	assert.NotEmpty(t, resp.ClarificationNeeded)
	assert.Empty(t, resp.Results)
	// clarification short-circuits execution entirely
	assert.Equal(t, 0, strategy.callCount())
}

func TestProcessQuery_StrategyErrorBecomesTimeout(t *testing.T) {
	strategy := &stubStrategy{err: errors.New("browser never started")}
	o := newOrchestrator(strategy, nil)

	resp, err := o.ProcessQuery(context.Background(), "Find Nike sneakers under 100€")
	require.NoError(t, err)

	assert.Equal(t, types.StatusTimeout, resp.Status)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0], "browser never started")
}

func TestProcessQuery_PanicMapsToTimeout(t *testing.T) {
	strategy := &stubStrategy{panics: true}
	sink := &memorySink{}
	o := newOrchestrator(strategy, sink)

	resp, err := o.ProcessQuery(context.Background(), "Find Nike sneakers under 100€")
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, types.StatusTimeout, resp.Status)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0], "internal failure")
	// the task still reached the sink and left the registry
	assert.Len(t, sink.tasks, 1)
	assert.Empty(t, o.ActiveTasks())
}

func TestRegistry_ActiveDuringExecutionOnly(t *testing.T) {
	release := make(chan struct{})
	strategy := &stubStrategy{outcome: okOutcome(), block: release}
	o := newOrchestrator(strategy, nil)

	done := make(chan *types.TaskResponse, 1)
	go func() {
		resp, _ := o.ProcessQuery(context.Background(), "Find Nike sneakers under 100€")
		done <- resp
	}()

	var id string
	require.Eventually(t, func() bool {
		ids := o.ActiveTasks()
		if len(ids) != 1 {
			return false
		}
		id = ids[0]
		return true
	}, time.Second, 5*time.Millisecond)

	status, err := o.GetTaskStatus(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, status.Status)

	close(release)
	resp := <-done
	assert.Equal(t, id, resp.TaskID)
	assert.Empty(t, o.ActiveTasks())

	_, err = o.GetTaskStatus(id)
	require.Error(t, err)
	assert.Equal(t, types.ErrTaskNotFound, types.GetErrorCode(err))
}

func TestProcessQuery_SinkFailureDoesNotFailTask(t *testing.T) {
	strategy := &stubStrategy{outcome: okOutcome()}
	sink := &memorySink{err: errors.New("disk full")}
	o := newOrchestrator(strategy, sink)

	resp, err := o.ProcessQuery(context.Background(), "Find Nike sneakers under 100€")
	require.NoError(t, err)
	assert.Equal(t, types.StatusOK, resp.Status)
}

func TestProcessQuery_NotFoundPassesThrough(t *testing.T) {
	strategy := &stubStrategy{outcome: &agent.Outcome{Status: types.StatusNotFound}}
	o := newOrchestrator(strategy, nil)

	resp, err := o.ProcessQuery(context.Background(), "Find Nike sneakers under 100€")
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotFound, resp.Status)
	assert.Nil(t, resp.Summary)
}
