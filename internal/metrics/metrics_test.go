package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pricescout/types"
)

func TestCollector_Observations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.TaskStarted()
	c.TaskStarted()
	c.TaskDone()
	c.TaskFinished(types.StatusOK, 3*time.Second)
	c.TaskFinished(types.StatusNotFound, time.Second)
	c.PlannerCall()
	c.PlannerRetry()
	c.ResultExtracted(types.MethodSiteSelector)
	c.ResultExtracted(types.MethodSiteSelector)
	c.ResultExtracted(types.MethodDOMScan)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeTasks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksTotal.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.plannerCalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.plannerRetries))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.extractionTiers.WithLabelValues("site_selector")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	// must not panic
	c.TaskStarted()
	c.TaskDone()
	c.TaskFinished(types.StatusOK, time.Second)
	c.PlannerCall()
	c.PlannerRetry()
	c.ResultExtracted(types.MethodRegexScan)
}
