// Package metrics exposes Prometheus instrumentation for the task pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BaSui01/pricescout/types"
)

const namespace = "pricescout"

// Collector aggregates the pipeline's metrics. A nil *Collector is a no-op,
// so call sites never need nil checks at each observation.
type Collector struct {
	tasksTotal      *prometheus.CounterVec
	taskDuration    prometheus.Histogram
	plannerCalls    prometheus.Counter
	plannerRetries  prometheus.Counter
	extractionTiers *prometheus.CounterVec
	activeTasks     prometheus.Gauge
}

// NewCollector registers the collectors on the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Finished tasks by terminal status.",
		}, []string{"status"}),
		taskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "End-to-end task execution time.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		plannerCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_calls_total",
			Help:      "Calls made to the planning service.",
		}),
		plannerRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "planner_retries_total",
			Help:      "Retried planning calls.",
		}),
		extractionTiers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_results_total",
			Help:      "Extraction results by method tier.",
		}, []string{"method"}),
		activeTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tasks",
			Help:      "Tasks currently in flight.",
		}),
	}
}

// TaskFinished records a terminal status and the task duration.
func (c *Collector) TaskFinished(status types.TaskStatus, d time.Duration) {
	if c == nil {
		return
	}
	c.tasksTotal.WithLabelValues(string(status)).Inc()
	c.taskDuration.Observe(d.Seconds())
}

// TaskStarted bumps the in-flight gauge.
func (c *Collector) TaskStarted() {
	if c == nil {
		return
	}
	c.activeTasks.Inc()
}

// TaskDone drops the in-flight gauge.
func (c *Collector) TaskDone() {
	if c == nil {
		return
	}
	c.activeTasks.Dec()
}

// PlannerCall counts one planning request.
func (c *Collector) PlannerCall() {
	if c == nil {
		return
	}
	c.plannerCalls.Inc()
}

// PlannerRetry counts one retried planning request.
func (c *Collector) PlannerRetry() {
	if c == nil {
		return
	}
	c.plannerRetries.Inc()
}

// ResultExtracted counts one result by its extraction tier.
func (c *Collector) ResultExtracted(method types.ExtractionMethod) {
	if c == nil {
		return
	}
	c.extractionTiers.WithLabelValues(string(method)).Inc()
}
