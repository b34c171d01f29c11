package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/jobmesh/core"
)

// DefaultNamespace prefixes all metric names.
const DefaultNamespace = "jobmesh"

// Run outcome labels.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Options configures a Collector instance.
type Options struct {
	// Namespace prefixes all metric names. Defaults to DefaultNamespace.
	Namespace string

	// Registerer receives the collector's metrics. Defaults to the global
	// prometheus registerer.
	Registerer prometheus.Registerer
}

// Collector bundles the Prometheus metrics of the workflow engine and the
// HTTP layer. Its observer methods plug directly into the engine's OnStep
// and OnFinish hooks.
//
// Register at most one Collector per registerer; metric names collide
// otherwise.
type Collector struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runSteps    *prometheus.HistogramVec
	stepsTotal  *prometheus.CounterVec
	tokensUsed  *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	activeRuns prometheus.GaugeFunc

	registerer prometheus.Registerer
	namespace  string
}

// NewCollector creates and registers the metric set.
func NewCollector(optFns ...func(o *Options)) *Collector {
	opts := Options{
		Namespace:  DefaultNamespace,
		Registerer: prometheus.DefaultRegisterer,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	factory := promauto.With(opts.Registerer)

	c := &Collector{
		registerer: opts.Registerer,
		namespace:  opts.Namespace,
	}

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "workflow_runs_total",
			Help:      "Total number of finished workflow runs",
		},
		[]string{"workflow", "outcome"},
	)

	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "workflow_run_duration_seconds",
			Help:      "Workflow run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"workflow"},
	)

	c.runSteps = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "workflow_run_steps",
			Help:      "Number of agent steps per workflow run",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		},
		[]string{"workflow"},
	)

	c.stepsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "workflow_steps_total",
			Help:      "Total number of executed agent steps",
		},
		[]string{"workflow", "agent", "outcome"},
	)

	c.tokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "workflow_tokens_used_total",
			Help:      "Total number of model tokens consumed by workflow runs",
		},
		[]string{"workflow"},
	)

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	return c
}

// ObserveStep records one executed agent step. Wire it into the engine's
// OnStep hook.
func (c *Collector) ObserveStep(ev core.StepEvent) {
	c.stepsTotal.WithLabelValues(ev.WorkflowType, ev.Agent, ev.Outcome).Inc()
}

// ObserveRun records one settled run. Wire it into the engine's OnFinish
// hook.
func (c *Collector) ObserveRun(report *core.Report, runErr error) {
	outcome := runOutcome(runErr)

	c.runsTotal.WithLabelValues(report.WorkflowType, outcome).Inc()
	c.runDuration.WithLabelValues(report.WorkflowType).Observe(report.Duration.Seconds())
	c.runSteps.WithLabelValues(report.WorkflowType).Observe(float64(report.Steps))
	c.tokensUsed.WithLabelValues(report.WorkflowType).Add(float64(report.TokensUsed))
}

// TrackActiveRuns registers a gauge sampling fn at scrape time. Call it once
// with the engine's ActiveRuns method.
func (c *Collector) TrackActiveRuns(fn func() int) {
	c.activeRuns = promauto.With(c.registerer).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "workflow_active_runs",
			Help:      "Number of workflow runs currently queued or executing",
		},
		func() float64 { return float64(fn()) },
	)
}

// RecordHTTPRequest records one served HTTP request. The path should be the
// route pattern, not the raw URL, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// runOutcome maps a terminal run error onto its outcome label.
func runOutcome(runErr error) string {
	switch {
	case runErr == nil:
		return OutcomeCompleted
	case errors.Is(runErr, context.Canceled):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

// statusClass collapses an HTTP status code into its class label.
func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
