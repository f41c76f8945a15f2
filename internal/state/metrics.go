package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the optional Prometheus collectors this build exposes. No
// HTTP server is in scope; a consumer registers Metrics.Registry with
// whatever exporter it wants (promhttp.Handler, a pushgateway client, etc).
type Metrics struct {
	Registry *prometheus.Registry

	GateResult      *prometheus.CounterVec
	EngineDuration  *prometheus.HistogramVec
	EngineRetries   *prometheus.CounterVec
	ExecutionResult *prometheus.CounterVec
}

// NewMetrics builds a fresh registry and registers every collector on it.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		GateResult: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "milhouse",
			Subsystem: "gates",
			Name:      "result_total",
			Help:      "Count of gate evaluations by gate name and outcome (pass/fail).",
		}, []string{"gate", "outcome"}),
		EngineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "milhouse",
			Subsystem: "engine",
			Name:      "invocation_duration_seconds",
			Help:      "Wall-clock duration of a single engine invocation.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~2048s
		}, []string{"engine"}),
		EngineRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "milhouse",
			Subsystem: "engine",
			Name:      "retries_total",
			Help:      "Count of retry attempts made by the executor's retry middleware.",
		}, []string{"engine"}),
		ExecutionResult: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "milhouse",
			Subsystem: "execution",
			Name:      "result_total",
			Help:      "Count of task executions by outcome (success/failure).",
		}, []string{"outcome"}),
	}
}

// ObserveGate records the outcome of a single gate evaluation.
func (m *Metrics) ObserveGate(gate string, passed bool) {
	if m == nil {
		return
	}
	outcome := "fail"
	if passed {
		outcome = "pass"
	}
	m.GateResult.WithLabelValues(gate, outcome).Inc()
}

// ObserveExecution records the outcome of a single task execution.
func (m *Metrics) ObserveExecution(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.ExecutionResult.WithLabelValues(outcome).Inc()
}
