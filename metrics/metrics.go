// Package metrics defines the Prometheus instruments of the approval gate.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the gate, resume and tool instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	// Submissions counts gate submissions by tool and result (proceed,
	// suspended, error).
	Submissions *prometheus.CounterVec
	// Decisions counts resume attempts by decision type and result (execute,
	// aborted, abandoned, not_found, policy_violation, error).
	Decisions *prometheus.CounterVec
	// PendingAge observes how long interrupts waited for a decision.
	PendingAge *prometheus.HistogramVec
	// ToolDuration observes tool execution latency by tool and status.
	ToolDuration *prometheus.HistogramVec
	// StorageErrors counts checkpoint store failures by operation.
	StorageErrors *prometheus.CounterVec
	// BreakerState reports the tool circuit breaker state (0 closed, 1 half
	// open, 2 open).
	BreakerState *prometheus.GaugeVec
}

// New registers the instruments with reg; a nil reg uses a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hitl_gate_submissions_total",
			Help: "Tool calls submitted to the approval gate.",
		}, []string{"tool", "result"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hitl_resume_decisions_total",
			Help: "Decisions applied to pending interrupts.",
		}, []string{"decision", "result"}),
		PendingAge: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hitl_pending_age_seconds",
			Help:    "Time an interrupt waited for a decision.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400, 86400},
		}, []string{"tool"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hitl_tool_duration_seconds",
			Help:    "Tool execution latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"tool", "status"}),
		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hitl_storage_errors_total",
			Help: "Checkpoint store failures.",
		}, []string{"operation"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hitl_tool_breaker_state",
			Help: "Tool circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"tool"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Submission records a gate submission.
func (m *Metrics) Submission(tool, result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(tool, result).Inc()
}

// Decision records a resume attempt.
func (m *Metrics) Decision(decision, result string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision, result).Inc()
}

// Pending records how long an interrupt waited.
func (m *Metrics) Pending(tool string, seconds float64) {
	if m == nil {
		return
	}
	m.PendingAge.WithLabelValues(tool).Observe(seconds)
}

// Tool records a tool execution.
func (m *Metrics) Tool(tool, status string, seconds float64) {
	if m == nil {
		return
	}
	m.ToolDuration.WithLabelValues(tool, status).Observe(seconds)
}

// Storage records a checkpoint store failure.
func (m *Metrics) Storage(operation string) {
	if m == nil {
		return
	}
	m.StorageErrors.WithLabelValues(operation).Inc()
}

// Breaker records a circuit breaker state.
func (m *Metrics) Breaker(tool string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(tool).Set(state)
}
