// Package metrics exposes Prometheus collectors for the response and
// reflection pipelines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Response outcomes.
const (
	OutcomeDispatched = "dispatched"
	OutcomeStale      = "stale"
	OutcomeSkipped    = "skipped"
	OutcomeEmpty      = "empty"
)

// Metrics groups the runtime collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	responses      *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	reflections    *prometheus.CounterVec
	relationships  *prometheus.CounterVec
	factsStored    prometheus.Counter
	modelLatency   *prometheus.HistogramVec
	dispatchErrors *prometheus.CounterVec
}

// MustNewMetrics constructs and registers the collectors. Registration errors
// panic, except that an already registered collector of the same shape is
// reused.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luna",
			Subsystem: "responder",
			Name:      "responses_total",
			Help:      "Handled messages by response outcome.",
		}, []string{"outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luna",
			Subsystem: "responder",
			Name:      "should_respond_total",
			Help:      "Should-respond decisions by deciding rule.",
		}, []string{"reason", "respond"}),
		reflections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luna",
			Subsystem: "reflection",
			Name:      "passes_total",
			Help:      "Reflection passes by status.",
		}, []string{"status"}),
		relationships: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luna",
			Subsystem: "reflection",
			Name:      "relationships_total",
			Help:      "Relationship merge operations.",
		}, []string{"op"}),
		factsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "luna",
			Subsystem: "reflection",
			Name:      "facts_stored_total",
			Help:      "Facts persisted by reflection passes.",
		}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "luna",
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Language model call latency by tier.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier", "status"}),
		dispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luna",
			Subsystem: "events",
			Name:      "handler_errors_total",
			Help:      "Event handler failures by event.",
		}, []string{"event"}),
	}

	m.responses = register(reg, m.responses)
	m.decisions = register(reg, m.decisions)
	m.reflections = register(reg, m.reflections)
	m.relationships = register(reg, m.relationships)
	m.factsStored = register(reg, m.factsStored)
	m.modelLatency = register(reg, m.modelLatency)
	m.dispatchErrors = register(reg, m.dispatchErrors)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveResponse counts one handled message by outcome.
func (m *Metrics) ObserveResponse(outcome string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(outcome).Inc()
}

// ObserveDecision counts one should-respond decision.
func (m *Metrics) ObserveDecision(reason string, respond bool) {
	if m == nil {
		return
	}
	label := "false"
	if respond {
		label = "true"
	}
	m.decisions.WithLabelValues(reason, label).Inc()
}

// ObserveReflection counts one reflection pass by status.
func (m *Metrics) ObserveReflection(status string) {
	if m == nil {
		return
	}
	m.reflections.WithLabelValues(status).Inc()
}

// ObserveRelationship counts one relationship create/update/skip.
func (m *Metrics) ObserveRelationship(op string) {
	if m == nil {
		return
	}
	m.relationships.WithLabelValues(op).Inc()
}

// AddFacts counts persisted facts.
func (m *Metrics) AddFacts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.factsStored.Add(float64(n))
}

// ObserveModelCall records the latency of one model call.
func (m *Metrics) ObserveModelCall(tier string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.modelLatency.WithLabelValues(tier, status).Observe(d.Seconds())
}

// IncHandlerError counts one failed event handler.
func (m *Metrics) IncHandlerError(event string) {
	if m == nil {
		return
	}
	m.dispatchErrors.WithLabelValues(event).Inc()
}
