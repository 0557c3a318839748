// Package metrics exposes Prometheus counters describing trace emission
// outcomes. It implements the emitter's Recorder contract so the pipeline
// can run without it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EmitterMetrics holds the Prometheus collectors for the emission pipeline.
type EmitterMetrics struct {
	emitted       prometheus.Counter
	suppressed    *prometheus.CounterVec
	truncated     prometheus.Counter
	writeFailures prometheus.Counter

	registry *prometheus.Registry
}

// NewEmitterMetrics creates and registers the emission metrics on a fresh
// registry.
func NewEmitterMetrics() *EmitterMetrics {
	registry := prometheus.NewRegistry()

	m := &EmitterMetrics{
		emitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "routelens_events_emitted_total",
				Help: "Routed-request trace events written to the transport",
			},
		),

		suppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routelens_events_suppressed_total",
				Help: "Trace emissions skipped before the write, by reason",
			},
			[]string{"reason"},
		),

		truncated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "routelens_events_truncated_total",
				Help: "Events whose payload was cut to fit the transport budget",
			},
		),

		writeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "routelens_write_failures_total",
				Help: "Events discarded because payload construction or the transport write failed",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.emitted,
		m.suppressed,
		m.truncated,
		m.writeFailures,
	)

	return m
}

// EventEmitted records one successful transport write.
func (m *EmitterMetrics) EventEmitted() {
	m.emitted.Inc()
}

// EventSuppressed records an emission skipped before the write.
func (m *EmitterMetrics) EventSuppressed(reason string) {
	m.suppressed.WithLabelValues(reason).Inc()
}

// EventTruncated records a payload cut to the budget.
func (m *EmitterMetrics) EventTruncated() {
	m.truncated.Inc()
}

// WriteFailure records an event discarded inside the write boundary.
func (m *EmitterMetrics) WriteFailure() {
	m.writeFailures.Inc()
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *EmitterMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry for additional collectors.
func (m *EmitterMetrics) Registry() *prometheus.Registry {
	return m.registry
}
