package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the colorization service.
type Metrics struct {
	registry *prometheus.Registry

	ProcessTotal      *prometheus.CounterVec
	ProcessDuration   *prometheus.HistogramVec
	CreditsDebited    *prometheus.CounterVec
	PollAttempts      *prometheus.HistogramVec
	BreakerStateTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a private registry
// together with the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ProcessTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colorizer_process_total",
			Help: "Colorization attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),

		ProcessDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "colorizer_process_duration_seconds",
			Help:    "End-to-end duration of a colorization attempt.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
		}, []string{"provider"}),

		CreditsDebited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colorizer_credits_debited_total",
			Help: "Credits debited after successful generations.",
		}, []string{"provider"}),

		PollAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "colorizer_flux_poll_attempts",
			Help:    "Number of status polls needed per Flux job.",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 80, 120},
		}, []string{"status"}),

		BreakerStateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colorizer_breaker_transitions_total",
			Help: "Provider circuit breaker state transitions.",
		}, []string{"provider", "to"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ProcessTotal,
		m.ProcessDuration,
		m.CreditsDebited,
		m.PollAttempts,
		m.BreakerStateTotal,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordProcess records the outcome and latency of one attempt.
func (m *Metrics) RecordProcess(provider, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ProcessTotal.WithLabelValues(provider, outcome).Inc()
	m.ProcessDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordDebit records credits charged for a successful generation.
func (m *Metrics) RecordDebit(provider string, amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.CreditsDebited.WithLabelValues(provider).Add(float64(amount))
}

// RecordPoll records how many polls a Flux job took before it settled.
func (m *Metrics) RecordPoll(status string, attempts int) {
	if m == nil {
		return
	}
	m.PollAttempts.WithLabelValues(status).Observe(float64(attempts))
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(provider, to string) {
	if m == nil {
		return
	}
	m.BreakerStateTotal.WithLabelValues(provider, to).Inc()
}
