package integration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"accountflow/internal/application"
)

// Metrics records check latency and outcomes.
type Metrics struct {
	latency  *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewMetrics registers integration metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "accountflow_integration_duration_seconds",
			Help:    "Duration of external verification checks",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 3, 5, 10, 30},
		}, []string{"check"}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accountflow_integration_outcomes_total",
			Help: "External verification results by check and status",
		}, []string{"check", "status"}),
	}
}

// ObserveLatency records how long a check took.
func (m *Metrics) ObserveLatency(check Check, seconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(string(check)).Observe(seconds)
}

// IncOutcome counts a check result.
func (m *Metrics) IncOutcome(check Check, status application.IntegrationStatus) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(check), string(status)).Inc()
}

// Outcomes exposes the outcome counter for assertions.
func (m *Metrics) Outcomes() *prometheus.CounterVec {
	return m.outcomes
}
