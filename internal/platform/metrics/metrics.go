package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-facing Prometheus metrics for the service.
type Metrics struct {
	ApplicationsCreated prometheus.Counter
	RulesChanged        *prometheus.CounterVec
}

// New creates and registers the metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ApplicationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "accountflow_applications_created_total",
			Help: "Total number of account applications created",
		}),
		RulesChanged: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accountflow_rules_changed_total",
			Help: "Business rule administration operations",
		}, []string{"operation"}),
	}
}

// IncrementApplicationsCreated increments the applications created counter by 1.
func (m *Metrics) IncrementApplicationsCreated() {
	if m == nil {
		return
	}
	m.ApplicationsCreated.Inc()
}

// IncrementRulesChanged records a rule add or remove.
func (m *Metrics) IncrementRulesChanged(operation string) {
	if m == nil {
		return
	}
	m.RulesChanged.WithLabelValues(operation).Inc()
}
