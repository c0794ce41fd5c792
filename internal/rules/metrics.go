package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records rule evaluation activity.
type Metrics struct {
	triggered       *prometheus.CounterVec
	compileFailures prometheus.Counter
}

// NewMetrics registers rule metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		triggered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accountflow_rule_triggered_total",
			Help: "Number of times each business rule triggered",
		}, []string{"rule_id"}),
		compileFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "accountflow_rule_condition_invalid_total",
			Help: "Rule conditions that compiled to never-true",
		}),
	}
}

// IncTriggered counts a triggered rule.
func (m *Metrics) IncTriggered(ruleID string) {
	if m == nil {
		return
	}
	m.triggered.WithLabelValues(ruleID).Inc()
}

// IncCompileFailure counts a condition that failed to compile.
func (m *Metrics) IncCompileFailure() {
	if m == nil {
		return
	}
	m.compileFailures.Inc()
}
