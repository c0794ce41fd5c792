package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts audit event flow.
type Metrics struct {
	emitted  *prometheus.CounterVec
	dropped  prometheus.Counter
	failures prometheus.Counter
}

// NewMetrics registers audit metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		emitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accountflow_audit_events_emitted_total",
			Help: "Audit events accepted by the publisher",
		}, []string{"category"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "accountflow_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Name: "accountflow_audit_delivery_failures_total",
			Help: "Audit events the sink failed to persist",
		}),
	}
}

func (m *Metrics) IncEmitted(c Category) {
	if m == nil {
		return
	}
	m.emitted.WithLabelValues(string(c)).Inc()
}

func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) IncFailures() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
