package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"accountflow/internal/application"
)

// Metrics records pipeline runs.
type Metrics struct {
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
	active   prometheus.Gauge
	faults   prometheus.Counter
}

// NewMetrics registers pipeline metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accountflow_pipeline_outcomes_total",
			Help: "Completed pipeline runs by final status and assignee",
		}, []string{"status", "assigned_to"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "accountflow_pipeline_run_duration_seconds",
			Help:    "Duration of pipeline runs",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "accountflow_pipeline_active_runs",
			Help: "Pipeline runs currently in progress",
		}),
		faults: f.NewCounter(prometheus.CounterOpts{
			Name: "accountflow_pipeline_faults_total",
			Help: "Pipeline runs routed to manual review by a processing error",
		}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Metrics) runFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) incOutcome(status application.Status, assignee string) {
	if m == nil {
		return
	}
	if assignee == "" {
		assignee = "none"
	}
	m.outcomes.WithLabelValues(string(status), assignee).Inc()
}

func (m *Metrics) incFault() {
	if m == nil {
		return
	}
	m.faults.Inc()
}

// Outcomes exposes the outcome counter for assertions.
func (m *Metrics) Outcomes() *prometheus.CounterVec {
	return m.outcomes
}
