// Package dashboard aggregates operational metrics over all applications.
package dashboard

import (
	"context"
	"math"
	"time"

	"accountflow/internal/application"
	"accountflow/internal/pipeline"
	dErrors "accountflow/pkg/domainerrors"
)

// FraudFlagThreshold is the fraud score above which an application counts as
// fraud-flagged.
const FraudFlagThreshold = 0.6

// Metrics is the dashboard snapshot.
type Metrics struct {
	TotalApplications      int            `json:"total_applications"`
	ApplicationsByStatus   map[string]int `json:"applications_by_status"`
	AverageProcessingHours float64        `json:"average_processing_time_hours"`
	AutomationRate         float64        `json:"automation_rate"`
	ApprovalRate           float64        `json:"approval_rate"`
	FraudDetectionRate     float64        `json:"fraud_detection_rate"`
	IntegrationSuccessRate float64        `json:"integration_success_rate"`
	ApplicationsLast24h    int            `json:"applications_last_24h"`
	PeakHour               *int           `json:"peak_hour"`
}

// Service computes dashboard metrics from the application store.
type Service struct {
	store application.Store
}

// New creates the dashboard service.
func New(store application.Store) *Service {
	return &Service{store: store}
}

// Metrics computes the snapshot as of now.
func (s *Service) Metrics(ctx context.Context, now time.Time) (Metrics, error) {
	apps, err := s.store.List(ctx, application.ListFilter{})
	if err != nil {
		return Metrics{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applications")
	}
	return Compute(apps, now), nil
}

// Compute aggregates apps. Rates are rounded to two decimals.
func Compute(apps []*application.Application, now time.Time) Metrics {
	m := Metrics{
		TotalApplications:    len(apps),
		ApplicationsByStatus: map[string]int{},
	}
	if len(apps) == 0 {
		return m
	}

	var (
		processingHours []float64
		approved        int
		automated       int
		flagged         int
		integrations    int
		succeeded       int
		byHour          [24]int
	)
	for _, app := range apps {
		m.ApplicationsByStatus[string(app.Status)]++

		if app.SubmittedAt != nil && app.CompletedAt != nil {
			processingHours = append(processingHours, app.CompletedAt.Sub(*app.SubmittedAt).Hours())
		}
		if app.Status == application.StatusApproved {
			approved++
		}
		if app.ApprovalDecision == application.DecisionApproved && app.DecisionReason == pipeline.ReasonAutoApproved {
			automated++
		}
		if app.AIFraudScore > FraudFlagThreshold {
			flagged++
		}
		for _, i := range app.Integrations {
			integrations++
			if i.Status == application.IntegrationSuccess {
				succeeded++
			}
		}
		if now.Sub(app.CreatedAt) < 24*time.Hour {
			m.ApplicationsLast24h++
		}
		byHour[app.CreatedAt.Hour()]++
	}

	total := float64(len(apps))
	if len(processingHours) > 0 {
		sum := 0.0
		for _, h := range processingHours {
			sum += h
		}
		m.AverageProcessingHours = round2(sum / float64(len(processingHours)))
	}
	m.AutomationRate = round2(float64(automated) / total)
	m.ApprovalRate = round2(float64(approved) / total)
	m.FraudDetectionRate = round2(float64(flagged) / total)
	if integrations > 0 {
		m.IntegrationSuccessRate = round2(float64(succeeded) / float64(integrations))
	}

	peak := 0
	for h := 1; h < len(byHour); h++ {
		if byHour[h] > byHour[peak] {
			peak = h
		}
	}
	m.PeakHour = &peak
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
