package integration

import "accountflow/internal/application"

// Summary aggregates the integration records of one application.
type Summary struct {
	Total          int     `json:"total_integrations"`
	Successful     int     `json:"successful"`
	Failed         int     `json:"failed"`
	ReviewRequired int     `json:"review_required"`
	SuccessRate    float64 `json:"success_rate"`
	AverageTimeMS  int64   `json:"average_processing_time_ms"`
	AllPassed      bool    `json:"all_passed"`
}

// Summarize counts outcomes across records. Partial results count as
// requiring review. An empty slice yields a zero Summary.
func Summarize(records []application.Integration) Summary {
	s := Summary{Total: len(records)}
	if s.Total == 0 {
		return s
	}
	var totalMS int64
	for _, r := range records {
		switch r.Status {
		case application.IntegrationSuccess:
			s.Successful++
		case application.IntegrationFailed:
			s.Failed++
		}
		totalMS += r.ProcessingTimeMS
	}
	s.ReviewRequired = s.Total - s.Successful - s.Failed
	s.SuccessRate = float64(s.Successful) / float64(s.Total)
	s.AverageTimeMS = totalMS / int64(s.Total)
	s.AllPassed = s.Successful == s.Total
	return s
}
