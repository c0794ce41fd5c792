package validation

import (
	"time"

	"accountflow/internal/application"
)

// Report is the full validation outcome for one application.
type Report struct {
	OverallValid      bool                  `json:"overall_valid"`
	Results           []FieldResult         `json:"validation_results"`
	PassedCount       int                   `json:"passed_count"`
	FailedCount       int                   `json:"failed_count"`
	FraudScore        float64               `json:"fraud_score"`
	FraudPatterns     []string              `json:"fraud_patterns"`
	AverageConfidence float64               `json:"average_confidence"`
	RiskLevel         application.RiskLevel `json:"risk_level"`
	Recommendations   []string              `json:"recommendations"`
}

// Failures returns the failed field results.
func (r Report) Failures() []FieldResult {
	var failed []FieldResult
	for _, res := range r.Results {
		if !res.Valid {
			failed = append(failed, res)
		}
	}
	return failed
}

// Report validates app and scores it for fraud. It does not modify app.
func (v *Validator) Report(app *application.Application, now time.Time) Report {
	results := v.ValidatePersonal(app.PersonalInfo, now)
	score, patterns := v.fraudScore(app, results, now)

	r := Report{
		Results:       results,
		FraudScore:    score,
		FraudPatterns: patterns,
	}
	confidence := 0.0
	for _, res := range results {
		if res.Valid {
			r.PassedCount++
		} else {
			r.FailedCount++
		}
		confidence += res.Confidence
	}
	r.OverallValid = r.FailedCount == 0
	if len(results) > 0 {
		r.AverageConfidence = confidence / float64(len(results))
	}

	switch {
	case score > 0.6:
		r.RiskLevel = application.RiskHigh
	case score > 0.3:
		r.RiskLevel = application.RiskMedium
	default:
		r.RiskLevel = application.RiskLow
	}
	r.Recommendations = recommendations(r.Failures(), score)
	return r
}

func recommendations(failed []FieldResult, fraudScore float64) []string {
	var recs []string
	if fraudScore > 0.7 {
		recs = append(recs,
			"Flag for immediate fraud review",
			"Require additional identity verification documents",
		)
	}
	if fraudScore > 0.4 {
		recs = append(recs, "Perform enhanced KYC/AML checks")
	}
	for _, f := range failed {
		recs = append(recs, f.Suggestions...)
	}
	if len(recs) == 0 {
		recs = append(recs,
			"Application passes validation checks",
			"Proceed with standard verification workflow",
		)
	}
	return recs
}
