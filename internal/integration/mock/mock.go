// Package mock provides a Verifier with randomized outcomes and simulated
// service latency, standing in for the external verification providers.
package mock

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"accountflow/internal/application"
	"accountflow/internal/integration"
)

var fraudIndicators = []string{
	"Multiple applications from same IP",
	"Phone number associated with fraud",
	"Email appears on blacklist",
	"Address linked to suspicious activity",
}

// Verifier simulates the external verification services.
type Verifier struct {
	mu      sync.Mutex
	rng     *rand.Rand
	latency bool
	now     func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithSeed makes outcomes deterministic.
func WithSeed(seed uint64) Option {
	return func(v *Verifier) {
		v.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithLatency toggles the simulated service delays.
func WithLatency(enabled bool) Option {
	return func(v *Verifier) {
		v.latency = enabled
	}
}

// New creates a mock verifier. Latency is simulated unless disabled.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		latency: true,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var _ integration.Verifier = (*Verifier)(nil)

// VerifyIdentity simulates a document and selfie identity check.
func (v *Verifier) VerifyIdentity(ctx context.Context, req integration.Request) (*application.Integration, error) {
	start := time.Now()
	if err := v.delay(ctx, time.Second, 2500*time.Millisecond); err != nil {
		return nil, err
	}

	v.mu.Lock()
	score := v.uniform(0.7, 1.0)
	verified := score > 0.85
	documentAuthentic, liveness := true, true
	if !verified {
		documentAuthentic = v.rng.IntN(2) == 0
		liveness = v.rng.IntN(2) == 0
	}
	v.mu.Unlock()

	warnings := []string{}
	if !verified {
		warnings = []string{"Document quality low", "Address mismatch"}
	}
	status := application.IntegrationSuccess
	respStatus := "verified"
	if !verified {
		status = application.IntegrationFailed
		respStatus = "failed"
	}
	return v.record(integration.CheckIdentity, status, start, map[string]any{
		"status":              respStatus,
		"verification_score":  round2(score),
		"verification_method": "document_and_selfie",
		"identity_match":      verified,
		"document_authentic":  documentAuthentic,
		"liveness_check":      liveness,
		"address_verified":    verified,
		"ssn_verified":        verified,
		"warnings":            warnings,
	}), nil
}

// CheckFraudDatabase simulates a fraud consortium lookup.
func (v *Verifier) CheckFraudDatabase(ctx context.Context, req integration.Request) (*application.Integration, error) {
	start := time.Now()
	if err := v.delay(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return nil, err
	}

	v.mu.Lock()
	count := v.rng.IntN(4)
	found := []string{}
	for _, i := range v.rng.Perm(len(fraudIndicators))[:count] {
		found = append(found, fraudIndicators[i])
	}
	sameIP := v.rng.IntN(3)
	sameDevice := v.rng.IntN(4)
	v.mu.Unlock()

	clean := count == 0
	pick := func(ok, bad string) string {
		if clean {
			return ok
		}
		return bad
	}
	return v.record(integration.CheckFraud, application.IntegrationSuccess, start, map[string]any{
		"status":                 pick("clear", "flagged"),
		"fraud_score":            round2(float64(count) * 0.3),
		"indicators_found":       count,
		"fraud_indicators":       found,
		"previous_fraud_reports": count,
		"velocity_checks": map[string]any{
			"applications_same_ip_24h":    sameIP,
			"applications_same_device_7d": sameDevice,
			"applications_same_email_30d": 1,
		},
		"device_reputation": pick("trusted", "suspicious"),
		"ip_reputation":     pick("clean", "moderate_risk"),
		"recommendation":    pick("approve", "review"),
	}), nil
}

// ScreenKYC simulates sanctions, PEP and adverse media screening.
func (v *Verifier) ScreenKYC(ctx context.Context, req integration.Request) (*application.Integration, error) {
	start := time.Now()
	if err := v.delay(ctx, 2*time.Second, 4*time.Second); err != nil {
		return nil, err
	}

	v.mu.Lock()
	risk := v.uniform(0, 0.5)
	v.mu.Unlock()

	clear := risk < 0.3
	matches := []map[string]any{}
	if !clear {
		list := "PEP"
		if risk > 0.4 {
			list = "OFAC"
		}
		matches = append(matches, map[string]any{
			"type":        "name_similarity",
			"match_score": round2(risk),
			"list":        list,
			"details":     "Partial name match requiring review",
		})
	}
	status, sanctions, media := "clear", "pass", "none_found"
	if !clear {
		status, sanctions, media = "review_required", "review", "potential_match"
	}
	return v.record(integration.CheckKYC, application.IntegrationSuccess, start, map[string]any{
		"status":                          status,
		"risk_score":                      round2(risk),
		"watchlist_matches":               matches,
		"sanctions_check":                 sanctions,
		"pep_check":                       "pass",
		"adverse_media":                   media,
		"politically_exposed":             false,
		"countries_associated":            []string{req.Personal.Citizenship},
		"requires_enhanced_due_diligence": !clear,
	}), nil
}

// CheckCredit simulates a credit bureau pull.
func (v *Verifier) CheckCredit(ctx context.Context, req integration.Request) (*application.Integration, error) {
	start := time.Now()
	if err := v.delay(ctx, 1500*time.Millisecond, 3*time.Second); err != nil {
		return nil, err
	}

	v.mu.Lock()
	score := 550 + v.rng.IntN(301)
	delinquent, bankruptcies := 0, 0
	if score < 650 {
		delinquent = v.rng.IntN(4)
	}
	if score < 600 {
		bankruptcies = v.rng.IntN(2)
	}
	totalAccounts := 3 + v.rng.IntN(13)
	utilization := round2(v.uniform(0.1, 0.9))
	inquiries := v.rng.IntN(6)
	oldest := 1 + v.rng.IntN(20)
	v.mu.Unlock()

	limit := 0
	if score >= 650 {
		limit = score * 10
	}
	return v.record(integration.CheckCredit, application.IntegrationSuccess, start, map[string]any{
		"credit_score":             score,
		"credit_tier":              creditTier(score),
		"credit_report_available":  true,
		"delinquent_accounts":      delinquent,
		"total_accounts":           totalAccounts,
		"credit_utilization":       utilization,
		"bankruptcies":             bankruptcies,
		"foreclosures":             0,
		"inquiries_last_6_months":  inquiries,
		"oldest_account_years":     oldest,
		"approved_for_overdraft":   score >= 650,
		"recommended_credit_limit": limit,
	}), nil
}

// VerifyEmployment simulates a payroll lookup; one in four cannot be verified.
func (v *Verifier) VerifyEmployment(ctx context.Context, req integration.Request) (*application.Integration, error) {
	start := time.Now()
	if err := v.delay(ctx, 2*time.Second, 3500*time.Millisecond); err != nil {
		return nil, err
	}

	v.mu.Lock()
	verified := v.rng.IntN(4) != 0
	var months any
	confidence := 0.0
	if verified {
		months = 6 + v.rng.IntN(115)
		confidence = v.uniform(0.85, 0.99)
	}
	v.mu.Unlock()

	employer := "Unknown"
	if req.Employment != nil && req.Employment.EmployerName != "" {
		employer = req.Employment.EmployerName
	}
	status := application.IntegrationSuccess
	empStatus, method, notes := "active", "payroll_records", ""
	if !verified {
		status = application.IntegrationPartial
		empStatus, method, notes = "unable_to_verify", "not_verified", "Employer not found in database"
	}
	return v.record(integration.CheckEmployment, status, start, map[string]any{
		"employment_verified":         verified,
		"employer_name":               employer,
		"employment_status":           empStatus,
		"position_verified":           verified,
		"income_verified":             verified,
		"length_of_employment_months": months,
		"verification_method":         method,
		"confidence":                  round2(confidence),
		"notes":                       notes,
	}), nil
}

// VerifyDocument simulates OCR and tamper detection for one document.
func (v *Verifier) VerifyDocument(ctx context.Context, req integration.Request) (*application.Integration, error) {
	start := time.Now()
	if err := v.delay(ctx, time.Second, 2*time.Second); err != nil {
		return nil, err
	}

	v.mu.Lock()
	confidence := v.uniform(0.85, 0.99)
	quality := v.uniform(0.8, 1.0)
	v.mu.Unlock()

	valid := confidence > 0.90
	docType := "drivers_license"
	docID := ""
	if req.Document != nil {
		docType = req.Document.DocumentType
		docID = req.Document.DocumentID
	}
	warnings := []string{}
	status := application.IntegrationSuccess
	if !valid {
		warnings = []string{"Low image quality", "Potential tampering detected"}
		status = application.IntegrationReviewRequired
	}
	return v.record(integration.CheckDocument, status, start, map[string]any{
		"document_type": docType,
		"document_id":   docID,
		"validation": map[string]any{
			"is_valid":           valid,
			"is_expired":         false,
			"is_authentic":       valid,
			"confidence_score":   round2(confidence),
			"tampering_detected": !valid,
			"quality_score":      round2(quality),
		},
		"warnings": warnings,
	}), nil
}

func (v *Verifier) record(check integration.Check, status application.IntegrationStatus, start time.Time, data map[string]any) *application.Integration {
	return &application.Integration{
		Name:             string(check),
		Status:           status,
		ResponseData:     data,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		Timestamp:        v.now(),
	}
}

// delay sleeps for a random duration in [lo, hi) unless latency is off.
func (v *Verifier) delay(ctx context.Context, lo, hi time.Duration) error {
	if !v.latency {
		return ctx.Err()
	}
	v.mu.Lock()
	d := lo + time.Duration(v.rng.Int64N(int64(hi-lo)))
	v.mu.Unlock()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// uniform must be called with mu held.
func (v *Verifier) uniform(lo, hi float64) float64 {
	return lo + v.rng.Float64()*(hi-lo)
}

func creditTier(score int) string {
	switch {
	case score >= 740:
		return "excellent"
	case score >= 670:
		return "good"
	case score >= 580:
		return "fair"
	default:
		return "poor"
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
