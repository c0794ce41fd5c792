package application

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"accountflow/pkg/platform/sentinel"
)

// Status is the position of an application in the processing workflow.
type Status string

const (
	StatusDraft                Status = "draft"
	StatusSubmitted            Status = "submitted"
	StatusIdentityVerification Status = "identity_verification"
	StatusComplianceReview     Status = "compliance_review"
	StatusApproved             Status = "approved"
	StatusManualReview         Status = "manual_review"
	StatusRejected             Status = "rejected"
)

// statusRank orders statuses along the pipeline. A transition must strictly
// increase the rank; the three outcomes share the final rank.
var statusRank = map[Status]int{
	StatusDraft:                0,
	StatusSubmitted:            1,
	StatusIdentityVerification: 2,
	StatusComplianceReview:     3,
	StatusApproved:             4,
	StatusManualReview:         4,
	StatusRejected:             4,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether the pipeline is finished with the application.
func (s Status) IsTerminal() bool {
	return statusRank[s] == statusRank[StatusApproved]
}

// RiskLevel is the discrete risk classification.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// AccountType is the product being opened.
type AccountType string

const (
	AccountPersonalChecking AccountType = "personal_checking"
	AccountPersonalSavings  AccountType = "personal_savings"
	AccountBusinessChecking AccountType = "business_checking"
	AccountBusinessSavings  AccountType = "business_savings"
	AccountMinor            AccountType = "minor_account"
)

var accountTypes = []AccountType{
	AccountPersonalChecking,
	AccountPersonalSavings,
	AccountBusinessChecking,
	AccountBusinessSavings,
	AccountMinor,
}

// IsValid reports whether t is a supported account type.
func (t AccountType) IsValid() bool {
	return slices.Contains(accountTypes, t)
}

// IsBusiness reports whether t is a business product.
func (t AccountType) IsBusiness() bool {
	return strings.HasPrefix(string(t), "business")
}

// Decisions recorded in ApprovalDecision.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Review queues recorded in AssignedTo.
const (
	AssigneeFraudTeam      = "fraud_team"
	AssigneeReviewTeam     = "review_team"
	AssigneeSeniorReviewer = "senior_reviewer"
)

// DocumentEIN is the document type that proves a business EIN.
const DocumentEIN = "ein"

// PersonalInfo holds the applicant's identity facts.
type PersonalInfo struct {
	FirstName    string `json:"first_name"`
	MiddleName   string `json:"middle_name,omitempty"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DateOfBirth  string `json:"date_of_birth"`
	SSN          string `json:"ssn"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	Citizenship  string `json:"citizenship"`
}

// EmploymentInfo is optional; AnnualIncome is nil when not reported.
type EmploymentInfo struct {
	EmployerName     string   `json:"employer_name,omitempty"`
	Occupation       string   `json:"occupation,omitempty"`
	AnnualIncome     *float64 `json:"annual_income,omitempty"`
	EmploymentStatus string   `json:"employment_status"`
}

// Document is an uploaded supporting document.
type Document struct {
	DocumentType      string    `json:"document_type"`
	DocumentID        string    `json:"document_id"`
	UploadedAt        time.Time `json:"uploaded_at"`
	Verified          bool      `json:"verified"`
	VerificationNotes string    `json:"verification_notes,omitempty"`
}

// IntegrationStatus is the outcome of one external check.
type IntegrationStatus string

const (
	IntegrationSuccess        IntegrationStatus = "success"
	IntegrationFailed         IntegrationStatus = "failed"
	IntegrationPartial        IntegrationStatus = "partial"
	IntegrationReviewRequired IntegrationStatus = "review_required"
)

// Integration is the immutable record of one external check.
type Integration struct {
	Name             string            `json:"integration_name"`
	RequestID        string            `json:"request_id"`
	Status           IntegrationStatus `json:"status"`
	ResponseData     map[string]any    `json:"response_data"`
	ProcessingTimeMS int64             `json:"processing_time_ms"`
	Timestamp        time.Time         `json:"timestamp"`
}

// Float returns a numeric response field, accepting any Go number type.
func (i Integration) Float(key string) (float64, bool) {
	switch v := i.ResponseData[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Application is the account-opening aggregate.
type Application struct {
	ID                 string          `json:"application_id"`
	AccountType        AccountType     `json:"account_type"`
	Status             Status          `json:"status"`
	RiskLevel          RiskLevel       `json:"risk_level"`
	RiskScore          float64         `json:"risk_score"`
	PersonalInfo       PersonalInfo    `json:"personal_info"`
	EmploymentInfo     *EmploymentInfo `json:"employment_info,omitempty"`
	Documents          []Document      `json:"documents"`
	OverdraftRequested bool            `json:"overdraft_requested"`
	Integrations       []Integration   `json:"integrations"`
	RulesApplied       []string        `json:"rules_applied"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	SubmittedAt        *time.Time      `json:"submitted_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	AIFraudScore       float64         `json:"ai_fraud_score"`
	AIConfidence       float64         `json:"ai_confidence"`
	AINotes            []string        `json:"ai_notes"`
	ApprovalDecision   string          `json:"approval_decision,omitempty"`
	DecisionReason     string          `json:"decision_reason,omitempty"`
	AssignedTo         string          `json:"assigned_to,omitempty"`
}

// NewApplication builds a draft application with a fresh id.
func NewApplication(accountType AccountType, personal PersonalInfo, employment *EmploymentInfo, docs []Document, overdraft bool, now time.Time) *Application {
	if personal.Citizenship == "" {
		personal.Citizenship = "US"
	}
	return &Application{
		ID:                 NewID(),
		AccountType:        accountType,
		Status:             StatusDraft,
		RiskLevel:          RiskLow,
		PersonalInfo:       personal,
		EmploymentInfo:     employment,
		Documents:          docs,
		OverdraftRequested: overdraft,
		Integrations:       []Integration{},
		RulesApplied:       []string{},
		AINotes:            []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

var idPattern = regexp.MustCompile(`^APP-[0-9A-F]{12}$`)

// NewID returns "APP-" followed by 12 upper-case hex characters.
func NewID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "APP-" + strings.ToUpper(raw[:12])
}

// IsValidID reports whether id has the application id format.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}

// TransitionTo moves the application to next. Moves must go forward along
// the pipeline; the only exit from a terminal status is a reviewer resolving
// manual_review to approved or rejected.
func (a *Application) TransitionTo(next Status, now time.Time) error {
	if !next.IsValid() {
		return fmt.Errorf("%w: unknown status %q", sentinel.ErrInvalidState, next)
	}
	if !a.canTransition(next) {
		return fmt.Errorf("%w: %s -> %s", sentinel.ErrInvalidState, a.Status, next)
	}
	a.Status = next
	a.UpdatedAt = now
	return nil
}

func (a *Application) canTransition(next Status) bool {
	if a.Status == StatusManualReview {
		return next == StatusApproved || next == StatusRejected
	}
	return statusRank[next] > statusRank[a.Status]
}

// SetFraudScore stores the fraud score clamped into [0,1].
func (a *Application) SetFraudScore(v float64) {
	a.AIFraudScore = clamp01(v)
}

// SetConfidence stores the validation confidence clamped into [0,1].
func (a *Application) SetConfidence(v float64) {
	a.AIConfidence = clamp01(v)
}

// AddNote appends to the notes log.
func (a *Application) AddNote(note string) {
	a.AINotes = append(a.AINotes, note)
}

// AppendIntegrations records check results in order.
func (a *Application) AppendIntegrations(results ...Integration) {
	a.Integrations = append(a.Integrations, results...)
}

// Complete records the completion time.
func (a *Application) Complete(now time.Time) {
	t := now
	a.CompletedAt = &t
	a.UpdatedAt = now
}

// AnnualIncome returns the reported income, if any.
func (a *Application) AnnualIncome() (float64, bool) {
	if a.EmploymentInfo == nil || a.EmploymentInfo.AnnualIncome == nil {
		return 0, false
	}
	return *a.EmploymentInfo.AnnualIncome, true
}

// HasDocument reports whether a document of the given type was uploaded.
func (a *Application) HasDocument(docType string) bool {
	for _, d := range a.Documents {
		if strings.EqualFold(d.DocumentType, docType) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no mutable state with a.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	if a.EmploymentInfo != nil {
		emp := *a.EmploymentInfo
		if emp.AnnualIncome != nil {
			income := *emp.AnnualIncome
			emp.AnnualIncome = &income
		}
		c.EmploymentInfo = &emp
	}
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		c.SubmittedAt = &t
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	c.Documents = slices.Clone(a.Documents)
	c.Integrations = slices.Clone(a.Integrations)
	c.RulesApplied = slices.Clone(a.RulesApplied)
	c.AINotes = slices.Clone(a.AINotes)
	return &c
}

// AgeOn returns the whole-year age for a YYYY-MM-DD birth date. An
// unparsable date yields 0.
func AgeOn(dob string, now time.Time) int {
	birth, err := time.Parse(time.DateOnly, strings.TrimSpace(dob))
	if err != nil {
		return 0
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
