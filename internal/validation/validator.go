// Package validation runs the heuristic field checks applied to applicant
// data and derives the fraud score recorded on the application.
package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"accountflow/internal/application"
	"accountflow/internal/risk"
)

// FieldResult is the outcome of one field check.
type FieldResult struct {
	Field       string   `json:"field_name"`
	Valid       bool     `json:"is_valid"`
	Message     string   `json:"error_message,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Confidence  float64  `json:"ai_confidence"`
}

// Fraud pattern names reported by FraudScore.
const (
	PatternRepetitiveSSN  = "repetitive_ssn"
	PatternSequentialSSN  = "sequential_ssn"
	PatternFakeEmail      = "fake_email_domain"
	PatternUnusualAge     = "unusual_age"
	PatternSuspiciousName = "suspicious_name"
)

const (
	failedFieldWeight    = 0.1
	ssnPatternWeight     = 0.3
	fakeEmailWeight      = 0.15
	unusualAgeWeight     = 0.2
	suspiciousNameWeight = 0.25
)

var (
	digitPattern   = regexp.MustCompile(`\d`)
	phoneStrip     = regexp.MustCompile(`[\s\-()]`)
	poBoxPattern   = regexp.MustCompile(`(?i)\bP\.?O\.?\s*BOX\b`)
	zipPattern     = regexp.MustCompile(`^(\d{5}|\d{9})$`)
	placeholderSSN = []string{
		"000000000", "111111111", "222222222", "333333333", "444444444",
		"555555555", "666666666", "777777777", "888888888", "999999999",
		"123456789",
	}
	tempEmailDomains = []string{
		"tempmail.com", "guerrillamail.com", "mailinator.com",
		"10minutemail.com", "throwaway.email", "fakeinbox.com",
	}
	placeholderNames = []string{"test", "fake", "xxxx", "aaaa", "none", "null"}
	testDataNames    = []string{"test", "fake", "example", "demo"}
	invalidAreaCodes = []string{"000", "555", "999"}
	stateZipPrefixes = map[string][2]string{
		"CA": {"90", "96"},
		"NY": {"10", "14"},
		"FL": {"32", "34"},
		"TX": {"75", "79"},
	}
)

// Validator checks applicant data.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator.
func New() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidatePersonal runs every field check against p, in a fixed order.
func (v *Validator) ValidatePersonal(p application.PersonalInfo, now time.Time) []FieldResult {
	return []FieldResult{
		validateName(p.FirstName, "first_name"),
		validateName(p.LastName, "last_name"),
		v.validateEmail(p.Email),
		validatePhone(p.Phone),
		validateDOB(p.DateOfBirth, now),
		validateSSN(p.SSN),
		validateAddress(p.AddressLine1),
		validateZip(p.ZipCode, p.State),
	}
}

// FraudScore computes the fraud likelihood of app in [0,1] and names the
// patterns that contributed.
func (v *Validator) FraudScore(app *application.Application, now time.Time) (float64, []string) {
	return v.fraudScore(app, v.ValidatePersonal(app.PersonalInfo, now), now)
}

func (v *Validator) fraudScore(app *application.Application, results []FieldResult, now time.Time) (float64, []string) {
	score := 0.0
	for _, r := range results {
		if !r.Valid {
			score += failedFieldWeight
		}
	}

	var patterns []string
	p := app.PersonalInfo
	sequential, repetitive := risk.SSNPatterns(p.SSN)
	if repetitive {
		score += ssnPatternWeight
		patterns = append(patterns, PatternRepetitiveSSN)
	}
	if sequential {
		score += ssnPatternWeight
		patterns = append(patterns, PatternSequentialSSN)
	}
	if slices.Contains(tempEmailDomains[:3], emailDomain(p.Email)) {
		score += fakeEmailWeight
		patterns = append(patterns, PatternFakeEmail)
	}
	if age := application.AgeOn(p.DateOfBirth, now); age < 18 || age > 100 {
		score += unusualAgeWeight
		patterns = append(patterns, PatternUnusualAge)
	}
	if containsAny(p.FirstName, testDataNames) {
		score += suspiciousNameWeight
		patterns = append(patterns, PatternSuspiciousName)
	}
	return min(score, 1.0), patterns
}

func validateName(name, field string) FieldResult {
	label := fieldLabel(field)
	switch {
	case len(name) < 2:
		return invalid(field, label+" must be at least 2 characters", 0.95)
	case digitPattern.MatchString(name):
		return invalid(field, label+" should not contain numbers", 0.98)
	case containsAny(name, placeholderNames):
		return invalid(field, label+" appears to be a test value", 0.85, "Please provide your real name")
	}
	return valid(field, 0.92)
}

func (v *Validator) validateEmail(email string) FieldResult {
	const field = "email"
	if slices.Contains(tempEmailDomains, emailDomain(email)) {
		return invalid(field, "Temporary email addresses are not allowed", 0.99,
			"Please use a permanent email address")
	}
	if err := v.validate.Var(email, "required,email"); err != nil {
		return invalid(field, "Email format is invalid", 0.97)
	}
	return valid(field, 0.94)
}

func validatePhone(phone string) FieldResult {
	const field = "phone"
	clean := phoneStrip.ReplaceAllString(phone, "")
	switch {
	case len(clean) != 10 || !allDigits(clean):
		return invalid(field, "Phone number must be 10 digits", 0.96,
			"Format: (123) 456-7890 or 123-456-7890")
	case strings.Count(clean, clean[:1]) == 10:
		return invalid(field, "Phone number appears invalid (repeated digits)", 0.98)
	case slices.Contains(invalidAreaCodes, clean[:3]):
		return invalid(field, "Invalid area code", 0.93)
	}
	return valid(field, 0.91)
}

func validateDOB(dob string, now time.Time) FieldResult {
	const field = "date_of_birth"
	if _, err := time.Parse(time.DateOnly, dob); err != nil {
		return invalid(field, "Invalid date format", 0.99, "Use format: YYYY-MM-DD")
	}
	age := application.AgeOn(dob, now)
	switch {
	case age < 0:
		return invalid(field, "Date of birth cannot be in the future", 0.99)
	case age > 120:
		return invalid(field, "Date of birth appears invalid (age > 120)", 0.98)
	case age < 13:
		return invalid(field, "Must be at least 13 years old", 0.95, "Minor accounts require a co-signer")
	}
	return valid(field, 0.96)
}

func validateSSN(ssn string) FieldResult {
	const field = "ssn"
	clean := strings.NewReplacer("-", "", " ", "").Replace(ssn)
	switch {
	case len(clean) != 9 || !allDigits(clean):
		return invalid(field, "SSN must be 9 digits", 0.98, "Format: XXX-XX-XXXX")
	case slices.Contains(placeholderSSN, clean):
		return invalid(field, "SSN appears invalid", 0.99)
	case clean[:3] == "000" || clean[:3] == "666":
		return invalid(field, "Invalid SSN area number", 0.97)
	}
	return valid(field, 0.88)
}

func validateAddress(line1 string) FieldResult {
	const field = "address"
	switch {
	case poBoxPattern.MatchString(line1):
		return invalid(field, "PO Box addresses not accepted for account opening", 0.90,
			"Please provide a physical street address")
	case len(line1) < 5:
		return invalid(field, "Address appears too short", 0.85)
	}
	return valid(field, 0.87)
}

func validateZip(zip, state string) FieldResult {
	const field = "zip_code"
	clean := strings.NewReplacer("-", "", " ", "").Replace(zip)
	if !zipPattern.MatchString(clean) {
		return invalid(field, "ZIP code must be 5 or 9 digits", 0.96, "Format: 12345 or 12345-6789")
	}
	if bounds, ok := stateZipPrefixes[state]; ok {
		if prefix := clean[:2]; prefix < bounds[0] || prefix > bounds[1] {
			return invalid(field, fmt.Sprintf("ZIP code doesn't match %s state range", state), 0.75,
				"Please verify your ZIP code and state")
		}
	}
	return valid(field, 0.89)
}

func valid(field string, confidence float64) FieldResult {
	return FieldResult{Field: field, Valid: true, Confidence: confidence}
}

func invalid(field, message string, confidence float64, suggestions ...string) FieldResult {
	return FieldResult{Field: field, Message: message, Suggestions: suggestions, Confidence: confidence}
}

func fieldLabel(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func emailDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(domain)
}

func containsAny(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
