// Package risk computes the bounded risk score of an application and maps
// it, together with the triggered rules, to a discrete risk level.
package risk

import (
	"slices"
	"strings"
	"time"

	"accountflow/internal/application"
	"accountflow/internal/rules"
)

// MaxScore caps the risk score.
const MaxScore = 100.0

// Factor names used in Assessment.Factors.
const (
	FactorFraud       = "ai_fraud_score"
	FactorAge         = "age"
	FactorCitizenship = "citizenship"
	FactorIncome      = "income"
	FactorSSN         = "ssn_pattern"
)

const (
	fraudWeight       = 40.0
	youngAge          = 21
	youngPoints       = 10.0
	seniorAge         = 75
	seniorPoints      = 15.0
	foreignPoints     = 20.0
	highIncome        = 500_000.0
	highIncomePoints  = 10.0
	lowIncome         = 15_000.0
	lowIncomePoints   = 15.0
	ssnPatternPoints  = 30.0
	sequentialMinimum = 5
)

// Assessment is a risk score with the contribution of each factor that
// added to it. Factors holds uncapped contributions.
type Assessment struct {
	Score   float64            `json:"risk_score"`
	Factors map[string]float64 `json:"factors"`
}

// Score computes the additive risk score of app, capped at MaxScore.
func Score(app *application.Application, now time.Time) Assessment {
	factors := map[string]float64{}
	add := func(name string, points float64) {
		if points > 0 {
			factors[name] += points
		}
	}

	add(FactorFraud, app.AIFraudScore*fraudWeight)

	age := application.AgeOn(app.PersonalInfo.DateOfBirth, now)
	switch {
	case age < youngAge:
		add(FactorAge, youngPoints)
	case age > seniorAge:
		add(FactorAge, seniorPoints)
	}

	if app.PersonalInfo.Citizenship != "US" {
		add(FactorCitizenship, foreignPoints)
	}

	if income, ok := app.AnnualIncome(); ok && income != 0 {
		switch {
		case income > highIncome:
			add(FactorIncome, highIncomePoints)
		case income < lowIncome:
			add(FactorIncome, lowIncomePoints)
		}
	}

	if sequential, repetitive := SSNPatterns(app.PersonalInfo.SSN); sequential || repetitive {
		add(FactorSSN, ssnPatternPoints)
	}

	total := 0.0
	for _, v := range factors {
		total += v
	}
	return Assessment{Score: min(total, MaxScore), Factors: factors}
}

// SSNPatterns reports whether a nine-digit SSN is sequential (at least five
// of its eight adjacent digit steps are +1) or repetitive (one digit nine
// times, or one three-digit block three times). Dashes and spaces are
// ignored; anything else that is not nine digits matches neither.
func SSNPatterns(ssn string) (sequential, repetitive bool) {
	clean := strings.NewReplacer("-", "", " ", "").Replace(ssn)
	if len(clean) != 9 {
		return false, false
	}
	for i := 0; i < len(clean); i++ {
		if clean[i] < '0' || clean[i] > '9' {
			return false, false
		}
	}

	steps := 0
	for i := 1; i < len(clean); i++ {
		if clean[i] == clean[i-1]+1 {
			steps++
		}
	}
	sequential = steps >= sequentialMinimum

	block := clean[:3]
	repetitive = strings.Count(clean, clean[:1]) == 9 || (clean[3:6] == block && clean[6:] == block)
	return sequential, repetitive
}

// Level maps a score and the triggered rules to a risk level. Branches are
// checked in order and the first match wins.
func Level(score float64, triggered []string) application.RiskLevel {
	switch {
	case score >= 70 || slices.Contains(triggered, rules.RuleSuspiciousPattern):
		return application.RiskCritical
	case score >= 50 || slices.Contains(triggered, rules.RuleHighRiskSSN):
		return application.RiskHigh
	case score >= 30 || len(triggered) >= 3:
		return application.RiskMedium
	default:
		return application.RiskLow
	}
}
