package pipeline

import (
	"time"

	"accountflow/internal/application"
	"accountflow/internal/risk"
	"accountflow/internal/rules"
)

// Fact names available to rule conditions.
const (
	FactAge                    = "age"
	FactSSNSequential          = "ssn_sequential"
	FactSSNRepetitive          = "ssn_repetitive"
	FactAnnualIncome           = "annual_income"
	FactCitizenship            = "citizenship"
	FactAccountType            = "account_type"
	FactBusinessAccount        = "business_account"
	FactForeignAddress         = "foreign_address"
	FactEINProvided            = "ein_provided"
	FactOverdraftRequested     = "overdraft_requested"
	FactAIFraudScore           = "ai_fraud_score"
	FactRiskScore              = "risk_score"
	FactAllVerificationsPassed = "all_verifications_passed"
	FactIntegrationsFailed     = "integrations_failed"
)

// BuildFacts derives the rule fact context from app. Numbers are float64 so
// comparisons never depend on the source type. The result is never stored.
func BuildFacts(app *application.Application, riskScore float64, now time.Time) rules.Facts {
	sequential, repetitive := risk.SSNPatterns(app.PersonalInfo.SSN)
	income, _ := app.AnnualIncome()

	failed := 0
	for _, i := range app.Integrations {
		if i.Status == application.IntegrationFailed {
			failed++
		}
	}

	return rules.Facts{
		FactAge:                    float64(application.AgeOn(app.PersonalInfo.DateOfBirth, now)),
		FactSSNSequential:          sequential,
		FactSSNRepetitive:          repetitive,
		FactAnnualIncome:           income,
		FactCitizenship:            app.PersonalInfo.Citizenship,
		FactAccountType:            string(app.AccountType),
		FactBusinessAccount:        app.AccountType.IsBusiness(),
		FactForeignAddress:         app.PersonalInfo.Citizenship != "US",
		FactEINProvided:            app.HasDocument(application.DocumentEIN),
		FactOverdraftRequested:     app.OverdraftRequested,
		FactAIFraudScore:           app.AIFraudScore,
		FactRiskScore:              riskScore,
		FactAllVerificationsPassed: len(app.Integrations) > 0,
		FactIntegrationsFailed:     float64(failed),
	}
}
