// Package workflow describes the account-opening workflows offered per
// account type.
package workflow

import (
	"time"

	"accountflow/internal/application"
	"accountflow/internal/integration"
	"accountflow/internal/rules"
)

// DefaultMaxProcessingSeconds bounds a step unless it says otherwise.
const DefaultMaxProcessingSeconds = 300

// Step is one stage of a workflow.
type Step struct {
	ID                   string   `json:"step_id"`
	Name                 string   `json:"step_name"`
	Order                int      `json:"step_order"`
	RequiredFields       []string `json:"required_fields"`
	IntegrationsRequired []string `json:"integrations_required"`
	ValidationRules      []string `json:"validation_rules"`
	AutoAdvance          bool     `json:"auto_advance"`
	MaxProcessingSeconds int      `json:"max_processing_time_seconds"`
}

// Config is a complete workflow for one account type.
type Config struct {
	ID            string                  `json:"workflow_id"`
	Name          string                  `json:"workflow_name"`
	AccountType   application.AccountType `json:"account_type"`
	Steps         []Step                  `json:"steps"`
	BusinessRules []rules.BusinessRule    `json:"business_rules"`
	CreatedAt     time.Time               `json:"created_at"`
	CreatedBy     string                  `json:"created_by"`
}

// RuleLister lists the active rule set.
type RuleLister interface {
	List() []rules.BusinessRule
}

// Catalog serves the workflow definitions with the live rule set attached.
type Catalog struct {
	rules     RuleLister
	workflows []Config
}

// NewCatalog creates a catalog holding the default workflows.
func NewCatalog(rl RuleLister, now time.Time) *Catalog {
	return &Catalog{
		rules:     rl,
		workflows: []Config{personalChecking(now)},
	}
}

// List returns every workflow.
func (c *Catalog) List() []Config {
	current := c.rules.List()
	out := make([]Config, len(c.workflows))
	for i, wf := range c.workflows {
		wf.BusinessRules = current
		out[i] = wf
	}
	return out
}

// ForAccountType returns the workflow for t, if one is defined.
func (c *Catalog) ForAccountType(t application.AccountType) (Config, bool) {
	for _, wf := range c.List() {
		if wf.AccountType == t {
			return wf, true
		}
	}
	return Config{}, false
}

func personalChecking(now time.Time) Config {
	return Config{
		ID:          "wf_personal_checking",
		Name:        "Personal Checking Account",
		AccountType: application.AccountPersonalChecking,
		CreatedAt:   now,
		CreatedBy:   "system",
		Steps: []Step{
			{
				ID:                   "personal_info",
				Name:                 "Personal Information",
				Order:                1,
				RequiredFields:       []string{"first_name", "last_name", "email", "phone", "date_of_birth", "ssn", "address"},
				IntegrationsRequired: []string{},
				ValidationRules:      []string{"age_verification", "ssn_format"},
				AutoAdvance:          true,
				MaxProcessingSeconds: DefaultMaxProcessingSeconds,
			},
			{
				ID:                   "identity_verification",
				Name:                 "Identity Verification",
				Order:                2,
				RequiredFields:       []string{},
				IntegrationsRequired: []string{string(integration.CheckIdentity), string(integration.CheckFraud)},
				ValidationRules:      []string{},
				AutoAdvance:          true,
				MaxProcessingSeconds: DefaultMaxProcessingSeconds,
			},
			{
				ID:                   "kyc_aml",
				Name:                 "KYC/AML Screening",
				Order:                3,
				RequiredFields:       []string{},
				IntegrationsRequired: []string{string(integration.CheckKYC)},
				ValidationRules:      []string{},
				AutoAdvance:          true,
				MaxProcessingSeconds: DefaultMaxProcessingSeconds,
			},
			{
				ID:                   "review",
				Name:                 "Final Review",
				Order:                4,
				RequiredFields:       []string{},
				IntegrationsRequired: []string{},
				ValidationRules:      []string{},
				AutoAdvance:          false,
				MaxProcessingSeconds: DefaultMaxProcessingSeconds,
			},
		},
	}
}
