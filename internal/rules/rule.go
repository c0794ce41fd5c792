package rules

import (
	"regexp"
	"strings"

	dErrors "accountflow/pkg/domainerrors"
)

// Rule identifiers of the default rule set.
const (
	RuleAgeVerification        = "AGE_VERIFICATION"
	RuleHighRiskSSN            = "HIGH_RISK_SSN"
	RuleHighIncomeVerification = "HIGH_INCOME_VERIFICATION"
	RuleBusinessAccountEIN     = "BUSINESS_ACCOUNT_EIN"
	RuleForeignAddress         = "FOREIGN_ADDRESS"
	RuleCreditCheckThreshold   = "CREDIT_CHECK_THRESHOLD"
	RuleAutoApproveLowRisk     = "AUTO_APPROVE_LOW_RISK"
	RuleSuspiciousPattern      = "SUSPICIOUS_PATTERN"
)

// Actions a rule can request.
const (
	ActionRequireCosigner    = "require_cosigner"
	ActionFlagManualReview   = "flag_manual_review"
	ActionRequireIncomeDocs  = "require_income_documentation"
	ActionRequireEIN         = "require_ein"
	ActionEnhancedKYC        = "enhanced_kyc"
	ActionRequireCreditCheck = "require_credit_check"
	ActionAutoApprove        = "auto_approve"
	ActionFlagFraudReview    = "flag_fraud_review"
)

// BusinessRule is a configurable routing rule. Higher priority runs first.
type BusinessRule struct {
	ID        string `json:"rule_id" yaml:"rule_id"`
	Name      string `json:"rule_name" yaml:"rule_name"`
	Condition string `json:"condition" yaml:"condition"`
	Action    string `json:"action" yaml:"action"`
	Priority  int    `json:"priority" yaml:"priority"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
}

var (
	ruleIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)
	actionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)
)

// Validate checks the rule's fields. The condition is only length-checked
// here; grammar problems compile to a never-true condition instead.
func (r BusinessRule) Validate() error {
	fields := map[string]string{}
	if !ruleIDPattern.MatchString(r.ID) {
		fields["rule_id"] = "must be 1-64 letters, digits, '_' or '-'"
	}
	if strings.TrimSpace(r.Name) == "" {
		fields["rule_name"] = "is required"
	}
	if strings.TrimSpace(r.Condition) == "" {
		fields["condition"] = "is required"
	} else if len(r.Condition) > MaxConditionLength {
		fields["condition"] = "exceeds maximum length"
	}
	if !actionPattern.MatchString(r.Action) {
		fields["action"] = "must be a lower-case identifier"
	}
	if len(fields) > 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid business rule").WithDetails(fields)
	}
	return nil
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []BusinessRule {
	return []BusinessRule{
		{
			ID:        RuleAgeVerification,
			Name:      "Age Verification for Account Type",
			Condition: "age < 18 and account_type != 'minor_account'",
			Action:    ActionRequireCosigner,
			Priority:  100,
			Enabled:   true,
		},
		{
			ID:        RuleHighRiskSSN,
			Name:      "High Risk SSN Pattern Detection",
			Condition: "ssn_sequential or ssn_repetitive",
			Action:    ActionFlagManualReview,
			Priority:  90,
			Enabled:   true,
		},
		{
			ID:        RuleHighIncomeVerification,
			Name:      "High Income Requires Additional Verification",
			Condition: "annual_income > 250000",
			Action:    ActionRequireIncomeDocs,
			Priority:  80,
			Enabled:   true,
		},
		{
			// Prefix matching is not part of the grammar, so this rule never
			// fires. "business_account and ein_provided != true" expresses it.
			ID:        RuleBusinessAccountEIN,
			Name:      "Business Account Requires EIN",
			Condition: "account_type.startswith('business') and not ein_provided",
			Action:    ActionRequireEIN,
			Priority:  95,
			Enabled:   true,
		},
		{
			ID:        RuleForeignAddress,
			Name:      "Foreign Address Enhanced Due Diligence",
			Condition: "citizenship != 'US' or foreign_address",
			Action:    ActionEnhancedKYC,
			Priority:  85,
			Enabled:   true,
		},
		{
			ID:        RuleCreditCheckThreshold,
			Name:      "Credit Check for Overdraft Protection",
			Condition: "overdraft_requested",
			Action:    ActionRequireCreditCheck,
			Priority:  70,
			Enabled:   true,
		},
		{
			ID:        RuleAutoApproveLowRisk,
			Name:      "Auto-Approve Low Risk Applications",
			Condition: "risk_score < 20 and all_verifications_passed",
			Action:    ActionAutoApprove,
			Priority:  50,
			Enabled:   true,
		},
		{
			ID:        RuleSuspiciousPattern,
			Name:      "Suspicious Pattern Detection",
			Condition: "ai_fraud_score > 0.7",
			Action:    ActionFlagFraudReview,
			Priority:  100,
			Enabled:   true,
		},
	}
}
