package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "accountflow/pkg/domainerrors"
)

type EngineSuite struct {
	suite.Suite
	engine  *Engine
	metrics *Metrics
	ctx     context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.metrics = NewMetrics(prometheus.NewRegistry())
	engine, err := NewEngine(DefaultRules(), WithMetrics(s.metrics))
	s.Require().NoError(err)
	s.engine = engine
}

func baseFacts() Facts {
	return Facts{
		"age":                      30.0,
		"ssn_sequential":           false,
		"ssn_repetitive":           false,
		"annual_income":            60000.0,
		"citizenship":              "US",
		"account_type":             "personal_checking",
		"foreign_address":          false,
		"ein_provided":             false,
		"overdraft_requested":      false,
		"ai_fraud_score":           0.1,
		"risk_score":               4.0,
		"all_verifications_passed": true,
	}
}

// =============================================================================
// Evaluation
// =============================================================================

func (s *EngineSuite) TestEvaluate() {
	s.Run("clean low-risk applicant only auto-approves", func() {
		eval := s.engine.Evaluate(s.ctx, baseFacts())
		s.Equal([]string{RuleAutoApproveLowRisk}, eval.Triggered)
		s.True(eval.CanAutoApprove())
		s.Equal(NextAutoApprove, eval.NextAction())
	})

	s.Run("minor on personal checking needs a cosigner", func() {
		facts := baseFacts()
		facts["age"] = 16.0

		eval := s.engine.Evaluate(s.ctx, facts)
		s.Contains(eval.Triggered, RuleAgeVerification)
		s.Contains(eval.Actions, ActionRequireCosigner)
		s.NotEqual(NextAutoApprove, eval.NextAction())
		s.False(eval.CanAutoApprove())
	})

	s.Run("minor account type is exempt", func() {
		facts := baseFacts()
		facts["age"] = 16.0
		facts["account_type"] = "minor_account"

		eval := s.engine.Evaluate(s.ctx, facts)
		s.NotContains(eval.Triggered, RuleAgeVerification)
	})

	s.Run("high fraud score flags fraud review", func() {
		facts := baseFacts()
		facts["ai_fraud_score"] = 0.75
		facts["risk_score"] = 30.0

		eval := s.engine.Evaluate(s.ctx, facts)
		s.Equal([]string{RuleSuspiciousPattern}, eval.Triggered)
		s.Equal(NextManualFraudReview, eval.NextAction())
	})

	s.Run("triggered order follows priority", func() {
		facts := baseFacts()
		facts["age"] = 16.0
		facts["ai_fraud_score"] = 0.9
		facts["ssn_repetitive"] = true
		facts["citizenship"] = "CA"
		facts["foreign_address"] = true
		facts["overdraft_requested"] = true
		facts["annual_income"] = 300000.0

		eval := s.engine.Evaluate(s.ctx, facts)
		s.Equal([]string{
			RuleAgeVerification,
			RuleSuspiciousPattern,
			RuleHighRiskSSN,
			RuleForeignAddress,
			RuleHighIncomeVerification,
			RuleCreditCheckThreshold,
			RuleAutoApproveLowRisk,
		}, eval.Triggered)
		s.Equal(NextManualFraudReview, eval.NextAction())
	})

	s.Run("business EIN rule never fires", func() {
		facts := baseFacts()
		facts["account_type"] = "business_checking"

		eval := s.engine.Evaluate(s.ctx, facts)
		s.NotContains(eval.Triggered, RuleBusinessAccountEIN)
	})

	s.Run("evaluation is deterministic", func() {
		facts := baseFacts()
		facts["age"] = 17.0
		facts["overdraft_requested"] = true
		first := s.engine.Evaluate(s.ctx, facts)
		for i := 0; i < 100; i++ {
			s.Equal(first, s.engine.Evaluate(s.ctx, facts))
		}
	})

	s.Run("trigger metric counts", func() {
		before := testutil.ToFloat64(s.metrics.triggered.WithLabelValues(RuleAutoApproveLowRisk))
		s.engine.Evaluate(s.ctx, baseFacts())
		after := testutil.ToFloat64(s.metrics.triggered.WithLabelValues(RuleAutoApproveLowRisk))
		s.Equal(before+1, after)
	})
}

func (s *EngineSuite) TestDisabledRulesAreSkipped() {
	s.Require().NoError(s.engine.Add(s.ctx, BusinessRule{
		ID: "ALWAYS_OFF", Name: "Disabled", Condition: "all_verifications_passed",
		Action: "noop", Priority: 1000, Enabled: false,
	}))

	eval := s.engine.Evaluate(s.ctx, baseFacts())
	s.NotContains(eval.Triggered, "ALWAYS_OFF")
}

func (s *EngineSuite) TestEqualPrioritiesKeepInsertionOrder() {
	engine, err := NewEngine(nil)
	s.Require().NoError(err)
	for _, id := range []string{"FIRST", "SECOND", "THIRD"} {
		s.Require().NoError(engine.Add(s.ctx, BusinessRule{
			ID: id, Name: id, Condition: "x", Action: "act", Priority: 10, Enabled: true,
		}))
	}
	s.Require().NoError(engine.Add(s.ctx, BusinessRule{
		ID: "URGENT", Name: "urgent", Condition: "x", Action: "act", Priority: 20, Enabled: true,
	}))

	eval := engine.Evaluate(s.ctx, Facts{"x": true})
	s.Equal([]string{"URGENT", "FIRST", "SECOND", "THIRD"}, eval.Triggered)
}

// =============================================================================
// Administration
// =============================================================================

func (s *EngineSuite) TestAdministration() {
	s.Run("add rejects duplicates", func() {
		err := s.engine.Add(s.ctx, DefaultRules()[0])
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("add rejects invalid fields", func() {
		err := s.engine.Add(s.ctx, BusinessRule{ID: "bad id!", Condition: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("add accepts a rule with an unparsable condition", func() {
		err := s.engine.Add(s.ctx, BusinessRule{
			ID: "INJECTED", Name: "Injected", Condition: "x; drop", Action: "noop", Enabled: true,
		})
		s.Require().NoError(err)
		eval := s.engine.Evaluate(s.ctx, Facts{"x": true})
		s.NotContains(eval.Triggered, "INJECTED")
	})

	s.Run("a rule with one unsupported clause fires on the others", func() {
		before := testutil.ToFloat64(s.metrics.compileFailures)
		err := s.engine.Add(s.ctx, BusinessRule{
			ID: "PARTIAL", Name: "Partial", Condition: "ssn_sequential or account_type == 'minor_account'",
			Action: "manual_review", Priority: 5, Enabled: true,
		})
		s.Require().NoError(err)
		s.Equal(before+1, testutil.ToFloat64(s.metrics.compileFailures))

		facts := baseFacts()
		facts["ssn_sequential"] = true
		s.Contains(s.engine.Evaluate(s.ctx, facts).Triggered, "PARTIAL")
		s.NotContains(s.engine.Evaluate(s.ctx, baseFacts()).Triggered, "PARTIAL")
		s.True(s.engine.Remove(s.ctx, "PARTIAL"))
	})

	s.Run("remove is a no-op for unknown ids", func() {
		count := s.engine.Count()
		s.False(s.engine.Remove(s.ctx, "MISSING"))
		s.Equal(count, s.engine.Count())
	})

	s.Run("remove deletes the rule", func() {
		s.True(s.engine.Remove(s.ctx, RuleAutoApproveLowRisk))
		eval := s.engine.Evaluate(s.ctx, baseFacts())
		s.Empty(eval.Triggered)
		s.Equal(NextProceed, eval.NextAction())
	})

	s.Run("list returns copies", func() {
		listed := s.engine.List()
		listed[0].Enabled = false
		for _, r := range s.engine.List() {
			s.True(r.Enabled)
		}
	})
}

func TestNextAction(t *testing.T) {
	tests := []struct {
		name     string
		actions  []string
		expected string
	}{
		{"none", nil, NextProceed},
		{"unknown only", []string{ActionRequireIncomeDocs}, NextProceed},
		{"fraud beats everything", []string{ActionAutoApprove, ActionFlagManualReview, ActionFlagFraudReview}, NextManualFraudReview},
		{"manual review beats kyc", []string{ActionEnhancedKYC, ActionFlagManualReview}, NextManualReview},
		{"kyc beats credit", []string{ActionRequireCreditCheck, ActionEnhancedKYC}, NextEnhancedKYCCheck},
		{"credit beats cosigner", []string{ActionRequireCosigner, ActionRequireCreditCheck}, NextCreditCheck},
		{"cosigner beats auto approve", []string{ActionAutoApprove, ActionRequireCosigner}, NextCosignerInfo},
		{"auto approve", []string{ActionAutoApprove}, NextAutoApprove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextAction(tt.actions))
		})
	}
}

func TestCanAutoApprove(t *testing.T) {
	assert.True(t, CanAutoApprove([]string{ActionAutoApprove}))
	assert.False(t, CanAutoApprove(nil))
	assert.False(t, CanAutoApprove([]string{ActionAutoApprove, ActionRequireIncomeDocs}))
	assert.False(t, CanAutoApprove([]string{ActionRequireIncomeDocs}))
}

func TestLoadRules(t *testing.T) {
	t.Run("enabled defaults to true", func(t *testing.T) {
		rules, err := LoadRules(strings.NewReader(`
rules:
  - rule_id: HIGH_INCOME_VERIFICATION
    rule_name: High Income
    condition: annual_income > 250000
    action: require_income_documentation
    priority: 80
  - rule_id: PAUSED
    rule_name: Paused rule
    condition: overdraft_requested
    action: require_credit_check
    enabled: false
`))
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.True(t, rules[0].Enabled)
		assert.Equal(t, 80, rules[0].Priority)
		assert.False(t, rules[1].Enabled)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, err := LoadRules(strings.NewReader("rules:\n  - rule_id: X\n    expression: a\n"))
		assert.Error(t, err)
	})

	t.Run("invalid rules are rejected", func(t *testing.T) {
		_, err := LoadRules(strings.NewReader("rules:\n  - rule_id: X\n    rule_name: x\n    action: a\n"))
		assert.Error(t, err)
	})
}
