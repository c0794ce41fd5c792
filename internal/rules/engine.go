package rules

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"

	dErrors "accountflow/pkg/domainerrors"
)

// Next actions derived from the triggered actions.
const (
	NextManualFraudReview = "manual_fraud_review"
	NextManualReview      = "manual_review"
	NextEnhancedKYCCheck  = "enhanced_kyc_check"
	NextCreditCheck       = "credit_check"
	NextCosignerInfo      = "require_cosigner_info"
	NextAutoApprove       = "auto_approve"
	NextProceed           = "proceed_to_next_step"
)

// nextActionPriority maps actions to next actions, most urgent first.
var nextActionPriority = []struct {
	action string
	next   string
}{
	{ActionFlagFraudReview, NextManualFraudReview},
	{ActionFlagManualReview, NextManualReview},
	{ActionEnhancedKYC, NextEnhancedKYCCheck},
	{ActionRequireCreditCheck, NextCreditCheck},
	{ActionRequireCosigner, NextCosignerInfo},
	{ActionAutoApprove, NextAutoApprove},
}

// Evaluation is the outcome of evaluating the rule set once.
type Evaluation struct {
	Triggered []string `json:"triggered_rules"`
	Actions   []string `json:"actions_required"`
}

// NextAction returns the most urgent next action for the evaluation.
func (e Evaluation) NextAction() string {
	return NextAction(e.Actions)
}

// CanAutoApprove reports whether auto-approval is the only action.
func (e Evaluation) CanAutoApprove() bool {
	return CanAutoApprove(e.Actions)
}

// NextAction picks the workflow step for a set of triggered actions.
func NextAction(actions []string) string {
	for _, p := range nextActionPriority {
		if slices.Contains(actions, p.action) {
			return p.next
		}
	}
	return NextProceed
}

// CanAutoApprove is true only when exactly one action triggered and it is
// auto_approve. Any competing action blocks auto-approval.
func CanAutoApprove(actions []string) bool {
	return len(actions) == 1 && actions[0] == ActionAutoApprove
}

type compiledRule struct {
	rule      BusinessRule
	condition Condition
	seq       uint64
}

// Engine holds the ordered rule set. Rules are kept priority-descending and
// stable by insertion, so evaluation order never depends on map iteration
// or sort instability.
type Engine struct {
	mu      sync.RWMutex
	rules   []compiledRule
	nextSeq uint64
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for condition diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables rule trigger metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine builds an engine loaded with initial.
func NewEngine(initial []BusinessRule, opts ...Option) (*Engine, error) {
	e := &Engine{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	for _, r := range initial {
		if err := e.Add(context.Background(), r); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Add validates, compiles and inserts a rule. Duplicate ids conflict.
func (e *Engine) Add(ctx context.Context, r BusinessRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	cond := Compile(r.Condition)
	if diag := cond.Diagnostic(); diag != "" {
		e.logger.WarnContext(ctx, "rule condition has parts that never match",
			"rule_id", r.ID,
			"diagnostic", diag,
		)
		e.metrics.IncCompileFailure()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.rules {
		if existing.rule.ID == r.ID {
			return dErrors.New(dErrors.CodeConflict, "rule already exists")
		}
	}
	e.nextSeq++
	e.rules = append(e.rules, compiledRule{rule: r, condition: cond, seq: e.nextSeq})
	sort.SliceStable(e.rules, func(i, j int) bool {
		if e.rules[i].rule.Priority != e.rules[j].rule.Priority {
			return e.rules[i].rule.Priority > e.rules[j].rule.Priority
		}
		return e.rules[i].seq < e.rules[j].seq
	})
	return nil
}

// Remove deletes the rule with id. Removing an unknown id is a no-op; the
// result reports whether anything was removed.
func (e *Engine) Remove(_ context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	before := len(e.rules)
	e.rules = slices.DeleteFunc(e.rules, func(c compiledRule) bool {
		return c.rule.ID == id
	})
	return len(e.rules) != before
}

// List returns a copy of every rule.
func (e *Engine) List() []BusinessRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]BusinessRule, len(e.rules))
	for i, c := range e.rules {
		out[i] = c.rule
	}
	return out
}

// Count returns the number of loaded rules.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Evaluate runs every enabled rule against facts in evaluation order.
func (e *Engine) Evaluate(_ context.Context, facts Facts) Evaluation {
	e.mu.RLock()
	snapshot := slices.Clone(e.rules)
	e.mu.RUnlock()

	result := Evaluation{Triggered: []string{}, Actions: []string{}}
	for _, c := range snapshot {
		if !c.rule.Enabled {
			continue
		}
		if c.condition.Eval(facts) {
			result.Triggered = append(result.Triggered, c.rule.ID)
			result.Actions = append(result.Actions, c.rule.Action)
			e.metrics.IncTriggered(c.rule.ID)
		}
	}
	return result
}
