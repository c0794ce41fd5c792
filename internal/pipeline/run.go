package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"accountflow/internal/application"
	"accountflow/internal/audit"
	"accountflow/internal/integration"
	"accountflow/internal/platform/tracing"
	"accountflow/internal/risk"
	"accountflow/internal/rules"
	"accountflow/pkg/requestcontext"
)

// Decision reasons recorded on the application.
const (
	ReasonAutoApproved      = "auto-approved, low risk"
	ReasonFraudReview       = "flagged for fraud review"
	ReasonManualReview      = "flagged for manual review"
	ReasonSeniorReview      = "high risk level: senior review required"
	ReasonCreditApproved    = "approved after credit check"
	ReasonCreditBelow       = "credit score below threshold"
	ReasonCreditUnavailable = "credit check unavailable"
)

// FaultNote is the note left on an application whose run failed.
const FaultNote = "processing error: routed to manual review"

// MinCreditScore is the lowest credit score approved on the residual path.
const MinCreditScore = 650.0

const releaseTimeout = 5 * time.Second

type decision struct {
	status   application.Status
	reason   string
	assignee string
	credit   *application.Integration
}

// run executes one pipeline run under the application's lock. Faults never
// escape: they route the application to manual review.
func (s *Service) run(ctx context.Context, id string) {
	start := s.now()
	s.metrics.runStarted()
	ctx, span := tracing.StartSpan(ctx, "pipeline.run", attribute.String("application_id", id))

	var runErr error
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
			s.fault(ctx, id, runErr)
		}
		s.metrics.runFinished(s.now().Sub(start))
		tracing.EndSpan(span, runErr)
	}()

	lease, err := s.locker.Acquire(ctx, id)
	if err != nil {
		runErr = fmt.Errorf("acquire lock: %w", err)
		s.fault(ctx, id, runErr)
		return
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			s.logger.WarnContext(ctx, "failed to release application lock", "application_id", id, "error", err)
		}
	}()

	if err := s.process(ctx, id); err != nil {
		runErr = err
		s.fault(ctx, id, err)
	}
}

func (s *Service) process(ctx context.Context, id string) error {
	app, err := s.store.Update(ctx, id, func(a *application.Application) error {
		return a.TransitionTo(application.StatusIdentityVerification, s.now())
	})
	if err != nil {
		return fmt.Errorf("start identity verification: %w", err)
	}

	req := integration.RequestFor(app)
	results := s.gateway.RunStandard(ctx, req)
	if app.EmploymentInfo != nil {
		results = append(results, s.gateway.Run(ctx, integration.CheckEmployment, req))
	}
	if len(app.Documents) > 0 {
		results = append(results, s.gateway.RunDocuments(ctx, req, app.Documents)...)
	}

	app, err = s.store.Update(ctx, id, func(a *application.Application) error {
		a.AppendIntegrations(results...)
		return a.TransitionTo(application.StatusComplianceReview, s.now())
	})
	if err != nil {
		return fmt.Errorf("start compliance review: %w", err)
	}

	now := s.now()
	assessment := risk.Score(app, now)
	eval := s.rules.Evaluate(ctx, BuildFacts(app, assessment.Score, now))
	level := risk.Level(assessment.Score, eval.Triggered)

	app, err = s.store.Update(ctx, id, func(a *application.Application) error {
		a.RiskScore = assessment.Score
		a.RiskLevel = level
		a.RulesApplied = append([]string(nil), eval.Triggered...)
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("record risk: %w", err)
	}

	d := s.decide(ctx, eval, level, req)

	app, err = s.store.Update(ctx, id, func(a *application.Application) error {
		done := s.now()
		if d.credit != nil {
			a.AppendIntegrations(*d.credit)
		}
		if err := a.TransitionTo(d.status, done); err != nil {
			return err
		}
		a.ApprovalDecision = string(d.status)
		a.DecisionReason = d.reason
		a.AssignedTo = d.assignee
		a.Complete(done)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}

	s.metrics.incOutcome(app.Status, app.AssignedTo)
	s.logger.InfoContext(ctx, "application decided",
		"application_id", id,
		"status", string(app.Status),
		"risk_level", string(app.RiskLevel),
		"risk_score", app.RiskScore,
		"triggered_rules", app.RulesApplied,
		"assigned_to", app.AssignedTo,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Action:        audit.ActionApplicationDecided,
		ApplicationID: id,
		Status:        string(app.Status),
		Decision:      app.ApprovalDecision,
		Reason:        app.DecisionReason,
		Subject:       app.AssignedTo,
	})
	return nil
}

// decide maps the evaluation and risk level to an outcome. Only the residual
// path calls out to the credit check.
func (s *Service) decide(ctx context.Context, eval rules.Evaluation, level application.RiskLevel, req integration.Request) decision {
	if eval.CanAutoApprove() {
		return decision{status: application.StatusApproved, reason: ReasonAutoApproved}
	}

	switch eval.NextAction() {
	case rules.NextManualFraudReview:
		return decision{status: application.StatusManualReview, reason: ReasonFraudReview, assignee: application.AssigneeFraudTeam}
	case rules.NextManualReview:
		return decision{status: application.StatusManualReview, reason: ReasonManualReview, assignee: application.AssigneeReviewTeam}
	}

	if level == application.RiskHigh || level == application.RiskCritical {
		return decision{status: application.StatusManualReview, reason: ReasonSeniorReview, assignee: application.AssigneeSeniorReviewer}
	}

	credit := s.gateway.Run(ctx, integration.CheckCredit, req)
	d := decision{status: application.StatusManualReview, credit: &credit}
	score, ok := credit.Float("credit_score")
	switch {
	case credit.Status == application.IntegrationFailed || !ok:
		d.reason = ReasonCreditUnavailable
	case score >= MinCreditScore:
		d.status = application.StatusApproved
		d.reason = ReasonCreditApproved
	default:
		d.reason = ReasonCreditBelow
	}
	return d
}

// fault routes the application to manual review after a failed run. The
// error is logged, never stored on the application.
func (s *Service) fault(ctx context.Context, id string, cause error) {
	s.metrics.incFault()
	s.logger.ErrorContext(ctx, "pipeline run failed",
		"application_id", id,
		"error", cause,
		"request_id", requestcontext.RequestID(ctx),
	)

	ctx = context.WithoutCancel(ctx)
	app, err := s.store.Update(ctx, id, func(a *application.Application) error {
		if a.Status.IsTerminal() {
			return nil
		}
		now := s.now()
		if err := a.TransitionTo(application.StatusManualReview, now); err != nil {
			return err
		}
		a.ApprovalDecision = string(application.StatusManualReview)
		a.DecisionReason = FaultNote
		a.AddNote(FaultNote)
		a.Complete(now)
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to route application to manual review",
			"application_id", id,
			"error", err,
		)
		return
	}

	s.metrics.incOutcome(app.Status, app.AssignedTo)
	s.emit(ctx, audit.Event{
		Action:        audit.ActionPipelineFault,
		ApplicationID: id,
		Status:        string(app.Status),
		Reason:        FaultNote,
	})
}
