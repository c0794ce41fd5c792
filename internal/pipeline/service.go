// Package pipeline drives an application from submission through external
// checks, rule evaluation and final disposition. At most one run per
// application executes at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"accountflow/internal/application"
	"accountflow/internal/audit"
	"accountflow/internal/integration"
	"accountflow/internal/lock"
	"accountflow/internal/rules"
	"accountflow/internal/validation"
	dErrors "accountflow/pkg/domainerrors"
	"accountflow/pkg/platform/sentinel"
	"accountflow/pkg/requestcontext"
)

// Gateway runs external checks. Implementations never return errors; a
// failed check is a failed record.
type Gateway interface {
	Run(ctx context.Context, check integration.Check, req integration.Request) application.Integration
	RunStandard(ctx context.Context, req integration.Request) []application.Integration
	RunDocuments(ctx context.Context, req integration.Request, docs []application.Document) []application.Integration
}

// RuleEvaluator evaluates the business rules against a fact context.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, facts rules.Facts) rules.Evaluation
}

// Validator validates applicant data and scores it for fraud.
type Validator interface {
	Report(app *application.Application, now time.Time) validation.Report
}

// AuditPublisher records workflow events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the application workflow service.
type Service struct {
	store     application.Store
	gateway   Gateway
	rules     RuleEvaluator
	validator Validator
	locker    lock.Locker
	auditor   AuditPublisher
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time

	runCtx    context.Context
	cancelRun context.CancelFunc
	mu        sync.Mutex
	closed    bool
	runs      sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithLocker sets the per-application locker. Defaults to an in-memory registry.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithAuditor sets the audit publisher.
func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the clock used by background runs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates the service.
func New(store application.Store, gateway Gateway, evaluator RuleEvaluator, validator Validator, opts ...Option) *Service {
	s := &Service{
		store:     store,
		gateway:   gateway,
		rules:     evaluator,
		validator: validator,
		locker:    lock.NewRegistry(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runCtx, s.cancelRun = context.WithCancel(context.Background())
	return s
}

// CreateInput holds the facts of a new application.
type CreateInput struct {
	AccountType        application.AccountType
	PersonalInfo       application.PersonalInfo
	EmploymentInfo     *application.EmploymentInfo
	Documents          []application.Document
	OverdraftRequested bool
}

// Create stores a new draft application.
func (s *Service) Create(ctx context.Context, in CreateInput) (*application.Application, error) {
	if !in.AccountType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unsupported account type")
	}
	now := requestcontext.Now(ctx)
	app := application.NewApplication(in.AccountType, in.PersonalInfo, in.EmploymentInfo, in.Documents, in.OverdraftRequested, now)
	if err := s.store.Create(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}

	s.logger.InfoContext(ctx, "application created",
		"application_id", app.ID,
		"account_type", string(app.AccountType),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Action:        audit.ActionApplicationCreated,
		ApplicationID: app.ID,
		Status:        string(app.Status),
	})
	return app, nil
}

// Get returns one application.
func (s *Service) Get(ctx context.Context, id string) (*application.Application, error) {
	if !application.IsValidID(id) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid application id")
	}
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return app, nil
}

// List returns applications matching filter.
func (s *Service) List(ctx context.Context, filter application.ListFilter) ([]*application.Application, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown status filter")
	}
	apps, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

// StatusView is the read-only progress summary of an application.
type StatusView struct {
	ApplicationID         string                `json:"application_id"`
	Status                application.Status    `json:"status"`
	RiskLevel             application.RiskLevel `json:"risk_level"`
	CreatedAt             time.Time             `json:"created_at"`
	SubmittedAt           *time.Time            `json:"submitted_at"`
	CompletedAt           *time.Time            `json:"completed_at"`
	ApprovalDecision      string                `json:"approval_decision,omitempty"`
	DecisionReason        string                `json:"decision_reason,omitempty"`
	AssignedTo            string                `json:"assigned_to,omitempty"`
	IntegrationsCompleted int                   `json:"integrations_completed"`
	RulesApplied          int                   `json:"rules_applied"`
}

// Status reports the progress of an application without side effects.
func (s *Service) Status(ctx context.Context, id string) (StatusView, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{
		ApplicationID:         app.ID,
		Status:                app.Status,
		RiskLevel:             app.RiskLevel,
		CreatedAt:             app.CreatedAt,
		SubmittedAt:           app.SubmittedAt,
		CompletedAt:           app.CompletedAt,
		ApprovalDecision:      app.ApprovalDecision,
		DecisionReason:        app.DecisionReason,
		AssignedTo:            app.AssignedTo,
		IntegrationsCompleted: len(app.Integrations),
		RulesApplied:          len(app.RulesApplied),
	}, nil
}

// Validate runs the validator and returns its report. Scores are recorded
// only while the application is still a draft.
func (s *Service) Validate(ctx context.Context, id string) (validation.Report, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return validation.Report{}, err
	}
	now := requestcontext.Now(ctx)
	report := s.validator.Report(app, now)

	if app.Status == application.StatusDraft {
		_, err = s.store.Update(ctx, id, func(a *application.Application) error {
			if a.Status != application.StatusDraft {
				return nil
			}
			recordScores(a, report, now)
			return nil
		})
		if err != nil {
			return validation.Report{}, translate(err)
		}
	}

	s.emit(ctx, audit.Event{
		Action:        audit.ActionApplicationValidated,
		ApplicationID: id,
		Status:        string(app.Status),
		Decision:      fmt.Sprintf("valid=%t", report.OverallValid),
	})
	return report, nil
}

// Resolve records a reviewer's decision on an application in manual review.
func (s *Service) Resolve(ctx context.Context, id, decision, reason string) (*application.Application, error) {
	var target application.Status
	switch decision {
	case application.DecisionApproved:
		target = application.StatusApproved
	case application.DecisionRejected:
		target = application.StatusRejected
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "decision must be approved or rejected")
	}
	if !application.IsValidID(id) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid application id")
	}

	reviewer := requestcontext.Reviewer(ctx)
	now := requestcontext.Now(ctx)
	app, err := s.store.Update(ctx, id, func(a *application.Application) error {
		if a.Status != application.StatusManualReview {
			return fmt.Errorf("resolve %s: %w", a.Status, sentinel.ErrInvalidState)
		}
		if err := a.TransitionTo(target, now); err != nil {
			return err
		}
		a.ApprovalDecision = decision
		if reason != "" {
			a.DecisionReason = reason
		}
		if reviewer != "" {
			a.AddNote("resolved by " + reviewer)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.logger.InfoContext(ctx, "application resolved",
		"application_id", id,
		"decision", decision,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Action:        audit.ActionApplicationResolved,
		ApplicationID: id,
		Status:        string(app.Status),
		Decision:      decision,
		Reason:        reason,
		ActorID:       reviewer,
	})
	return app, nil
}

// Wait blocks until all scheduled runs have finished.
func (s *Service) Wait() {
	s.runs.Wait()
}

// Shutdown stops accepting submissions and waits for in-flight runs. When
// ctx expires first, in-flight runs are cancelled and fall back to manual
// review.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancelRun()
		return nil
	case <-ctx.Done():
		s.cancelRun()
		<-done
		return ctx.Err()
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"application_id", event.ApplicationID,
			"error", err,
		)
	}
}

func recordScores(a *application.Application, report validation.Report, now time.Time) {
	a.SetFraudScore(report.FraudScore)
	a.SetConfidence(report.AverageConfidence)
	if len(report.FraudPatterns) > 0 {
		a.AddNote("Fraud patterns detected: " + strings.Join(report.FraudPatterns, ", "))
	}
	a.UpdatedAt = now
}

// translate maps store sentinels to domain errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "application is not in a state that allows this operation")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "application already exists")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "application store failed")
	}
}
