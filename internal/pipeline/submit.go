package pipeline

import (
	"context"
	"errors"
	"fmt"

	"accountflow/internal/application"
	"accountflow/internal/audit"
	dErrors "accountflow/pkg/domainerrors"
	"accountflow/pkg/platform/sentinel"
	"accountflow/pkg/requestcontext"
)

// SubmitResult acknowledges a submission. Processing continues in the
// background.
type SubmitResult struct {
	ApplicationID string             `json:"application_id"`
	Status        application.Status `json:"status"`
	Message       string             `json:"message"`
}

// Submit validates a draft application, moves it to submitted and schedules
// its pipeline run. It fails without any state change when the application
// is not a draft or does not validate.
func (s *Service) Submit(ctx context.Context, id string) (SubmitResult, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	if app.Status != application.StatusDraft {
		return SubmitResult{}, dErrors.New(dErrors.CodeInvalidState, "application already submitted")
	}

	now := requestcontext.Now(ctx)
	report := s.validator.Report(app, now)
	if !report.OverallValid {
		return SubmitResult{}, dErrors.New(dErrors.CodeValidation, "validation failed").WithDetails(report.Failures())
	}

	if !s.reserve() {
		return SubmitResult{}, dErrors.New(dErrors.CodeUnavailable, "service is shutting down")
	}

	_, err = s.store.Update(ctx, id, func(a *application.Application) error {
		if a.Status != application.StatusDraft {
			return fmt.Errorf("submit %s: %w", a.Status, sentinel.ErrInvalidState)
		}
		recordScores(a, report, now)
		if err := a.TransitionTo(application.StatusSubmitted, now); err != nil {
			return err
		}
		t := now
		a.SubmittedAt = &t
		return nil
	})
	if err != nil {
		s.runs.Done()
		if errors.Is(err, sentinel.ErrInvalidState) {
			return SubmitResult{}, dErrors.Wrap(err, dErrors.CodeInvalidState, "application already submitted")
		}
		return SubmitResult{}, translate(err)
	}

	runCtx := requestcontext.WithRequestID(s.runCtx, requestcontext.RequestID(ctx))
	go func() {
		defer s.runs.Done()
		s.run(runCtx, id)
	}()

	s.logger.InfoContext(ctx, "application submitted",
		"application_id", id,
		"fraud_score", report.FraudScore,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Action:        audit.ActionApplicationSubmitted,
		ApplicationID: id,
		Status:        string(application.StatusSubmitted),
	})

	return SubmitResult{
		ApplicationID: id,
		Status:        application.StatusSubmitted,
		Message:       "Application submitted successfully and is being processed",
	}, nil
}

// reserve registers a pending run unless the service is shutting down.
func (s *Service) reserve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.runs.Add(1)
	return true
}
