package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"accountflow/internal/application"
	"accountflow/internal/platform/tracing"
	"accountflow/pkg/platform/circuit"
)

// DefaultTimeout bounds a single check when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Gateway runs checks against a Verifier. Every call returns a record; check
// failures are converted into failed records and never reach the caller.
type Gateway struct {
	verifier Verifier
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
	breakers map[Check]*circuit.Breaker

	breakerOpts []circuit.Option
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout sets the per-check time bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger used for failed checks.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// WithBreakers guards every check with its own circuit breaker. While a
// check's circuit is open and cooling down, calls fail fast as provider
// outages without reaching the verifier.
func WithBreakers(opts ...circuit.Option) Option {
	return func(g *Gateway) {
		g.breakerOpts = append([]circuit.Option{}, opts...)
	}
}

// NewGateway creates a gateway over verifier.
func NewGateway(verifier Verifier, opts ...Option) *Gateway {
	g := &Gateway{
		verifier: verifier,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.breakerOpts != nil {
		g.breakers = make(map[Check]*circuit.Breaker, len(AllChecks))
		for _, check := range AllChecks {
			bopts := append([]circuit.Option{circuit.WithClock(g.now)}, g.breakerOpts...)
			g.breakers[check] = circuit.New(string(check), bopts...)
		}
	}
	return g
}

type outcome struct {
	result *application.Integration
	err    error
}

// Run executes one check within the gateway timeout.
func (g *Gateway) Run(ctx context.Context, check Check, req Request) application.Integration {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "integration."+string(check),
		attribute.String("application_id", req.ApplicationID),
	)

	breaker := g.breakers[check]
	if breaker != nil && !breaker.Allow(g.now()) {
		err := NewError(ErrorProviderOutage, check, "circuit open", ErrServiceUnavailable)
		record := g.failedRecord(check, err, 0)
		g.metrics.IncOutcome(check, record.Status)
		span.SetAttributes(attribute.Bool("integration.circuit_open", true))
		tracing.EndSpan(span, err)
		return record
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: NewError(ErrorInternal, check, "check panicked", fmt.Errorf("%v", r))}
			}
		}()
		res, err := g.call(callCtx, check, req)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		out.err = contextError(check, callCtx.Err())
	}

	elapsed := time.Since(start)
	record, err := g.normalize(check, out)
	if err != nil {
		record = g.failedRecord(check, err, elapsed)
		g.logger.WarnContext(ctx, "integration check failed",
			"application_id", req.ApplicationID,
			"check", string(check),
			"category", string(CategoryOf(err)),
			"error", err,
		)
	} else if record.ProcessingTimeMS <= 0 {
		record.ProcessingTimeMS = elapsed.Milliseconds()
	}
	g.recordBreaker(ctx, breaker, err)

	g.metrics.ObserveLatency(check, elapsed.Seconds())
	g.metrics.IncOutcome(check, record.Status)
	span.SetAttributes(attribute.String("integration.status", string(record.Status)))
	tracing.EndSpan(span, err)
	return record
}

// RunStandard runs identity, fraud database and KYC/AML screening
// concurrently and returns their records in that order.
func (g *Gateway) RunStandard(ctx context.Context, req Request) []application.Integration {
	return g.runAll(ctx, StandardChecks, req)
}

// RunDocuments verifies each uploaded document, preserving upload order.
func (g *Gateway) RunDocuments(ctx context.Context, req Request, docs []application.Document) []application.Integration {
	results := make([]application.Integration, len(docs))
	var eg errgroup.Group
	for i := range docs {
		docReq := req
		doc := docs[i]
		docReq.Document = &doc
		eg.Go(func() error {
			results[i] = g.Run(ctx, CheckDocument, docReq)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (g *Gateway) runAll(ctx context.Context, checks []Check, req Request) []application.Integration {
	results := make([]application.Integration, len(checks))
	var eg errgroup.Group
	for i, check := range checks {
		eg.Go(func() error {
			results[i] = g.Run(ctx, check, req)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (g *Gateway) call(ctx context.Context, check Check, req Request) (*application.Integration, error) {
	switch check {
	case CheckIdentity:
		return g.verifier.VerifyIdentity(ctx, req)
	case CheckFraud:
		return g.verifier.CheckFraudDatabase(ctx, req)
	case CheckKYC:
		return g.verifier.ScreenKYC(ctx, req)
	case CheckCredit:
		return g.verifier.CheckCredit(ctx, req)
	case CheckEmployment:
		return g.verifier.VerifyEmployment(ctx, req)
	case CheckDocument:
		return g.verifier.VerifyDocument(ctx, req)
	default:
		return nil, NewError(ErrorInternal, check, "unknown check", nil)
	}
}

// normalize validates a verifier result and fills the fields the gateway owns.
func (g *Gateway) normalize(check Check, out outcome) (application.Integration, error) {
	if out.err != nil {
		var ie *Error
		if errors.As(out.err, &ie) {
			return application.Integration{}, out.err
		}
		return application.Integration{}, NewError(classify(out.err), check, "check returned an error", out.err)
	}
	if out.result == nil {
		return application.Integration{}, NewError(ErrorBadData, check, "check returned no result", nil)
	}

	record := *out.result
	switch record.Status {
	case application.IntegrationSuccess, application.IntegrationFailed,
		application.IntegrationPartial, application.IntegrationReviewRequired:
	default:
		return application.Integration{}, NewError(ErrorBadData, check,
			fmt.Sprintf("unknown status %q", record.Status), nil)
	}

	if record.Name == "" {
		record.Name = string(check)
	}
	if record.RequestID == "" {
		record.RequestID = newRequestID(check)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = g.now()
	}
	if record.ResponseData == nil {
		record.ResponseData = map[string]any{}
	}
	return record, nil
}

func (g *Gateway) failedRecord(check Check, err error, elapsed time.Duration) application.Integration {
	return application.Integration{
		Name:      string(check),
		RequestID: newRequestID(check),
		Status:    application.IntegrationFailed,
		ResponseData: map[string]any{
			"error":          fmt.Sprintf("%s unavailable", check),
			"error_category": string(CategoryOf(err)),
		},
		ProcessingTimeMS: elapsed.Milliseconds(),
		Timestamp:        g.now(),
	}
}

func (g *Gateway) recordBreaker(ctx context.Context, b *circuit.Breaker, err error) {
	if b == nil {
		return
	}
	if err != nil && CategoryOf(err) != ErrorBadData {
		if _, change := b.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "integration circuit opened", "check", b.Name())
		}
		return
	}
	if _, change := b.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "integration circuit closed", "check", b.Name())
	}
}

func classify(err error) ErrorCategory {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTimeout
	case errors.Is(err, ErrServiceUnavailable):
		return ErrorProviderOutage
	default:
		return ErrorInternal
	}
}

func contextError(check Check, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTimeout, check, "check timed out", err)
	}
	return NewError(ErrorInternal, check, "check cancelled", err)
}

func newRequestID(check Check) string {
	return check.Prefix() + "-" + uuid.NewString()
}
