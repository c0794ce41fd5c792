package pipeline_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"accountflow/internal/application"
	"accountflow/internal/application/store"
	"accountflow/internal/audit"
	"accountflow/internal/integration"
	"accountflow/internal/integration/mocks"
	"accountflow/internal/lock"
	"accountflow/internal/pipeline"
	"accountflow/internal/rules"
	"accountflow/internal/validation"
	dErrors "accountflow/pkg/domainerrors"
	"accountflow/pkg/requestcontext"
)

type stubValidator struct {
	report validation.Report
}

func (v stubValidator) Report(*application.Application, time.Time) validation.Report {
	return v.report
}

type panicEvaluator struct{}

func (panicEvaluator) Evaluate(context.Context, rules.Facts) rules.Evaluation {
	panic("rule table corrupted")
}

type PipelineSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	verifier  *mocks.MockVerifier
	store     *store.InMemoryStore
	locks     *lock.Registry
	events    *audit.MemoryStore
	metrics   *pipeline.Metrics
	validator stubValidator
	evaluator pipeline.RuleEvaluator
	now       time.Time
	ctx       context.Context
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.verifier = mocks.NewMockVerifier(s.ctrl)
	s.store = store.NewInMemoryStore()
	s.locks = lock.NewRegistry()
	s.events = audit.NewMemoryStore()
	s.metrics = pipeline.NewMetrics(prometheus.NewRegistry())
	s.validator = stubValidator{report: validation.Report{OverallValid: true, AverageConfidence: 0.9}}
	engine, err := rules.NewEngine(rules.DefaultRules())
	s.Require().NoError(err)
	s.evaluator = engine
	s.now = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-1"), s.now)
}

func (s *PipelineSuite) newService(timeout time.Duration) *pipeline.Service {
	gateway := integration.NewGateway(s.verifier,
		integration.WithTimeout(timeout),
		integration.WithClock(func() time.Time { return s.now }),
	)
	return pipeline.New(s.store, gateway, s.evaluator, s.validator,
		pipeline.WithLocker(s.locks),
		pipeline.WithAuditor(audit.NewPublisher(s.events)),
		pipeline.WithMetrics(s.metrics),
		pipeline.WithClock(func() time.Time { return s.now }),
	)
}

func success(data map[string]any) *application.Integration {
	return &application.Integration{Status: application.IntegrationSuccess, ResponseData: data}
}

// expectStandard stubs the three standard checks and employment verification.
func (s *PipelineSuite) expectStandard(times int) {
	s.verifier.EXPECT().VerifyIdentity(gomock.Any(), gomock.Any()).Return(success(nil), nil).Times(times)
	s.verifier.EXPECT().CheckFraudDatabase(gomock.Any(), gomock.Any()).Return(success(nil), nil).Times(times)
	s.verifier.EXPECT().ScreenKYC(gomock.Any(), gomock.Any()).Return(success(nil), nil).Times(times)
	s.verifier.EXPECT().VerifyEmployment(gomock.Any(), gomock.Any()).Return(success(nil), nil).Times(times)
}

func (s *PipelineSuite) expectCredit(score int) {
	s.verifier.EXPECT().CheckCredit(gomock.Any(), gomock.Any()).
		Return(success(map[string]any{"credit_score": score}), nil)
}

func personal(dob string) application.PersonalInfo {
	return application.PersonalInfo{
		FirstName:   "Margaret",
		LastName:    "Hamilton",
		Email:       "margaret@example.com",
		Phone:       "555-201-3344",
		DateOfBirth: dob,
		SSN:         "412-83-7765",
		Citizenship: "US",
		ZipCode:     "02139",
	}
}

func (s *PipelineSuite) create(svc *pipeline.Service, in pipeline.CreateInput) *application.Application {
	if in.AccountType == "" {
		in.AccountType = application.AccountPersonalChecking
	}
	if in.PersonalInfo.FirstName == "" {
		in.PersonalInfo = personal("1988-04-12")
	}
	if in.EmploymentInfo == nil {
		income := 60000.0
		in.EmploymentInfo = &application.EmploymentInfo{EmployerName: "Acme", AnnualIncome: &income, EmploymentStatus: "employed"}
	}
	app, err := svc.Create(s.ctx, in)
	s.Require().NoError(err)
	return app
}

func (s *PipelineSuite) submitAndWait(svc *pipeline.Service, id string) *application.Application {
	res, err := svc.Submit(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(application.StatusSubmitted, res.Status)
	svc.Wait()
	app, err := svc.Get(s.ctx, id)
	s.Require().NoError(err)
	return app
}

// =============================================================================
// Decisions
// =============================================================================

func (s *PipelineSuite) TestDecisions() {
	s.Run("clean applicant is auto-approved", func() {
		svc := s.newService(time.Second)
		s.expectStandard(1)
		app := s.create(svc, pipeline.CreateInput{})

		got := s.submitAndWait(svc, app.ID)

		s.Equal(application.StatusApproved, got.Status)
		s.Equal(pipeline.ReasonAutoApproved, got.DecisionReason)
		s.Equal([]string{rules.RuleAutoApproveLowRisk}, got.RulesApplied)
		s.Equal(application.RiskLow, got.RiskLevel)
		s.Len(got.Integrations, 4)
		s.NotNil(got.SubmittedAt)
		s.NotNil(got.CompletedAt)
		s.Empty(got.AssignedTo)
	})

	s.Run("fraud score above threshold goes to the fraud team", func() {
		s.validator.report.FraudScore = 0.75
		defer func() { s.validator.report.FraudScore = 0 }()
		svc := s.newService(time.Second)
		s.expectStandard(1)
		app := s.create(svc, pipeline.CreateInput{})

		got := s.submitAndWait(svc, app.ID)

		s.Equal(application.StatusManualReview, got.Status)
		s.Equal(application.AssigneeFraudTeam, got.AssignedTo)
		s.Equal(application.RiskCritical, got.RiskLevel)
		s.Contains(got.RulesApplied, rules.RuleSuspiciousPattern)
		s.InDelta(0.75, got.AIFraudScore, 1e-9)
	})

	s.Run("sequential ssn goes to the review team", func() {
		svc := s.newService(time.Second)
		s.expectStandard(1)
		info := personal("1988-04-12")
		info.SSN = "123-45-6789"
		app := s.create(svc, pipeline.CreateInput{PersonalInfo: info})

		got := s.submitAndWait(svc, app.ID)

		s.Equal(application.StatusManualReview, got.Status)
		s.Equal(application.AssigneeReviewTeam, got.AssignedTo)
		s.Equal(pipeline.ReasonManualReview, got.DecisionReason)
		s.Equal(application.RiskHigh, got.RiskLevel)
	})

	s.Run("high risk without review action goes to a senior reviewer", func() {
		svc := s.newService(time.Second)
		s.expectStandard(1)
		info := personal("1940-01-01")
		info.Citizenship = "CA"
		low := 9000.0
		app := s.create(svc, pipeline.CreateInput{
			PersonalInfo:   info,
			EmploymentInfo: &application.EmploymentInfo{AnnualIncome: &low, EmploymentStatus: "retired"},
		})

		got := s.submitAndWait(svc, app.ID)

		s.Equal(application.StatusManualReview, got.Status)
		s.Equal(application.AssigneeSeniorReviewer, got.AssignedTo)
		s.Equal(pipeline.ReasonSeniorReview, got.DecisionReason)
		s.Equal(application.RiskHigh, got.RiskLevel)
	})

	s.Run("minor on personal checking needs a cosigner and is not auto-approved", func() {
		svc := s.newService(time.Second)
		s.expectStandard(1)
		s.expectCredit(700)
		app := s.create(svc, pipeline.CreateInput{PersonalInfo: personal("2010-01-01")})

		got := s.submitAndWait(svc, app.ID)

		s.Contains(got.RulesApplied, rules.RuleAgeVerification)
		s.NotEqual(pipeline.ReasonAutoApproved, got.DecisionReason)
		s.Equal(application.StatusApproved, got.Status)
		s.Equal(pipeline.ReasonCreditApproved, got.DecisionReason)
	})
}

func (s *PipelineSuite) TestCreditPath() {
	overdraft := pipeline.CreateInput{OverdraftRequested: true}

	s.Run("score at threshold is approved", func() {
		svc := s.newService(time.Second)
		s.expectStandard(1)
		s.expectCredit(650)
		app := s.create(svc, overdraft)

		got := s.submitAndWait(svc, app.ID)

		s.Equal(application.StatusApproved, got.Status)
		s.Equal(pipeline.ReasonCreditApproved, got.DecisionReason)
		s.Len(got.Integrations, 5)
		s.Equal(string(integration.CheckCredit), got.Integrations[4].Name)
	})

	s.Run("score below threshold goes to manual review", func() {
		svc := s.newService(time.Second)
		s.expectStandard(1)
		s.expectCredit(649)
		app := s.create(svc, overdraft)

		got := s.submitAndWait(svc, app.ID)

		s.Equal(application.StatusManualReview, got.Status)
		s.Equal(pipeline.ReasonCreditBelow, got.DecisionReason)
		s.Empty(got.AssignedTo)
	})

	s.Run("failed credit check goes to manual review", func() {
		svc := s.newService(time.Second)
		s.expectStandard(1)
		s.verifier.EXPECT().CheckCredit(gomock.Any(), gomock.Any()).Return(nil, integration.ErrServiceUnavailable)
		app := s.create(svc, overdraft)

		got := s.submitAndWait(svc, app.ID)

		s.Equal(application.StatusManualReview, got.Status)
		s.Equal(pipeline.ReasonCreditUnavailable, got.DecisionReason)
	})
}

// =============================================================================
// Failure handling
// =============================================================================

func (s *PipelineSuite) TestIntegrationTimeoutDoesNotAbortRun() {
	svc := s.newService(30 * time.Millisecond)
	s.verifier.EXPECT().VerifyIdentity(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ integration.Request) (*application.Integration, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	s.verifier.EXPECT().CheckFraudDatabase(gomock.Any(), gomock.Any()).Return(success(nil), nil)
	s.verifier.EXPECT().ScreenKYC(gomock.Any(), gomock.Any()).Return(success(nil), nil)
	s.verifier.EXPECT().VerifyEmployment(gomock.Any(), gomock.Any()).Return(success(nil), nil)
	app := s.create(svc, pipeline.CreateInput{})

	got := s.submitAndWait(svc, app.ID)

	s.True(got.Status.IsTerminal())
	s.NotNil(got.CompletedAt)
	s.Require().Len(got.Integrations, 4)
	s.Equal(string(integration.CheckIdentity), got.Integrations[0].Name)
	s.Equal(application.IntegrationFailed, got.Integrations[0].Status)
	s.Equal("timeout", got.Integrations[0].ResponseData["error_category"])
}

func (s *PipelineSuite) TestPanicRoutesToManualReview() {
	s.evaluator = panicEvaluator{}
	svc := s.newService(time.Second)
	s.expectStandard(1)
	app := s.create(svc, pipeline.CreateInput{})

	got := s.submitAndWait(svc, app.ID)

	s.Equal(application.StatusManualReview, got.Status)
	s.Equal(pipeline.FaultNote, got.DecisionReason)
	s.Contains(got.AINotes, pipeline.FaultNote)
	s.NotContains(got.DecisionReason, "rule table")
	s.NotNil(got.CompletedAt)
	s.Zero(s.locks.Len())

	events, err := s.events.ListByApplication(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(audit.ActionPipelineFault, events[len(events)-1].Action)
}

// =============================================================================
// Submission
// =============================================================================

func (s *PipelineSuite) TestSubmit() {
	s.Run("concurrent submissions start exactly one run", func() {
		svc := s.newService(time.Second)
		s.expectStandard(1)
		app := s.create(svc, pipeline.CreateInput{})

		var accepted, rejected atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Submit(s.ctx, app.ID)
				switch {
				case err == nil:
					accepted.Add(1)
				case dErrors.HasCode(err, dErrors.CodeInvalidState):
					rejected.Add(1)
				}
			}()
		}
		wg.Wait()
		svc.Wait()

		s.Equal(int32(1), accepted.Load())
		s.Equal(int32(7), rejected.Load())
		s.Zero(s.locks.Len())
	})

	s.Run("invalid application is rejected without state change", func() {
		s.validator.report = validation.Report{
			OverallValid: false,
			Results:      []validation.FieldResult{{Field: "email", Valid: false, Message: "Invalid email format"}},
		}
		defer func() { s.validator.report = validation.Report{OverallValid: true} }()
		svc := s.newService(time.Second)
		app := s.create(svc, pipeline.CreateInput{})

		_, err := svc.Submit(s.ctx, app.ID)

		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		got, err := svc.Get(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(application.StatusDraft, got.Status)
		s.Nil(got.SubmittedAt)
	})

	s.Run("unknown and malformed ids", func() {
		svc := s.newService(time.Second)

		_, err := svc.Submit(s.ctx, "APP-000000000000")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = svc.Submit(s.ctx, "../etc/passwd")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("shutdown refuses new submissions", func() {
		svc := s.newService(time.Second)
		app := s.create(svc, pipeline.CreateInput{})
		s.Require().NoError(svc.Shutdown(context.Background()))

		_, err := svc.Submit(s.ctx, app.ID)

		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		got, err := svc.Get(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(application.StatusDraft, got.Status)
	})
}

// =============================================================================
// Queries and review
// =============================================================================

func (s *PipelineSuite) TestStatus() {
	svc := s.newService(time.Second)
	s.expectStandard(1)
	app := s.create(svc, pipeline.CreateInput{})
	s.submitAndWait(svc, app.ID)

	view, err := svc.Status(s.ctx, app.ID)

	s.Require().NoError(err)
	s.Equal(app.ID, view.ApplicationID)
	s.Equal(application.StatusApproved, view.Status)
	s.Equal(4, view.IntegrationsCompleted)
	s.Equal(1, view.RulesApplied)
	s.Equal(s.now, view.CreatedAt)
}

func (s *PipelineSuite) TestResolve() {
	s.validator.report.FraudScore = 0.8
	svc := s.newService(time.Second)
	s.expectStandard(1)
	app := s.create(svc, pipeline.CreateInput{})
	s.submitAndWait(svc, app.ID)

	ctx := requestcontext.WithReviewer(s.ctx, "analyst-7")
	got, err := svc.Resolve(ctx, app.ID, application.DecisionRejected, "confirmed synthetic identity")

	s.Require().NoError(err)
	s.Equal(application.StatusRejected, got.Status)
	s.Equal("confirmed synthetic identity", got.DecisionReason)
	s.Contains(got.AINotes, "resolved by analyst-7")

	_, err = svc.Resolve(ctx, app.ID, application.DecisionApproved, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = svc.Resolve(ctx, app.ID, "maybe", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *PipelineSuite) TestValidateRecordsScoresOnDraft() {
	s.validator.report = validation.Report{OverallValid: true, FraudScore: 0.3, FraudPatterns: []string{validation.PatternSequentialSSN}, AverageConfidence: 0.8}
	svc := s.newService(time.Second)
	app := s.create(svc, pipeline.CreateInput{})

	report, err := svc.Validate(s.ctx, app.ID)

	s.Require().NoError(err)
	s.True(report.OverallValid)
	got, err := svc.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	s.InDelta(0.3, got.AIFraudScore, 1e-9)
	s.InDelta(0.8, got.AIConfidence, 1e-9)
	s.Equal([]string{"Fraud patterns detected: sequential_ssn"}, got.AINotes)
	s.Equal(application.StatusDraft, got.Status)
}

func (s *PipelineSuite) TestMetrics() {
	svc := s.newService(time.Second)
	s.expectStandard(1)
	app := s.create(svc, pipeline.CreateInput{})
	s.submitAndWait(svc, app.ID)

	s.Equal(1, testutil.CollectAndCount(s.metrics.Outcomes()))
}

func TestCreateRejectsUnknownAccountType(t *testing.T) {
	engine, err := rules.NewEngine(nil)
	require.NoError(t, err)
	svc := pipeline.New(store.NewInMemoryStore(), nil, engine, validation.New())

	_, err = svc.Create(context.Background(), pipeline.CreateInput{AccountType: "crypto_vault"})

	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
