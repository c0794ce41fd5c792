package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"accountflow/internal/application"
	"accountflow/internal/rules"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newApp(dob, ssn, citizenship string, income *float64, fraud float64) *application.Application {
	var emp *application.EmploymentInfo
	if income != nil {
		emp = &application.EmploymentInfo{AnnualIncome: income, EmploymentStatus: "employed"}
	}
	app := application.NewApplication(application.AccountPersonalChecking, application.PersonalInfo{
		DateOfBirth: dob,
		SSN:         ssn,
		Citizenship: citizenship,
	}, emp, nil, false, now)
	app.SetFraudScore(fraud)
	return app
}

func ptr(v float64) *float64 { return &v }

type ScoreSuite struct {
	suite.Suite
}

func TestScoreSuite(t *testing.T) {
	suite.Run(t, new(ScoreSuite))
}

func (s *ScoreSuite) TestFactors() {
	s.Run("clean applicant scores zero", func() {
		a := Score(newApp("1985-01-01", "219-09-9999", "US", ptr(60000), 0), now)
		s.Equal(0.0, a.Score)
		s.Empty(a.Factors)
	})

	s.Run("fraud contributes forty times the score", func() {
		a := Score(newApp("1985-01-01", "219-09-9999", "US", nil, 0.5), now)
		s.InDelta(20.0, a.Score, 1e-9)
		s.InDelta(20.0, a.Factors[FactorFraud], 1e-9)
	})

	s.Run("young applicant", func() {
		a := Score(newApp("2005-01-01", "219-09-9999", "US", nil, 0), now)
		s.Equal(10.0, a.Factors[FactorAge])
	})

	s.Run("senior applicant", func() {
		a := Score(newApp("1940-01-01", "219-09-9999", "US", nil, 0), now)
		s.Equal(15.0, a.Factors[FactorAge])
	})

	s.Run("unparsable birth date counts as age zero", func() {
		a := Score(newApp("not-a-date", "219-09-9999", "US", nil, 0), now)
		s.Equal(10.0, a.Factors[FactorAge])
	})

	s.Run("foreign citizenship", func() {
		a := Score(newApp("1985-01-01", "219-09-9999", "CA", nil, 0), now)
		s.Equal(20.0, a.Factors[FactorCitizenship])
	})

	s.Run("high income", func() {
		a := Score(newApp("1985-01-01", "219-09-9999", "US", ptr(600000), 0), now)
		s.Equal(10.0, a.Factors[FactorIncome])
	})

	s.Run("low income", func() {
		a := Score(newApp("1985-01-01", "219-09-9999", "US", ptr(9000), 0), now)
		s.Equal(15.0, a.Factors[FactorIncome])
	})

	s.Run("unreported income adds nothing", func() {
		a := Score(newApp("1985-01-01", "219-09-9999", "US", nil, 0), now)
		s.NotContains(a.Factors, FactorIncome)
	})

	s.Run("ssn pattern", func() {
		a := Score(newApp("1985-01-01", "123-45-6789", "US", nil, 0), now)
		s.Equal(30.0, a.Factors[FactorSSN])
	})

	s.Run("score is capped", func() {
		a := Score(newApp("2010-01-01", "111-11-1111", "CA", ptr(1000), 1), now)
		s.Equal(MaxScore, a.Score)
		s.Greater(a.Factors[FactorFraud]+a.Factors[FactorAge]+a.Factors[FactorCitizenship]+a.Factors[FactorIncome]+a.Factors[FactorSSN], MaxScore)
	})
}

func TestSSNPatterns(t *testing.T) {
	tests := []struct {
		ssn        string
		sequential bool
		repetitive bool
	}{
		{"111111111", false, true},
		{"123456789", true, false},
		{"123-45-6789", true, false},
		{"123 456 789", true, false},
		{"123123123", true, true},
		{"012345000", true, false},
		{"012340000", false, false},
		{"219099999", false, false},
		{"12345678", false, false},
		{"1234567890", false, false},
		{"12345678a", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.ssn, func(t *testing.T) {
			sequential, repetitive := SSNPatterns(tt.ssn)
			assert.Equal(t, tt.sequential, sequential, "sequential")
			assert.Equal(t, tt.repetitive, repetitive, "repetitive")
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		triggered []string
		expected  application.RiskLevel
	}{
		{"score 75 without fraud rule is critical", 75, nil, application.RiskCritical},
		{"fraud rule forces critical", 0, []string{rules.RuleSuspiciousPattern}, application.RiskCritical},
		{"score 50 is high", 50, nil, application.RiskHigh},
		{"ssn rule forces high", 10, []string{rules.RuleHighRiskSSN}, application.RiskHigh},
		{"score 40 with three rules is medium", 40, []string{"A", "B", "C"}, application.RiskMedium},
		{"three rules alone is medium", 0, []string{"A", "B", "C"}, application.RiskMedium},
		{"score 30 is medium", 30, nil, application.RiskMedium},
		{"low", 29.9, []string{"A", "B"}, application.RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Level(tt.score, tt.triggered))
		})
	}
}

func TestLevelIsPure(t *testing.T) {
	triggered := []string{rules.RuleAgeVerification, rules.RuleAutoApproveLowRisk}
	first := Level(42, triggered)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Level(42, triggered))
	}
}
