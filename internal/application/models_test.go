package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountflow/pkg/platform/sentinel"
)

func TestNewID(t *testing.T) {
	id := NewID()
	assert.True(t, IsValidID(id), "generated id %q should be valid", id)
	assert.NotEqual(t, id, NewID())

	assert.False(t, IsValidID("APP-abc"))
	assert.False(t, IsValidID("APP-abcdef123456"))
	assert.False(t, IsValidID("../etc/passwd"))
}

func TestTransitionTo(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newApp := func() *Application {
		return NewApplication(AccountPersonalChecking, PersonalInfo{}, nil, nil, false, now)
	}

	t.Run("forward path", func(t *testing.T) {
		app := newApp()
		for _, next := range []Status{StatusSubmitted, StatusIdentityVerification, StatusComplianceReview, StatusApproved} {
			require.NoError(t, app.TransitionTo(next, now))
		}
		assert.Equal(t, StatusApproved, app.Status)
	})

	t.Run("skipping forward is allowed", func(t *testing.T) {
		app := newApp()
		app.Status = StatusSubmitted
		require.NoError(t, app.TransitionTo(StatusManualReview, now))
	})

	t.Run("backward moves are rejected", func(t *testing.T) {
		app := newApp()
		app.Status = StatusComplianceReview
		err := app.TransitionTo(StatusSubmitted, now)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
		assert.Equal(t, StatusComplianceReview, app.Status)
	})

	t.Run("same status is rejected", func(t *testing.T) {
		app := newApp()
		assert.ErrorIs(t, app.TransitionTo(StatusDraft, now), sentinel.ErrInvalidState)
	})

	t.Run("manual review can be resolved", func(t *testing.T) {
		app := newApp()
		app.Status = StatusManualReview
		require.NoError(t, app.TransitionTo(StatusRejected, now))
	})

	t.Run("approved is final", func(t *testing.T) {
		app := newApp()
		app.Status = StatusApproved
		assert.Error(t, app.TransitionTo(StatusManualReview, now))
		assert.Error(t, app.TransitionTo(StatusRejected, now))
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		app := newApp()
		assert.Error(t, app.TransitionTo(Status("archived"), now))
	})
}

func TestScoresAreClamped(t *testing.T) {
	app := &Application{}
	app.SetFraudScore(1.4)
	app.SetConfidence(-0.2)
	assert.Equal(t, 1.0, app.AIFraudScore)
	assert.Equal(t, 0.0, app.AIConfidence)
}

func TestAgeOn(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 25, AgeOn("2000-06-15", now))
	assert.Equal(t, 24, AgeOn("2000-06-16", now))
	assert.Equal(t, 0, AgeOn("15/06/2000", now))
	assert.Equal(t, 0, AgeOn("", now))
}

func TestClone(t *testing.T) {
	income := 50000.0
	now := time.Now()
	app := NewApplication(AccountBusinessChecking, PersonalInfo{}, &EmploymentInfo{AnnualIncome: &income}, []Document{{DocumentType: DocumentEIN}}, false, now)
	app.AppendIntegrations(Integration{Name: "identity_verification"})

	c := app.Clone()
	*c.EmploymentInfo.AnnualIncome = 1
	c.Documents[0].DocumentType = "passport"
	c.Integrations[0].Name = "other"

	assert.Equal(t, 50000.0, *app.EmploymentInfo.AnnualIncome)
	assert.True(t, app.HasDocument(DocumentEIN))
	assert.Equal(t, "identity_verification", app.Integrations[0].Name)
}

func TestNewApplicationDefaultsCitizenship(t *testing.T) {
	app := NewApplication(AccountPersonalSavings, PersonalInfo{}, nil, nil, false, time.Now())
	assert.Equal(t, "US", app.PersonalInfo.Citizenship)
	assert.Equal(t, StatusDraft, app.Status)
	assert.Equal(t, RiskLow, app.RiskLevel)
}
