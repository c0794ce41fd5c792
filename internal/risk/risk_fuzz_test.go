package risk

import (
	"testing"
)

// FuzzScoreBounds checks that the score stays within [0, MaxScore] for
// arbitrary applicant facts.
func FuzzScoreBounds(f *testing.F) {
	f.Add("1990-01-01", "123-45-6789", "US", 50000.0, 0.2)
	f.Add("", "", "", 0.0, 0.0)
	f.Add("2030-12-31", "111111111", "CA", 1e12, 1.0)
	f.Add("1800-01-01", "abc", "MX", -5.0, -3.0)

	f.Fuzz(func(t *testing.T, dob, ssn, citizenship string, income, fraud float64) {
		app := newApp(dob, ssn, citizenship, &income, fraud)
		a := Score(app, now)
		if a.Score < 0 || a.Score > MaxScore {
			t.Fatalf("score %v out of bounds", a.Score)
		}
	})
}
