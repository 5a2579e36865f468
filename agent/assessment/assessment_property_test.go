package assessment

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Priority is non-zero iff motivation reaches the threshold and the weighted
// urgency/group score is positive.
func TestProperty_MotivationGating(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	score := gen.Float64Range(-5, 15)

	properties.Property("priority gated by motivation threshold", prop.ForAll(
		func(si, pg, up, ei, er, u, g float64) bool {
			p := DefaultPolicy()
			a := p.Evaluate("x", Scores{si, pg, up, ei, er, u, g})

			if a.Motivation < p.Threshold {
				return a.Priority == 0
			}
			want := a.Scores.Urgency*p.UrgencyWeight + a.Scores.GroupImportance*p.GroupWeight
			return a.Priority == want
		},
		score, score, score, score, score, score, score,
	))

	properties.Property("evaluated scores stay in range", prop.ForAll(
		func(v float64) bool {
			s := Scores{v, v, v, v, v, v, v}.Clamped()
			return s.SelfImportance >= MinScore && s.SelfImportance <= MaxScore &&
				s.Urgency >= MinScore && s.Urgency <= MaxScore
		},
		gen.Float64Range(-1000, 1000),
	))

	properties.TestingRun(t)
}
