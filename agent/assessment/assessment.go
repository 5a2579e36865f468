// Package assessment maps a participant's recent context to a bounded
// motivation score and, when motivated, a priority score.
package assessment

import "math"

const (
	// MinScore and MaxScore bound every sub-score.
	MinScore = 0.0
	MaxScore = 10.0
	// NeutralScore replaces missing or unparsable ratings.
	NeutralScore = 5.0
)

// Scores are the seven sub-scores of one assessment.
type Scores struct {
	SelfImportance      float64 `json:"self_importance"`
	PerceivedGap        float64 `json:"perceived_gap"`
	UniquePerspective   float64 `json:"unique_perspective"`
	EmotionalInvestment float64 `json:"emotional_investment"`
	ExpertiseRelevance  float64 `json:"expertise_relevance"`
	Urgency             float64 `json:"urgency"`
	GroupImportance     float64 `json:"group_importance"`
}

// NeutralScores returns all sub-scores set to NeutralScore.
func NeutralScores() Scores {
	return Scores{
		SelfImportance:      NeutralScore,
		PerceivedGap:        NeutralScore,
		UniquePerspective:   NeutralScore,
		EmotionalInvestment: NeutralScore,
		ExpertiseRelevance:  NeutralScore,
		Urgency:             NeutralScore,
		GroupImportance:     NeutralScore,
	}
}

// Clamped returns s with every sub-score bounded to [MinScore, MaxScore].
func (s Scores) Clamped() Scores {
	return Scores{
		SelfImportance:      clamp(s.SelfImportance),
		PerceivedGap:        clamp(s.PerceivedGap),
		UniquePerspective:   clamp(s.UniquePerspective),
		EmotionalInvestment: clamp(s.EmotionalInvestment),
		ExpertiseRelevance:  clamp(s.ExpertiseRelevance),
		Urgency:             clamp(s.Urgency),
		GroupImportance:     clamp(s.GroupImportance),
	}
}

// Motivation is the sum of the first five sub-scores.
func (s Scores) Motivation() float64 {
	return s.SelfImportance + s.PerceivedGap + s.UniquePerspective + s.EmotionalInvestment + s.ExpertiseRelevance
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// Policy holds the participation threshold and priority weights.
type Policy struct {
	Threshold     float64 `yaml:"threshold" json:"threshold"`
	UrgencyWeight float64 `yaml:"urgency_weight" json:"urgency_weight"`
	GroupWeight   float64 `yaml:"group_weight" json:"group_weight"`
}

// DefaultPolicy returns the default threshold and weights.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:     20,
		UrgencyWeight: 0.6,
		GroupWeight:   0.4,
	}
}

// Assessment is the result of assessing one participant for one round.
type Assessment struct {
	Participant string  `json:"participant"`
	Scores      Scores  `json:"scores"`
	Motivation  float64 `json:"motivation"`
	Priority    float64 `json:"priority"`
	// Fallback is set when the scores came from the jittered default.
	Fallback bool `json:"fallback"`
}

// Motivated reports whether the participant may speak this round.
func (a Assessment) Motivated() bool {
	return a.Priority > 0
}

// Evaluate clamps s and derives motivation and priority. Priority is zero
// unless motivation reaches the threshold.
func (p Policy) Evaluate(participant string, s Scores) Assessment {
	s = s.Clamped()
	a := Assessment{
		Participant: participant,
		Scores:      s,
		Motivation:  s.Motivation(),
	}
	if a.Motivation >= p.Threshold {
		a.Priority = s.Urgency*p.UrgencyWeight + s.GroupImportance*p.GroupWeight
	}
	return a
}
