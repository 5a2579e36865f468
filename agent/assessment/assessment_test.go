package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/testutil/mocks"
	"github.com/BaSui01/roundtable/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AllKeys(t *testing.T) {
	raw := `SELF_IMPORTANCE: 7
PERCEIVED_GAP: 6
UNIQUE_PERSPECTIVE: 5.5
EMOTIONAL_INVESTMENT: 3
EXPERTISE_RELEVANCE: 9
URGENCY: 8
GROUP_IMPORTANCE: 4`

	s, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.SelfImportance)
	assert.Equal(t, 5.5, s.UniquePerspective)
	assert.Equal(t, 8.0, s.Urgency)
	assert.Equal(t, 4.0, s.GroupImportance)
	assert.InDelta(t, 30.5, s.Motivation(), 1e-9)
}

func TestParse_LenientKeys(t *testing.T) {
	raw := `Here are my ratings:
- self importance: 7
**Perceived-Gap**: 6/10
unique_perspective = 2
URGENCY: very high`

	s, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.SelfImportance)
	assert.Equal(t, 6.0, s.PerceivedGap)
	assert.Equal(t, 2.0, s.UniquePerspective)
	assert.Equal(t, NeutralScore, s.Urgency, "unparsable value becomes neutral")
	assert.Equal(t, NeutralScore, s.GroupImportance, "missing key becomes neutral")
}

func TestParse_ClampsOutOfRange(t *testing.T) {
	s, err := Parse("SELF_IMPORTANCE: 15\nURGENCY: -3\n")
	require.NoError(t, err)
	assert.Equal(t, MaxScore, s.SelfImportance)
	assert.Equal(t, MinScore, s.Urgency)
}

func TestParse_FirstOccurrenceWins(t *testing.T) {
	s, err := Parse("URGENCY: 2\nURGENCY: 9\n")
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.Urgency)
}

func TestParse_NoKeys(t *testing.T) {
	_, err := Parse("I would rather not say.")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrAssessmentFailure))
}

func TestPolicy_Evaluate(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		scores   Scores
		priority float64
	}{
		{
			name:     "below threshold",
			scores:   Scores{SelfImportance: 3, PerceivedGap: 3, UniquePerspective: 3, EmotionalInvestment: 3, ExpertiseRelevance: 3, Urgency: 10, GroupImportance: 10},
			priority: 0,
		},
		{
			name:     "exactly threshold",
			scores:   Scores{SelfImportance: 4, PerceivedGap: 4, UniquePerspective: 4, EmotionalInvestment: 4, ExpertiseRelevance: 4, Urgency: 5, GroupImportance: 5},
			priority: 5,
		},
		{
			name:     "weighted",
			scores:   Scores{SelfImportance: 10, PerceivedGap: 10, UniquePerspective: 10, EmotionalInvestment: 10, ExpertiseRelevance: 10, Urgency: 10, GroupImportance: 0},
			priority: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := p.Evaluate("alice", tt.scores)
			assert.InDelta(t, tt.priority, a.Priority, 1e-9)
			assert.Equal(t, tt.priority > 0, a.Motivated())
		})
	}
}

func TestBuildPrompt_EmptyRecent(t *testing.T) {
	p := conversation.Participant{Name: "alice", Expertise: "databases"}
	prompt := BuildPrompt(p, nil, "sharding strategy")

	assert.Contains(t, prompt, "nothing new has been said")
	assert.Contains(t, prompt, "Original topic (reference only): sharding strategy")
	for _, k := range Keys {
		assert.Contains(t, prompt, k+":")
	}
}

func TestBuildPrompt_IncludesRecentAndFocus(t *testing.T) {
	now := time.Now()
	recent := []conversation.Message{
		{Sender: "human", Content: "What about caching?", Timestamp: now},
		{Sender: "bob", Content: "Redis would work.", Timestamp: now},
	}
	prompt := BuildPrompt(conversation.Participant{Name: "alice"}, recent, "storage")

	assert.Contains(t, prompt, "human: What about caching?")
	assert.Contains(t, prompt, "Current focus:")
	assert.NotContains(t, prompt, "nothing new has been said")
}

func TestAssessor_ParsesRuntimeOutput(t *testing.T) {
	rt := mocks.NewMockRuntime().WithAssessment("alice", mocks.Ratings(5, 8, 3))
	a := NewAssessor(rt, DefaultPolicy(), 1, nil)

	res := a.Assess(context.Background(), conversation.Participant{Name: "alice"}, nil, "topic")
	assert.False(t, res.Fallback)
	assert.Equal(t, 25.0, res.Motivation)
	assert.InDelta(t, 8*0.6+3*0.4, res.Priority, 1e-9)

	last, ok := a.Last("alice")
	require.True(t, ok)
	assert.Equal(t, res, last)

	calls := rt.CallsOf(mocks.CallAssessment)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "nothing new has been said")
}

func TestAssessor_FallbackOnRuntimeError(t *testing.T) {
	rt := mocks.NewMockRuntime().WithAssessmentError("bob", errors.New("unreachable"))
	a := NewAssessor(rt, DefaultPolicy(), 42, nil)

	res := a.Assess(context.Background(), conversation.Participant{Name: "bob"}, nil, "topic")
	assert.True(t, res.Fallback)
	assert.Equal(t, DefaultPolicy().Evaluate("bob", FallbackScores(42, "bob", 0)), Assessment{
		Participant: res.Participant,
		Scores:      res.Scores,
		Motivation:  res.Motivation,
		Priority:    res.Priority,
	})
}

func TestAssessor_FallbackOnUnparsableOutput(t *testing.T) {
	rt := mocks.NewMockRuntime().WithAssessment("bob", "no idea")
	a := NewAssessor(rt, DefaultPolicy(), 7, nil)

	res := a.Assess(context.Background(), conversation.Participant{Name: "bob"}, nil, "topic")
	assert.True(t, res.Fallback)
}

func TestFallbackScores_Deterministic(t *testing.T) {
	a := FallbackScores(99, "carol", 3)
	b := FallbackScores(99, "carol", 3)
	assert.Equal(t, a, b)

	for _, v := range []float64{a.SelfImportance, a.PerceivedGap, a.UniquePerspective, a.EmotionalInvestment, a.ExpertiseRelevance, a.Urgency, a.GroupImportance} {
		assert.GreaterOrEqual(t, v, NeutralScore-fallbackSpread)
		assert.LessOrEqual(t, v, NeutralScore+fallbackSpread)
	}
}

func TestAssessor_SetPolicy(t *testing.T) {
	rt := mocks.NewMockRuntime().WithAssessment("alice", mocks.Ratings(1, 5, 5))
	a := NewAssessor(rt, DefaultPolicy(), 1, nil)

	res := a.Assess(context.Background(), conversation.Participant{Name: "alice"}, nil, "")
	assert.False(t, res.Motivated())

	a.SetPolicy(Policy{Threshold: 5, UrgencyWeight: 1, GroupWeight: 0})
	res = a.Assess(context.Background(), conversation.Participant{Name: "alice"}, nil, "")
	assert.True(t, res.Motivated())
	assert.Equal(t, 5.0, res.Priority)
}
