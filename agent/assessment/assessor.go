package assessment

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/types"
	"go.uber.org/zap"
)

// fallbackSpread is the maximum distance of a fallback sub-score from NeutralScore.
const fallbackSpread = 2

// Assessor scores participants through the agent runtime.
type Assessor struct {
	rt     runtime.Runtime
	policy Policy
	seed   int64
	logger *zap.Logger

	mu     sync.Mutex
	counts map[string]int
	last   map[string]Assessment
}

// NewAssessor creates an assessor. seed makes fallback scores reproducible.
func NewAssessor(rt runtime.Runtime, policy Policy, seed int64, logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{
		rt:     rt,
		policy: policy,
		seed:   seed,
		logger: logger.With(zap.String("component", "assessor")),
		counts: make(map[string]int),
		last:   make(map[string]Assessment),
	}
}

// SetPolicy replaces the threshold and weights used by later assessments.
func (a *Assessor) SetPolicy(p Policy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.policy = p
}

// SetRuntime replaces the runtime used by later assessments.
func (a *Assessor) SetRuntime(rt runtime.Runtime) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rt = rt
}

// Policy returns the current policy.
func (a *Assessor) Policy() Policy {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.policy
}

// Assess scores participant p against its unseen messages. It never fails:
// runtime errors and unparsable output degrade to jittered fallback scores.
func (a *Assessor) Assess(ctx context.Context, p conversation.Participant, recent []conversation.Message, originalTopic string) Assessment {
	a.mu.Lock()
	n := a.counts[p.Name]
	a.counts[p.Name] = n + 1
	policy := a.policy
	rt := a.rt
	a.mu.Unlock()

	prompt := BuildPrompt(p, recent, originalTopic)
	scores, err := scoresFrom(ctx, rt, p.Name, prompt)

	var result Assessment
	if err != nil {
		a.logger.Warn("assessment failed, using fallback scores",
			zap.String("participant", p.Name),
			zap.Int("recent_messages", len(recent)),
			zap.Error(err),
		)
		result = policy.Evaluate(p.Name, FallbackScores(a.seed, p.Name, n))
		result.Fallback = true
	} else {
		result = policy.Evaluate(p.Name, scores)
	}

	a.logger.Debug("participant assessed",
		zap.String("participant", p.Name),
		zap.Float64("motivation", result.Motivation),
		zap.Float64("priority", result.Priority),
		zap.Bool("fallback", result.Fallback),
	)

	a.mu.Lock()
	a.last[p.Name] = result
	a.mu.Unlock()
	return result
}

// Last returns the most recent assessment recorded for a participant.
func (a *Assessor) Last(name string) (Assessment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	res, ok := a.last[name]
	return res, ok
}

func scoresFrom(ctx context.Context, rt runtime.Runtime, name, prompt string) (Scores, error) {
	raw, err := rt.GenerateAssessment(ctx, name, prompt)
	if err != nil {
		return Scores{}, types.NewError(types.ErrAssessmentFailure, "runtime error").
			WithParticipant(name).
			WithCause(err)
	}
	scores, err := Parse(raw)
	if err != nil {
		return Scores{}, fmt.Errorf("participant %s: %w", name, err)
	}
	return scores, nil
}

// FallbackScores returns deterministic scores around NeutralScore. The same
// (seed, participant, n) always yields the same scores.
func FallbackScores(seed int64, participant string, n int) Scores {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%d", seed, participant, n)
	r := rand.New(rand.NewSource(int64(h.Sum64())))

	next := func() float64 {
		return NeutralScore + float64(r.Intn(2*fallbackSpread+1)-fallbackSpread)
	}
	return Scores{
		SelfImportance:      next(),
		PerceivedGap:        next(),
		UniquePerspective:   next(),
		EmotionalInvestment: next(),
		ExpertiseRelevance:  next(),
		Urgency:             next(),
		GroupImportance:     next(),
	}
}
