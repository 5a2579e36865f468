package scheduler

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/BaSui01/roundtable/agent/assessment"
	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/runtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Round outcomes reported to metrics.
const (
	outcomeCompleted       = "completed"
	outcomeNoParticipation = "no_participation"
	outcomeAborted         = "aborted"
)

// RoundOutcome describes what happened during one round.
type RoundOutcome struct {
	Round int               `json:"round"`
	Mode  conversation.Mode `json:"mode"`
	// Spoken lists the participant messages in append order. Side-channel
	// entries are not included.
	Spoken []Spoken `json:"spoken"`
	// Assessments holds every participant's assessment in registration order.
	Assessments     []assessment.Assessment `json:"assessments"`
	NoParticipation bool                    `json:"no_participation"`
	// Aborted is set when ctx ended before the round finished. Messages
	// already appended stay in the log.
	Aborted bool `json:"aborted"`
}

// Speakers returns the participant names in speaking order.
func (o RoundOutcome) Speakers() []string {
	names := make([]string, len(o.Spoken))
	for i, sp := range o.Spoken {
		names[i] = sp.Participant
	}
	return names
}

// RunRound assesses every participant and dispatches the motivated ones
// according to the active mode. Turn and assessment failures are absorbed;
// the returned error is non-nil only when the log rejects a message.
func (s *Scheduler) RunRound(ctx context.Context, topic string) (RoundOutcome, error) {
	s.rounds++
	out := RoundOutcome{Round: s.rounds, Mode: s.mode}

	ctx, span := s.tracer.Start(ctx, "roundtable.round", trace.WithAttributes(
		attribute.String("roundtable.session_id", s.id),
		attribute.String("roundtable.mode", string(s.mode)),
		attribute.Int("roundtable.round", s.rounds),
	))
	defer span.End()
	defer s.setState(StateIdle)
	start := time.Now()

	s.setState(StateAssessing)
	ranked := s.assessAll(ctx, topic, &out)
	if ctx.Err() != nil {
		return s.finish(span, out.abort(), start, nil)
	}
	if len(ranked) == 0 {
		out.NoParticipation = true
		s.logger.Info("no participant motivated to speak", zap.Int("round", s.rounds))
		return s.finish(span, out, start, nil)
	}

	s.setState(StateDispatching)
	var err error
	switch s.mode {
	case conversation.ModeHybrid:
		err = s.dispatchHybrid(ctx, ranked, topic, &out)
	case conversation.ModeAllSpeak:
		err = s.dispatchAllSpeak(ctx, ranked, topic, &out)
	case conversation.ModeSequential:
		err = s.dispatchSingle(ctx, pickSequential(ranked, s.lastSpeaker), topic, &out)
	case conversation.ModePurePriority:
		err = s.dispatchSingle(ctx, ranked[0], topic, &out)
	}
	if errors.Is(err, errAborted) {
		return s.finish(span, out.abort(), start, nil)
	}
	return s.finish(span, out, start, err)
}

func (o RoundOutcome) abort() RoundOutcome {
	o.Aborted = true
	return o
}

func (s *Scheduler) finish(span trace.Span, out RoundOutcome, start time.Time, err error) (RoundOutcome, error) {
	outcome := outcomeCompleted
	switch {
	case out.Aborted:
		outcome = outcomeAborted
	case out.NoParticipation:
		outcome = outcomeNoParticipation
	}
	span.SetAttributes(
		attribute.String("roundtable.outcome", outcome),
		attribute.Int("roundtable.spoken", len(out.Spoken)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.metrics.RecordRound(string(out.Mode), outcome, time.Since(start))
	s.logger.Debug("round finished",
		zap.Int("round", out.Round),
		zap.String("outcome", outcome),
		zap.Strings("speakers", out.Speakers()),
		zap.Duration("duration", time.Since(start)),
	)
	return out, err
}

// assessAll assesses every participant against its unseen suffix and returns
// the motivated ones sorted by descending priority. Ties keep registration order.
func (s *Scheduler) assessAll(ctx context.Context, topic string, out *RoundOutcome) []conversation.Participant {
	ctx = runtime.WithSession(ctx, s.id)
	priorities := make(map[string]float64, len(s.participants))
	var motivated []conversation.Participant

	for _, p := range s.participants {
		if ctx.Err() != nil {
			return nil
		}
		a := s.assessor.Assess(ctx, p, s.log.SliceSince(s.cursors[p.Name]), topic)
		s.metrics.RecordAssessment(a.Fallback, a.Priority)
		out.Assessments = append(out.Assessments, a)
		if a.Motivated() {
			priorities[p.Name] = a.Priority
			motivated = append(motivated, p)
		}
	}

	sort.SliceStable(motivated, func(i, j int) bool {
		return priorities[motivated[i].Name] > priorities[motivated[j].Name]
	})
	return motivated
}

// pickSequential chooses the top participant unless it spoke last, in which
// case the runner-up speaks.
func pickSequential(ranked []conversation.Participant, lastSpeaker string) conversation.Participant {
	if len(ranked) > 1 && ranked[0].Name == lastSpeaker {
		return ranked[1]
	}
	return ranked[0]
}

func (s *Scheduler) standardTurn(topic string, p conversation.Participant) turnPlan {
	return turnPlan{
		phase:    string(s.mode),
		prompt:   func(recent []conversation.Message) string { return turnPrompt(p, recent, topic) },
		fallback: func(conversation.Participant) string { return FallbackMessage },
	}
}

func (s *Scheduler) dispatchSingle(ctx context.Context, p conversation.Participant, topic string, out *RoundOutcome) error {
	spoken, err := s.runTurn(ctx, p, s.standardTurn(topic, p))
	if err != nil {
		return err
	}
	out.Spoken = append(out.Spoken, spoken)
	s.lastSpeaker = p.Name
	return nil
}

func (s *Scheduler) dispatchAllSpeak(ctx context.Context, ranked []conversation.Participant, topic string, out *RoundOutcome) error {
	for _, p := range ranked {
		spoken, err := s.runTurn(ctx, p, s.standardTurn(topic, p))
		if err != nil {
			return err
		}
		out.Spoken = append(out.Spoken, spoken)
		s.broadcast(ctx, s.others(""), conversation.Message{Sender: p.Name, Content: spoken.Content}.String())
	}
	return nil
}

func (s *Scheduler) dispatchHybrid(ctx context.Context, ranked []conversation.Participant, topic string, out *RoundOutcome) error {
	minLength := s.cfg.MinResponseLength
	for _, p := range ranked {
		spoken, err := s.runTurn(ctx, p, turnPlan{
			phase:    "initial",
			prompt:   func(recent []conversation.Message) string { return initialPrompt(p, recent, topic) },
			retry:    func(recent []conversation.Message) string { return directivePrompt(p, recent, topic, minLength) },
			minimum:  true,
			fallback: PlaceholderMessage,
		})
		if err != nil {
			return err
		}
		out.Spoken = append(out.Spoken, spoken)
	}

	if ctx.Err() != nil {
		return errAborted
	}
	s.broadcast(ctx, s.others(""), ReactionInstruction)

	for _, p := range ranked {
		spoken, err := s.runTurn(ctx, p, turnPlan{
			phase:    "reaction",
			prompt:   func(recent []conversation.Message) string { return reactionPrompt(p, recent) },
			fallback: func(conversation.Participant) string { return ApologyMessage },
		})
		if err != nil {
			return err
		}
		out.Spoken = append(out.Spoken, spoken)
	}
	return nil
}
