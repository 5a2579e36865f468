package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/agent/sidechannel"
	"github.com/BaSui01/roundtable/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Turn statuses reported to metrics and spans.
const (
	turnOK       = "ok"
	turnRetried  = "retried"
	turnFallback = "fallback"
)

// Spoken is one message appended by a participant during a round.
type Spoken struct {
	Participant string `json:"participant"`
	Index       int    `json:"index"`
	Content     string `json:"content"`
	// Fallback is set when Content is a substituted fixed text.
	Fallback bool `json:"fallback"`
}

// attempt is the raw result of one GenerateTurn call.
type attempt struct {
	text   string
	events []sidechannel.Event
	err    error
}

// generate runs one turn call and splits the output into text and
// side-channel events. Output equal to the fallback line counts as a failure.
func (s *Scheduler) generate(ctx context.Context, p conversation.Participant, prompt string) attempt {
	out, err := s.rt.GenerateTurn(runtime.WithSession(ctx, s.id), p.Name, prompt)
	if err != nil {
		if !types.IsErrorCode(err, types.ErrTimeout) {
			err = types.NewError(types.ErrTurnFailure, "runtime error").WithParticipant(p.Name).WithCause(err)
		}
		return attempt{err: err}
	}
	if out == nil {
		return attempt{err: types.NewError(types.ErrTurnFailure, "empty response").WithParticipant(p.Name)}
	}

	a := attempt{
		text:   out.Text(),
		events: s.detector.Detect(out.Parts, p.Name),
	}
	switch {
	case a.text == "":
		a.err = types.NewError(types.ErrTurnFailure, "empty response").WithParticipant(p.Name)
	case isSentinel(a.text):
		a.err = types.NewError(types.ErrTurnFailure, "response matches the fallback line").WithParticipant(p.Name)
	}
	return a
}

func isSentinel(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), FallbackMessage)
}

// tooShort reports whether text fails the hybrid phase 1 length check.
func (s *Scheduler) tooShort(text string) bool {
	return utf8.RuneCountInString(text) <= s.cfg.MinResponseLength
}

// commit appends the side-channel entries of a turn followed by the speaker's
// message, then advances the speaker's cursor to that message.
func (s *Scheduler) commit(p conversation.Participant, content string, events []sidechannel.Event, fallback bool) (Spoken, error) {
	for _, ev := range events {
		if _, err := s.appendMessage(conversation.Message{
			Sender:  conversation.SystemSender,
			Content: ev.LogLine(),
			Kind:    conversation.KindSideChannel,
		}); err != nil {
			return Spoken{}, err
		}
		s.metrics.RecordSideChannel(string(ev.Type))
	}

	idx, err := s.appendMessage(conversation.Message{Sender: p.Name, Content: content, Kind: conversation.KindChat})
	if err != nil {
		return Spoken{}, err
	}
	s.cursors[p.Name] = idx

	if !fallback {
		msg, _ := s.log.At(idx)
		s.nominations.observe(p.Name, content, msg.Timestamp, s.resolveParticipant, s.logger)
	}
	return Spoken{Participant: p.Name, Index: idx, Content: content, Fallback: fallback}, nil
}

// turnPlan describes one turn: how to prompt, and what to do when it fails.
type turnPlan struct {
	phase    string
	prompt   func(recent []conversation.Message) string
	retry    func(recent []conversation.Message) string
	minimum  bool
	fallback func(p conversation.Participant) string
}

// runTurn executes one turn and always resolves it: with the participant's
// text, or with the fallback of plan. It returns errAborted when ctx ended
// before anything was appended.
func (s *Scheduler) runTurn(ctx context.Context, p conversation.Participant, plan turnPlan) (Spoken, error) {
	if err := ctx.Err(); err != nil {
		return Spoken{}, errAborted
	}

	ctx, span := s.tracer.Start(ctx, "roundtable.turn", trace.WithAttributes(
		attribute.String("roundtable.session_id", s.id),
		attribute.String("roundtable.participant", p.Name),
		attribute.String("roundtable.phase", plan.phase),
	))
	defer span.End()
	start := time.Now()

	recent := s.log.SliceSince(s.cursors[p.Name])
	res := s.generate(ctx, p, plan.prompt(recent))
	if res.err == nil && plan.minimum && s.tooShort(res.text) {
		res.err = types.NewError(types.ErrTurnFailure, "response too short").WithParticipant(p.Name)
	}

	status := turnOK
	events := res.events
	if res.err != nil && plan.retry != nil && ctx.Err() == nil {
		s.logger.Warn("turn rejected, retrying with directive prompt",
			zap.String("participant", p.Name),
			zap.String("phase", plan.phase),
			zap.Error(res.err),
		)
		status = turnRetried
		res = s.generate(ctx, p, plan.retry(recent))
		if res.err == nil && plan.minimum && s.tooShort(res.text) {
			res.err = types.NewError(types.ErrTurnFailure, "response too short").WithParticipant(p.Name)
		}
		events = append(events, res.events...)
	}

	if res.err != nil && ctx.Err() != nil {
		span.SetStatus(codes.Error, "aborted")
		return Spoken{}, errAborted
	}

	content, fallback := res.text, false
	if res.err != nil {
		s.logger.Warn("turn failed, substituting fallback",
			zap.String("participant", p.Name),
			zap.String("phase", plan.phase),
			zap.Error(res.err),
		)
		span.RecordError(res.err)
		span.SetStatus(codes.Error, "fallback")
		status = turnFallback
		content, fallback = plan.fallback(p), true
	}

	spoken, err := s.commit(p, content, events, fallback)
	if err != nil {
		return Spoken{}, fmt.Errorf("commit turn of %s: %w", p.Name, err)
	}
	span.SetAttributes(
		attribute.String("roundtable.turn_status", status),
		attribute.Int("roundtable.index", spoken.Index),
	)
	s.metrics.RecordTurn(string(s.mode), status, time.Since(start))
	return spoken, nil
}

var errAborted = errors.New("round aborted")
