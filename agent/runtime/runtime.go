// Package runtime defines the narrow surface through which the conversation
// core reaches the external agent runtime.
package runtime

import (
	"context"
	"encoding/json"
	"strings"
)

// Runtime is the external agent runtime. Implementations are stateful per
// participant: they keep their own memory of previous prompts.
type Runtime interface {
	// GenerateTurn asks a participant to produce its contribution for a turn.
	GenerateTurn(ctx context.Context, participant, prompt string) (*Output, error)

	// GenerateAssessment asks a participant to rate its motivation to speak.
	GenerateAssessment(ctx context.Context, participant, prompt string) (string, error)

	// BroadcastMemoryUpdate records text in a participant's memory. Best-effort.
	BroadcastMemoryUpdate(ctx context.Context, participant, text string) error
}

// SessionEnder is implemented by runtimes that hold per-session state, such
// as tag registries, and want to release it when the session closes.
type SessionEnder interface {
	EndSession(ctx context.Context, sessionID string) error
}

// TurnResult is one part of a participant's raw turn output. The concrete
// variants are Text, ToolInvocation and Empty.
type TurnResult interface {
	isTurnResult()
}

// Text is plain conversational output.
type Text struct {
	Content string `json:"content"`
}

// ToolInvocation is a tool call made by the participant during its turn.
type ToolInvocation struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Empty marks a part that carried no usable content.
type Empty struct{}

func (Text) isTurnResult()           {}
func (ToolInvocation) isTurnResult() {}
func (Empty) isTurnResult()          {}

// Output is the raw output of one GenerateTurn call.
type Output struct {
	Parts []TurnResult `json:"-"`
}

// TextOutput wraps plain text into an Output.
func TextOutput(content string) *Output {
	return &Output{Parts: []TurnResult{Text{Content: content}}}
}

// Text joins all text parts, trimmed.
func (o *Output) Text() string {
	if o == nil {
		return ""
	}
	var parts []string
	for _, p := range o.Parts {
		if t, ok := p.(Text); ok {
			if s := strings.TrimSpace(t.Content); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Invocations returns the tool invocations in order.
func (o *Output) Invocations() []ToolInvocation {
	if o == nil {
		return nil
	}
	var calls []ToolInvocation
	for _, p := range o.Parts {
		if inv, ok := p.(ToolInvocation); ok {
			calls = append(calls, inv)
		}
	}
	return calls
}

type sessionKey struct{}

// WithSession attaches the conversation session identifier to ctx so runtime
// adapters can scope tag discovery and shared context to the session.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFromContext returns the session identifier set by WithSession.
func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}
