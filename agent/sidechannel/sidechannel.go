// Package sidechannel recognizes private messaging tool calls made by a
// participant during its turn and turns them into transcript events.
package sidechannel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/types"
	"go.uber.org/zap"
)

// Recognized tool names.
const (
	ToolDirectMessage    = "send_direct_message"
	ToolBroadcastMessage = "broadcast_message"
)

// PreviewLength bounds Event.Preview in runes.
const PreviewLength = 80

// EventType is the kind of side-channel message.
type EventType string

const (
	EventDirect    EventType = "direct"
	EventBroadcast EventType = "broadcast"
)

// Event is one side-channel message observed during a turn.
type Event struct {
	Type       EventType `json:"type"`
	Sender     string    `json:"sender"`
	Recipients []string  `json:"recipients"`
	Preview    string    `json:"preview"`
}

// LogLine renders the transcript entry for the event. The preview always ends
// with a single ellipsis.
func (e Event) LogLine() string {
	target := strings.Join(e.Recipients, ", ")
	if e.Type == EventBroadcast {
		target = "tags [" + target + "]"
	}
	return fmt.Sprintf("[side channel] %s messaged %s: %s…", e.Sender, target, strings.TrimSuffix(e.Preview, "..."))
}

// ParseOutcome is the result of inspecting one tool invocation. The concrete
// variants are Recognized, Unrecognized and Malformed.
type ParseOutcome interface {
	isParseOutcome()
}

// Recognized carries a well-formed side-channel event.
type Recognized struct {
	Event Event
}

// Unrecognized means the tool is not a side-channel tool.
type Unrecognized struct {
	Name string
}

// Malformed means the tool is a side-channel tool with unusable arguments.
type Malformed struct {
	Name string
	Err  error
}

func (Recognized) isParseOutcome()   {}
func (Unrecognized) isParseOutcome() {}
func (Malformed) isParseOutcome()    {}

type directArgs struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type broadcastArgs struct {
	Tags    []string `json:"tags"`
	Message string   `json:"message"`
}

// Parse inspects a single invocation made by sender.
func Parse(inv runtime.ToolInvocation, sender string) ParseOutcome {
	switch inv.Name {
	case ToolDirectMessage:
		var args directArgs
		if err := decode(inv, &args); err != nil {
			return Malformed{Name: inv.Name, Err: err}
		}
		recipient := strings.TrimSpace(args.Recipient)
		if recipient == "" || strings.TrimSpace(args.Message) == "" {
			return Malformed{Name: inv.Name, Err: malformed(inv.Name, "recipient and message are required")}
		}
		return Recognized{Event: Event{
			Type:       EventDirect,
			Sender:     sender,
			Recipients: []string{recipient},
			Preview:    preview(args.Message),
		}}

	case ToolBroadcastMessage:
		var args broadcastArgs
		if err := decode(inv, &args); err != nil {
			return Malformed{Name: inv.Name, Err: err}
		}
		tags := make([]string, 0, len(args.Tags))
		for _, t := range args.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		if len(tags) == 0 || strings.TrimSpace(args.Message) == "" {
			return Malformed{Name: inv.Name, Err: malformed(inv.Name, "tags and message are required")}
		}
		return Recognized{Event: Event{
			Type:       EventBroadcast,
			Sender:     sender,
			Recipients: tags,
			Preview:    preview(args.Message),
		}}

	default:
		return Unrecognized{Name: inv.Name}
	}
}

func decode(inv runtime.ToolInvocation, v any) error {
	if len(inv.Args) == 0 {
		return malformed(inv.Name, "missing arguments")
	}
	if err := json.Unmarshal(inv.Args, v); err != nil {
		return types.NewError(types.ErrSideChannelParseFailure, "invalid arguments for "+inv.Name).WithCause(err)
	}
	return nil
}

func malformed(tool, msg string) error {
	return types.NewError(types.ErrSideChannelParseFailure, tool+": "+msg)
}

func preview(msg string) string {
	return conversation.Truncate(strings.Join(strings.Fields(msg), " "), PreviewLength)
}

// Detector extracts side-channel events from turn output.
type Detector struct {
	logger *zap.Logger
}

// NewDetector creates a detector.
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logger: logger.With(zap.String("component", "sidechannel"))}
}

// Detect returns the events found in parts, in invocation order. Malformed
// invocations are skipped and logged; other tools are ignored.
func (d *Detector) Detect(parts []runtime.TurnResult, sender string) []Event {
	var events []Event
	for _, part := range parts {
		inv, ok := part.(runtime.ToolInvocation)
		if !ok {
			continue
		}
		switch out := Parse(inv, sender).(type) {
		case Recognized:
			events = append(events, out.Event)
		case Malformed:
			d.logger.Warn("skipping malformed side-channel invocation",
				zap.String("participant", sender),
				zap.String("tool", out.Name),
				zap.Error(out.Err),
			)
		case Unrecognized:
			d.logger.Debug("ignoring tool invocation",
				zap.String("participant", sender),
				zap.String("tool", out.Name),
			)
		}
	}
	return events
}

// Detect is a convenience wrapper using a no-op logger.
func Detect(parts []runtime.TurnResult, sender string) []Event {
	return NewDetector(nil).Detect(parts, sender)
}
