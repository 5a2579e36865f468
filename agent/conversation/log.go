package conversation

import (
	"strings"
	"time"

	"github.com/BaSui01/roundtable/types"
)

// Log is the append-only message log of a single conversation session.
//
// A Log has exactly one writer, the scheduler that owns the session, and is
// not safe for concurrent use.
type Log struct {
	messages []Message
	now      func() time.Time
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append adds a chat message stamped with the current time and returns its index.
func (l *Log) Append(sender, content string) (int, error) {
	return l.AppendMessage(Message{Sender: sender, Content: content})
}

// AppendAt adds a chat message with an explicit timestamp.
func (l *Log) AppendAt(sender, content string, ts time.Time) (int, error) {
	if ts.IsZero() {
		return -1, types.NewError(types.ErrInvalidMessage, "timestamp is not set")
	}
	return l.AppendMessage(Message{Sender: sender, Content: content, Timestamp: ts})
}

// AppendMessage validates msg, assigns its index and appends it. A zero
// timestamp is replaced by the current time and an empty kind by KindChat.
func (l *Log) AppendMessage(msg Message) (int, error) {
	if strings.TrimSpace(msg.Sender) == "" {
		return -1, types.NewError(types.ErrInvalidMessage, "sender is empty")
	}
	if strings.TrimSpace(msg.Content) == "" {
		return -1, types.NewError(types.ErrInvalidMessage, "content is empty").WithParticipant(msg.Sender)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = l.now()
	}
	if msg.Timestamp.Before(time.Unix(0, 0)) {
		return -1, types.NewError(types.ErrInvalidMessage, "timestamp predates the unix epoch").WithParticipant(msg.Sender)
	}
	if msg.Kind == "" {
		msg.Kind = KindChat
	}

	msg.Index = len(l.messages)
	l.messages = append(l.messages, msg)
	return msg.Index, nil
}

// SliceSince returns the messages after cursor. A negative cursor returns the
// whole log. The result is a capacity-clipped view and must not be modified.
func (l *Log) SliceSince(cursor int) []Message {
	n := len(l.messages)
	if n == 0 {
		return []Message{}
	}
	start := 0
	if cursor >= 0 {
		start = cursor + 1
	}
	if start >= n {
		return []Message{}
	}
	return l.messages[start:n:n]
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	return len(l.messages)
}

// At returns the message at index i.
func (l *Log) At(i int) (Message, bool) {
	if i < 0 || i >= len(l.messages) {
		return Message{}, false
	}
	return l.messages[i], true
}

// Last returns up to n trailing messages.
func (l *Log) Last(n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	start := len(l.messages) - n
	if start < 0 {
		start = 0
	}
	return l.SliceSince(start - 1)
}

// Messages returns a copy of the whole log.
func (l *Log) Messages() []Message {
	return append([]Message(nil), l.messages...)
}

// DisplayString renders the log as one "sender: content" line per message.
func (l *Log) DisplayString() string {
	return FormatTranscript(l.messages)
}

// FormatTranscript renders messages as "sender: content" lines.
func FormatTranscript(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.String())
	}
	return b.String()
}
