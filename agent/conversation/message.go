package conversation

import (
	"fmt"
	"time"
)

// Reserved sender identifiers.
const (
	HumanSender  = "human"
	SystemSender = "system"
)

// Kind classifies log entries for observers. It does not take part in equality.
type Kind string

const (
	KindChat        Kind = "chat"
	KindSideChannel Kind = "side_channel"
	KindSystem      Kind = "system"
)

// Message is one immutable entry of the conversation transcript.
type Message struct {
	Index     int       `json:"index"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
}

// Equal compares messages by (sender, content, timestamp).
func (m Message) Equal(other Message) bool {
	return m.Sender == other.Sender &&
		m.Content == other.Content &&
		m.Timestamp.Equal(other.Timestamp)
}

// Before orders messages by timestamp.
func (m Message) Before(other Message) bool {
	return m.Timestamp.Before(other.Timestamp)
}

// String renders the message as "sender: content".
func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.Sender, m.Content)
}

// IsReservedSender reports whether name is reserved for humans or the system.
func IsReservedSender(name string) bool {
	return name == HumanSender || name == SystemSender
}
