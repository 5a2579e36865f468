package conversation

import "strings"

const (
	topicSummaryMessages = 3
	topicSummaryMaxLen   = 150
	ellipsis             = "..."
)

// TopicSummary derives a short hint of what is currently being discussed from
// the last few messages. It is a convenience for prompts, never a substitute
// for the messages themselves.
func TopicSummary(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	start := len(msgs) - topicSummaryMessages
	if start < 0 {
		start = 0
	}

	parts := make([]string, 0, topicSummaryMessages)
	for _, m := range msgs[start:] {
		parts = append(parts, m.String())
	}
	return Truncate(strings.Join(parts, " "+ellipsis+" "), topicSummaryMaxLen)
}

// Truncate bounds s to max runes, ending with "..." when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}
