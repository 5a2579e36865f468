package assessment

import (
	"fmt"
	"strings"

	"github.com/BaSui01/roundtable/agent/conversation"
)

// BuildPrompt renders the assessment prompt. The unseen messages are the
// primary input; the original topic is included only as labelled reference.
func BuildPrompt(p conversation.Participant, recent []conversation.Message, originalTopic string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s", p.Name)
	if p.Expertise != "" {
		fmt.Fprintf(&b, ", with expertise in %s", p.Expertise)
	}
	b.WriteString(". Decide how motivated you are to speak next in this group conversation.\n\n")

	if originalTopic != "" {
		fmt.Fprintf(&b, "Original topic (reference only): %s\n", originalTopic)
	}
	if summary := conversation.TopicSummary(recent); summary != "" {
		fmt.Fprintf(&b, "Current focus: %s\n", summary)
	}

	b.WriteString("\nNew messages since you last spoke:\n")
	if len(recent) == 0 {
		b.WriteString("(nothing new has been said since your last turn)\n")
	} else {
		b.WriteString(conversation.FormatTranscript(recent))
		b.WriteByte('\n')
	}

	b.WriteString("\nRate each item with a number from 0 to 10 and reply with exactly these lines:\n")
	for _, k := range Keys {
		fmt.Fprintf(&b, "%s: <0-10>\n", k)
	}
	return b.String()
}
