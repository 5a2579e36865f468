package scheduler

import (
	"fmt"
	"strings"

	"github.com/BaSui01/roundtable/agent/conversation"
)

// Fixed texts substituted when a participant cannot produce a usable turn.
const (
	// FallbackMessage is the standard fallback line. Runtime output equal to
	// it is treated as a failed turn.
	FallbackMessage = "I'm sorry, I wasn't able to put together a response this time."
	// ApologyMessage replaces a failed reaction in the second hybrid phase.
	ApologyMessage = "Apologies, I don't have a reaction to add right now."
	// ReactionInstruction is broadcast to every participant between the two hybrid phases.
	ReactionInstruction = "All initial perspectives for this round have been shared. React to what you just heard from the others."
)

// PlaceholderMessage is the expertise-based line used when both hybrid
// phase 1 attempts fail.
func PlaceholderMessage(p conversation.Participant) string {
	expertise := strings.TrimSpace(p.Expertise)
	if expertise == "" {
		expertise = "general matters"
	}
	return fmt.Sprintf("Speaking from my background in %s, I want to hear a bit more before committing to a position.", expertise)
}

func writeHeader(b *strings.Builder, p conversation.Participant) {
	fmt.Fprintf(b, "You are %s", p.Name)
	if p.Expertise != "" {
		fmt.Fprintf(b, ", an expert in %s", p.Expertise)
	}
	if p.Role != "" {
		fmt.Fprintf(b, " (%s)", p.Role)
	}
	b.WriteString(", taking part in a group conversation.\n\n")
}

func writeRecent(b *strings.Builder, recent []conversation.Message) {
	if len(recent) == 0 {
		b.WriteString("Nothing new has been said since your last turn.\n\n")
		return
	}
	b.WriteString("New messages since your last turn:\n")
	b.WriteString(conversation.FormatTranscript(recent))
	b.WriteString("\n\n")
}

func writeTopic(b *strings.Builder, originalTopic string) {
	if originalTopic != "" {
		fmt.Fprintf(b, "(Original topic, for reference only: %s)\n\n", originalTopic)
	}
}

// turnPrompt is used by all_speak, sequential and pure_priority turns.
func turnPrompt(p conversation.Participant, recent []conversation.Message, originalTopic string) string {
	var b strings.Builder
	writeHeader(&b, p)
	writeRecent(&b, recent)
	writeTopic(&b, originalTopic)
	b.WriteString("Respond to the conversation as it stands now. Keep it conversational and concise.")
	return b.String()
}

// initialPrompt asks for an independent first opinion in hybrid phase 1.
func initialPrompt(p conversation.Participant, recent []conversation.Message, originalTopic string) string {
	var b strings.Builder
	writeHeader(&b, p)
	writeRecent(&b, recent)
	writeTopic(&b, originalTopic)
	b.WriteString("Share your own initial perspective in a few sentences, drawing on your expertise.")
	return b.String()
}

// directivePrompt is the single retry after an unusable phase 1 response.
func directivePrompt(p conversation.Participant, recent []conversation.Message, originalTopic string, minLength int) string {
	var b strings.Builder
	writeHeader(&b, p)
	writeRecent(&b, recent)
	writeTopic(&b, originalTopic)
	fmt.Fprintf(&b, "Your previous reply was empty or too short. State your position directly in at least %d characters, "+
		"in two or three complete sentences. Do not call any tools.", minLength+1)
	return b.String()
}

// reactionPrompt is used in hybrid phase 2.
func reactionPrompt(p conversation.Participant, recent []conversation.Message) string {
	var b strings.Builder
	writeHeader(&b, p)
	writeRecent(&b, recent)
	b.WriteString("React to what you just heard: agree, disagree or build on a specific point someone made.")
	return b.String()
}
