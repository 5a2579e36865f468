// Package conversation provides the shared transcript model for multi-party conversations.
package conversation

import (
	"fmt"
	"strings"
)

// Mode defines how motivated participants are dispatched within a round.
type Mode string

const (
	ModeHybrid       Mode = "hybrid"        // Independent opinions, then reactions
	ModeAllSpeak     Mode = "all_speak"     // Every motivated participant speaks once
	ModeSequential   Mode = "sequential"    // One speaker per round with fairness rotation
	ModePurePriority Mode = "pure_priority" // One speaker per round, always the top priority
)

// Modes lists every supported dispatch mode.
func Modes() []Mode {
	return []Mode{ModeHybrid, ModeAllSpeak, ModeSequential, ModePurePriority}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, known := range Modes() {
		if m == known {
			return true
		}
	}
	return false
}

// SingleSpeaker reports whether the mode lets exactly one participant speak per round.
func (m Mode) SingleSpeaker() bool {
	return m == ModeSequential || m == ModePurePriority
}

// ParseMode converts user input into a Mode. Dashes and case are normalized,
// so "All-Speak" and "all_speak" are equivalent.
func ParseMode(s string) (Mode, error) {
	normalized := Mode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !normalized.Valid() {
		return "", fmt.Errorf("unknown conversation mode %q", s)
	}
	return normalized, nil
}
