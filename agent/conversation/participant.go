package conversation

import (
	"fmt"
	"strings"
)

// Participant is an autonomous conversational entity. Name is its unique
// identifier: it is the message sender and the agent runtime key.
type Participant struct {
	Name      string `yaml:"name" json:"name"`
	Expertise string `yaml:"expertise" json:"expertise,omitempty"`
	Role      string `yaml:"role" json:"role,omitempty"`
}

// Validate checks the participant can take part in a conversation.
func (p Participant) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("participant name is empty")
	}
	if name != p.Name {
		return fmt.Errorf("participant name %q has surrounding whitespace", p.Name)
	}
	if IsReservedSender(name) {
		return fmt.Errorf("participant name %q is reserved", name)
	}
	return nil
}

// ValidateParticipants checks every participant and rejects duplicate names.
func ValidateParticipants(ps []Participant) error {
	seen := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate participant name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
