package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Script is a canned set of responses per participant, used by the CLI demo
// and by integration tests that need a deterministic runtime.
type Script struct {
	Participants map[string]ScriptParticipant `yaml:"participants"`
}

// ScriptParticipant holds the responses of one participant. Both lists are
// cycled when exhausted.
type ScriptParticipant struct {
	Expertise   string       `yaml:"expertise,omitempty"`
	Assessments []string     `yaml:"assessments"`
	Turns       []ScriptTurn `yaml:"turns"`
}

// ScriptTurn is one scripted turn: text, an optional tool invocation, or both.
type ScriptTurn struct {
	Text string         `yaml:"text"`
	Tool string         `yaml:"tool,omitempty"`
	Args map[string]any `yaml:"args,omitempty"`
}

// LoadScript reads a YAML script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	return &s, nil
}

// Scripted is a Runtime that replays a Script.
type Scripted struct {
	script      *Script
	mu          sync.Mutex
	turns       map[string]int
	assessments map[string]int
	memory      map[string][]string
}

// NewScripted creates a scripted runtime.
func NewScripted(script *Script) *Scripted {
	if script == nil {
		script = &Script{}
	}
	return &Scripted{
		script:      script,
		turns:       make(map[string]int),
		assessments: make(map[string]int),
		memory:      make(map[string][]string),
	}
}

// GenerateTurn implements Runtime.
func (s *Scripted) GenerateTurn(ctx context.Context, participant, prompt string) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.script.Participants[participant]
	if !ok || len(p.Turns) == 0 {
		return nil, fmt.Errorf("no scripted turns for %s", participant)
	}
	turn := p.Turns[s.turns[participant]%len(p.Turns)]
	s.turns[participant]++

	out := &Output{}
	if turn.Tool != "" {
		args, err := json.Marshal(turn.Args)
		if err != nil {
			return nil, fmt.Errorf("encode scripted tool args: %w", err)
		}
		out.Parts = append(out.Parts, ToolInvocation{Name: turn.Tool, Args: args})
	}
	if turn.Text != "" {
		out.Parts = append(out.Parts, Text{Content: turn.Text})
	}
	if len(out.Parts) == 0 {
		out.Parts = append(out.Parts, Empty{})
	}
	return out, nil
}

// GenerateAssessment implements Runtime.
func (s *Scripted) GenerateAssessment(ctx context.Context, participant, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.script.Participants[participant]
	if !ok || len(p.Assessments) == 0 {
		return "", fmt.Errorf("no scripted assessments for %s", participant)
	}
	a := p.Assessments[s.assessments[participant]%len(p.Assessments)]
	s.assessments[participant]++
	return a, nil
}

// BroadcastMemoryUpdate implements Runtime.
func (s *Scripted) BroadcastMemoryUpdate(ctx context.Context, participant, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory[participant] = append(s.memory[participant], text)
	return nil
}

// Memory returns the memory updates a participant has received.
func (s *Scripted) Memory(participant string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.memory[participant]...)
}

// EndSession implements SessionEnder. Replay positions and memories reset so
// the script can drive the next session from the start.
func (s *Scripted) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = make(map[string]int)
	s.assessments = make(map[string]int)
	s.memory = make(map[string][]string)
	return nil
}
