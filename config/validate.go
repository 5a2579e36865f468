package config

import (
	"fmt"
	"strings"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/types"
)

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	var errs []string

	if err := c.Conversation.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(c.Participants) == 0 {
		errs = append(errs, "at least one participant is required")
	} else if err := conversation.ValidateParticipants(c.Participants); err != nil {
		errs = append(errs, err.Error())
	}

	switch c.Archive.Backend {
	case "", "none", "memory", "redis", "database":
	default:
		errs = append(errs, fmt.Sprintf("unknown archive backend %q", c.Archive.Backend))
	}
	if c.Archive.Backend == "database" {
		switch c.Database.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
		}
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the conversation section.
func (c ConversationConfig) Validate() error {
	var errs []string

	if _, err := conversation.ParseMode(c.Mode); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Threshold < 0 || c.Threshold > 50 {
		errs = append(errs, "threshold must be between 0 and 50")
	}
	if c.UrgencyWeight < 0 || c.GroupWeight < 0 {
		errs = append(errs, "weights must not be negative")
	}
	if c.UrgencyWeight == 0 && c.GroupWeight == 0 {
		errs = append(errs, "at least one weight must be positive")
	}
	if c.MinResponseLength < 0 {
		errs = append(errs, "min_response_length must not be negative")
	}
	if c.TurnTimeout < 0 || c.AssessmentTimeout < 0 || c.BroadcastTimeout < 0 {
		errs = append(errs, "timeouts must not be negative")
	}
	if c.BroadcastBackoff < 0 {
		errs = append(errs, "broadcast_backoff must not be negative")
	}
	if c.BroadcastAttempts < 1 {
		errs = append(errs, "broadcast_attempts must be at least 1")
	}
	if c.BroadcastConcurrency < 1 {
		errs = append(errs, "broadcast_concurrency must be at least 1")
	}
	if c.RateLimit < 0 {
		errs = append(errs, "rate_limit must not be negative")
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}
