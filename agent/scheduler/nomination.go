package scheduler

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Nomination is a pending secretary handoff.
type Nomination struct {
	Nominator string    `json:"nominator"`
	Nominee   string    `json:"nominee"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	nominatePattern = regexp.MustCompile(`(?i)\bI\s+nominate\s+@?(.+?)\s+as\s+(?:the\s+|our\s+)?secretary\b`)
	acceptPattern   = regexp.MustCompile(`(?i)\bI\s+accept\s+the\s+nomination\b`)
)

type nominations struct {
	pending   *Nomination
	secretary string
}

// observe scans an accepted turn. resolve maps a free-text name to a
// participant name.
func (n *nominations) observe(speaker, text string, ts time.Time, resolve func(string) (string, bool), logger *zap.Logger) {
	if m := nominatePattern.FindStringSubmatch(text); m != nil {
		name, ok := resolve(strings.TrimSpace(m[1]))
		switch {
		case !ok:
			logger.Debug("nomination of unknown participant ignored",
				zap.String("speaker", speaker), zap.String("nominee", m[1]))
		case name == speaker:
			logger.Debug("self nomination ignored", zap.String("speaker", speaker))
		default:
			n.pending = &Nomination{Nominator: speaker, Nominee: name, Timestamp: ts}
			logger.Info("secretary nominated",
				zap.String("nominator", speaker), zap.String("nominee", name))
		}
	}

	if n.pending != nil && n.pending.Nominee == speaker && acceptPattern.MatchString(text) {
		logger.Info("secretary nomination accepted",
			zap.String("secretary", speaker), zap.String("nominator", n.pending.Nominator))
		n.secretary = speaker
		n.pending = nil
	}
}

// PendingNomination returns the open nomination, if any.
func (s *Scheduler) PendingNomination() (Nomination, bool) {
	if s.nominations.pending == nil {
		return Nomination{}, false
	}
	return *s.nominations.pending, true
}

// Secretary returns the participant who accepted the last nomination.
func (s *Scheduler) Secretary() string { return s.nominations.secretary }

func (s *Scheduler) resolveParticipant(name string) (string, bool) {
	name = strings.TrimRight(name, ".,!?;:")
	if _, ok := s.byName[name]; ok {
		return name, true
	}
	for _, p := range s.participants {
		if strings.EqualFold(p.Name, name) {
			return p.Name, true
		}
	}
	return "", false
}
