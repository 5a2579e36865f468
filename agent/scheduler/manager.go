package scheduler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BaSui01/roundtable/internal/metrics"
	"github.com/BaSui01/roundtable/types"
	"go.uber.org/zap"
)

// Manager 管理多个并发会话，会话之间不共享状态
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewManager creates an empty session manager.
func NewManager(collector *metrics.Collector, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		metrics:  collector,
		logger:   logger.With(zap.String("component", "session_manager")),
	}
}

// Open creates and registers a session. Options without a Metrics collector
// or Logger inherit the manager's.
func (m *Manager) Open(opts Options) (*Session, error) {
	if opts.Metrics == nil {
		opts.Metrics = m.metrics
	}
	if opts.Logger == nil {
		opts.Logger = m.logger
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if opts.SessionID != "" {
		if _, exists := m.sessions[opts.SessionID]; exists {
			return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("session %q already exists", opts.SessionID))
		}
	}

	sess, err := NewSession(opts)
	if err != nil {
		return nil, err
	}
	sess.onClose = m.forget
	m.sessions[sess.ID()] = sess
	m.metrics.SessionOpened()
	m.logger.Info("session opened", zap.String("session_id", sess.ID()))
	return sess, nil
}

// forget drops a closed session. Called from Session.Close.
func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.metrics.SessionClosed()
	}
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// CloseSession closes and removes a session.
func (m *Manager) CloseSession(id string) error {
	sess, ok := m.Get(id)
	if !ok {
		return types.NewError(types.ErrSessionClosed, fmt.Sprintf("session %q not found", id))
	}
	sess.Close()
	return nil
}

// List returns the IDs of open sessions, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes every open session.
func (m *Manager) Close() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
