package persistence

import (
	"context"
	"sync"
)

// MemoryStore keeps transcripts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Entry
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Entry)}
}

// Append implements TranscriptStore.
func (s *MemoryStore) Append(_ context.Context, sessionID string, e Entry) error {
	e, err := prepare(sessionID, e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.sessions[sessionID] = append(s.sessions[sessionID], e)
	return nil
}

// List implements TranscriptStore.
func (s *MemoryStore) List(_ context.Context, sessionID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return append([]Entry(nil), s.sessions[sessionID]...), nil
}

// Ping implements TranscriptStore.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close implements TranscriptStore.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
