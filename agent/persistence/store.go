// Package persistence archives conversation transcripts outside the process.
//
// Supported backends:
//   - Memory: for development and testing
//   - Redis: one list per session
//   - Database: one row per entry via GORM (postgres, mysql, sqlite)
package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeNone     StoreType = "none"
	StoreTypeMemory   StoreType = "memory"
	StoreTypeRedis    StoreType = "redis"
	StoreTypeDatabase StoreType = "database"
)

// Entry is one archived transcript message.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Index     int       `json:"index"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore archives transcript entries per session. Entries are
// returned in the order they were appended.
type TranscriptStore interface {
	Append(ctx context.Context, sessionID string, e Entry) error
	List(ctx context.Context, sessionID string) ([]Entry, error)
	Ping(ctx context.Context) error
	Close() error
}

// prepare validates e and fills ID and SessionID.
func prepare(sessionID string, e Entry) (Entry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Entry{}, ErrInvalidInput
	}
	if e.Sender == "" {
		return Entry{}, ErrInvalidInput
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.SessionID = sessionID
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return e, nil
}
