package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// transcriptRow is the database row for one entry.
type transcriptRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	SessionID string `gorm:"size:64;index:idx_transcript_session_position,priority:1"`
	Position  int    `gorm:"index:idx_transcript_session_position,priority:2"`
	Sender    string `gorm:"size:128"`
	Content   string `gorm:"type:text"`
	Kind      string `gorm:"size:32"`
	SentAt    time.Time
}

// TableName implements gorm's tabler.
func (transcriptRow) TableName() string {
	return "transcript_entries"
}

// GormStore stores transcripts in a SQL database through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db. Call Migrate before first use on a fresh database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the transcript table.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&transcriptRow{}); err != nil {
		return fmt.Errorf("migrate transcript_entries: %w", err)
	}
	return nil
}

// Append implements TranscriptStore.
func (s *GormStore) Append(ctx context.Context, sessionID string, e Entry) error {
	e, err := prepare(sessionID, e)
	if err != nil {
		return err
	}
	row := transcriptRow{
		ID:        e.ID,
		SessionID: e.SessionID,
		Position:  e.Index,
		Sender:    e.Sender,
		Content:   e.Content,
		Kind:      e.Kind,
		SentAt:    e.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert transcript entry: %w", err)
	}
	return nil
}

// List implements TranscriptStore.
func (s *GormStore) List(ctx context.Context, sessionID string) ([]Entry, error) {
	var rows []transcriptRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Order("sent_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list transcript entries: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			ID:        r.ID,
			SessionID: r.SessionID,
			Index:     r.Position,
			Sender:    r.Sender,
			Content:   r.Content,
			Kind:      r.Kind,
			Timestamp: r.SentAt,
		}
	}
	return entries, nil
}

// Ping implements TranscriptStore.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close is a no-op; the connection pool is owned by the caller.
func (s *GormStore) Close() error {
	return nil
}
