// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// TranscriptEntry model plus the TranscriptStore adapter consumed by the
// conversation engine.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hearu/hearu-backend/internal/domain"
)

// AppendEntry inserts a new transcript entry row. Entries are append-only;
// there is no update or delete counterpart.
func AppendEntry(ctx context.Context, db *gorm.DB, sessionID, role, content string) (*domain.TranscriptEntry, error) {
	e := &domain.TranscriptEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	return e, db.WithContext(ctx).Create(e).Error
}

// ListEntries returns all entries for a session ordered deterministically
// (CreatedAt ASC, ID ASC) — the authoritative turn order.
func ListEntries(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.TranscriptEntry, error) {
	var out []domain.TranscriptEntry
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountEntries uses a raw COUNT so a missing table surfaces as an error.
func CountEntries(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM transcript_entries WHERE session_id = ?", sessionID).
		Scan(&total).Error
	return total, err
}

// ListEntriesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListEntriesPage(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.TranscriptEntry, error) {
	var out []domain.TranscriptEntry
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TranscriptStore adapts the transcript repository to the narrow
// append/read-all contract the conversation engine depends on
// (chat.TranscriptStore). The backing store is the relational database; the
// engine neither knows nor cares.
type TranscriptStore struct {
	DB *gorm.DB
}

// Append stores one turn at the end of the session's transcript.
func (s *TranscriptStore) Append(ctx context.Context, sessionID, role, content string) error {
	_, err := AppendEntry(ctx, s.DB, sessionID, role, content)
	return err
}

// ReadAll returns the full ordered transcript for a session.
func (s *TranscriptStore) ReadAll(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	return ListEntries(ctx, s.DB, sessionID)
}
