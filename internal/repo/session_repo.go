// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (also exported in this package as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hearu/hearu-backend/internal/domain"
)

// CreateSession inserts a new Session row owned by userID in the given mode.
// The session ID is a randomly generated UUID, and CreatedAt is set to UTC.
func CreateSession(ctx context.Context, db *gorm.DB, userID, mode string) (*domain.Session, error) {
	s := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      mode,
		Title:     "New session",
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession fetches a single session by its ID. If the record does not
// exist, it returns ErrNotFound. Session lookups are keyed by the opaque
// session token alone; ownership is carried on the row itself.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.Session, error) {
	var s domain.Session
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes a session row (hard delete used only by cleanup
// tooling and tests; the application itself never deletes sessions).
func DeleteSession(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&domain.Session{}).Error
}

// UpdateSessionTitle updates the title of a session. If no rows are affected
// it returns ErrNotFound.
func UpdateSessionTitle(ctx context.Context, db *gorm.DB, id, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateSessionProgress persists the derived-state counters after a processed
// turn: the number of answered user turns and whether a terminal mood has
// been recorded for this session.
func UpdateSessionProgress(ctx context.Context, db *gorm.DB, id string, turnsAnswered int, moodRecorded bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"turns_answered": turnsAnswered,
			"mood_recorded":  moodRecorded,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListSessions returns all sessions belonging to userID, ordered by creation
// time descending (most recent first).
func ListSessions(ctx context.Context, db *gorm.DB, userID string) ([]domain.Session, error) {
	var out []domain.Session
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
