// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the FlagRecord
// model.
//
// Flag inserts are idempotent by design: the table carries a unique index on
// (user_id, session_id, reason) and inserts use ON CONFLICT DO NOTHING, so
// re-flagging the same message is a silent no-op rather than an error.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hearu/hearu-backend/internal/domain"
)

// InsertFlag records that a user's message in a session exceeded the
// criticality threshold. It returns created=false when an identical
// (user, session, reason) flag already exists.
func InsertFlag(ctx context.Context, db *gorm.DB, userID, sessionID, reason string, percentage int) (created bool, err error) {
	f := &domain.FlagRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		SessionID:  sessionID,
		Reason:     reason,
		Percentage: percentage,
		CreatedAt:  time.Now().UTC(),
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(f)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FlagStore adapts the flag repository to the persistence contract of the
// criticality gate (safety.FlagStore).
type FlagStore struct {
	DB *gorm.DB
}

// InsertFlag stores one flag record, idempotently.
func (s *FlagStore) InsertFlag(ctx context.Context, userID, sessionID, reason string, percentage int) (bool, error) {
	return InsertFlag(ctx, s.DB, userID, sessionID, reason, percentage)
}

// CountFlags returns the number of flag records stored for userID.
func CountFlags(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.FlagRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}
