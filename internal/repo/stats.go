// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/hearu/hearu-backend/internal/domain"
)

// TranscriptStats returns aggregate metadata for entries within a session:
// the total number of rows and the maximum UpdatedAt timestamp among those
// rows.
//
// It executes two lightweight queries against the transcript_entries table
// scoped to the provided sessionID. When the session has no entries, the
// returned count is 0 and maxUpdatedAt is nil.
//
// Return values:
//   - count:        total entries for sessionID
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func TranscriptStats(ctx context.Context, db *gorm.DB, sessionID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.TranscriptEntry{}).Where("session_id = ?", sessionID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// MoodHistoryStats returns aggregate metadata for a user's mood history: the
// total number of assessments and the latest AssessedAt among them. Used by
// the history handler for weak-ETag generation.
func MoodHistoryStats(ctx context.Context, db *gorm.DB, userID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.MoodAssessment{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		AssessedAt time.Time
	}
	if err = q.Select("assessed_at").Order("assessed_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.AssessedAt, nil
}
