// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// MoodAssessment model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hearu/hearu-backend/internal/domain"
)

// CreateMoodAssessment inserts a mood assessment for userID. sessionID may be
// empty for popup-sourced assessments that have no originating conversation.
func CreateMoodAssessment(ctx context.Context, db *gorm.DB, userID, sessionID string, mood domain.Mood) (*domain.MoodAssessment, error) {
	a := &domain.MoodAssessment{
		ID:         uuid.NewString(),
		UserID:     userID,
		SessionID:  sessionID,
		Mood:       mood,
		AssessedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// CountMoodAssessments returns the total number of assessments for userID.
func CountMoodAssessments(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.MoodAssessment{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListMoodHistoryPage returns a paginated slice of assessments for userID,
// ordered by assessment time ascending. The caller computes offset and limit.
func ListMoodHistoryPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.MoodAssessment, error) {
	var out []domain.MoodAssessment
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("assessed_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
