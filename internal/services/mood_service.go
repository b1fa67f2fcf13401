// Package services – MoodService
//
// This file implements MoodService: the mood history read model and the
// popup path where a user records their mood directly without a quiz
// session.
package services

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/hearu/hearu-backend/internal/domain"
	"github.com/hearu/hearu-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// moodsRecorded counts persisted mood assessments from both the quiz and the
// popup path.
var moodsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "hearu_moods_recorded_total",
	Help: "Total number of mood assessments persisted.",
})

func init() {
	prometheus.MustRegister(moodsRecorded)
}

// MoodService reads and records mood assessments.
type MoodService struct {
	DB *gorm.DB
}

// History returns a page of the user's mood assessments ordered by
// assessment time ascending, plus the total count.
func (s *MoodService) History(ctx context.Context, userID string, page, pageSize int) ([]domain.MoodAssessment, int64, error) {
	tr := otel.Tracer("services/MoodService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountMoodAssessments(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.MoodAssessment{}, 0, nil
	}

	items, err := repo.ListMoodHistoryPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// RecordPopup stores a mood the user picked in the popup. The user must
// exist and the label must be one of the five canonical values. Popup
// assessments carry no session provenance.
func (s *MoodService) RecordPopup(ctx context.Context, userID, moodLabel string) (*domain.MoodAssessment, error) {
	tr := otel.Tracer("services/MoodService")
	ctx, span := tr.Start(ctx, "RecordPopup",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	mood, ok := domain.ParseMood(moodLabel)
	if !ok {
		return nil, ErrInvalidMood
	}

	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	assessment, err := repo.CreateMoodAssessment(ctx, s.DB, userID, "", mood)
	if err != nil {
		return nil, err
	}
	moodsRecorded.Inc()
	return assessment, nil
}
