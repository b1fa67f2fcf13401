// Mood HTTP handlers.
//
// This file exposes REST endpoints for mood assessments outside a running
// conversation:
//   - GET  /api/mood/history/{userId}  (mood history for the graph, paginated)
//   - POST /api/mood/{userId}          (record a mood picked in the popup)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hearu/hearu-backend/internal/domain"
	"github.com/hearu/hearu-backend/internal/repo"
	"github.com/hearu/hearu-backend/internal/services"
)

//
// DTOs
//

// MoodHistoryResponse contains a page of a user's mood assessments in
// assessment-time order.
type MoodHistoryResponse struct {
	Success     bool                    `json:"success" example:"true"`
	Assessments []domain.MoodAssessment `json:"assessments"`
	Pagination  Pagination              `json:"pagination"`
}

// RecordMoodRequest is the payload for the mood popup.
type RecordMoodRequest struct {
	Mood string `form:"mood" json:"mood" binding:"required,min=1" example:"good"`
}

// RecordMoodResponse confirms a stored popup assessment.
type RecordMoodResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Mood recorded successfully"`
	Data    struct {
		MoodAssessment *domain.MoodAssessment `json:"mood_assessment"`
	} `json:"data"`
}

//
// Handlers
//

// GetHistory godoc
// @ID          getMoodHistory
// @Summary     Mood history for a user
// @Description Returns the user's mood assessments ordered by assessment time (the mood graph series).
// @Tags        Mood
// @Produce     json
// @Param       userId     path   string  true  "User ID"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(200) default(50)
// @Success     200  {object}  handlers.MoodHistoryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing user id"
// @Router      /api/mood/history/{userId} [get]
func (h *Handlers) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()

	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		fail(c, http.StatusBadRequest, msgNoUserID, false)
		return
	}

	// ETag pre-check (best effort). Skipped while the history is empty so an
	// unknown user can never be answered with a 304.
	if h.db != nil {
		count, latest, err := repo.MoodHistoryStats(ctx, h.db, userID)
		if err == nil && count > 0 {
			var ts int64
			if latest != nil {
				ts = latest.Unix()
			}
			etag := fmt.Sprintf(`W/"moods:%s:%d:%d"`, userID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.moodSvc.History(ctx, userID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error(), false)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, MoodHistoryResponse{
		Success:     true,
		Assessments: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// RecordMood godoc
// @ID          recordMood
// @Summary     Record a mood from the popup
// @Description Stores a mood the user picked directly, without a quiz session.
// @Tags        Mood
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Param       userId  path  string  true  "User ID"
// @Param       body    body  handlers.RecordMoodRequest  true  "Mood label (one of: very bad, bad, neutral, good, very good)"
// @Success     201  {object}  handlers.RecordMoodResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid mood value"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /api/mood/{userId} [post]
func (h *Handlers) RecordMood(c *gin.Context) {
	ctx := c.Request.Context()

	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		fail(c, http.StatusBadRequest, msgNoUserID, true)
		return
	}

	var req RecordMoodRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidMood, true)
		return
	}

	assessment, err := h.moodSvc.RecordPopup(ctx, userID, req.Mood)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidMood):
			fail(c, http.StatusBadRequest, msgInvalidMood, true)
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, msgUserNotFound, true)
		default:
			fail(c, http.StatusInternalServerError, err.Error(), false)
		}
		return
	}

	resp := RecordMoodResponse{Success: true, Message: "Mood recorded successfully"}
	resp.Data.MoodAssessment = assessment
	ok(c, http.StatusCreated, resp)
}
