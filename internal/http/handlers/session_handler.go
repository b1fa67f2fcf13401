// Session HTTP handlers.
//
// This file exposes REST endpoints for mood-assessment conversations:
//   - POST /api/mood/start                 (start a quiz session)
//   - POST /api/mood/start/chat            (start a freeform supportive chat)
//   - POST /api/mood/answer/{sessionId}    (submit one answer, get the reply)
//   - GET  /api/mood/messages/{sessionId}  (read the transcript, paginated, ETag)
//   - GET  /api/mood/sessions/{userId}     (list a user's sessions)
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to SessionService, and translate results into the response envelope. The
// isQuiz query parameter on the answer route is accepted for client
// compatibility, but the stored session mode is authoritative.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hearu/hearu-backend/internal/chat"
	"github.com/hearu/hearu-backend/internal/domain"
	"github.com/hearu/hearu-backend/internal/repo"
	"github.com/hearu/hearu-backend/internal/safety"
	"github.com/hearu/hearu-backend/internal/services"
	"github.com/hearu/hearu-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// SessionService defines the conversation lifecycle operations consumed by
// HTTP handlers. Implementations should be safe for concurrent use and must
// honor the provided context for cancellation and timeouts.
type SessionService interface {
	// Start creates a session in the given mode and returns it with the
	// opening greeting.
	Start(ctx context.Context, userID, mode string) (*domain.Session, string, error)
	// Submit processes one answered turn.
	Submit(ctx context.Context, sessionID, answer string) (*services.TurnResult, error)
	// Transcript returns a page of the session's transcript and the total.
	Transcript(ctx context.Context, sessionID string, page, pageSize int) ([]domain.TranscriptEntry, int64, error)
	// List returns all of the user's sessions, most recent first.
	List(ctx context.Context, userID string) ([]domain.Session, error)
}

// MoodService defines mood history and popup recording operations.
type MoodService interface {
	History(ctx context.Context, userID string, page, pageSize int) ([]domain.MoodAssessment, int64, error)
	RecordPopup(ctx context.Context, userID, mood string) (*domain.MoodAssessment, error)
}

// UserService defines account operations consumed by HTTP handlers.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for sessions, moods, and users.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic. DB is optional and only used for
// conditional-response (ETag) stats.
type Handlers struct {
	sessionSvc SessionService
	moodSvc    MoodService
	userSvc    UserService
	db         *gorm.DB
}

// New constructs a Handlers instance bound to the given services.
func New(sessionSvc SessionService, moodSvc MoodService, userSvc UserService, db *gorm.DB) *Handlers {
	return &Handlers{sessionSvc: sessionSvc, moodSvc: moodSvc, userSvc: userSvc, db: db}
}

//
// DTOs
//

// StartSessionRequest is the payload for starting a session. Both form and
// JSON bodies are accepted.
type StartSessionRequest struct {
	UserID string `form:"user_id" json:"user_id" binding:"required,min=1" example:"user123"`
}

// StartSessionResponse is returned by both start endpoints.
type StartSessionResponse struct {
	Success   bool   `json:"success" example:"true"`
	Message   string `json:"message" example:"Hello! I'm Hear-U. First question: ..."`
	SessionID string `json:"session_id" example:"7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab"`
}

// SubmitAnswerRequest is the payload for one answered turn.
type SubmitAnswerRequest struct {
	Answer string `form:"answer" json:"answer" binding:"required,min=1" example:"a) Energetic"`
}

// SubmitAnswerResponse carries the assistant reply and, on a terminal quiz
// turn, the detected mood and stored assessment.
type SubmitAnswerResponse struct {
	Success        bool                   `json:"success" example:"true"`
	Message        string                 `json:"message"`
	Mood           domain.Mood            `json:"mood,omitempty" example:"good"`
	MoodAssessment *domain.MoodAssessment `json:"mood_assessment,omitempty"`
}

// TranscriptMessage is one transcript turn in client shape.
type TranscriptMessage struct {
	Role    string `json:"role" example:"assistant"`
	Content string `json:"content"`
}

// TranscriptResponse contains a page of the session transcript.
type TranscriptResponse struct {
	Success    bool                `json:"success" example:"true"`
	SessionID  string              `json:"session_id"`
	Messages   []TranscriptMessage `json:"messages"`
	Pagination Pagination          `json:"pagination"`
}

// SessionListResponse contains a user's sessions, most recent first.
type SessionListResponse struct {
	Success  bool             `json:"success" example:"true"`
	Sessions []domain.Session `json:"sessions"`
}

//
// Helpers
//

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeAnswer normalizes user text for consistent downstream behavior:
// CRLF/CR to LF, runs of 3+ LFs collapsed to two, surrounding whitespace
// trimmed.
func sanitizeAnswer(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// start handles both start endpoints; only the session mode differs.
func (h *Handlers) start(c *gin.Context, mode string) {
	ctx := c.Request.Context()

	var req StartSessionRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, msgNoUserID, true)
		return
	}

	sess, greeting, err := h.sessionSvc.Start(ctx, strings.TrimSpace(req.UserID), mode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusBadRequest, msgNoUserID, true)
		case errors.Is(err, chat.ErrGenerationUnavailable):
			fail(c, http.StatusBadGateway, msgModelUnavailable, false)
		default:
			fail(c, http.StatusInternalServerError, err.Error(), false)
		}
		return
	}

	ok(c, http.StatusOK, StartSessionResponse{
		Success:   true,
		Message:   greeting,
		SessionID: sess.ID,
	})
}

//
// Handlers
//

// StartQuiz godoc
// @ID          startQuiz
// @Summary     Start a mood quiz session
// @Description Creates a quiz session and returns the opening greeting with the first question.
// @Tags        Mood
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Param       body  body  handlers.StartSessionRequest  true  "Owner of the session"
// @Success     200  {object}  handlers.StartSessionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing user id"
// @Failure     502  {object}  handlers.ErrorResponse  "Assistant unavailable"
// @Router      /api/mood/start [post]
func (h *Handlers) StartQuiz(c *gin.Context) {
	h.start(c, domain.ModeQuiz)
}

// StartChat godoc
// @ID          startChat
// @Summary     Start a freeform supportive chat session
// @Description Creates a freeform session and returns the opening greeting.
// @Tags        Mood
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Param       body  body  handlers.StartSessionRequest  true  "Owner of the session"
// @Success     200  {object}  handlers.StartSessionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing user id"
// @Failure     502  {object}  handlers.ErrorResponse  "Assistant unavailable"
// @Router      /api/mood/start/chat [post]
func (h *Handlers) StartChat(c *gin.Context) {
	h.start(c, domain.ModeFreeform)
}

// SubmitAnswer godoc
// @ID          submitAnswer
// @Summary     Submit one answer to a session
// @Description Screens the answer, generates the assistant reply, and on a terminal quiz turn records the mood.
// @Tags        Mood
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Param       sessionId  path   string  true   "Session ID (UUID)"  format(uuid)
// @Param       isQuiz     query  string  false  "Legacy mode hint; the stored session mode is authoritative"
// @Param       body       body   handlers.SubmitAnswerRequest  true  "Answer payload"
// @Success     200  {object}  handlers.SubmitAnswerResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing answer or invalid session id"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Assistant unavailable or unusable assessment"
// @Router      /api/mood/answer/{sessionId} [post]
func (h *Handlers) SubmitAnswer(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID := c.Param("sessionId")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, msgNoSessionID, false)
		return
	}

	var req SubmitAnswerRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, msgNoAnswer, false)
		return
	}
	answer := sanitizeAnswer(req.Answer)
	if answer == "" {
		fail(c, http.StatusBadRequest, msgNoAnswer, false)
		return
	}

	res, err := h.sessionSvc.Submit(ctx, sessionID, answer)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusNotFound, msgSessionNotFound, false)
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, msgNoAnswer, false)
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, "Answer too long", false)
		case errors.Is(err, safety.ErrMalformedAssessment):
			fail(c, http.StatusBadGateway, msgInvalidAIResponse, false)
		case errors.Is(err, chat.ErrGenerationUnavailable):
			fail(c, http.StatusBadGateway, msgModelUnavailable, false)
		default:
			fail(c, http.StatusInternalServerError, err.Error(), false)
		}
		return
	}

	resp := SubmitAnswerResponse{Success: true, Message: res.Reply}
	if res.MoodDetected {
		resp.Mood = res.Mood
		resp.MoodAssessment = res.Assessment
	}
	ok(c, http.StatusOK, resp)
}

// GetTranscript godoc
// @ID          getTranscript
// @Summary     Read a session transcript
// @Description Returns the ordered transcript of a session, paginated, with weak-ETag support.
// @Tags        Mood
// @Produce     json
// @Param       sessionId  path   string  true  "Session ID (UUID)"  format(uuid)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(200) default(50)
// @Success     200  {object}  handlers.TranscriptResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid session id"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Router      /api/mood/messages/{sessionId} [get]
func (h *Handlers) GetTranscript(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID := c.Param("sessionId")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, msgNoSessionID, false)
		return
	}

	// ETag pre-check (best effort). A zero count is ambiguous between an
	// empty transcript and a session that does not exist, so the 404 path
	// below must decide those.
	if h.db != nil {
		count, maxTS, err := repo.TranscriptStats(ctx, h.db, sessionID)
		if err == nil && count > 0 {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"transcript:%s:%d:%d"`, sessionID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.sessionSvc.Transcript(ctx, sessionID, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusNotFound, msgSessionNotFound, false)
		default:
			fail(c, http.StatusInternalServerError, err.Error(), false)
		}
		return
	}

	msgs := make([]TranscriptMessage, len(items))
	for i, e := range items {
		msgs[i] = TranscriptMessage{Role: e.Role, Content: e.Content}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, TranscriptResponse{
		Success:   true,
		SessionID: sessionID,
		Messages:  msgs,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List a user's sessions
// @Description Returns every conversation session belonging to the user, most recent first.
// @Tags        Mood
// @Produce     json
// @Param       userId  path  string  true  "User ID"
// @Success     200  {object}  handlers.SessionListResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing user id"
// @Router      /api/mood/sessions/{userId} [get]
func (h *Handlers) ListSessions(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		fail(c, http.StatusBadRequest, msgNoUserID, false)
		return
	}

	sessions, err := h.sessionSvc.List(c.Request.Context(), userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error(), false)
		return
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	ok(c, http.StatusOK, SessionListResponse{Success: true, Sessions: sessions})
}
