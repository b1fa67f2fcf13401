package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hearu/hearu-backend/internal/chat"
	"github.com/hearu/hearu-backend/internal/domain"
	"github.com/hearu/hearu-backend/internal/safety"
	"github.com/hearu/hearu-backend/internal/services"
)

// ---------- flexible service stubs ----------

type stubSessionSvc struct {
	start      func(context.Context, string, string) (*domain.Session, string, error)
	submit     func(context.Context, string, string) (*services.TurnResult, error)
	transcript func(context.Context, string, int, int) ([]domain.TranscriptEntry, int64, error)
	list       func(context.Context, string) ([]domain.Session, error)
}

func (s stubSessionSvc) Start(ctx context.Context, userID, mode string) (*domain.Session, string, error) {
	if s.start != nil {
		return s.start(ctx, userID, mode)
	}
	return &domain.Session{ID: uuid.NewString(), UserID: userID, Mode: mode}, "Hello!", nil
}

func (s stubSessionSvc) Submit(ctx context.Context, sessionID, answer string) (*services.TurnResult, error) {
	if s.submit != nil {
		return s.submit(ctx, sessionID, answer)
	}
	return &services.TurnResult{Reply: "ok"}, nil
}

func (s stubSessionSvc) Transcript(ctx context.Context, sessionID string, page, pageSize int) ([]domain.TranscriptEntry, int64, error) {
	if s.transcript != nil {
		return s.transcript(ctx, sessionID, page, pageSize)
	}
	return nil, 0, nil
}

func (s stubSessionSvc) List(ctx context.Context, userID string) ([]domain.Session, error) {
	if s.list != nil {
		return s.list(ctx, userID)
	}
	return nil, nil
}

type stubMoodSvc struct {
	history func(context.Context, string, int, int) ([]domain.MoodAssessment, int64, error)
	record  func(context.Context, string, string) (*domain.MoodAssessment, error)
}

func (s stubMoodSvc) History(ctx context.Context, userID string, page, pageSize int) ([]domain.MoodAssessment, int64, error) {
	if s.history != nil {
		return s.history(ctx, userID, page, pageSize)
	}
	return nil, 0, nil
}

func (s stubMoodSvc) RecordPopup(ctx context.Context, userID, mood string) (*domain.MoodAssessment, error) {
	if s.record != nil {
		return s.record(ctx, userID, mood)
	}
	return &domain.MoodAssessment{ID: "a1", UserID: userID}, nil
}

type stubUserSvc struct {
	register func(context.Context, string, string, string) (*domain.User, error)
}

func (s stubUserSvc) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if s.register != nil {
		return s.register(ctx, username, email, password)
	}
	return &domain.User{ID: "u1", Username: username}, nil
}

// ---------- router helper ----------

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mood := r.Group("/api/mood")
	{
		mood.POST("/start", h.StartQuiz)
		mood.POST("/start/chat", h.StartChat)
		mood.POST("/answer/:sessionId", h.SubmitAnswer)
		mood.GET("/history/:userId", h.GetHistory)
		mood.GET("/messages/:sessionId", h.GetTranscript)
		mood.GET("/sessions/:userId", h.ListSessions)
		mood.POST("/:userId", h.RecordMood)
	}
	r.POST("/api/users", h.RegisterUser)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doForm(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// ---------- start ----------

func TestStartQuiz_Success(t *testing.T) {
	var gotMode string
	svc := stubSessionSvc{start: func(_ context.Context, userID, mode string) (*domain.Session, string, error) {
		gotMode = mode
		return &domain.Session{ID: "sess-1", UserID: userID, Mode: mode}, "Hello! First question: ...", nil
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/start", gin.H{"user_id": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if gotMode != domain.ModeQuiz {
		t.Fatalf("start must use quiz mode, got %q", gotMode)
	}
	body := decodeEnvelope(t, w)
	if body["success"] != true || body["session_id"] != "sess-1" {
		t.Fatalf("unexpected envelope: %v", body)
	}
	if !strings.Contains(body["message"].(string), "First question") {
		t.Fatalf("greeting missing: %v", body)
	}
}

func TestStartChat_UsesFreeformMode(t *testing.T) {
	var gotMode string
	svc := stubSessionSvc{start: func(_ context.Context, _, mode string) (*domain.Session, string, error) {
		gotMode = mode
		return &domain.Session{ID: "sess-2", Mode: mode}, "Hi there.", nil
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/start/chat", gin.H{"user_id": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotMode != domain.ModeFreeform {
		t.Fatalf("start/chat must use freeform mode, got %q", gotMode)
	}
}

func TestStart_MissingUserID(t *testing.T) {
	r := newTestRouter(New(stubSessionSvc{}, stubMoodSvc{}, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/start", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body["success"] != false || body["is_form_error"] != true {
		t.Fatalf("expected form error envelope: %v", body)
	}
}

func TestStart_GenerationUnavailable(t *testing.T) {
	svc := stubSessionSvc{start: func(context.Context, string, string) (*domain.Session, string, error) {
		return nil, "", chat.ErrGenerationUnavailable
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/start", gin.H{"user_id": "u1"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
}

// ---------- answer ----------

func TestSubmitAnswer_Success(t *testing.T) {
	sid := uuid.NewString()
	var gotAnswer string
	svc := stubSessionSvc{submit: func(_ context.Context, _, answer string) (*services.TurnResult, error) {
		gotAnswer = answer
		return &services.TurnResult{Reply: "Question 2: ..."}, nil
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/answer/"+sid+"?isQuiz=true", gin.H{"answer": "a) Energetic"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if gotAnswer != "a) Energetic" {
		t.Fatalf("answer not forwarded: %q", gotAnswer)
	}
	body := decodeEnvelope(t, w)
	if body["success"] != true || body["message"] != "Question 2: ..." {
		t.Fatalf("unexpected envelope: %v", body)
	}
	if _, present := body["mood"]; present {
		t.Fatalf("non-terminal reply must omit mood: %v", body)
	}
}

func TestSubmitAnswer_TerminalQuizTurnIncludesMood(t *testing.T) {
	sid := uuid.NewString()
	svc := stubSessionSvc{submit: func(context.Context, string, string) (*services.TurnResult, error) {
		return &services.TurnResult{
			Reply:        "Based on your responses, your mood is good.",
			Mood:         domain.MoodGood,
			MoodDetected: true,
			Assessment:   &domain.MoodAssessment{ID: "a1", UserID: "u1", SessionID: sid, Mood: domain.MoodGood},
		}, nil
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/answer/"+sid, gin.H{"answer": "a) Optimistic"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body["mood"] != "good" {
		t.Fatalf("expected mood in envelope: %v", body)
	}
	if body["mood_assessment"] == nil {
		t.Fatalf("expected mood_assessment in envelope: %v", body)
	}
}

func TestSubmitAnswer_BadSessionID(t *testing.T) {
	r := newTestRouter(New(stubSessionSvc{}, stubMoodSvc{}, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/answer/not-a-uuid", gin.H{"answer": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSubmitAnswer_MissingAnswer(t *testing.T) {
	r := newTestRouter(New(stubSessionSvc{}, stubMoodSvc{}, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/answer/"+uuid.NewString(), gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSubmitAnswer_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", services.ErrSessionNotFound, http.StatusNotFound},
		{"malformed assessment", safety.ErrMalformedAssessment, http.StatusBadGateway},
		{"generation unavailable", chat.ErrGenerationUnavailable, http.StatusBadGateway},
		{"too long", services.ErrTooLong, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc := stubSessionSvc{submit: func(context.Context, string, string) (*services.TurnResult, error) {
				return nil, c.err
			}}
			r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, nil))

			w := doJSON(t, r, http.MethodPost, "/api/mood/answer/"+uuid.NewString(), gin.H{"answer": "x"})
			if w.Code != c.want {
				t.Fatalf("status = %d, want %d", w.Code, c.want)
			}
			body := decodeEnvelope(t, w)
			if body["success"] != false {
				t.Fatalf("failure envelope must set success=false: %v", body)
			}
		})
	}
}

// ---------- transcript ----------

func TestGetTranscript_Success(t *testing.T) {
	sid := uuid.NewString()
	svc := stubSessionSvc{transcript: func(_ context.Context, sessionID string, page, pageSize int) ([]domain.TranscriptEntry, int64, error) {
		return []domain.TranscriptEntry{
			{SessionID: sessionID, Role: domain.RoleUser, Content: "Hi"},
			{SessionID: sessionID, Role: domain.RoleAssistant, Content: "Hello!"},
		}, 2, nil
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/mood/messages/"+sid, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp TranscriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.SessionID != sid || len(resp.Messages) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Messages[0].Role != "user" || resp.Messages[1].Role != "assistant" {
		t.Fatalf("roles not mapped: %+v", resp.Messages)
	}
	if resp.Pagination.Total != 2 {
		t.Fatalf("pagination missing: %+v", resp.Pagination)
	}
}

func TestGetTranscript_NotFound(t *testing.T) {
	svc := stubSessionSvc{transcript: func(context.Context, string, int, int) ([]domain.TranscriptEntry, int64, error) {
		return nil, 0, services.ErrSessionNotFound
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/mood/messages/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

// ---------- session list ----------

func TestListSessions_Success(t *testing.T) {
	var gotUser string
	svc := stubSessionSvc{list: func(_ context.Context, userID string) ([]domain.Session, error) {
		gotUser = userID
		return []domain.Session{
			{ID: "s-new", UserID: userID, Mode: domain.ModeFreeform, Title: "Feeling Better"},
			{ID: "s-old", UserID: userID, Mode: domain.ModeQuiz, Title: "New session"},
		}, nil
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/mood/sessions/u1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if gotUser != "u1" {
		t.Fatalf("user id not forwarded: %q", gotUser)
	}
	var resp SessionListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.Sessions) != 2 || resp.Sessions[0].ID != "s-new" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestListSessions_EmptyIsArrayNotNull(t *testing.T) {
	r := newTestRouter(New(stubSessionSvc{}, stubMoodSvc{}, stubUserSvc{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/mood/sessions/nobody", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"sessions":[]`) {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

// ---------- helpers ----------

func TestSanitizeAnswer(t *testing.T) {
	in := "line1\r\nline2\r\r\n\n\n\nline3  "
	got := sanitizeAnswer(in)
	if strings.Contains(got, "\r") {
		t.Fatalf("CR not normalized: %q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("newline runs not collapsed: %q", got)
	}
	if strings.HasSuffix(got, " ") {
		t.Fatalf("not trimmed: %q", got)
	}
}

func TestClampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=-3&page_size=9999", nil)

	page, pageSize := clampPagination(c)
	if page != 1 || pageSize != 200 {
		t.Fatalf("clamp = (%d,%d), want (1,200)", page, pageSize)
	}
}
