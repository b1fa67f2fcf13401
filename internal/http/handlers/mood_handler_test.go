package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hearu/hearu-backend/internal/domain"
	"github.com/hearu/hearu-backend/internal/repo"
	"github.com/hearu/hearu-backend/internal/services"
)

func newHandlersDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:mood_handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGetHistory_Success(t *testing.T) {
	svc := stubMoodSvc{history: func(_ context.Context, userID string, page, pageSize int) ([]domain.MoodAssessment, int64, error) {
		return []domain.MoodAssessment{
			{ID: "a1", UserID: userID, Mood: domain.MoodBad},
			{ID: "a2", UserID: userID, Mood: domain.MoodGood},
		}, 2, nil
	}}
	r := newTestRouter(New(stubSessionSvc{}, svc, stubUserSvc{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/mood/history/u1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp MoodHistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.Assessments) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Pagination.Page != 1 || resp.Pagination.PageSize != 50 || resp.Pagination.Total != 2 {
		t.Fatalf("pagination defaults wrong: %+v", resp.Pagination)
	}
}

func TestGetHistory_ETagRoundTrip(t *testing.T) {
	db := newHandlersDB(t)
	ctx := context.Background()
	if _, err := repo.CreateMoodAssessment(ctx, db, "u1", "", domain.MoodNeutral); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := stubMoodSvc{history: func(context.Context, string, int, int) ([]domain.MoodAssessment, int64, error) {
		return []domain.MoodAssessment{{ID: "a1", UserID: "u1"}}, 1, nil
	}}
	r := newTestRouter(New(stubSessionSvc{}, svc, stubUserSvc{}, db))

	req := httptest.NewRequest(http.MethodGet, "/api/mood/history/u1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first fetch status = %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/mood/history/u1", nil)
	req2.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusNotModified {
		t.Fatalf("conditional fetch status = %d, want 304", w2.Code)
	}

	// A new assessment changes the validator, so the same ETag must miss.
	if _, err := repo.CreateMoodAssessment(ctx, db, "u1", "", domain.MoodGood); err != nil {
		t.Fatalf("seed second: %v", err)
	}
	req3 := httptest.NewRequest(http.MethodGet, "/api/mood/history/u1", nil)
	req3.Header.Set("If-None-Match", etag)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, req3)
	if w3.Code != http.StatusOK {
		t.Fatalf("stale-ETag fetch status = %d, want 200", w3.Code)
	}
}

func TestGetTranscript_ETagRoundTrip(t *testing.T) {
	db := newHandlersDB(t)
	ctx := context.Background()
	sess, err := repo.CreateSession(ctx, db, "u1", domain.ModeQuiz)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if _, err := repo.AppendEntry(ctx, db, sess.ID, domain.RoleUser, "Hi"); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	svc := stubSessionSvc{transcript: func(context.Context, string, int, int) ([]domain.TranscriptEntry, int64, error) {
		return []domain.TranscriptEntry{{SessionID: sess.ID, Role: domain.RoleUser, Content: "Hi"}}, 1, nil
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, db))

	req := httptest.NewRequest(http.MethodGet, "/api/mood/messages/"+sess.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first fetch status = %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/mood/messages/"+sess.ID, nil)
	req2.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusNotModified {
		t.Fatalf("conditional fetch status = %d, want 304", w2.Code)
	}
}

func TestGetTranscript_UnknownSessionIgnoresIfNoneMatch(t *testing.T) {
	db := newHandlersDB(t)
	svc := stubSessionSvc{transcript: func(context.Context, string, int, int) ([]domain.TranscriptEntry, int64, error) {
		return nil, 0, services.ErrSessionNotFound
	}}
	r := newTestRouter(New(svc, stubMoodSvc{}, stubUserSvc{}, db))

	// A client guessing the empty-transcript validator for a session that was
	// never created must still get the 404, not a 304.
	sid := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/mood/messages/"+sid, nil)
	req.Header.Set("If-None-Match", fmt.Sprintf(`W/"transcript:%s:0:0"`, sid))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != "" {
		t.Fatalf("unexpected ETag %q for unknown session", etag)
	}
}

func TestGetHistory_EmptyHistoryIgnoresIfNoneMatch(t *testing.T) {
	db := newHandlersDB(t)
	svc := stubMoodSvc{history: func(context.Context, string, int, int) ([]domain.MoodAssessment, int64, error) {
		return []domain.MoodAssessment{}, 0, nil
	}}
	r := newTestRouter(New(stubSessionSvc{}, svc, stubUserSvc{}, db))

	req := httptest.NewRequest(http.MethodGet, "/api/mood/history/ghost", nil)
	req.Header.Set("If-None-Match", `W/"moods:ghost:0:0"`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != "" {
		t.Fatalf("unexpected ETag %q for empty history", etag)
	}
}

func TestRecordMood_Success(t *testing.T) {
	var gotUser, gotMood string
	svc := stubMoodSvc{record: func(_ context.Context, userID, mood string) (*domain.MoodAssessment, error) {
		gotUser, gotMood = userID, mood
		return &domain.MoodAssessment{ID: "a1", UserID: userID, Mood: domain.MoodVeryGood}, nil
	}}
	r := newTestRouter(New(stubSessionSvc{}, svc, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/u1", gin.H{"mood": "Very Good"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if gotUser != "u1" || gotMood != "Very Good" {
		t.Fatalf("args not forwarded: user=%q mood=%q", gotUser, gotMood)
	}
	var resp RecordMoodResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.MoodAssessment == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRecordMood_InvalidMood(t *testing.T) {
	svc := stubMoodSvc{record: func(context.Context, string, string) (*domain.MoodAssessment, error) {
		return nil, services.ErrInvalidMood
	}}
	r := newTestRouter(New(stubSessionSvc{}, svc, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/u1", gin.H{"mood": "fantastic"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body["is_form_error"] != true || body["error"] != msgInvalidMood {
		t.Fatalf("unexpected envelope: %v", body)
	}
}

func TestRecordMood_UserNotFound(t *testing.T) {
	svc := stubMoodSvc{record: func(context.Context, string, string) (*domain.MoodAssessment, error) {
		return nil, services.ErrUserNotFound
	}}
	r := newTestRouter(New(stubSessionSvc{}, svc, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/ghost", gin.H{"mood": "good"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body["is_form_error"] != true || body["error"] != msgUserNotFound {
		t.Fatalf("unexpected envelope: %v", body)
	}
}

func TestRecordMood_MissingBody(t *testing.T) {
	r := newTestRouter(New(stubSessionSvc{}, stubMoodSvc{}, stubUserSvc{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/mood/u1", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
