// Package services – SessionService
//
// This file implements SessionService, the orchestrator for mood-assessment
// conversations. A session turn runs safety screening, reply generation,
// mood extraction, and progress bookkeeping in a fixed order; the criticality
// gate always sees the message first, and nothing reaches the transcript when
// it fails.
//
// Concurrency: turns for the same session are serialized with a striped
// mutex, so two concurrent submits cannot interleave their transcript writes
// or double-record a mood.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// session/user identifiers.
package services

import (
	"context"
	"errors"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/hearu/hearu-backend/internal/chat"
	"github.com/hearu/hearu-backend/internal/domain"
	"github.com/hearu/hearu-backend/internal/repo"
	"github.com/hearu/hearu-backend/internal/safety"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// default title considered "placeholder" and eligible for auto-generation
	defaultTitleNew = "New session"

	// greeting input for the opening turn; never user-authored, never gated
	greetingInput = "Hi"

	sessionLockStripes = 64
)

// Conversation is the turn-advancing contract of the chat engine.
type Conversation interface {
	Advance(ctx context.Context, sessionID, mode, input string) (string, error)
}

// Screener is the criticality-gate contract.
type Screener interface {
	Check(ctx context.Context, userID, sessionID, message string) (safety.Verdict, error)
}

// TurnResult is the outcome of one submitted answer.
type TurnResult struct {
	Reply        string
	Mood         domain.Mood
	MoodDetected bool
	Assessment   *domain.MoodAssessment
}

// SessionService coordinates session lifecycle and turn processing.
type SessionService struct {
	DB     *gorm.DB
	Engine Conversation
	Gate   Screener

	// Optional guards
	MaxAnswerRunes int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int

	locks [sessionLockStripes]sync.Mutex
}

func (s *SessionService) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%sessionLockStripes]
}

// Start creates a session in the given mode and runs the ungated greeting
// turn. If the greeting cannot be generated the session row is rolled back so
// no empty sessions accumulate.
func (s *SessionService) Start(ctx context.Context, userID, mode string) (*domain.Session, string, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Start",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("session.mode", mode),
		),
	)
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, "", ErrUserNotFound
	}
	if mode != domain.ModeQuiz && mode != domain.ModeFreeform {
		mode = domain.ModeFreeform
	}

	sess, err := repo.CreateSession(ctx, s.DB, userID, mode)
	if err != nil {
		return nil, "", err
	}

	greeting, err := s.Engine.Advance(ctx, sess.ID, sess.Mode, greetingInput)
	if err != nil {
		_ = repo.DeleteSession(ctx, s.DB, sess.ID)
		return nil, "", err
	}
	return sess, greeting, nil
}

// Submit processes one answered turn: screen, generate, extract, persist.
// The criticality gate runs before any transcript write; a gate failure
// aborts the whole turn. In quiz mode a terminal reply records at most one
// mood assessment per session.
func (s *SessionService) Submit(ctx context.Context, sessionID, answer string) (*TurnResult, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxAnswerRunes > 0 && utf8.RuneCountInString(answer) > s.MaxAnswerRunes {
		return nil, ErrTooLong
	}

	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := repo.GetSession(ctx, s.DB, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	// Safety first. Any gate failure aborts the turn before the transcript
	// or the model sees the message.
	if _, err := s.Gate.Check(ctx, sess.UserID, sess.ID, answer); err != nil {
		return nil, err
	}

	reply, err := s.Engine.Advance(ctx, sess.ID, sess.Mode, answer)
	if err != nil {
		return nil, err
	}

	res := &TurnResult{Reply: reply}

	moodRecorded := sess.MoodRecorded
	if sess.IsQuiz() {
		if mood, ok := chat.ExtractMood(reply); ok {
			res.Mood = mood
			res.MoodDetected = true
			if !moodRecorded {
				assessment, err := repo.CreateMoodAssessment(ctx, s.DB, sess.UserID, sess.ID, mood)
				if err != nil {
					return nil, err
				}
				res.Assessment = assessment
				moodsRecorded.Inc()
				moodRecorded = true
			}
		}
	}

	if err := repo.UpdateSessionProgress(ctx, s.DB, sess.ID, sess.TurnsAnswered+1, moodRecorded); err != nil {
		return nil, err
	}

	// Auto-title from the first answer if the title is still a placeholder.
	if sess.TurnsAnswered == 0 && s.shouldAutoTitle(sess.Title) {
		if gen := s.generateTitle(answer); gen != "" {
			_ = repo.UpdateSessionTitle(ctx, s.DB, sess.ID, s.clipTitle(gen))
		}
	}

	return res, nil
}

// Transcript returns a page of the session's ordered transcript plus the
// total entry count.
func (s *SessionService) Transcript(ctx context.Context, sessionID string, page, pageSize int) ([]domain.TranscriptEntry, int64, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Transcript",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
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

	if _, err := repo.GetSession(ctx, s.DB, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrSessionNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountEntries(ctx, s.DB, sessionID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.TranscriptEntry{}, 0, nil
	}

	items, err := repo.ListEntriesPage(ctx, s.DB, sessionID, offset, pageSize)
	return items, total, err
}

// List returns all sessions for a user, most recent first.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.ListSessions(ctx, s.DB, userID)
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *SessionService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitleNew)
}

// generateTitle derives a concise title from the first answer.
func (s *SessionService) generateTitle(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(answer), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.titleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *SessionService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

func (s *SessionService) titleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers.
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
