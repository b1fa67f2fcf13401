// Package domain defines the persistence models for users, conversation
// sessions, transcript entries, mood assessments, and flag records. These
// types are mapped with GORM and form the core data layer of the Hear-U
// backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Conversation modes. A quiz session walks the user through five fixed
// multiple-choice questions and ends with a mood classification; a freeform
// session is an open-ended supportive chat with no terminal state.
const (
	ModeQuiz     = "quiz"
	ModeFreeform = "freeform"
)

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User represents a registered account. Only the fields needed by the mood
// surface are modeled here; full profile/auth handling lives elsewhere.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username: unique handle, enforced by DB constraint.
//   - Email: contact address (not unique; optional).
//   - PasswordHash: bcrypt hash, never serialized.
type User struct {
	ID           string         `json:"id"       gorm:"type:char(36);primaryKey"`
	Username     string         `json:"username" gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	Email        string         `json:"email"    gorm:"type:varchar(255)"`
	PasswordHash string         `json:"-"        gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"        gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Session represents one continuous mood-assessment or supportive-chat
// conversation owned by a user. The identifier is immutable; once greeted, a
// session is never deleted by the application (retention is an operational
// concern). A session whose greeting fails is rolled back at creation.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), also the transcript key.
//   - UserID: identifier of the session owner; indexed for retrieval.
//   - Mode: "quiz" or "freeform" (enforced by DB constraint).
//   - Title: human-readable title (auto-generated from the first answer).
//   - TurnsAnswered: number of user turns processed so far.
//   - MoodRecorded: whether this session already produced a mood assessment;
//     guarantees at most one assessment per session.
type Session struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID        string         `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_sessions"`
	Mode          string         `json:"mode"           gorm:"type:varchar(16);not null;check:mode IN ('quiz','freeform')"`
	Title         string         `json:"title"          gorm:"type:varchar(255);not null;default:'New session'"`
	TurnsAnswered int            `json:"turns_answered" gorm:"not null;default:0"`
	MoodRecorded  bool           `json:"mood_recorded"  gorm:"not null;default:false"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// IsQuiz reports whether the session runs the five-question quiz.
func (s Session) IsQuiz() bool { return s.Mode == ModeQuiz }

// TranscriptEntry is a single utterance within a session. Entries are
// append-only: they are never edited or removed, and their (CreatedAt, ID)
// order is the authoritative turn order fed back to the language model.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - SessionID: foreign key to the owning session (indexed).
//   - Role: "user" or "assistant" (enforced by DB constraint).
//   - Content: full text of the turn, reasoning markup already stripped.
type TranscriptEntry struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string         `json:"session_id" gorm:"type:char(36);not null;index:idx_session_entries,priority:1"`
	Role      string         `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_session_entries,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Session is the parent conversation. Entries are cascade-deleted
	// if their session is removed out-of-band.
	Session Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for TranscriptEntry.
func (TranscriptEntry) TableName() string { return "transcript_entries" }

// MoodAssessment records a terminal mood classification for a user, either
// produced by a completed quiz session or submitted directly via the mood
// popup. Assessments across sessions form the user's mood history.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owner of the assessment (indexed).
//   - SessionID: originating session for provenance; empty for popup entries.
//   - Mood: one of the five canonical labels (enforced by DB constraint).
//   - AssessedAt: classification time; history is ordered by this column.
type MoodAssessment struct {
	ID         string         `json:"id"                   gorm:"type:char(36);primaryKey"`
	UserID     string         `json:"user_id"              gorm:"type:varchar(64);not null;index:idx_user_assessments"`
	SessionID  string         `json:"session_id,omitempty" gorm:"type:char(36);index"`
	Mood       Mood           `json:"mood"                 gorm:"type:varchar(16);not null;check:mood IN ('very bad','bad','neutral','good','very good')"`
	AssessedAt time.Time      `json:"assessed_at"          gorm:"index"`
	DeletedAt  gorm.DeletedAt `json:"-"                    gorm:"index"`
}

// TableName returns the database table name for MoodAssessment.
func (MoodAssessment) TableName() string { return "mood_assessments" }

// FlagRecord is persisted evidence that a single user message exceeded the
// criticality threshold. The unique index makes inserts idempotent per
// (user, session, reason): re-flagging the same message is a no-op.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owner of the flagged message.
//   - SessionID: session in which the message was sent (provenance).
//   - Reason: free-text explanation from the assessment pass.
//   - Percentage: criticality score in [0,100].
type FlagRecord struct {
	ID         string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_flag_user_session_reason"`
	SessionID  string    `json:"session_id" gorm:"type:char(36);not null;uniqueIndex:ux_flag_user_session_reason"`
	Reason     string    `json:"reason"     gorm:"type:varchar(512);not null;uniqueIndex:ux_flag_user_session_reason,length:256"`
	Percentage int       `json:"percentage" gorm:"not null;check:percentage BETWEEN 0 AND 100"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for FlagRecord.
func (FlagRecord) TableName() string { return "flag_records" }
