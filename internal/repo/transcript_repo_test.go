package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hearu/hearu-backend/internal/domain"
)

// test DB helper
func newTranscriptDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("transcript_repo_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestAppendEntry_InsertsRow(t *testing.T) {
	db := newTranscriptDB(t, &domain.Session{}, &domain.TranscriptEntry{})
	ctx := context.Background()

	// seed session in case FK constraints are enforced
	if err := db.Create(&domain.Session{ID: "s1", UserID: "u1", Mode: domain.ModeQuiz, Title: "t"}).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}

	e, err := AppendEntry(ctx, db, "s1", domain.RoleUser, "hello")
	if err != nil {
		t.Fatalf("AppendEntry error: %v", err)
	}
	if e.ID == "" || e.SessionID != "s1" || e.Role != domain.RoleUser || e.Content != "hello" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.CreatedAt.IsZero() || time.Since(e.CreatedAt) > time.Minute {
		t.Fatalf("CreatedAt not set reasonably: %v", e.CreatedAt)
	}
}

func TestListEntries_DeterministicOrder(t *testing.T) {
	db := newTranscriptDB(t, &domain.TranscriptEntry{})
	ctx := context.Background()

	// same CreatedAt for first two; ID "a" should come before "b"
	t0 := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(1 * time.Second)

	eA := domain.TranscriptEntry{ID: "a", SessionID: "s2", Role: domain.RoleUser, Content: "x", CreatedAt: t0}
	eB := domain.TranscriptEntry{ID: "b", SessionID: "s2", Role: domain.RoleAssistant, Content: "y", CreatedAt: t0}
	eZ := domain.TranscriptEntry{ID: "z", SessionID: "s2", Role: domain.RoleUser, Content: "z", CreatedAt: t1}
	if err := db.Create(&eB).Error; err != nil { // insert out of order on purpose
		t.Fatalf("seed eB: %v", err)
	}
	if err := db.Create(&eA).Error; err != nil {
		t.Fatalf("seed eA: %v", err)
	}
	if err := db.Create(&eZ).Error; err != nil {
		t.Fatalf("seed eZ: %v", err)
	}

	all, err := ListEntries(ctx, db, "s2")
	if err != nil {
		t.Fatalf("ListEntries error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[1].ID != "b" || all[2].ID != "z" {
		t.Fatalf("unexpected order: %+v", all)
	}
}

func TestCountEntries_Error_NoTable(t *testing.T) {
	db := newTranscriptDB(t /* no migrations */)
	if _, err := CountEntries(context.Background(), db, "sx"); err == nil {
		t.Fatalf("expected error due to missing transcript_entries table")
	}
}

func TestCountEntries_Success(t *testing.T) {
	db := newTranscriptDB(t, &domain.TranscriptEntry{})
	ctx := context.Background()

	for i, sid := range []string{"sx", "sx", "sy"} {
		e := domain.TranscriptEntry{ID: fmt.Sprintf("e%d", i), SessionID: sid, Role: domain.RoleUser, Content: "c"}
		if err := db.Create(&e).Error; err != nil {
			t.Fatalf("seed e%d: %v", i, err)
		}
	}

	total, err := CountEntries(ctx, db, "sx")
	if err != nil {
		t.Fatalf("CountEntries error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2, got %d", total)
	}
}

func TestListEntriesPage_Pagination(t *testing.T) {
	db := newTranscriptDB(t, &domain.TranscriptEntry{})
	ctx := context.Background()

	base := time.Date(2025, 7, 1, 11, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		e := domain.TranscriptEntry{
			ID:        string(rune('a' + i - 1)),
			SessionID: "s3",
			Role:      domain.RoleUser,
			Content:   "x",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&e).Error; err != nil {
			t.Fatalf("seed e%d: %v", i, err)
		}
	}

	out, err := ListEntriesPage(ctx, db, "s3", 1, 2) // expect 2nd and 3rd in order
	if err != nil {
		t.Fatalf("ListEntriesPage error: %v", err)
	}
	if len(out) != 2 || out[0].ID != "b" || out[1].ID != "c" {
		t.Fatalf("unexpected page slice: %+v", out)
	}
}

func TestTranscriptStore_AppendAndReadAll(t *testing.T) {
	db := newTranscriptDB(t, &domain.TranscriptEntry{})
	ctx := context.Background()
	store := &TranscriptStore{DB: db}

	if err := store.Append(ctx, "s4", domain.RoleUser, "first"); err != nil {
		t.Fatalf("Append user: %v", err)
	}
	if err := store.Append(ctx, "s4", domain.RoleAssistant, "second"); err != nil {
		t.Fatalf("Append assistant: %v", err)
	}

	got, err := store.ReadAll(ctx, "s4")
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(got) != 2 || got[0].Content != "first" || got[1].Content != "second" {
		t.Fatalf("unexpected transcript: %+v", got)
	}
	if got[0].Role != domain.RoleUser || got[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", got)
	}
}
