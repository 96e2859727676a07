package state

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
	"github.com/Futsu-coder/Emotion-Detection/internal/vision"
)

func setupTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "db", "sessions.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func result(session string, cycle uint64, slot int, label string) pipeline.Result {
	return pipeline.Result{
		Session:       session,
		Cycle:         cycle,
		Slot:          slot,
		Region:        vision.Region{X: 10 * slot, Y: 5, Width: 40, Height: 40},
		RawLabel:      label,
		SmoothedLabel: label,
		Confidence:    0.75,
		Timestamp:     time.Now(),
	}
}

func TestNewDatabase_CreatesSchema(t *testing.T) {
	db := setupTestDatabase(t)

	for _, table := range []string{"sessions", "results"} {
		var name string
		err := db.GetDB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s should exist: %v", table, err)
		}
	}
}

func TestDatabase_SessionLifecycle(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	start := time.Now().Add(-time.Minute)
	if err := db.CreateSession(ctx, "s-1", start); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := db.CreateSession(ctx, "s-1", start); err != nil {
		t.Fatalf("Duplicate CreateSession should be ignored, got: %v", err)
	}

	err := db.InsertResults(ctx, []pipeline.Result{
		result("s-1", 1, 0, "happy"),
		result("s-1", 1, 1, "sad"),
		result("s-1", 2, 0, "happy"),
	})
	if err != nil {
		t.Fatalf("InsertResults failed: %v", err)
	}
	if err := db.FinishSession(ctx, "s-1", time.Now(), 4); err != nil {
		t.Fatalf("FinishSession failed: %v", err)
	}

	s, err := db.GetSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if s.ResultCount != 3 {
		t.Errorf("Expected 3 results, got %d", s.ResultCount)
	}
	if s.DroppedCount != 4 {
		t.Errorf("Expected 4 dropped, got %d", s.DroppedCount)
	}
	if s.StoppedAt == nil {
		t.Error("Expected stopped_at to be set")
	}
	if d := s.StartedAt.Sub(start); d > time.Second || d < -time.Second {
		t.Errorf("started_at drifted by %v", d)
	}

	results, err := db.ListResults(ctx, "s-1", 0, 0)
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	got := results[1]
	if got.Cycle != 1 || got.Slot != 1 || got.RawLabel != "sad" {
		t.Errorf("Unexpected second result: %+v", got)
	}
	if got.Region != (vision.Region{X: 10, Y: 5, Width: 40, Height: 40}) {
		t.Errorf("Region did not round trip: %v", got.Region)
	}
	if math.Abs(float64(got.Confidence)-0.75) > 1e-6 {
		t.Errorf("Expected confidence 0.75, got %v", got.Confidence)
	}

	page, err := db.ListResults(ctx, "s-1", 1, 2)
	if err != nil {
		t.Fatalf("ListResults page failed: %v", err)
	}
	if len(page) != 1 || page[0].Cycle != 2 {
		t.Errorf("Expected one result from cycle 2, got %+v", page)
	}
}

func TestDatabase_NotFound(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	if _, err := db.GetSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if err := db.FinishSession(ctx, "missing", time.Now(), 0); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestDatabase_ListSessionsNewestFirst(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	if err := db.CreateSession(ctx, "old", base); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := db.CreateSession(ctx, "new", base.Add(time.Minute)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	sessions, err := db.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "new" {
		t.Errorf("Expected newest session first, got %s", sessions[0].ID)
	}
	if sessions[0].StoppedAt != nil {
		t.Error("Open session should have no stopped_at")
	}

	limited, err := db.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected limit 1, got %d", len(limited))
	}
}
