//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatreport/internal/analyzer"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_SaveAndHistory(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	chat := "integration-test-" + uuid.New().String()[:8]
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM project_extracts WHERE chat_name = $1", chat)
	})

	a := &analyzer.Analysis{
		Summary:         "Integration test analysis",
		KeyMilestones:   []string{"kickoff", "foundation"},
		Recommendations: []string{"keep going"},
	}
	first := NewExtract(chat, a, time.Now().Add(-time.Hour))
	second := NewExtract(chat, a, time.Now())

	for _, e := range []Extract{first, second} {
		id, err := s.SaveExtract(ctx, e)
		if err != nil {
			t.Fatalf("SaveExtract failed: %v", err)
		}
		if id != e.ID {
			t.Errorf("expected id %s, got %s", e.ID, id)
		}
	}

	hist, err := s.History(ctx, chat)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 extracts, got %d", len(hist))
	}
	if hist[0].ID != second.ID {
		t.Errorf("expected newest first, got %s", hist[0].ID)
	}
	if hist[0].ProgressPercentage != 30 {
		t.Errorf("expected progress 30, got %v", hist[0].ProgressPercentage)
	}
	if len(hist[0].Milestones) != 2 || hist[0].KeyInsights[0] != "keep going" {
		t.Errorf("unexpected arrays: %v / %v", hist[0].Milestones, hist[0].KeyInsights)
	}

	recent, err := s.Recent(ctx)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) == 0 || len(recent) > RecentLimit {
		t.Errorf("expected 1..%d summaries, got %d", RecentLimit, len(recent))
	}
}

func TestIntegration_UpdateProgress(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	chat := "integration-test-" + uuid.New().String()[:8]
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM project_extracts WHERE chat_name = $1", chat)
	})

	id, err := s.SaveExtract(ctx, NewExtract(chat, &analyzer.Analysis{Summary: "s"}, time.Now()))
	if err != nil {
		t.Fatalf("SaveExtract failed: %v", err)
	}

	if err := s.UpdateProgress(ctx, id, 75, []string{"new insight"}); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	hist, err := s.History(ctx, chat)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if hist[0].ProgressPercentage != 75 || hist[0].KeyInsights[0] != "new insight" {
		t.Errorf("update not applied: %+v", hist[0])
	}

	err = s.UpdateProgress(ctx, uuid.New(), 10, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_DeleteOlderThan(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	chat := "integration-test-" + uuid.New().String()[:8]
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM project_extracts WHERE chat_name = $1", chat)
	})

	a := &analyzer.Analysis{Summary: "s"}
	if _, err := s.SaveExtract(ctx, NewExtract(chat, a, time.Now().AddDate(0, 0, -400))); err != nil {
		t.Fatalf("SaveExtract old failed: %v", err)
	}
	if _, err := s.SaveExtract(ctx, NewExtract(chat, a, time.Now())); err != nil {
		t.Fatalf("SaveExtract new failed: %v", err)
	}

	n, err := s.DeleteOlderThan(ctx, 365)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if n < 1 {
		t.Errorf("expected at least 1 deletion, got %d", n)
	}
	hist, err := s.History(ctx, chat)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(hist) != 1 {
		t.Errorf("expected 1 remaining extract, got %d", len(hist))
	}

	if _, err := s.DeleteOlderThan(ctx, 0); err == nil {
		t.Error("expected error for non-positive days")
	}
}
