package runstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/docweaver/internal/diag"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBeginAndFinishRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := s.BeginRun(ctx, "run-1", "mylib", started); err != nil {
		t.Fatalf("begin run: %v", err)
	}

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Outcome != OutcomeRunning {
		t.Errorf("expected outcome %q, got %q", OutcomeRunning, runs[0].Outcome)
	}
	if runs[0].FinishedAt != nil {
		t.Error("expected unfinished run to have nil FinishedAt")
	}
	if runs[0].Duration() != 0 {
		t.Errorf("expected zero duration while running, got %v", runs[0].Duration())
	}

	finished := started.Add(42 * time.Second)
	err = s.FinishRun(ctx, "run-1", Result{
		Outcome:    OutcomeSucceeded,
		Warnings:   2,
		Pages:      17,
		FinishedAt: finished,
	})
	if err != nil {
		t.Fatalf("finish run: %v", err)
	}

	runs, err = s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	got := runs[0]
	if got.Outcome != OutcomeSucceeded {
		t.Errorf("expected outcome %q, got %q", OutcomeSucceeded, got.Outcome)
	}
	if got.Warnings != 2 || got.Pages != 17 {
		t.Errorf("unexpected counters: warnings=%d pages=%d", got.Warnings, got.Pages)
	}
	if got.Duration() != 42*time.Second {
		t.Errorf("expected 42s duration, got %v", got.Duration())
	}
}

func TestFinishUnknownRunFails(t *testing.T) {
	s := openTestStore(t)

	err := s.FinishRun(context.Background(), "no-such-run", Result{
		Outcome:    OutcomeFailed,
		FinishedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := s.BeginRun(ctx, id, "mylib", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("begin %s: %v", id, err)
		}
	}

	runs, err := s.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("expected newest first, got %s then %s", runs[0].ID, runs[1].ID)
	}
}

func TestStageEventsKeepEmissionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := s.BeginRun(ctx, "run-1", "mylib", at); err != nil {
		t.Fatalf("begin run: %v", err)
	}

	stages := []string{"translate", "merge", "render"}
	for i, stage := range stages {
		err := s.RecordStageEvent(ctx, "run-1", stage, "completed", at.Add(time.Duration(i)*time.Second), 150*time.Millisecond)
		if err != nil {
			t.Fatalf("record %s: %v", stage, err)
		}
	}

	events, err := s.RunEvents(ctx, "run-1")
	if err != nil {
		t.Fatalf("run events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, stage := range stages {
		if events[i].Stage != stage {
			t.Errorf("event %d: expected stage %q, got %q", i, stage, events[i].Stage)
		}
	}
	if events[0].Duration != 150*time.Millisecond {
		t.Errorf("expected 150ms duration, got %v", events[0].Duration)
	}
}

func TestDiagnosticsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.BeginRun(ctx, "run-1", "mylib", time.Now()); err != nil {
		t.Fatalf("begin run: %v", err)
	}

	recorded := []diag.Diagnostic{
		{
			Severity: diag.SeverityWarning,
			Message:  "declaration has no documentation",
			Platform: "jvm",
			Location: &diag.Location{File: "src/Deque.kt", Line: 12},
		},
		{
			Severity: diag.SeverityError,
			Message:  "unresolved reference",
		},
	}
	for _, d := range recorded {
		if err := s.RecordDiagnostic(ctx, "run-1", d); err != nil {
			t.Fatalf("record diagnostic: %v", err)
		}
	}

	got, err := s.Diagnostics(ctx, "run-1")
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(got))
	}
	if got[0].Severity != diag.SeverityWarning || got[0].Platform != "jvm" {
		t.Errorf("unexpected first diagnostic: %+v", got[0])
	}
	if got[0].Location == nil || got[0].Location.File != "src/Deque.kt" || got[0].Location.Line != 12 {
		t.Errorf("expected location to round-trip, got %+v", got[0].Location)
	}
	if got[1].Location != nil {
		t.Errorf("expected nil location for locationless diagnostic, got %+v", got[1].Location)
	}
}

func TestPruneKeepsNewestRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		if err := s.BeginRun(ctx, id, "mylib", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("begin %s: %v", id, err)
		}
		if err := s.RecordStageEvent(ctx, id, "render", "completed", base, time.Second); err != nil {
			t.Fatalf("record event: %v", err)
		}
	}

	if err := s.Prune(ctx, 2); err != nil {
		t.Fatalf("prune: %v", err)
	}

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs after prune, got %d", len(runs))
	}
	if runs[0].ID != "e" || runs[1].ID != "d" {
		t.Errorf("expected newest runs kept, got %s and %s", runs[0].ID, runs[1].ID)
	}

	events, err := s.RunEvents(ctx, "a")
	if err != nil {
		t.Fatalf("run events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected pruned run's events gone, got %d", len(events))
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state", "history.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.BeginRun(context.Background(), "run-1", "mylib", time.Now()); err != nil {
		t.Fatalf("begin run: %v", err)
	}
}
