// Package runstore persists run history in SQLite: one row per run, the
// stage events it emitted and the diagnostics it collected. The daemon and
// the inspect command read it; the pipeline's event bus writes it.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/errors"
)

// Run outcomes as stored in the runs table.
const (
	OutcomeRunning   = "running"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (and if needed creates) the history database. Use ":memory:"
// for an ephemeral store.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.StorageError("open", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.StorageError("open", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.StorageError("initialize", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		module TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		outcome TEXT NOT NULL DEFAULT 'running',
		error TEXT NOT NULL DEFAULT '',
		warnings INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS run_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		event TEXT NOT NULL,
		at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
	CREATE TABLE IF NOT EXISTS run_diagnostics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		file TEXT NOT NULL DEFAULT '',
		line INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_run_diagnostics_run ON run_diagnostics(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun records a run as started.
func (s *Store) BeginRun(ctx context.Context, runID, module string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, module, started_at, outcome) VALUES (?, ?, ?, ?)",
		runID, module, startedAt.Unix(), OutcomeRunning,
	)
	if err != nil {
		return errors.StorageError("begin-run", err)
	}
	return nil
}

// Result finalizes a run row.
type Result struct {
	Outcome    string
	Error      string
	Warnings   int
	Errors     int
	Pages      int
	FinishedAt time.Time
}

// FinishRun records a run's outcome.
func (s *Store) FinishRun(ctx context.Context, runID string, res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, outcome = ?, error = ?, warnings = ?, errors = ?, pages = ? WHERE id = ?",
		res.FinishedAt.Unix(), res.Outcome, res.Error, res.Warnings, res.Errors, res.Pages, runID,
	)
	if err != nil {
		return errors.StorageError("finish-run", err)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return errors.StorageError("finish-run", fmt.Errorf("run %s not found", runID))
	}
	return nil
}

// RecordStageEvent appends one stage transition to the run's event log.
func (s *Store) RecordStageEvent(ctx context.Context, runID, stage, event string, at time.Time, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO run_events (run_id, stage, event, at, duration_ms) VALUES (?, ?, ?, ?, ?)",
		runID, stage, event, at.Unix(), duration.Milliseconds(),
	)
	if err != nil {
		return errors.StorageError("record-stage-event", err)
	}
	return nil
}

// RecordDiagnostic appends one diagnostic to the run.
func (s *Store) RecordDiagnostic(ctx context.Context, runID string, d diag.Diagnostic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, line := "", 0
	if d.Location != nil {
		file, line = d.Location.File, d.Location.Line
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO run_diagnostics (run_id, severity, message, platform, file, line) VALUES (?, ?, ?, ?, ?, ?)",
		runID, d.Severity.String(), d.Message, d.Platform, file, line,
	)
	if err != nil {
		return errors.StorageError("record-diagnostic", err)
	}
	return nil
}

// RunSummary is the read model of one run row.
type RunSummary struct {
	ID         string
	Module     string
	Outcome    string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Warnings   int
	Errors     int
	Pages      int
}

// Duration returns the run's wall time, zero while it is still running.
func (r RunSummary) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, module, outcome, error, started_at, finished_at, warnings, errors, pages FROM runs ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, errors.StorageError("recent-runs", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Module, &r.Outcome, &r.Error, &started, &finished, &r.Warnings, &r.Errors, &r.Pages); err != nil {
			return nil, errors.StorageError("recent-runs", err)
		}
		r.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			t := time.Unix(finished.Int64, 0)
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("recent-runs", err)
	}
	return out, nil
}

// StageEvent is one recorded stage transition.
type StageEvent struct {
	Stage    string
	Event    string
	At       time.Time
	Duration time.Duration
}

// RunEvents returns a run's stage events in emission order.
func (s *Store) RunEvents(ctx context.Context, runID string) ([]StageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT stage, event, at, duration_ms FROM run_events WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, errors.StorageError("run-events", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StageEvent
	for rows.Next() {
		var e StageEvent
		var at, ms int64
		if err := rows.Scan(&e.Stage, &e.Event, &at, &ms); err != nil {
			return nil, errors.StorageError("run-events", err)
		}
		e.At = time.Unix(at, 0)
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("run-events", err)
	}
	return out, nil
}

// Diagnostics returns a run's recorded diagnostics in insertion order.
func (s *Store) Diagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT severity, message, platform, file, line FROM run_diagnostics WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, errors.StorageError("diagnostics", err)
	}
	defer func() { _ = rows.Close() }()

	var out []diag.Diagnostic
	for rows.Next() {
		var d diag.Diagnostic
		var severity, file string
		var line int
		if err := rows.Scan(&severity, &d.Message, &d.Platform, &file, &line); err != nil {
			return nil, errors.StorageError("diagnostics", err)
		}
		d.Severity = parseSeverity(severity)
		if file != "" || line != 0 {
			d.Location = &diag.Location{File: file, Line: line}
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("diagnostics", err)
	}
	return out, nil
}

// Prune keeps the newest keep runs and drops everything older, including
// their events and diagnostics.
func (s *Store) Prune(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep <= 0 {
		keep = 100
	}
	stmts := []string{
		"DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?)",
		"DELETE FROM run_events WHERE run_id NOT IN (SELECT id FROM runs)",
		"DELETE FROM run_diagnostics WHERE run_id NOT IN (SELECT id FROM runs)",
	}
	for i, stmt := range stmts {
		var err error
		if i == 0 {
			_, err = s.db.ExecContext(ctx, stmt, keep)
		} else {
			_, err = s.db.ExecContext(ctx, stmt)
		}
		if err != nil {
			return errors.StorageError("prune", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func parseSeverity(s string) diag.Severity {
	switch s {
	case "error":
		return diag.SeverityError
	case "warning":
		return diag.SeverityWarning
	default:
		return diag.SeverityInfo
	}
}
