package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"draftflow/pkg/workflow"
)

const defaultListLimit = 50

// SQLite keeps run history and drafts in a SQLite database.
type SQLite struct {
	db      *sql.DB
	writeMu sync.Mutex
	now     func() time.Time
	log     *slog.Logger
}

// NewSQLite opens (and creates when missing) the database at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLite{
		db:  db,
		now: time.Now,
		log: slog.Default().With("component", "store.sqlite"),
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLite) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		command TEXT NOT NULL DEFAULT '',
		trigger_source TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		state_json TEXT,
		error TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS drafts (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_drafts_run ON drafts(run_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Save implements workflow.Sink. No-op results are skipped.
func (s *SQLite) Save(ctx context.Context, result workflow.Result, at time.Time) error {
	if result.Type() == workflow.ResultNoOp || result.Type() == "" {
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `INSERT INTO drafts (id, run_id, type, result_json, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		uuid.NewString(), RunIDFromContext(ctx), string(result.Type()), string(payload), at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

// RecordRun inserts run or updates the stored row with the same id.
func (s *SQLite) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}

	var stateJSON any
	if run.State != nil {
		encoded, err := workflow.EncodeState(*run.State)
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		stateJSON = string(encoded)
	}

	var finishedAt any
	if !run.FinishedAt.IsZero() {
		finishedAt = run.FinishedAt.UnixMilli()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO runs (id, mode, command, trigger_source, status, state_json, error, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		state_json = COALESCE(excluded.state_json, runs.state_json),
		error = excluded.error,
		finished_at = excluded.finished_at`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, string(run.Mode), run.Command, run.Trigger, string(run.Status),
		stateJSON, run.Error, run.StartedAt.UnixMilli(), finishedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

const runColumns = `id, mode, command, trigger_source, status, state_json, error, started_at, finished_at`

// GetRun returns the run with id, or ErrNotFound.
func (s *SQLite) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit selects
// the default page size.
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.Warn("failed to close runs rows", "error", closeErr)
		}
	}()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ListDrafts returns the drafts saved for runID, oldest first. An empty runID
// lists the most recent drafts across runs.
func (s *SQLite) ListDrafts(ctx context.Context, runID string, limit int) ([]Draft, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, run_id, type, result_json, created_at FROM drafts WHERE run_id = ? ORDER BY created_at, id LIMIT ?`
	args := []any{runID, limit}
	if runID == "" {
		query = `SELECT id, run_id, type, result_json, created_at FROM drafts ORDER BY created_at DESC, id LIMIT ?`
		args = []any{limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.Warn("failed to close drafts rows", "error", closeErr)
		}
	}()

	drafts := make([]Draft, 0)
	for rows.Next() {
		var (
			draft     Draft
			draftType string
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&draft.ID, &draft.RunID, &draftType, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan draft row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &draft.Result); err != nil {
			return nil, fmt.Errorf("decode draft %s: %w", draft.ID, err)
		}
		draft.Type = workflow.ResultType(draftType)
		draft.CreatedAt = time.UnixMilli(createdAt)
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}

	return drafts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		mode       string
		status     string
		stateJSON  sql.NullString
		startedAt  int64
		finishedAt sql.NullInt64
	)

	err := row.Scan(&run.ID, &mode, &run.Command, &run.Trigger, &status, &stateJSON, &run.Error, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run row: %w", err)
	}

	run.Mode = workflow.Mode(mode)
	run.Status = RunStatus(status)
	run.StartedAt = time.UnixMilli(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = time.UnixMilli(finishedAt.Int64)
	}
	if stateJSON.Valid && stateJSON.String != "" {
		state, err := workflow.DecodeState([]byte(stateJSON.String))
		if err != nil {
			return nil, fmt.Errorf("decode state of run %s: %w", run.ID, err)
		}
		run.State = &state
	}

	return &run, nil
}
