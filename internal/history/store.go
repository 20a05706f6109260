// Package history keeps an optional SQLite audit log of scrub runs.
//
// The log is bookkeeping only: sidecar metadata remains the sole input to
// scheduling, so removing the database never changes what gets verified.
// Schema changes bump the version in store.go; users delete the database to
// adopt the new schema.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible
// version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Run is one recorded invocation.
type Run struct {
	ID             string
	Root           string
	Mode           string
	StartedAt      time.Time
	FinishedAt     time.Time
	FilesChecked   int
	RecordsChecked int
	Failures       int
	Errors         int
}

// FileOutcome is the per-sidecar detail stored with a run.
type FileOutcome struct {
	Path     string
	Records  int
	Failures int
	Skipped  bool
}

// RecordRun persists a completed run and its per-file outcomes in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, files []FileOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, root, mode, started_at, finished_at,
            files_checked, records_checked, failures, errors
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Root,
		run.Mode,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.FilesChecked,
		run.RecordsChecked,
		run.Failures,
		run.Errors,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, file := range files {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO run_files (run_id, path, records, failures, skipped)
             VALUES (?, ?, ?, ?, ?)`,
			run.ID,
			file.Path,
			file.Records,
			file.Failures,
			boolToInt(file.Skipped),
		); err != nil {
			return fmt.Errorf("insert run file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, root, mode, started_at, finished_at,
                files_checked, records_checked, failures, errors
         FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(
			&run.ID, &run.Root, &run.Mode, &started, &finished,
			&run.FilesChecked, &run.RecordsChecked, &run.Failures, &run.Errors,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FilesForRun returns the per-sidecar outcomes stored with a run.
func (s *Store) FilesForRun(ctx context.Context, runID string) ([]FileOutcome, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT path, records, failures, skipped FROM run_files WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []FileOutcome
	for rows.Next() {
		var file FileOutcome
		var skipped int
		if err := rows.Scan(&file.Path, &file.Records, &file.Failures, &skipped); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		file.Skipped = skipped != 0
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
