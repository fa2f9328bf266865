// Package history keeps a journal of sync runs in an embedded SQLite
// database.
//
// Every full refresh, failed refresh and applied patch reported by the
// orchestrator is stored as a Run, so the last successful sync and recent
// failures survive restarts and can be listed from the CLI or over HTTP.
//
// Architecture:
//   - Database file: history.path (default ./data/notegraph.db)
//   - WAL mode: readers never block the recorder
//   - Schema: one sync_runs table indexed by time
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Kind distinguishes full refreshes from patches.
type Kind string

const (
	KindRefresh Kind = "refresh"
	KindPatch   Kind = "patch"
)

// Status is the result of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Run is one journal entry.
type Run struct {
	RunID       string        `json:"runId"`
	Kind        Kind          `json:"kind"`
	Status      Status        `json:"status"`
	Head        string        `json:"head,omitempty"`
	At          time.Time     `json:"at"`
	Duration    time.Duration `json:"duration"`
	Directories int           `json:"directories"`
	Notes       int           `json:"notes"`
	Updated     int           `json:"updated"`
	Removed     int           `json:"removed"`
	Error       string        `json:"error,omitempty"`
}

// DefaultKeep is the number of runs retained by default.
const DefaultKeep = 500

// Store wraps the SQLite connection.
type Store struct {
	conn   *sql.DB
	path   string
	keep   int
	logger *log.Logger
}

// Open creates or opens the journal at path and ensures its schema. keep
// bounds the number of retained runs; zero means DefaultKeep.
//
// The caller must call Close when done.
func Open(path string, keep int, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if keep <= 0 {
		keep = DefaultKeep
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Store{conn: conn, path: path, keep: keep, logger: logger}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if err := s.initSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		run_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,        -- refresh, patch
		status TEXT NOT NULL,      -- success, failure
		head TEXT,
		at TEXT NOT NULL,          -- RFC 3339, UTC
		duration_ns INTEGER NOT NULL DEFAULT 0,
		directories INTEGER NOT NULL DEFAULT 0,
		notes INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		removed INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sync_runs_at ON sync_runs(at);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs(kind, status, at);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Printf("WARNING: Failed to checkpoint WAL: %v", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// Record stores run and prunes entries beyond the retention limit.
func (s *Store) Record(ctx context.Context, run Run) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO sync_runs (run_id, kind, status, head, at, duration_ns, directories, notes, updated, removed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			kind = excluded.kind,
			status = excluded.status,
			head = excluded.head,
			at = excluded.at,
			duration_ns = excluded.duration_ns,
			directories = excluded.directories,
			notes = excluded.notes,
			updated = excluded.updated,
			removed = excluded.removed,
			error = excluded.error
	`,
		run.RunID, string(run.Kind), string(run.Status), nullString(run.Head),
		run.At.UTC().Format(time.RFC3339Nano), int64(run.Duration),
		run.Directories, run.Notes, run.Updated, run.Removed, nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}

	if _, err := s.conn.ExecContext(ctx, `
		DELETE FROM sync_runs WHERE run_id NOT IN (
			SELECT run_id FROM sync_runs ORDER BY at DESC LIMIT ?
		)`, s.keep); err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT run_id, kind, status, head, at, duration_ns, directories, notes, updated, removed, error
		FROM sync_runs
		ORDER BY at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// LastSuccess returns the most recent successful full refresh, or nil if
// there is none.
func (s *Store) LastSuccess(ctx context.Context) (*Run, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT run_id, kind, status, head, at, duration_ns, directories, notes, updated, removed, error
		FROM sync_runs
		WHERE kind = ? AND status = ?
		ORDER BY at DESC
		LIMIT 1
	`, string(KindRefresh), string(StatusSuccess))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var (
			run              Run
			kind, status, at string
			head, errMsg     sql.NullString
			duration         int64
		)
		if err := rows.Scan(&run.RunID, &kind, &status, &head, &at, &duration,
			&run.Directories, &run.Notes, &run.Updated, &run.Removed, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp %q: %w", run.RunID, at, err)
		}
		run.Kind = Kind(kind)
		run.Status = Status(status)
		run.Head = head.String
		run.At = t
		run.Duration = time.Duration(duration)
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(errors.New("failed to iterate history"), err)
	}
	return runs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
