// Package history keeps a journal of apply runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"warren/internal/converge"
)

// DefaultPath is the journal location used when --history-db is not given.
const DefaultPath = "/var/lib/warren/history.db"

const schemaVersion = 1

// Run is one journal entry.
type Run struct {
	ID         string
	Started    time.Time
	Finished   time.Time
	Noop       bool
	Changed    int
	Unchanged  int
	Failed     int
	Skipped    int
	Summary    string
	Error      string
	Descriptor string // path of the descriptor the run used
}

// Store is the run journal.
type Store struct {
	DB *sql.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping failed: %w", err)
	}

	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var current int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at_ms INTEGER NOT NULL,
		finished_at_ms INTEGER NOT NULL,
		noop BOOLEAN NOT NULL DEFAULT 0,
		changed INTEGER NOT NULL,
		unchanged INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		summary TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		descriptor TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at_ms);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// FromReport builds a journal entry. runErr is the error the run ended with,
// if any.
func FromReport(r *converge.Report, descriptor string, runErr error) Run {
	run := Run{
		ID:         r.RunID,
		Started:    r.Started,
		Finished:   r.Finished,
		Noop:       r.Noop,
		Changed:    r.Changes(),
		Unchanged:  r.Count(converge.EventUnchanged),
		Failed:     r.Count(converge.EventFailed),
		Skipped:    r.Count(converge.EventSkipped),
		Summary:    r.Summary(),
		Descriptor: descriptor,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return run
}

// Record appends run to the journal.
func (s *Store) Record(ctx context.Context, run Run) error {
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO runs (id, started_at_ms, finished_at_ms, noop, changed, unchanged, failed, skipped, summary, error, descriptor)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Started.UnixMilli(), run.Finished.UnixMilli(), run.Noop,
		run.Changed, run.Unchanged, run.Failed, run.Skipped, run.Summary, run.Error, run.Descriptor,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// List returns up to limit runs, newest first. A limit of 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at_ms, finished_at_ms, noop, changed, unchanged, failed, skipped, summary, error, descriptor
	FROM runs ORDER BY started_at_ms DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished int64
		if err := rows.Scan(&run.ID, &started, &finished, &run.Noop, &run.Changed, &run.Unchanged,
			&run.Failed, &run.Skipped, &run.Summary, &run.Error, &run.Descriptor); err != nil {
			return nil, err
		}
		run.Started = time.UnixMilli(started)
		run.Finished = time.UnixMilli(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) Close() error {
	return s.DB.Close()
}
