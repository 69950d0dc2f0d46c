package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/toolbelt-cli/toolbelt/internal/processor"
)

// Run is one stored query run.
type Run struct {
	ID        string
	Query     string
	Policy    string
	Model     string
	Selected  []string
	Output    string
	Errors    int
	Duration  time.Duration
	CreatedAt time.Time
}

// Store persists query outcomes in sqlite. It implements
// processor.Recorder.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the history database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: wal mode: %w", err)
	}

	s := &Store{db: db, logger: logger.With("component", "history")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL,
		query       TEXT NOT NULL,
		policy      TEXT NOT NULL,
		model       TEXT NOT NULL,
		selected    TEXT NOT NULL DEFAULT '',
		output      TEXT NOT NULL DEFAULT '',
		errors      INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0
	)`)
	return err
}

// Record stores one outcome.
func (s *Store) Record(ctx context.Context, o *processor.Outcome) error {
	errorCount := 0
	for _, r := range o.Results {
		if r.Err != nil {
			errorCount++
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, query, policy, model, selected, output, errors, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		time.Now().UTC().Format(time.RFC3339),
		o.Query,
		o.Policy,
		o.Model,
		strings.Join(o.Selected, ","),
		o.Output,
		errorCount,
		o.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, query, policy, model, selected, output, errors, duration_ms
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt, selected string
		var durationMs int64
		if err := rows.Scan(&r.ID, &createdAt, &r.Query, &r.Policy, &r.Model, &selected, &r.Output, &r.Errors, &durationMs); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		if selected != "" {
			r.Selected = strings.Split(selected, ",")
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close releases the database. Safe on every exit path.
func (s *Store) Close() error {
	return s.db.Close()
}
