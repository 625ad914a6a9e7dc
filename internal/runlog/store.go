package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"imageseo/internal/services"
)

// Trigger identifies what started a pipeline run.
type Trigger string

const (
	TriggerAPI      Trigger = "api"
	TriggerWebhook  Trigger = "webhook"
	TriggerSchedule Trigger = "schedule"
	TriggerCLI      Trigger = "cli"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID           string
	ClientID     string
	SiteURL      string
	Trigger      Trigger
	Processed    int
	Errors       int
	Total        int
	ErrorSummary string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Store keeps run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the run history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "runlog", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrPersistence, "runlog", "open",
				fmt.Sprintf("apply pragma %q", pragma), execErr)
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

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	site_url TEXT NOT NULL,
	trigger_source TEXT NOT NULL,
	processed INTEGER NOT NULL DEFAULT 0,
	errors INTEGER NOT NULL DEFAULT 0,
	total INTEGER NOT NULL DEFAULT 0,
	error_summary TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_client ON runs(client_id, started_at);
`
	if err := retryOnBusy(ensureContext(ctx), func() error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	}); err != nil {
		return services.Wrap(services.ErrPersistence, "runlog", "init schema", "create tables", err)
	}
	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Record inserts a finished run. A missing ID is filled in.
func (s *Store) Record(ctx context.Context, run Run) error {
	ctx = ensureContext(ctx)
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (id, client_id, site_url, trigger_source, processed, errors, total, error_summary, started_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.ClientID, run.SiteURL, string(run.Trigger),
			run.Processed, run.Errors, run.Total, run.ErrorSummary,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.FinishedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
	if err != nil {
		return services.Wrap(services.ErrPersistence, "runlog", "record", "insert run", err)
	}
	return nil
}

// Recent returns the most recent runs across all clients, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx,
		`SELECT id, client_id, site_url, trigger_source, processed, errors, total, error_summary, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
}

// ForClient returns the most recent runs for one client, newest first.
func (s *Store) ForClient(ctx context.Context, clientID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx,
		`SELECT id, client_id, site_url, trigger_source, processed, errors, total, error_summary, started_at, finished_at
		 FROM runs WHERE client_id = ? ORDER BY started_at DESC LIMIT ?`, clientID, limit)
}

func (s *Store) query(ctx context.Context, stmt string, args ...any) ([]Run, error) {
	ctx = ensureContext(ctx)
	var runs []Run
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, stmt, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		runs = runs[:0]
		for rows.Next() {
			var (
				run      Run
				trigger  string
				started  string
				finished string
			)
			if err := rows.Scan(&run.ID, &run.ClientID, &run.SiteURL, &trigger,
				&run.Processed, &run.Errors, &run.Total, &run.ErrorSummary,
				&started, &finished); err != nil {
				return err
			}
			run.Trigger = Trigger(trigger)
			if parsed, perr := time.Parse(time.RFC3339Nano, started); perr == nil {
				run.StartedAt = parsed
			}
			if parsed, perr := time.Parse(time.RFC3339Nano, finished); perr == nil {
				run.FinishedAt = parsed
			}
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "runlog", "query", "select runs", err)
	}
	return runs, nil
}
