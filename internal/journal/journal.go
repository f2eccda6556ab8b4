// Package journal records the history of fill operations in SQLite.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // sqlite driver
)

var errNotOpened = errors.New("database not opened")

// Status is the outcome of a fill.
type Status string

// Fill statuses.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// StatusFor maps the outcome of a finished fill to a status.
// A failure wins over cancellation.
func StatusFor(err error, cancelled bool) Status {
	switch {
	case err != nil:
		return StatusFailed
	case cancelled:
		return StatusCancelled
	default:
		return StatusCompleted
	}
}

// Entry is one recorded fill.
type Entry struct {
	ID         string
	Query      string
	Target     string
	PageSize   int
	Status     Status
	StartedAt  time.Time
	FinishedAt *time.Time
	Pages      int
	Rows       int
	Error      string
}

// Duration returns how long the fill ran, or zero while it is running.
func (e *Entry) Duration() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store is a fill journal backed by a SQLite database.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the journal at path and migrates it.
// Use ":memory:" for an in-memory journal.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("journal opened", slog.String("path", path))
	return s, nil
}

// Path returns the path the journal was opened with.
func (s *Store) Path() string { return s.path }

// Close closes the journal database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Begin records a running fill. An empty id is replaced by a new UUID.
func (s *Store) Begin(ctx context.Context, id, query, target string, pageSize int) (*Entry, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if id == "" {
		id = uuid.New().String()
	}

	e := &Entry{
		ID:        id,
		Query:     query,
		Target:    target,
		PageSize:  pageSize,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("recording fill", slog.String("id", id), slog.String("target", target))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fills (id, query, target, page_size, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Query, e.Target, e.PageSize, string(e.Status), e.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record fill: %w", err)
	}
	return e, nil
}

// Finish records the outcome of the fill with the given id.
func (s *Store) Finish(ctx context.Context, id string, status Status, pages, rows int, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE fills
		SET status = ?, finished_at = ?, page_count = ?, row_count = ?, error = ?
		WHERE id = ?`,
		string(status), time.Now().UTC(), pages, rows, errVal, id)
	if err != nil {
		return fmt.Errorf("failed to finish fill: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fill not found: %s", id)
	}
	return nil
}

// Get retrieves a fill by ID.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx, selectFills+" WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fill not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fill: %w", err)
	}
	return e, nil
}

// List returns the most recent fills, newest first, up to limit.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, selectFills+" ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fills: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fills: %w", err)
	}
	return entries, nil
}

const selectFills = `
	SELECT id, query, target, page_size, status, started_at, finished_at, page_count, row_count, error
	FROM fills`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e        Entry
		status   string
		finished sql.NullTime
		errMsg   sql.NullString
	)
	if err := sc.Scan(&e.ID, &e.Query, &e.Target, &e.PageSize, &status,
		&e.StartedAt, &finished, &e.Pages, &e.Rows, &errMsg); err != nil {
		return nil, err
	}
	e.Status = Status(status)
	if finished.Valid {
		t := finished.Time
		e.FinishedAt = &t
	}
	e.Error = errMsg.String
	return &e, nil
}
