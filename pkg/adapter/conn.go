package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// ErrConnOpen is returned by EnableAsync while the connection is open.
var ErrConnOpen = errors.New("connection must be closed to enable async execution")

// Conn is a core.Connection holding one dedicated connection from a
// database/sql pool. A Conn starts closed and synchronous.
type Conn struct {
	db     *sql.DB
	logger *slog.Logger

	mu    sync.Mutex
	conn  *sql.Conn
	state core.ConnState
	async bool
}

// NewConn creates a closed connection over db.
func NewConn(db *sql.DB, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Conn{db: db, logger: logger}
}

// Open reserves a connection from the pool.
func (c *Conn) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == core.ConnOpen {
		return nil
	}
	conn, err := c.db.Conn(ctx)
	if err != nil {
		c.state = core.ConnBroken
		return fmt.Errorf("failed to open connection: %w", err)
	}
	c.conn = conn
	c.state = core.ConnOpen
	c.logger.Debug("connection opened", slog.Bool("async", c.async))
	return nil
}

// Close returns the connection to the pool.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.state = core.ConnClosed
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.state = core.ConnClosed
	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// State reports the connection state.
func (c *Conn) State() core.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AsyncEnabled reports whether commands run off the caller's goroutine.
func (c *Conn) AsyncEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.async
}

// EnableAsync makes subsequent executions asynchronous.
func (c *Conn) EnableAsync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == core.ConnOpen {
		return ErrConnOpen
	}
	c.async = true
	return nil
}

func (c *Conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil, errors.New("connection is not open")
	}
	//nolint:rowserrcheck // rows.Err() is checked by the filler after each page
	return conn.QueryContext(ctx, query, args...)
}

// Ensure Conn implements core.Connection
var _ core.Connection = (*Conn)(nil)
