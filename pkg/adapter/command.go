package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// Command is a core.AsyncCommand running a query on a Conn. When the
// connection is tagged async the query runs on its own goroutine;
// otherwise BeginExecute runs it inline.
type Command struct {
	text string
	args []any
	conn *Conn

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCommand binds query and its arguments to conn.
func NewCommand(conn *Conn, query string, args ...any) *Command {
	return &Command{text: query, args: args, conn: conn}
}

// Text returns the query text.
func (c *Command) Text() string { return c.text }

// Args returns the query arguments.
func (c *Command) Args() []any { return c.args }

// Connection returns the command's connection, or nil if it has none.
func (c *Command) Connection() core.Connection {
	if c.conn == nil {
		return nil
	}
	return c.conn
}

type pending struct {
	done   chan struct{}
	rows   *sql.Rows
	err    error
	cancel context.CancelFunc
}

func (p *pending) Done() <-chan struct{} { return p.done }

// BeginExecute starts the query. done, if not nil, runs once the query has
// returned its first result or failed.
func (c *Command) BeginExecute(ctx context.Context, done func(core.Pending)) core.Pending {
	execCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	p := &pending{done: make(chan struct{}), cancel: cancel}
	run := func() {
		p.rows, p.err = c.conn.query(execCtx, c.text, c.args...)
		close(p.done)
		if done != nil {
			done(p)
		}
	}

	if c.conn.AsyncEnabled() {
		go run()
	} else {
		run()
	}
	return p
}

// EndExecute waits for the execution behind p and returns its rows.
// Closing the returned cursor also releases the execution context.
func (c *Command) EndExecute(p core.Pending) (core.Cursor, error) {
	ep, ok := p.(*pending)
	if !ok {
		return nil, fmt.Errorf("pending execution %T was not started by this command", p)
	}
	<-ep.done
	if ep.err != nil {
		ep.cancel()
		return nil, fmt.Errorf("failed to execute query: %w", ep.err)
	}
	return &cursor{Rows: core.Rows{Rows: ep.rows}, cancel: ep.cancel}, nil
}

// Abort cancels the context of the running execution, which interrupts
// the query and any fetch in progress.
func (c *Command) Abort() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

type cursor struct {
	core.Rows
	cancel context.CancelFunc
}

func (c *cursor) Close() error {
	err := c.Rows.Close()
	c.cancel()
	return err
}

// Ensure Command implements core.AsyncCommand
var _ core.AsyncCommand = (*Command)(nil)
