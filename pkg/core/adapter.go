package core

import (
	"context"
	"database/sql"
)

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Cursor is a forward-only, server-backed handle yielding rows on demand.
// *sql.Rows satisfies it.
type Cursor interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}

// ConnState describes the lifecycle state of a Connection.
type ConnState int

// Connection states.
const (
	ConnClosed ConnState = iota
	ConnOpen
	ConnBroken
)

func (s ConnState) String() string {
	switch s {
	case ConnClosed:
		return "closed"
	case ConnOpen:
		return "open"
	case ConnBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// Connection is the connection owned by a command source.
type Connection interface {
	// Open opens the connection. Opening an open connection is a no-op.
	Open(ctx context.Context) error

	// Close closes the connection. Closing a closed connection is a no-op.
	Close() error

	// State reports the current connection state.
	State() ConnState

	// AsyncEnabled reports whether commands on this connection may execute
	// without blocking the caller.
	AsyncEnabled() bool

	// EnableAsync tags the connection for asynchronous execution.
	// The connection must be closed.
	EnableAsync() error
}

// Pending is the handle of an execution started by AsyncCommand.BeginExecute.
type Pending interface {
	// Done is closed once the execution has finished.
	Done() <-chan struct{}
}

// Command is a query bound to a connection.
type Command interface {
	// Text returns the query text.
	Text() string

	// Connection returns the owned connection, or nil if none is attached.
	Connection() Connection
}

// AsyncCommand is a Command that can execute without blocking its caller.
type AsyncCommand interface {
	Command

	// BeginExecute starts the query and returns immediately. done is invoked
	// exactly once, on the goroutine that observed completion.
	BeginExecute(ctx context.Context, done func(Pending)) Pending

	// EndExecute returns the open cursor produced by the execution behind p.
	EndExecute(p Pending) (Cursor, error)

	// Abort asks the command source to stop the in-flight execution.
	// It is best-effort and may race a fetch in progress.
	Abort()
}

// TableFiller copies rows from an open cursor into a target.
type TableFiller interface {
	// Fill skips startRecord rows, then copies at most maxRecords rows
	// (all remaining rows if maxRecords is 0) and reports how many were copied.
	Fill(target Target, startRecord, maxRecords int, cur Cursor) (int, error)
}

// TableFillerFunc adapts a function to the TableFiller interface.
type TableFillerFunc func(target Target, startRecord, maxRecords int, cur Cursor) (int, error)

// Fill implements TableFiller.
func (f TableFillerFunc) Fill(target Target, startRecord, maxRecords int, cur Cursor) (int, error) {
	return f(target, startRecord, maxRecords, cur)
}
