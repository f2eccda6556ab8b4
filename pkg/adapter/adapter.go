// Package adapter provides the database adapter contract and the
// database/sql command source used by the fill engine.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with the default Registry from their init() functions.
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows (e.g., INSERT, UPDATE, CREATE).
	Exec(ctx context.Context, sql string) error

	// Command binds query to a new connection from the adapter's pool.
	// The returned command is ready to be streamed by a fill.Adapter.
	Command(query string, args ...any) (*Command, error)

	// DialectName returns the name of the SQL dialect spoken by the database.
	DialectName() string
}
