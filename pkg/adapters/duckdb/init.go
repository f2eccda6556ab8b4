package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapstream/pkg/adapter"
)

// Registers the adapter as "duckdb". Import this package with a blank
// identifier to make it available to adapter.NewAdapter:
//
//	import _ "github.com/leapstack-labs/leapstream/pkg/adapters/duckdb"
func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
