package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/leapstream/pkg/adapter"
)

// Registers the adapter as "sqlite":
//
//	import _ "github.com/leapstack-labs/leapstream/pkg/adapters/sqlite"
func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
