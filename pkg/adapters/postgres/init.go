package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapstream/pkg/adapter"
)

// Registers the adapter as "postgres":
//
//	import _ "github.com/leapstack-labs/leapstream/pkg/adapters/postgres"
func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
