package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapstream/internal/config"
	"github.com/leapstack-labs/leapstream/internal/journal"
	"github.com/leapstack-labs/leapstream/pkg/adapter"

	// Register the built-in database adapters.
	_ "github.com/leapstack-labs/leapstream/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapstream/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapstream/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// NewCommandContext builds a CommandContext from the config and logger
// stored on the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return &CommandContext{
		Cfg:    config.GetConfig(ctx),
		Logger: config.GetLogger(ctx),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
}

// OpenJournal opens the fill journal. It returns nil when journaling is
// disabled.
func (c *CommandContext) OpenJournal() (*journal.Store, error) {
	if c.Cfg.NoJournal || c.Cfg.JournalPath == "" {
		return nil, nil
	}
	store, err := journal.Open(c.Cfg.JournalPath, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}

// OpenSession connects to the configured target and opens the journal.
// The returned cleanup function must be called (typically via defer).
func (c *CommandContext) OpenSession(ctx context.Context) (*Session, func(), error) {
	db, err := adapter.Default().Open(ctx, c.Cfg.Target.AdapterConfig(), c.Logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := c.OpenJournal()
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	sess := NewSession(db, store, SessionOptions{
		PageSize: c.Cfg.PageSize,
		Target:   describeTarget(c.Cfg.Target),
		Logger:   c.Logger,
	})

	cleanup := func() {
		if store != nil {
			if err := store.Close(); err != nil {
				c.Logger.Warn("failed to close journal", "error", err)
			}
		}
		if err := db.Close(); err != nil {
			c.Logger.Warn("failed to close adapter", "error", err)
		}
	}
	return sess, cleanup, nil
}

// describeTarget renders a target for the journal, without credentials.
func describeTarget(t *config.TargetConfig) string {
	if t == nil {
		return ""
	}
	switch {
	case t.Host != "":
		return fmt.Sprintf("%s://%s:%d/%s", t.Type, t.Host, t.Port, t.Database)
	case t.Database != "":
		return t.Type + ":" + t.Database
	default:
		return t.Type + ":memory"
	}
}
