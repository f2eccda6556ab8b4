package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input  string
	Offset int
	Limit  int
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Stream the results of a query",
		Long: `Execute a SQL query against the configured target and stream its
results page by page. Each page is written as soon as it has been fetched,
so large results start printing immediately and memory stays bounded by
the page size.

SQL is read from the argument, from --input, or from stdin. When invoked
without SQL on a terminal, enters interactive REPL mode.

Press Ctrl-C to cancel a running query; rows already written are kept.`,
		Example: `  # Stream a query as a table
  leapstream query "SELECT * FROM orders"

  # Smaller pages, JSON lines
  leapstream query "SELECT * FROM orders" --page-size 100 -o json

  # Skip the first 1000 rows, deliver at most 50
  leapstream query "SELECT * FROM events" --offset 1000 --limit 50

  # Read SQL from a file against a postgres target
  leapstream query -i report.sql --type postgres

  # Interactive mode
  leapstream query`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of leading rows to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of rows to deliver (0 for all)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cc := NewCommandContext(cmd)

	query, err := readQuery(cmd.InOrStdin(), args, opts.Input)
	if err != nil {
		return err
	}

	sess, cleanup, err := cc.OpenSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if query == "" {
		if !isTerminal(cmd.InOrStdin()) {
			return fmt.Errorf("no SQL given: pass a query, --input, or pipe SQL on stdin")
		}
		return runREPL(cmd.Context(), cc, sess)
	}

	return streamQuery(cmd, cc, sess, query, StreamOptions{Offset: opts.Offset, Limit: opts.Limit})
}

// streamQuery runs one query and writes its pages and summary.
func streamQuery(cmd *cobra.Command, cc *CommandContext, sess *Session, query string, opts StreamOptions) error {
	r, err := NewRenderer(cc.Stdout, cc.Cfg.OutputFormat)
	if err != nil {
		return err
	}

	sum, err := sess.Stream(cmd.Context(), query, r, opts)
	printSummary(summaryWriter(cc), sum)
	return err
}

// summaryWriter keeps machine-readable output free of the summary line.
func summaryWriter(cc *CommandContext) io.Writer {
	if resolveFormat(cc.Stdout, cc.Cfg.OutputFormat) == "table" {
		return cc.Stdout
	}
	return cc.Stderr
}

// readQuery returns the SQL from args, the input file, or piped stdin, in
// that order. An empty result means none was given.
func readQuery(stdin io.Reader, args []string, input string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.TrimSpace(args[0]), nil
	case input != "":
		data, err := os.ReadFile(input) //nolint:gosec // user-provided SQL file
		if err != nil {
			return "", fmt.Errorf("failed to read SQL file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case stdin != nil && !isTerminal(stdin):
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read SQL from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", nil
	}
}
