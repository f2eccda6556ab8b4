package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapstream/internal/config"
)

const (
	replPrompt     = "leapstream> "
	replContPrompt = "       ...> "
)

// lineReader is the part of readline used by the REPL loop.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Run queries interactively",
		Long: `Start an interactive session against the configured target.

Statements end with a semicolon and may span several lines. Results stream
page by page; Ctrl-C cancels the running query without leaving the REPL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			sess, cleanup, err := cc.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return runREPL(cmd.Context(), cc, sess)
		},
	}
}

func runREPL(ctx context.Context, cc *CommandContext, sess *Session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(cc.Cfg),
		AutoComplete:    newDotCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cc.Stdout, "leapstream REPL (%s, page size %d)\n", describeTarget(cc.Cfg.Target), sess.PageSize())
	_, _ = fmt.Fprintln(cc.Stdout, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cc.Stdout)

	return replLoop(ctx, rl, cc, sess)
}

// replLoop reads statements until EOF or .quit and streams each one.
func replLoop(ctx context.Context, rl lineReader, cc *CommandContext, sess *Session) error {
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, cc, sess, line); quit {
				return nil
			}
			continue
		}

		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		query := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()

		if err := replStream(ctx, cc, sess, query); err != nil {
			_, _ = fmt.Fprintf(cc.Stderr, "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cc.Stdout)
	}
}

func replStream(ctx context.Context, cc *CommandContext, sess *Session, query string) error {
	r, err := NewRenderer(cc.Stdout, cc.Cfg.OutputFormat)
	if err != nil {
		return err
	}
	sum, err := sess.Stream(ctx, query, r, StreamOptions{})
	printSummary(summaryWriter(cc), sum)
	return err
}

// handleDotCommand runs a dot-command and reports whether the REPL should exit.
func handleDotCommand(ctx context.Context, cc *CommandContext, sess *Session, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cc.Stdout)

	case ".pagesize":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(cc.Stdout, "page size: %d\n", sess.PageSize())
			return false
		}
		n, err := strconv.Atoi(parts[1])
		if err == nil {
			err = sess.SetPageSize(n)
		}
		if err != nil {
			_, _ = fmt.Fprintf(cc.Stderr, "Error: invalid page size %q\n", parts[1])
		}

	case ".output":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(cc.Stdout, "output: %s\n", cc.Cfg.OutputFormat)
			return false
		}
		if !slices.Contains(config.OutputFormats, parts[1]) {
			_, _ = fmt.Fprintf(cc.Stderr, "Error: unknown output format %q (use %s)\n", parts[1], strings.Join(config.OutputFormats, ", "))
			return false
		}
		cc.Cfg.OutputFormat = parts[1]

	case ".history":
		store := sess.Journal()
		if store == nil {
			_, _ = fmt.Fprintln(cc.Stderr, "Journal is disabled")
			return false
		}
		entries, err := store.List(ctx, defaultHistoryLimit)
		if err != nil {
			_, _ = fmt.Fprintf(cc.Stderr, "Error: %v\n", err)
			return false
		}
		if err := renderHistory(cc.Stdout, entries, "table"); err != nil {
			_, _ = fmt.Fprintf(cc.Stderr, "Error: %v\n", err)
		}

	case ".clear":
		_, _ = fmt.Fprint(cc.Stdout, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(cc.Stderr, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help              Show this help message
  .pagesize [n]      Show or set the page size
  .output [format]   Show or set the output format (auto, table, json, csv, yaml)
  .history           List recent queries
  .clear             Clear the screen
  .quit / .exit      Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Ctrl-C cancels a running query
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// historyFile keeps readline history next to the journal.
func historyFile(cfg *config.Config) string {
	if cfg.JournalPath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(cfg.JournalPath), "repl_history")
}

func newDotCompleter() *readline.PrefixCompleter {
	formats := make([]readline.PrefixCompleterInterface, len(config.OutputFormats))
	for i, f := range config.OutputFormats {
		formats[i] = readline.PcItem(f)
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".pagesize"),
		readline.PcItem(".output", formats...),
		readline.PcItem(".history"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
