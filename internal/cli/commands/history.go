package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapstream/internal/journal"
)

const defaultHistoryLimit = 20

// maxQueryWidth truncates queries in the history table.
const maxQueryWidth = 60

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "List recent queries",
		Long: `List the queries recorded in the fill journal, newest first, with their
outcome, page and row counts. Pass an ID to show a single entry in full.`,
		Example: `  leapstream history
  leapstream history --limit 5 -o json
  leapstream history 0b6c9d0e-7d55-4f43-9a0e-2f3f9f1e8f7a`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			store, err := cc.OpenJournal()
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("journal is disabled")
			}
			defer func() { _ = store.Close() }()

			var entries []*journal.Entry
			if len(args) == 1 {
				e, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries = []*journal.Entry{e}
			} else {
				entries, err = store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
			}

			format := resolveFormat(cc.Stdout, cc.Cfg.OutputFormat)
			if len(args) == 1 && format == "table" {
				renderEntry(cc.Stdout, entries[0])
				return nil
			}
			return renderHistory(cc.Stdout, entries, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Maximum number of entries")
	return cmd
}

// historyRecord is the serialized form of a journal entry.
type historyRecord struct {
	ID       string     `json:"id" yaml:"id"`
	Query    string     `json:"query" yaml:"query"`
	Target   string     `json:"target" yaml:"target"`
	Status   string     `json:"status" yaml:"status"`
	PageSize int        `json:"page_size" yaml:"page_size"`
	Pages    int        `json:"pages" yaml:"pages"`
	Rows     int        `json:"rows" yaml:"rows"`
	Started  time.Time  `json:"started_at" yaml:"started_at"`
	Finished *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Error    string     `json:"error,omitempty" yaml:"error,omitempty"`
}

func toRecord(e *journal.Entry) historyRecord {
	return historyRecord{
		ID:       e.ID,
		Query:    e.Query,
		Target:   e.Target,
		Status:   string(e.Status),
		PageSize: e.PageSize,
		Pages:    e.Pages,
		Rows:     e.Rows,
		Started:  e.StartedAt,
		Finished: e.FinishedAt,
		Error:    e.Error,
	}
}

func renderHistory(w io.Writer, entries []*journal.Entry, format string) error {
	records := make([]historyRecord, len(entries))
	for i, e := range entries {
		records[i] = toRecord(e)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	case "csv":
		r := &csvRenderer{w: csv.NewWriter(w)}
		rows := make([][]any, len(records))
		for i, rec := range records {
			rows[i] = []any{rec.ID, rec.Status, rec.Pages, rec.Rows, rec.Started, rec.Error, rec.Query}
		}
		return r.Page(Page{Columns: []string{"id", "status", "pages", "rows", "started_at", "error", "query"}, Rows: rows})
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No queries recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Started", "Status", "Pages", "Rows", "Duration", "Query"})
	for _, e := range entries {
		duration := "-"
		if e.FinishedAt != nil {
			duration = e.Duration().Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			shortID(e.ID),
			e.StartedAt.Local().Format(time.DateTime),
			e.Status,
			printer.Sprintf("%d", e.Pages),
			printer.Sprintf("%d", e.Rows),
			duration,
			truncate(oneLine(e.Query), maxQueryWidth),
		})
	}
	t.Render()
	return nil
}

func renderEntry(w io.Writer, e *journal.Entry) {
	_, _ = fmt.Fprintf(w, "ID:        %s\n", e.ID)
	_, _ = fmt.Fprintf(w, "Target:    %s\n", e.Target)
	_, _ = fmt.Fprintf(w, "Status:    %s\n", e.Status)
	_, _ = fmt.Fprintf(w, "Started:   %s\n", e.StartedAt.Local().Format(time.DateTime))
	if e.FinishedAt != nil {
		_, _ = fmt.Fprintf(w, "Duration:  %s\n", e.Duration().Round(time.Millisecond))
	}
	_, _ = printer.Fprintf(w, "Pages:     %d (page size %d)\n", e.Pages, e.PageSize)
	_, _ = printer.Fprintf(w, "Rows:      %d\n", e.Rows)
	if e.Error != "" {
		_, _ = fmt.Fprintf(w, "Error:     %s\n", e.Error)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, e.Query)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
