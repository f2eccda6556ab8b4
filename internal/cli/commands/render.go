package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Page is one page of streamed rows.
type Page struct {
	Columns []string
	// First is the record offset of the first row.
	First int
	Rows  [][]any
}

// Renderer writes pages as they arrive.
type Renderer interface {
	Page(p Page) error
}

// NewRenderer returns the renderer for format. "auto" picks a table when w
// is a terminal and CSV otherwise.
func NewRenderer(w io.Writer, format string) (Renderer, error) {
	switch resolveFormat(w, format) {
	case "table":
		return &tableRenderer{w: w}, nil
	case "json":
		return &jsonRenderer{w: w}, nil
	case "csv":
		return &csvRenderer{w: csv.NewWriter(w)}, nil
	case "yaml":
		return &yamlRenderer{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func resolveFormat(w io.Writer, format string) string {
	if format == "" || format == "auto" {
		if isTerminal(w) {
			return "table"
		}
		return "csv"
	}
	return format
}

// isTerminal reports whether w is a terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type tableRenderer struct {
	w io.Writer
}

func (r *tableRenderer) Page(p Page) error {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(p.Columns))
	for i, col := range p.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, values := range p.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}
	t.SetCaption("rows %d-%d", p.First+1, p.First+len(p.Rows))
	t.Render()
	return nil
}

// jsonRenderer writes one JSON object per row, keys in column order.
type jsonRenderer struct {
	w io.Writer
}

func (r *jsonRenderer) Page(p Page) error {
	var buf bytes.Buffer
	for _, values := range p.Rows {
		buf.WriteByte('{')
		for i, col := range p.Columns {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return err
			}
			val, err := json.Marshal(values[i])
			if err != nil {
				return fmt.Errorf("column %s: %w", col, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteString("}\n")
	}
	_, err := r.w.Write(buf.Bytes())
	return err
}

// csvRenderer writes the header once, before the first page.
type csvRenderer struct {
	w      *csv.Writer
	header bool
}

func (r *csvRenderer) Page(p Page) error {
	if !r.header {
		if err := r.w.Write(p.Columns); err != nil {
			return err
		}
		r.header = true
	}
	record := make([]string, len(p.Columns))
	for _, values := range p.Rows {
		for i, v := range values {
			record[i] = csvValue(v)
		}
		if err := r.w.Write(record); err != nil {
			return err
		}
	}
	r.w.Flush()
	return r.w.Error()
}

// yamlRenderer writes each row as an item of one top-level sequence that
// continues across pages, keys in column order.
type yamlRenderer struct {
	w io.Writer
}

func (r *yamlRenderer) Page(p Page) error {
	if len(p.Rows) == 0 {
		return nil
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, values := range p.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for i, col := range p.Columns {
			key := &yaml.Node{Kind: yaml.ScalarNode, Value: col}
			val := &yaml.Node{}
			if err := val.Encode(values[i]); err != nil {
				return fmt.Errorf("column %s: %w", col, err)
			}
			m.Content = append(m.Content, key, val)
		}
		seq.Content = append(seq.Content, m)
	}

	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", v)
}

func csvValue(v any) string {
	if v == nil {
		return ""
	}
	return formatValue(v)
}

// printer formats counts with digit grouping.
var printer = message.NewPrinter(language.English)

// printSummary writes the closing line of a query.
func printSummary(w io.Writer, sum *Summary) {
	if sum == nil {
		return
	}
	elapsed := sum.Elapsed.Round(time.Millisecond)
	if sum.Cancelled {
		_, _ = printer.Fprintf(w, "Cancelled after %d rows in %d pages (%v)\n", sum.Rows, sum.Pages, elapsed)
		return
	}
	_, _ = printer.Fprintf(w, "(%d rows in %d pages, %v)\n", sum.Rows, sum.Pages, elapsed)
}
