package core

import (
	"fmt"
	"sync"
)

// DefaultSourceTable is the table name used when a Target names none.
const DefaultSourceTable = "Table"

// Table is an in-memory container of rows copied from a cursor.
// It is safe for concurrent use.
type Table struct {
	Name string

	mu      sync.RWMutex
	columns []string
	rows    [][]any
}

// NewTable creates an empty table.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// SetColumns defines the table schema. A table that already has columns
// accepts only an identical list.
func (t *Table) SetColumns(cols []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.columns) == 0 {
		t.columns = append([]string(nil), cols...)
		return nil
	}
	if len(cols) != len(t.columns) {
		return fmt.Errorf("table %s has %d columns, cursor has %d", t.Name, len(t.columns), len(cols))
	}
	for i, c := range cols {
		if t.columns[i] != c {
			return fmt.Errorf("table %s column %d is %q, cursor has %q", t.Name, i, t.columns[i], c)
		}
	}
	return nil
}

// AppendRow adds a row. The slice is retained.
func (t *Table) AppendRow(row []any) {
	t.mu.Lock()
	t.rows = append(t.rows, row)
	t.mu.Unlock()
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Row returns row i.
func (t *Table) Row(i int) []any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows[i]
}

// Slice returns rows [from, from+n), clamped to the table length.
func (t *Table) Slice(from, n int) [][]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if from >= len(t.rows) || n <= 0 {
		return nil
	}
	to := min(from+n, len(t.rows))
	out := make([][]any, to-from)
	copy(out, t.rows[from:to])
	return out
}

// Reset removes all rows and columns.
func (t *Table) Reset() {
	t.mu.Lock()
	t.columns = nil
	t.rows = nil
	t.mu.Unlock()
}

// DataSet is a named collection of tables.
type DataSet struct {
	mu     sync.RWMutex
	order  []*Table
	byName map[string]*Table
}

// NewDataSet creates an empty data set.
func NewDataSet() *DataSet {
	return &DataSet{byName: make(map[string]*Table)}
}

// Table looks up a table by name.
func (d *DataSet) Table(name string) (*Table, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.byName[name]
	return t, ok
}

// Ensure returns the named table, creating it if absent.
func (d *DataSet) Ensure(name string) *Table {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.byName[name]; ok {
		return t
	}
	t := NewTable(name)
	d.byName[name] = t
	d.order = append(d.order, t)
	return t
}

// Tables returns the tables in creation order.
func (d *DataSet) Tables() []*Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Table(nil), d.order...)
}

// Target names where a fill copies rows: either a data set plus an optional
// source table name, or an explicit list of tables.
type Target struct {
	Set         *DataSet
	SourceTable string
	Tables      []*Table
}

// Resolve returns the table that receives rows.
// Explicit tables win over the data set; the first one is filled.
func (t Target) Resolve() (*Table, error) {
	if len(t.Tables) > 0 {
		if t.Tables[0] == nil {
			return nil, fmt.Errorf("target table is nil")
		}
		return t.Tables[0], nil
	}
	if t.Set == nil {
		return nil, fmt.Errorf("target has neither a data set nor tables")
	}
	name := t.SourceTable
	if name == "" {
		name = DefaultSourceTable
	}
	return t.Set.Ensure(name), nil
}
