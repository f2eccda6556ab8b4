// Package filler copies rows from an open cursor into in-memory tables.
package filler

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// Filler implements core.TableFiller by scanning every column of the
// cursor into the target table.
type Filler struct {
	logger *slog.Logger
}

// New creates a filler. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Filler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Filler{logger: logger}
}

// Fill skips startRecord rows, then copies at most maxRecords rows
// (every remaining row when maxRecords is 0) into the target table.
// Fill never closes the cursor.
func (f *Filler) Fill(target core.Target, startRecord, maxRecords int, cur core.Cursor) (int, error) {
	if startRecord < 0 || maxRecords < 0 {
		return 0, fmt.Errorf("invalid fill window: start %d, max %d", startRecord, maxRecords)
	}

	tbl, err := target.Resolve()
	if err != nil {
		return 0, err
	}

	cols, err := cur.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to read columns: %w", err)
	}
	if err := tbl.SetColumns(cols); err != nil {
		return 0, err
	}

	for skipped := 0; skipped < startRecord; skipped++ {
		if !cur.Next() {
			return 0, cur.Err()
		}
	}

	copied := 0
	for maxRecords == 0 || copied < maxRecords {
		if !cur.Next() {
			break
		}

		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := cur.Scan(ptrs...); err != nil {
			return copied, fmt.Errorf("failed to scan row %d: %w", startRecord+copied, err)
		}

		for i, v := range values {
			// Convert []byte to string for readability
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		tbl.AppendRow(values)
		copied++
	}

	if err := cur.Err(); err != nil {
		return copied, fmt.Errorf("error iterating rows: %w", err)
	}

	f.logger.Debug("filled table", slog.String("table", tbl.Name), slog.Int("rows", copied))
	return copied, nil
}

// Ensure Filler implements core.TableFiller
var _ core.TableFiller = (*Filler)(nil)
