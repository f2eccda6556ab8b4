package fill

import (
	"sync"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// PageCursor wraps a live cursor so a table filler pulls exactly one page
// per call. Next reports false once the current page quota is spent, and
// Close is ignored; only Release closes the underlying cursor.
type PageCursor struct {
	cur       core.Cursor
	quota     int
	exhausted bool

	releaseOnce sync.Once
	released    bool
	releaseErr  error
}

// NewPageCursor wraps cur. No rows are available until BeginPage is called.
func NewPageCursor(cur core.Cursor) *PageCursor {
	return &PageCursor{cur: cur}
}

// BeginPage allows the next n calls to Next to advance the cursor.
func (p *PageCursor) BeginPage(n int) {
	p.quota = n
}

// Next advances the underlying cursor while the page quota lasts.
func (p *PageCursor) Next() bool {
	if p.released || p.exhausted || p.quota <= 0 {
		return false
	}
	if !p.cur.Next() {
		p.exhausted = true
		return false
	}
	p.quota--
	return true
}

// Columns returns the column names of the underlying cursor.
func (p *PageCursor) Columns() ([]string, error) { return p.cur.Columns() }

// Scan copies the current row.
func (p *PageCursor) Scan(dest ...any) error { return p.cur.Scan(dest...) }

// Err returns the error, if any, encountered by the underlying cursor.
func (p *PageCursor) Err() error { return p.cur.Err() }

// Close is a no-op so a filler cannot end the stream early.
func (p *PageCursor) Close() error { return nil }

// Exhausted reports whether the underlying cursor ran out of rows.
func (p *PageCursor) Exhausted() bool { return p.exhausted }

// Released reports whether the underlying cursor has been closed.
func (p *PageCursor) Released() bool { return p.released }

// Release closes the underlying cursor. Only the first call closes it;
// later calls return the same result.
func (p *PageCursor) Release() error {
	p.releaseOnce.Do(func() {
		p.released = true
		p.releaseErr = p.cur.Close()
	})
	return p.releaseErr
}

// Ensure PageCursor implements core.Cursor
var _ core.Cursor = (*PageCursor)(nil)
