package fill

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// Window bounds the records a fill delivers.
type Window struct {
	// StartRecord is the number of leading records to skip.
	StartRecord int
	// MaxRecords caps the number of records delivered. Zero means no cap.
	MaxRecords int
}

func (w Window) validate() error {
	if w.StartRecord < 0 {
		return fmt.Errorf("start record must not be negative, got %d", w.StartRecord)
	}
	if w.MaxRecords < 0 {
		return fmt.Errorf("max records must not be negative, got %d", w.MaxRecords)
	}
	return nil
}

// RequestOption configures a single fill request.
type RequestOption func(*Request)

// WithWindow sets both bounds of the fill window.
func WithWindow(startRecord, maxRecords int) RequestOption {
	return func(r *Request) {
		r.Window = Window{StartRecord: startRecord, MaxRecords: maxRecords}
	}
}

// WithStartRecord skips the first n records.
func WithStartRecord(n int) RequestOption {
	return func(r *Request) { r.Window.StartRecord = n }
}

// WithMaxRecords caps the number of records delivered.
func WithMaxRecords(n int) RequestOption {
	return func(r *Request) { r.Window.MaxRecords = n }
}

// Request is the record of one fill operation. It is created by
// Adapter.RequestFill, passed to every handler, and final once Completed
// has returned.
type Request struct {
	ID     uuid.UUID
	Target core.Target
	Window Window

	pageSize int
	started  time.Time
	cursor   *PageCursor

	// stop marks cancellation as pending for the worker.
	stop      context.CancelFunc
	closeConn func() error

	// rows and limit of the page filled during dispatch
	firstRows  int
	firstLimit int

	mu  sync.Mutex
	err error

	cancel     atomic.Bool
	inCallback atomic.Bool
	cancelled  atomic.Bool
	aborted    atomic.Bool
	phase      atomic.Int32

	pages atomic.Int64
	rows  atomic.Int64

	finishOnce sync.Once
	done       chan struct{}
}

func newRequest(target core.Target, pageSize int, opts []RequestOption) *Request {
	r := &Request{
		ID:       uuid.New(),
		Target:   target,
		pageSize: pageSize,
		started:  time.Now(),
		stop:     func() {},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Err returns the first error captured by the operation, or nil.
// Cancellation is not an error.
func (r *Request) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// capture records err unless an earlier error was already captured.
func (r *Request) capture(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}

// Cancel asks the operation to stop after the current page. It is honored
// only while an Initialized or Chunk handler is running and reports whether
// the request was accepted. Use Adapter.CancelFill from other goroutines.
func (r *Request) Cancel() bool {
	if !r.inCallback.Load() {
		return false
	}
	r.cancel.Store(true)
	return true
}

// Cancelled reports whether the operation ended because of cancellation.
func (r *Request) Cancelled() bool {
	return r.cancelled.Load()
}

// PageSize returns the page size the operation runs with.
func (r *Request) PageSize() int {
	return r.pageSize
}

// Pages returns the number of Chunk events raised so far.
func (r *Request) Pages() int {
	return int(r.pages.Load())
}

// Rows returns the number of records delivered so far.
func (r *Request) Rows() int {
	return int(r.rows.Load())
}

// Elapsed returns the time since the request was created.
func (r *Request) Elapsed() time.Duration {
	return time.Since(r.started)
}

// Cursor returns the paging cursor, or nil until dispatch has completed.
// It is meant for use inside handlers.
func (r *Request) Cursor() *PageCursor {
	return r.cursor
}

// Done is closed after the Completed handler has returned.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the operation has completed or ctx is done.
// It returns ctx.Err() if ctx ends first; otherwise it returns Err().
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pageLimit returns the most records the next page may hold after
// delivered records have already been reported.
func (r *Request) pageLimit(delivered int) int {
	limit := r.pageSize
	if r.Window.MaxRecords > 0 {
		limit = min(limit, r.Window.MaxRecords-delivered)
	}
	return limit
}

// windowFull reports whether delivering n more records exhausts the window.
func (r *Request) windowFull(n int) bool {
	return r.Window.MaxRecords > 0 && r.Rows()+n >= r.Window.MaxRecords
}
