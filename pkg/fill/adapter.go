package fill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapstream/pkg/core"
	"github.com/leapstack-labs/leapstream/pkg/filler"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 1000

var (
	// ErrFillInProgress is returned by RequestFill while another fill runs on the same adapter.
	ErrFillInProgress = errors.New("fill already in progress")

	// ErrInvalidPageSize is returned for a page size that is not positive.
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// Config holds adapter configuration.
type Config struct {
	// Command is the query to stream. It must implement core.AsyncCommand.
	Command core.Command
	// Filler copies rows into the target (optional, defaults to filler.New)
	Filler core.TableFiller
	// PageSize bounds the records per page (optional, defaults to DefaultPageSize)
	PageSize int
	// Handlers receive the fill events
	Handlers Handlers
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Adapter streams the results of its command into tables page by page.
// An adapter runs at most one fill at a time.
type Adapter struct {
	filler core.TableFiller
	notify *notifier
	logger *slog.Logger

	mu        sync.Mutex
	command   core.Command
	pageSize  int
	executing bool
	current   *Request
}

// New creates an adapter.
func New(cfg Config) (*Adapter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidPageSize, pageSize)
	}

	f := cfg.Filler
	if f == nil {
		f = filler.New(logger)
	}

	return &Adapter{
		filler:   f,
		notify:   &notifier{handlers: cfg.Handlers, logger: logger},
		logger:   logger,
		command:  cfg.Command,
		pageSize: pageSize,
	}, nil
}

// PageSize returns the number of records fetched per page.
func (a *Adapter) PageSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pageSize
}

// SetPageSize changes the page size for subsequent fills.
func (a *Adapter) SetPageSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidPageSize, n)
	}
	a.mu.Lock()
	a.pageSize = n
	a.mu.Unlock()
	return nil
}

// SetCommand replaces the command used by subsequent fills.
func (a *Adapter) SetCommand(cmd core.Command) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.executing {
		return ErrFillInProgress
	}
	a.command = cmd
	return nil
}

// IsExecuting reports whether a fill is in flight.
func (a *Adapter) IsExecuting() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executing
}

// RequestFill starts streaming the command's results into target and
// returns without waiting for the query. Events are delivered through the
// configured handlers; the outcome is observed in Completed through
// req.Err. Configuration failures complete the request before RequestFill
// returns.
//
// Starting a fill while another one runs is rejected with ErrFillInProgress
// and raises no events. Cancelling ctx has the same effect as CancelFill; a
// ctx that is already done completes the request as cancelled.
//
// A closed connection is opened on the calling goroutine so that a failure
// to open it is reported before RequestFill returns. RequestFill therefore
// blocks for as long as opening the connection takes, bounded by ctx.
func (a *Adapter) RequestFill(ctx context.Context, target core.Target, opts ...RequestOption) (*Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	a.mu.Lock()
	if a.executing {
		a.mu.Unlock()
		return nil, ErrFillInProgress
	}
	req := newRequest(target, a.pageSize, opts)
	opCtx, stop := context.WithCancel(ctx)
	req.stop = stop
	cmd := a.command
	a.executing = true
	a.current = req
	a.mu.Unlock()

	a.dispatch(opCtx, req, cmd)
	return req, nil
}
