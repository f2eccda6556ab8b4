package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapstream/internal/journal"
	"github.com/leapstack-labs/leapstream/pkg/adapter"
	"github.com/leapstack-labs/leapstream/pkg/core"
	"github.com/leapstack-labs/leapstream/pkg/fill"
)

// resultTable names the table query results are streamed into.
const resultTable = "result"

// SessionOptions configures a Session.
type SessionOptions struct {
	PageSize int
	// Target describes the database in journal entries.
	Target string
	Logger *slog.Logger
	// Signals cancel a running fill. Defaults to SIGINT and SIGTERM.
	Signals []os.Signal
}

// Session streams queries against one open adapter.
type Session struct {
	db       adapter.Adapter
	journal  *journal.Store
	pageSize int
	target   string
	signals  []os.Signal
	logger   *slog.Logger
}

// NewSession creates a session. store may be nil to disable journaling.
func NewSession(db adapter.Adapter, store *journal.Store, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = fill.DefaultPageSize
	}
	signals := opts.Signals
	if signals == nil {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	return &Session{
		db:       db,
		journal:  store,
		pageSize: pageSize,
		target:   opts.Target,
		signals:  signals,
		logger:   logger,
	}
}

// PageSize returns the page size used by subsequent queries.
func (s *Session) PageSize() int { return s.pageSize }

// SetPageSize changes the page size used by subsequent queries.
func (s *Session) SetPageSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w, got %d", fill.ErrInvalidPageSize, n)
	}
	s.pageSize = n
	return nil
}

// Journal returns the session's journal, or nil.
func (s *Session) Journal() *journal.Store { return s.journal }

// StreamOptions bounds the rows a single query delivers.
type StreamOptions struct {
	Offset int
	Limit  int
}

// Summary describes a finished query.
type Summary struct {
	ID        string
	Pages     int // pages that held rows
	Rows      int
	Elapsed   time.Duration
	Cancelled bool
}

// Stream runs query and hands every page to r as it arrives. The table
// holding the rows is emptied after each page, so memory stays bounded by
// the page size. An interrupt signal cancels the fill before its next
// page; a cancelled query is not an error.
func (s *Session) Stream(ctx context.Context, query string, r Renderer, opts StreamOptions) (*Summary, error) {
	cmd, err := s.db.Command(query)
	if err != nil {
		return nil, err
	}

	var (
		renderErr error
		pages     int
	)
	fa, err := fill.New(fill.Config{
		Command:  cmd,
		PageSize: s.pageSize,
		Logger:   s.logger,
		Handlers: fill.Handlers{
			Chunk: func(req *fill.Request, first, count int) {
				tbl, err := req.Target.Resolve()
				if err != nil {
					renderErr = err
					req.Cancel()
					return
				}
				if renderErr == nil && count > 0 {
					pages++
					renderErr = r.Page(Page{
						Columns: tbl.Columns(),
						First:   first,
						Rows:    tbl.Slice(0, count),
					})
				}
				tbl.Reset()
				if renderErr != nil {
					req.Cancel()
				}
			},
		},
	})
	if err != nil {
		return nil, err
	}

	sigCtx, stop := signal.NotifyContext(ctx, s.signals...)
	defer stop()

	target := core.Target{Tables: []*core.Table{core.NewTable(resultTable)}}
	req, err := fa.RequestFill(ctx, target, fill.WithWindow(opts.Offset, opts.Limit))
	if err != nil {
		return nil, err
	}
	id := req.ID.String()
	s.begin(ctx, id, query)

	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-sigCtx.Done():
			if ctx.Err() == nil {
				s.logger.Info("interrupt received, cancelling query", "id", id)
			}
			fa.CancelFill()
		case <-req.Done():
		}
		return nil
	})
	<-req.Done()
	_ = g.Wait()

	sum := &Summary{
		ID:        id,
		Pages:     pages,
		Rows:      req.Rows(),
		Elapsed:   req.Elapsed(),
		Cancelled: req.Cancelled(),
	}

	err = req.Err()
	if renderErr != nil {
		err = fmt.Errorf("failed to render page: %w", renderErr)
		sum.Cancelled = false
	}
	s.finish(id, sum, err)
	return sum, err
}

// begin records a running fill. Journal failures are logged, never fatal.
func (s *Session) begin(ctx context.Context, id, query string) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Begin(context.WithoutCancel(ctx), id, query, s.target, s.pageSize); err != nil {
		s.logger.Warn("failed to record fill", "id", id, "error", err)
	}
}

func (s *Session) finish(id string, sum *Summary, err error) {
	if s.journal == nil {
		return
	}
	var msg string
	if err != nil {
		msg = err.Error()
	}
	status := journal.StatusFor(err, sum.Cancelled)
	if ferr := s.journal.Finish(context.Background(), id, status, sum.Pages, sum.Rows, msg); ferr != nil {
		s.logger.Warn("failed to finish fill record", "id", id, "error", ferr)
	}
}
