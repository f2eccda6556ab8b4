package fill

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// dispatch validates the command, opens its connection and starts the
// query. It runs on the caller's goroutine and never blocks on the query.
func (a *Adapter) dispatch(ctx context.Context, req *Request, cmd core.Command) {
	defer func() {
		if r := recover(); r != nil {
			req.capture(fmt.Errorf("fill dispatch panicked: %v", r))
			a.finish(req, nil)
		}
	}()

	async, err := validate(req, cmd)
	if err != nil {
		a.logger.Debug("rejecting fill", slog.String("request", req.ID.String()), slog.Any("error", err))
		req.capture(err)
		a.finish(req, nil)
		return
	}

	if ctx.Err() != nil {
		a.cancelBeforeStart(req)
		return
	}

	conn := async.Connection()
	if err := a.ensureOpen(ctx, conn); err != nil {
		if ctx.Err() != nil {
			a.cancelBeforeStart(req)
			return
		}
		req.capture(&core.ConfigurationError{Reason: "connection could not be opened", Err: err})
		a.finish(req, nil)
		return
	}
	req.closeConn = sync.OnceValue(conn.Close)

	a.logger.Debug("dispatching fill",
		slog.String("request", req.ID.String()),
		slog.Int("page_size", req.pageSize),
		slog.Int("start_record", req.Window.StartRecord),
		slog.Int("max_records", req.Window.MaxRecords))

	// The query outlives caller cancellation; only Abort interrupts it.
	async.BeginExecute(context.WithoutCancel(ctx), func(p core.Pending) {
		a.complete(ctx, req, async, p)
	})
}

func validate(req *Request, cmd core.Command) (core.AsyncCommand, error) {
	if cmd == nil {
		return nil, &core.ConfigurationError{Reason: "no command configured"}
	}
	async, ok := cmd.(core.AsyncCommand)
	if !ok {
		return nil, &core.ConfigurationError{Reason: fmt.Sprintf("command %T does not support asynchronous execution", cmd)}
	}
	if async.Connection() == nil {
		return nil, &core.ConfigurationError{Reason: "command has no connection"}
	}
	if err := req.Window.validate(); err != nil {
		return nil, &core.ConfigurationError{Reason: "invalid fill window", Err: err}
	}
	if _, err := req.Target.Resolve(); err != nil {
		return nil, &core.ConfigurationError{Reason: "invalid fill target", Err: err}
	}
	return async, nil
}

// ensureOpen opens conn, first tagging it for asynchronous execution if needed.
func (a *Adapter) ensureOpen(ctx context.Context, conn core.Connection) error {
	if !conn.AsyncEnabled() {
		if conn.State() == core.ConnOpen {
			if err := conn.Close(); err != nil {
				return fmt.Errorf("failed to close connection before enabling async: %w", err)
			}
		}
		if err := conn.EnableAsync(); err != nil {
			return fmt.Errorf("failed to enable async execution: %w", err)
		}
		a.logger.Debug("tagged connection for asynchronous execution")
	}
	if conn.State() == core.ConnOpen {
		return nil
	}
	return conn.Open(ctx)
}

// complete runs on the goroutine that delivered the query completion. It
// fills the first page inline, raises Initialized and hands off to the worker.
func (a *Adapter) complete(ctx context.Context, req *Request, cmd core.AsyncCommand, p core.Pending) {
	defer func() {
		if r := recover(); r != nil {
			req.capture(fmt.Errorf("fill dispatch panicked: %v", r))
			a.finish(req, nil)
		}
	}()

	cur, err := cmd.EndExecute(p)
	if err != nil {
		a.finish(req, err)
		return
	}
	req.cursor = NewPageCursor(cur)

	limit := req.pageLimit(0)
	rows, err := a.fillPage(req, req.Window.StartRecord, limit)
	if err != nil {
		req.capture(&core.FetchError{Page: 0, Offset: req.Window.StartRecord, Err: err})
		a.finish(req, nil)
		return
	}
	req.firstRows, req.firstLimit = rows, limit

	a.notify.initialized(req)
	if req.cancel.Load() || ctx.Err() != nil {
		req.cancelled.Store(true)
		a.logger.Debug("fill cancelled before paging", slog.String("request", req.ID.String()))
		a.finish(req, nil)
		return
	}

	go a.materialize(ctx, req, cmd)
}

// cancelBeforeStart completes a request whose context ended before the
// query was sent.
func (a *Adapter) cancelBeforeStart(req *Request) {
	req.cancelled.Store(true)
	a.logger.Debug("fill cancelled before dispatch", slog.String("request", req.ID.String()))
	a.finish(req, nil)
}

// fillPage copies at most limit records after skipping skip records.
func (a *Adapter) fillPage(req *Request, skip, limit int) (int, error) {
	req.cursor.BeginPage(skip + limit)
	return a.filler.Fill(req.Target, skip, limit, req.cursor)
}


// finish releases the cursor and connection, clears the executing flag and
// raises Completed. Only the first call for a request has any effect.
func (a *Adapter) finish(req *Request, fallback error) {
	req.finishOnce.Do(func() {
		if req.cursor != nil {
			if err := req.cursor.Release(); err != nil && !req.Cancelled() {
				a.logger.Warn("failed to close cursor", slog.String("request", req.ID.String()), slog.Any("error", err))
			}
		}
		if req.closeConn != nil {
			a.logger.Debug("closing connection", slog.String("request", req.ID.String()))
			if err := req.closeConn(); err != nil {
				a.logger.Warn("failed to close connection", slog.String("request", req.ID.String()), slog.Any("error", err))
			}
		}
		req.stop()

		a.mu.Lock()
		a.executing = false
		if a.current == req {
			a.current = nil
		}
		a.mu.Unlock()

		a.logger.Debug("fill finished",
			slog.String("request", req.ID.String()),
			slog.Int("pages", req.Pages()),
			slog.Int("rows", req.Rows()),
			slog.Bool("cancelled", req.Cancelled()),
			slog.Duration("elapsed", req.Elapsed()))

		a.notify.completed(req, fallback)
	})
}
