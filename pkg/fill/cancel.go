package fill

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// CancelFill requests cooperative cancellation of the in-flight fill, if
// any. The worker stops before starting its next page; a fetch already in
// progress runs to completion and its page is still reported. If that fetch
// fails, the failure is reported as a FetchError.
func (a *Adapter) CancelFill() {
	a.mu.Lock()
	req := a.current
	a.mu.Unlock()

	if req == nil {
		return
	}
	a.logger.Debug("cancel requested", slog.String("request", req.ID.String()))
	req.stop()
}

// abort handles a cancel requested from a Chunk handler: the worker stops
// paging and the command source is asked to stop the query.
func (a *Adapter) abort(req *Request, cmd core.AsyncCommand) {
	a.logger.Debug("aborting command", slog.String("request", req.ID.String()))
	req.aborted.Store(true)
	req.cancelled.Store(true)
	req.stop()
	cmd.Abort()
}

// cancellationPending reports whether the worker must stop before its next
// page, marking the request cancelled if so.
func (a *Adapter) cancellationPending(ctx context.Context, req *Request) bool {
	if ctx.Err() == nil && !req.aborted.Load() {
		return false
	}
	req.cancelled.Store(true)
	return true
}
