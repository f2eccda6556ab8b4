package fill

import (
	"log/slog"
)

// Handlers receive the events of a fill operation. Nil handlers are skipped.
// Handlers of one request never run concurrently with each other.
type Handlers struct {
	// Initialized runs once the query has completed and the first page has
	// been copied, before any Chunk. Calling req.Cancel here ends the
	// operation without starting the worker.
	Initialized func(req *Request)

	// Chunk runs once per page on the worker goroutine. firstRecord is the
	// record offset of the page and count the number of records it holds.
	Chunk func(req *Request, firstRecord, count int)

	// Completed runs exactly once, last, whether the operation succeeded,
	// failed or was cancelled.
	Completed func(req *Request)
}

const (
	phaseDispatched int32 = iota
	phaseInitialized
	phaseCompleted
)

// notifier enforces Initialized -> Chunk* -> Completed for each request.
type notifier struct {
	handlers Handlers
	logger   *slog.Logger
}

func (n *notifier) initialized(req *Request) {
	if !req.phase.CompareAndSwap(phaseDispatched, phaseInitialized) {
		return
	}
	if n.handlers.Initialized != nil {
		n.invoke(req, func() { n.handlers.Initialized(req) })
	}
}

func (n *notifier) chunk(req *Request, firstRecord, count int) {
	if req.phase.Load() != phaseInitialized {
		n.logger.Warn("dropping chunk outside of paging phase",
			slog.String("request", req.ID.String()), slog.Int("first_record", firstRecord))
		return
	}
	req.pages.Add(1)
	req.rows.Add(int64(count))
	if n.handlers.Chunk != nil {
		n.invoke(req, func() { n.handlers.Chunk(req, firstRecord, count) })
	}
}

// completed raises the terminal event. fallback is the error delivered by
// the execution itself and is reported only if the request captured none.
func (n *notifier) completed(req *Request, fallback error) {
	if req.phase.Swap(phaseCompleted) == phaseCompleted {
		return
	}
	req.capture(fallback)

	defer close(req.done)
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("completed handler panicked",
				slog.String("request", req.ID.String()), slog.Any("panic", r))
		}
	}()

	if n.handlers.Completed != nil {
		n.handlers.Completed(req)
	}
}

func (n *notifier) invoke(req *Request, fn func()) {
	req.inCallback.Store(true)
	defer req.inCallback.Store(false)
	fn()
}
