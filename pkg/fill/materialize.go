package fill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// materialize is the paging loop. It reports the page filled during
// dispatch, then fetches and reports pages until one is terminal.
//
// A page is terminal when it is empty, holds fewer records than requested,
// or fills the request window. When exactly a page worth of records
// remains, the following fetch returns an empty page which is reported too.
func (a *Adapter) materialize(ctx context.Context, req *Request, cmd core.AsyncCommand) {
	defer a.finish(req, nil)
	defer func() {
		if r := recover(); r != nil {
			req.capture(fmt.Errorf("fill worker panicked: %v", r))
		}
	}()

	offset := req.Window.StartRecord
	rows, limit := req.firstRows, req.firstLimit

	for page := 0; ; page++ {
		if page > 0 {
			if a.cancellationPending(ctx, req) {
				return
			}

			limit = req.pageLimit(req.Rows())
			var err error
			rows, err = a.fillPage(req, 0, limit)
			if err != nil {
				if req.aborted.Load() {
					req.cancelled.Store(true)
					a.logger.Debug("fetch interrupted by abort",
						slog.String("request", req.ID.String()), slog.Int("page", page), slog.Any("error", err))
					return
				}
				req.capture(&core.FetchError{Page: page, Offset: offset, Err: err})
				return
			}
		}

		terminal := rows == 0 || rows != limit || req.windowFull(rows)

		a.logger.Debug("page fetched",
			slog.String("request", req.ID.String()),
			slog.Int("page", page),
			slog.Int("first_record", offset),
			slog.Int("rows", rows))
		a.notify.chunk(req, offset, rows)
		offset += rows

		if req.cancel.Load() {
			a.abort(req, cmd)
			terminal = true
		}
		if terminal {
			return
		}
	}
}
