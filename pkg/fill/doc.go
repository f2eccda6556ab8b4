// Package fill streams the results of a query into tables one bounded page at a time.
//
// A fill runs in two phases. The dispatch phase opens the command's connection,
// starts the query without blocking the caller and, when the query completes,
// copies the first page and raises Initialized. The paging phase runs on a single
// worker goroutine that reports every page through Chunk until the cursor is
// exhausted, a page fails, or the consumer cancels. Completed is always raised
// last, exactly once, with the first error captured during the operation.
//
//	a, err := fill.New(fill.Config{
//		Command:  cmd,
//		PageSize: 500,
//		Handlers: fill.Handlers{
//			Chunk: func(req *fill.Request, first, count int) {
//				render(req.Target, first, count)
//			},
//			Completed: func(req *fill.Request) {
//				if err := req.Err(); err != nil {
//					log.Print(err)
//				}
//			},
//		},
//	})
//	req, err := a.RequestFill(ctx, core.Target{Set: core.NewDataSet()})
//	_ = req.Wait(ctx)
//
// A Chunk callback may call req.Cancel to stop after the current page; the
// adapter then aborts the command. CancelFill stops the operation at the next
// page boundary without interrupting a fetch in progress.
package fill
