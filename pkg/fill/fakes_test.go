package fill

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

var errFetch = errors.New("network gone")

// fakeCursor yields int64 ids 0..total-1 from a single "id" column.
type fakeCursor struct {
	mu     sync.Mutex
	total  int
	pos    int
	failAt int
	err    error
	closes int

	// blockAt pauses Next before reading row blockAt until resume is closed.
	blockAt int
	reached chan struct{}
	resume  chan struct{}
}

func newFakeCursor(total int) *fakeCursor {
	return &fakeCursor{total: total, failAt: -1, blockAt: -1}
}

func (c *fakeCursor) Columns() ([]string, error) { return []string{"id"}, nil }

func (c *fakeCursor) Next() bool {
	c.mu.Lock()
	block := c.blockAt >= 0 && c.pos == c.blockAt
	if block {
		c.blockAt = -1
	}
	c.mu.Unlock()

	if block {
		close(c.reached)
		<-c.resume
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closes > 0 || c.err != nil {
		return false
	}
	if c.failAt >= 0 && c.pos == c.failAt {
		c.err = errFetch
		return false
	}
	if c.pos >= c.total {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Scan(dest ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*(dest[0].(*any)) = int64(c.pos - 1)
	return nil
}

func (c *fakeCursor) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *fakeCursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *fakeCursor) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *fakeCursor) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

type fakeConn struct {
	mu      sync.Mutex
	state   core.ConnState
	async   bool
	opens   int
	closes  int
	enables int
	openErr error
	// beforeOpen runs at the start of Open, outside the lock.
	beforeOpen func()
}

func newFakeConn() *fakeConn {
	return &fakeConn{async: true}
}

func (c *fakeConn) Open(context.Context) error {
	if c.beforeOpen != nil {
		c.beforeOpen()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.opens++
	c.state = core.ConnOpen
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.state = core.ConnClosed
	return nil
}

func (c *fakeConn) State() core.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConn) AsyncEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.async
}

func (c *fakeConn) EnableAsync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == core.ConnOpen {
		return errors.New("connection is open")
	}
	c.enables++
	c.async = true
	return nil
}

func (c *fakeConn) counts() (opens, closes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens, c.closes
}

type fakePending struct {
	done chan struct{}
}

func (p *fakePending) Done() <-chan struct{} { return p.done }

// fakeCommand completes on its own goroutine, after release is closed if set.
type fakeCommand struct {
	conn    core.Connection
	cursor  *fakeCursor
	endErr  error
	release chan struct{}
	aborts  atomic.Int32
}

func newFakeCommand(rows int) *fakeCommand {
	return &fakeCommand{conn: newFakeConn(), cursor: newFakeCursor(rows)}
}

func (c *fakeCommand) Text() string { return "SELECT id FROM fake" }

func (c *fakeCommand) Connection() core.Connection { return c.conn }

func (c *fakeCommand) BeginExecute(_ context.Context, done func(core.Pending)) core.Pending {
	p := &fakePending{done: make(chan struct{})}
	go func() {
		if c.release != nil {
			<-c.release
		}
		close(p.done)
		done(p)
	}()
	return p
}

func (c *fakeCommand) EndExecute(p core.Pending) (core.Cursor, error) {
	<-p.Done()
	if c.endErr != nil {
		return nil, c.endErr
	}
	return c.cursor, nil
}

func (c *fakeCommand) Abort() {
	c.aborts.Add(1)
	c.cursor.fail(context.Canceled)
}

func (c *fakeCommand) fakeConn() *fakeConn { return c.conn.(*fakeConn) }

// syncCommand is a Command without asynchronous execution.
type syncCommand struct{}

func (syncCommand) Text() string                { return "SELECT 1" }
func (syncCommand) Connection() core.Connection { return newFakeConn() }

type event struct {
	kind  string
	first int
	count int
}

// recorder captures events in order. Optional hooks run inside the handlers.
type recorder struct {
	mu     sync.Mutex
	events []event

	onInitialized func(req *Request)
	onChunk       func(req *Request, first, count int)
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		Initialized: func(req *Request) {
			r.add(event{kind: "initialized"})
			if r.onInitialized != nil {
				r.onInitialized(req)
			}
		},
		Chunk: func(req *Request, first, count int) {
			r.add(event{kind: "chunk", first: first, count: count})
			if r.onChunk != nil {
				r.onChunk(req, first, count)
			}
		},
		Completed: func(*Request) {
			r.add(event{kind: "completed"})
		},
	}
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return out
}

// chunks returns [first, count] pairs of every Chunk event.
func (r *recorder) chunks() [][2]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][2]int
	for _, e := range r.events {
		if e.kind == "chunk" {
			out = append(out, [2]int{e.first, e.count})
		}
	}
	return out
}

func waitDone(t *testing.T, req *Request) {
	t.Helper()
	select {
	case <-req.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("fill did not complete")
	}
}
