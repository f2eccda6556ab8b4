package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstream/internal/testutil"
	"github.com/leapstack-labs/leapstream/pkg/adapter"
	"github.com/leapstack-labs/leapstream/pkg/core"
	"github.com/leapstack-labs/leapstream/pkg/fill"
)

func seed(t *testing.T, adp *Adapter, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, adp.Exec(ctx, "CREATE TABLE events (id INTEGER PRIMARY KEY, name TEXT NOT NULL)"))

	values := make([]string, n)
	for i := range n {
		values[i] = fmt.Sprintf("(%d, 'event-%d')", i, i)
	}
	if n > 0 {
		require.NoError(t, adp.Exec(ctx, "INSERT INTO events (id, name) VALUES "+strings.Join(values, ", ")))
	}
}

type chunkLog struct {
	mu     sync.Mutex
	chunks [][2]int
}

func (l *chunkLog) add(first, count int) {
	l.mu.Lock()
	l.chunks = append(l.chunks, [2]int{first, count})
	l.mu.Unlock()
}

func (l *chunkLog) get() [][2]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chunks
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		options map[string]string
		want    string
	}{
		{name: "no options", path: "data.db", want: "data.db"},
		{
			name:    "pragmas sorted",
			path:    "data.db",
			options: map[string]string{"journal_mode": "WAL", "busy_timeout": "5000"},
			want:    "data.db?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29",
		},
		{
			name:    "existing query",
			path:    "file:data.db?mode=ro",
			options: map[string]string{"busy_timeout": "100"},
			want:    "file:data.db?mode=ro&_pragma=busy_timeout%28100%29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(tt.path, tt.options))
		})
	}
}

func TestAdapter_ConnectWithPragmas(t *testing.T) {
	ctx := context.Background()
	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(ctx, adapter.Config{
		Path:    filepath.Join(t.TempDir(), "pragmas.db"),
		Options: map[string]string{"busy_timeout": "4321"},
	}))
	defer func() { _ = adp.Close() }()

	var timeout int
	require.NoError(t, adp.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 4321, timeout)
	assert.Equal(t, "sqlite", adp.DialectName())
}

func TestAdapter_StreamsPages(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "in memory", path: func(*testing.T) string { return "" }},
		{name: "file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "events.db") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(testutil.NewTestLogger(t))
			require.NoError(t, adp.Connect(ctx, adapter.Config{Path: tt.path(t)}))
			defer func() { _ = adp.Close() }()
			seed(t, adp, 42)

			cmd, err := adp.Command("SELECT id, name FROM events WHERE id >= ? ORDER BY id", 2)
			require.NoError(t, err)

			log := &chunkLog{}
			fa, err := fill.New(fill.Config{
				Command:  cmd,
				PageSize: 10,
				Logger:   testutil.NewTestLogger(t),
				Handlers: fill.Handlers{
					Chunk: func(_ *fill.Request, first, count int) { log.add(first, count) },
				},
			})
			require.NoError(t, err)

			set := core.NewDataSet()
			req, err := fa.RequestFill(ctx, core.Target{Set: set})
			require.NoError(t, err)
			require.NoError(t, req.Wait(ctx))

			assert.Equal(t, [][2]int{{0, 10}, {10, 10}, {20, 10}, {30, 10}, {40, 0}}, log.get())
			tbl, ok := set.Table(core.DefaultSourceTable)
			require.True(t, ok)
			assert.Equal(t, []string{"id", "name"}, tbl.Columns())
			assert.Equal(t, 40, tbl.Len())
			assert.Equal(t, []any{int64(2), "event-2"}, tbl.Row(0))
			assert.Equal(t, core.ConnClosed, cmd.Connection().State())
		})
	}
}

func TestAdapter_CancelReleasesConnection(t *testing.T) {
	ctx := context.Background()
	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(ctx, adapter.Config{}))
	defer func() { _ = adp.Close() }()
	seed(t, adp, 100)

	cmd, err := adp.Command("SELECT id, name FROM events ORDER BY id")
	require.NoError(t, err)

	log := &chunkLog{}
	fa, err := fill.New(fill.Config{
		Command:  cmd,
		PageSize: 10,
		Handlers: fill.Handlers{
			Chunk: func(req *fill.Request, first, count int) {
				log.add(first, count)
				if first == 10 {
					req.Cancel()
				}
			},
		},
	})
	require.NoError(t, err)

	req, err := fa.RequestFill(ctx, core.Target{Set: core.NewDataSet()})
	require.NoError(t, err)
	require.NoError(t, req.Wait(ctx))

	assert.True(t, req.Cancelled())
	assert.Equal(t, [][2]int{{0, 10}, {10, 10}}, log.get())

	// The in-memory database has a single connection, so this only
	// succeeds if the fill gave it back.
	execCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, adp.Exec(execCtx, "DELETE FROM events"))
}

func TestAdapter_CancelledContextIsNotAFailure(t *testing.T) {
	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{}))
	defer func() { _ = adp.Close() }()
	seed(t, adp, 5)

	cmd, err := adp.Command("SELECT id, name FROM events ORDER BY id")
	require.NoError(t, err)

	log := &chunkLog{}
	fa, err := fill.New(fill.Config{
		Command:  cmd,
		Logger:   testutil.NewTestLogger(t),
		Handlers: fill.Handlers{Chunk: func(_ *fill.Request, first, count int) { log.add(first, count) }},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := fa.RequestFill(ctx, core.Target{Set: core.NewDataSet()})
	require.NoError(t, err)
	<-req.Done()

	var cfgErr *core.ConfigurationError
	assert.False(t, errors.As(req.Err(), &cfgErr), "got %v", req.Err())
	assert.NoError(t, req.Err())
	assert.True(t, req.Cancelled())
	assert.Empty(t, log.get())
	assert.False(t, fa.IsExecuting())
	assert.Equal(t, core.ConnClosed, cmd.Connection().State())
}

func TestAdapter_QueryError(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{}))
	defer func() { _ = adp.Close() }()

	cmd, err := adp.Command("SELECT * FROM missing_table")
	require.NoError(t, err)

	var completed int
	fa, err := fill.New(fill.Config{
		Command:  cmd,
		Handlers: fill.Handlers{Completed: func(*fill.Request) { completed++ }},
	})
	require.NoError(t, err)

	req, err := fa.RequestFill(ctx, core.Target{Set: core.NewDataSet()})
	require.NoError(t, err)
	err = req.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_table")
	assert.Equal(t, 1, completed)
	assert.False(t, fa.IsExecuting())
}

func TestRegistered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("sqlite"))
}
