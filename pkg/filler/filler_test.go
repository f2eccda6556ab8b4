package filler

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstream/internal/testutil"
	"github.com/leapstack-labs/leapstream/pkg/core"
)

// queryRows returns a live cursor over n rows (id, name) backed by sqlmock.
func queryRows(t *testing.T, n int) *sql.Rows {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows := sqlmock.NewRows([]string{"id", "name"})
	for i := range n {
		rows.AddRow(int64(i), []byte("row"))
	}
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	//nolint:rowserrcheck // the filler checks Err
	r, err := db.Query("SELECT id, name FROM users")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestFiller_Fill(t *testing.T) {
	tests := []struct {
		name        string
		rows        int
		start       int
		max         int
		wantCopied  int
		wantFirstID int64
	}{
		{name: "all rows", rows: 5, wantCopied: 5},
		{name: "bounded", rows: 5, max: 3, wantCopied: 3},
		{name: "skip leading rows", rows: 5, start: 2, max: 2, wantCopied: 2, wantFirstID: 2},
		{name: "skip past end", rows: 2, start: 4, max: 2, wantCopied: 0},
		{name: "short page", rows: 2, max: 10, wantCopied: 2},
		{name: "empty cursor", rows: 0, max: 10, wantCopied: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(testutil.NewTestLogger(t))
			ds := core.NewDataSet()

			n, err := f.Fill(core.Target{Set: ds, SourceTable: "users"}, tt.start, tt.max, queryRows(t, tt.rows))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCopied, n)

			tbl, ok := ds.Table("users")
			require.True(t, ok)
			assert.Equal(t, []string{"id", "name"}, tbl.Columns())
			assert.Equal(t, tt.wantCopied, tbl.Len())
			if tt.wantCopied > 0 {
				row := tbl.Row(0)
				assert.Equal(t, tt.wantFirstID, row[0])
				assert.Equal(t, "row", row[1], "[]byte values are stored as strings")
			}
		})
	}
}

func TestFiller_AppendsAcrossCalls(t *testing.T) {
	f := New(nil)
	tbl := core.NewTable("t")
	cur := queryRows(t, 5)
	target := core.Target{Tables: []*core.Table{tbl}}

	n, err := f.Fill(target, 0, 2, cur)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.Fill(target, 0, 2, cur)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.Fill(target, 0, 2, cur)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 5, tbl.Len())
	assert.Equal(t, int64(4), tbl.Row(4)[0])
}

func TestFiller_Errors(t *testing.T) {
	t.Run("invalid window", func(t *testing.T) {
		_, err := New(nil).Fill(core.Target{Set: core.NewDataSet()}, -1, 0, queryRows(t, 1))
		assert.Error(t, err)
	})

	t.Run("unresolvable target", func(t *testing.T) {
		_, err := New(nil).Fill(core.Target{}, 0, 0, queryRows(t, 1))
		assert.Error(t, err)
	})

	t.Run("schema mismatch", func(t *testing.T) {
		tbl := core.NewTable("t")
		require.NoError(t, tbl.SetColumns([]string{"other"}))
		_, err := New(nil).Fill(core.Target{Tables: []*core.Table{tbl}}, 0, 0, queryRows(t, 1))
		assert.Error(t, err)
	})

	t.Run("row error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		rows := sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).RowError(1, assert.AnError)
		mock.ExpectQuery("SELECT").WillReturnRows(rows)
		r, err := db.Query("SELECT id FROM t")
		require.NoError(t, err)
		defer func() { _ = r.Close() }()

		n, err := New(nil).Fill(core.Target{Set: core.NewDataSet()}, 0, 0, r)
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, n)
	})
}
