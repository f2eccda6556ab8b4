package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstream/internal/testutil"
	"github.com/leapstack-labs/leapstream/pkg/core"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		assert.NoError(t, (&BaseSQLAdapter{}).Close())
	})

	t.Run("connected", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		mock.ExpectClose()

		base := &BaseSQLAdapter{DB: db, Logger: testutil.NewTestLogger(t)}
		require.NoError(t, base.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name    string
		stmt    string
		expect  func(mock sqlmock.Sqlmock)
		wantErr string
	}{
		{
			name: "statement runs",
			stmt: "CREATE TABLE events (id INT)",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE events").WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "driver error is wrapped",
			stmt: "DROP TABLE nope",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DROP TABLE nope").WillReturnError(assert.AnError)
			},
			wantErr: "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.expect(mock)

			err = (&BaseSQLAdapter{DB: db}).Exec(context.Background(), tt.stmt)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, assert.AnError)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("not connected", func(t *testing.T) {
		err := (&BaseSQLAdapter{}).Exec(context.Background(), "SELECT 1")
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestBaseSQLAdapter_Command(t *testing.T) {
	t.Run("without connection", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		_, err := base.Command("SELECT 1")
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.False(t, base.IsConnected())
	})

	t.Run("binds query to a closed connection", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		base := &BaseSQLAdapter{DB: db}
		cmd, err := base.Command("SELECT * FROM users WHERE id = ?", 7)
		require.NoError(t, err)

		assert.True(t, base.IsConnected())
		assert.Equal(t, "SELECT * FROM users WHERE id = ?", cmd.Text())
		assert.Equal(t, []any{7}, cmd.Args())
		require.NotNil(t, cmd.Connection())
		assert.Equal(t, core.ConnClosed, cmd.Connection().State())
		assert.False(t, cmd.Connection().AsyncEnabled())
	})
}
