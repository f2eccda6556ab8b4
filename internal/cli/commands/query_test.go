package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstream/internal/config"
)

func TestReadQuery(t *testing.T) {
	sqlFile := filepath.Join(t.TempDir(), "q.sql")
	require.NoError(t, os.WriteFile(sqlFile, []byte("  SELECT 2;\n"), 0o600))

	tests := []struct {
		name    string
		stdin   string
		args    []string
		input   string
		want    string
		wantErr bool
	}{
		{name: "argument", args: []string{" SELECT 1 "}, want: "SELECT 1"},
		{name: "argument wins over file", args: []string{"SELECT 1"}, input: sqlFile, want: "SELECT 1"},
		{name: "file", input: sqlFile, want: "SELECT 2;"},
		{name: "missing file", input: filepath.Join(t.TempDir(), "nope.sql"), wantErr: true},
		{name: "stdin", stdin: "SELECT 3\n", want: "SELECT 3"},
		{name: "nothing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readQuery(strings.NewReader(tt.stdin), tt.args, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// testConfig returns a config for an in-memory sqlite target journaling
// into a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Target = &config.TargetConfig{Type: "sqlite"}
	cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")
	cfg.OutputFormat = "csv"
	cfg.PageSize = 2
	return cfg
}

func TestQueryCommand(t *testing.T) {
	cfg := testConfig(t)
	cmd := NewQueryCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{seriesQuery(5), "--offset", "1", "--limit", "3"})

	require.NoError(t, cmd.ExecuteContext(config.WithConfig(context.Background(), cfg)))

	assert.Equal(t, "i,label\n2,row 2\n3,row 3\n4,row 4\n", stdout.String())
	assert.Contains(t, stderr.String(), "(3 rows in 2 pages")
}

func TestQueryCommand_NoSQL(t *testing.T) {
	cfg := testConfig(t)
	cmd := NewQueryCommand()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.ExecuteContext(config.WithConfig(context.Background(), cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no SQL given")
}

func TestQueryCommand_QueryError(t *testing.T) {
	cfg := testConfig(t)
	cmd := NewQueryCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"SELECT * FROM nowhere"})

	err := cmd.ExecuteContext(config.WithConfig(context.Background(), cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestHistoryCommand(t *testing.T) {
	cfg := testConfig(t)
	ctx := config.WithConfig(context.Background(), cfg)

	for _, q := range []string{"SELECT 1 AS a", "SELECT * FROM nowhere"} {
		cmd := NewQueryCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{q})
		_ = cmd.ExecuteContext(ctx)
	}

	tests := []struct {
		name    string
		format  string
		args    []string
		wantOut []string
	}{
		{
			name:    "table",
			format:  "table",
			wantOut: []string{"STATUS", "completed", "failed", "SELECT 1 AS a"},
		},
		{
			name:    "json",
			format:  "json",
			wantOut: []string{`"status": "failed"`, `"query": "SELECT 1 AS a"`, `"target": "sqlite:memory"`},
		},
		{
			name:    "yaml",
			format:  "yaml",
			wantOut: []string{"status: completed", "page_size: 2"},
		},
		{
			name:    "csv",
			format:  "csv",
			wantOut: []string{"id,status,pages,rows,started_at,error,query\n"},
		},
		{
			name:    "limit",
			format:  "json",
			args:    []string{"--limit", "1"},
			wantOut: []string{"nowhere"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.OutputFormat = tt.format
			cmd := NewHistoryCommand()
			var stdout bytes.Buffer
			cmd.SetOut(&stdout)
			cmd.SetArgs(append([]string{}, tt.args...))

			require.NoError(t, cmd.ExecuteContext(ctx))
			for _, want := range tt.wantOut {
				assert.Contains(t, stdout.String(), want)
			}
		})
	}
}

func TestHistoryCommand_ShowEntry(t *testing.T) {
	cfg := testConfig(t)
	ctx := config.WithConfig(context.Background(), cfg)

	store, err := (&CommandContext{Cfg: cfg, Logger: config.GetLogger(ctx)}).OpenJournal()
	require.NoError(t, err)
	entry, err := store.Begin(ctx, "", "SELECT 99", "sqlite:memory", 2)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cfg.OutputFormat = "table"
	cmd := NewHistoryCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{entry.ID})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, stdout.String(), "ID:        "+entry.ID)
	assert.Contains(t, stdout.String(), "Status:    running")
	assert.Contains(t, stdout.String(), "SELECT 99")
}

func TestHistoryCommand_JournalDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.NoJournal = true

	cmd := NewHistoryCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	err := cmd.ExecuteContext(config.WithConfig(context.Background(), cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestDescribeTarget(t *testing.T) {
	tests := []struct {
		target *config.TargetConfig
		want   string
	}{
		{nil, ""},
		{&config.TargetConfig{Type: "duckdb"}, "duckdb:memory"},
		{&config.TargetConfig{Type: "sqlite", Database: "app.db"}, "sqlite:app.db"},
		{&config.TargetConfig{Type: "postgres", Host: "db", Port: 5432, Database: "shop", Password: "secret"}, "postgres://db:5432/shop"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeTarget(tt.target))
	}
}
