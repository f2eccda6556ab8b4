// Package config provides configuration management for leapstream.
//
// Configuration is layered with koanf. Precedence, highest first:
// changed CLI flags, LEAPSTREAM_* environment variables, leapstream.yaml,
// built-in defaults.
package config

import (
	"strings"

	"github.com/leapstack-labs/leapstream/pkg/core"
)

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb, postgres, sqlite

	// File-based databases (DuckDB, SQLite)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, secrets, settings)
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target to the config consumed by adapters.
func (t *TargetConfig) AdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:     strings.ToLower(t.Type),
		Path:     t.Database,
		Database: t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// Config holds all leapstream configuration options.
type Config struct {
	PageSize     int                  `koanf:"page_size"`
	OutputFormat string               `koanf:"output"`
	JournalPath  string               `koanf:"journal_path"`
	NoJournal    bool                 `koanf:"no_journal"`
	Verbose      bool                 `koanf:"verbose"`
	Environment  string               `koanf:"environment"`
	Target       *TargetConfig        `koanf:"target"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
	// ProjectRoot anchors relative paths.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	PageSize int           `koanf:"page_size"`
	Target   *TargetConfig `koanf:"target"`
}
