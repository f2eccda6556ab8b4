package config

import "github.com/leapstack-labs/leapstream/pkg/fill"

// Default configuration values.
const (
	DefaultPageSize    = fill.DefaultPageSize
	DefaultOutput      = "auto" // Auto-detect: TTY=table, non-TTY=csv
	DefaultJournalPath = ".leapstream/journal.db"
	DefaultTargetType  = "duckdb"
)

// OutputFormats lists the accepted values of the output key.
var OutputFormats = []string{"auto", "table", "json", "csv", "yaml"}

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	cfg := &Config{
		PageSize:     DefaultPageSize,
		OutputFormat: DefaultOutput,
		JournalPath:  DefaultJournalPath,
		Target:       &TargetConfig{Type: DefaultTargetType},
	}
	ApplyTargetDefaults(cfg.Target)
	return cfg
}

// DefaultSchemaForType returns the default schema for a database type.
func DefaultSchemaForType(dbType string) string {
	switch dbType {
	case "postgres":
		return "public"
	case "duckdb", "sqlite":
		return "main"
	default:
		return ""
	}
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	merged.Params = make(map[string]any, len(base.Params)+len(override.Params))
	for k, v := range base.Options {
		merged.Options[k] = v
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}

	return &merged
}
