package duckdb

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration, decoded from
// adapter.Config.Params (target.params in leapstream.yaml).
type Params struct {
	// Extensions are installed and loaded on connect (e.g. "httpfs", "json").
	Extensions []string `mapstructure:"extensions"`

	// Secrets authenticate reads from cloud storage.
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings are applied globally on connect (e.g. memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig describes a DuckDB CREATE SECRET statement.
type SecretConfig struct {
	Type     string `mapstructure:"type"`
	Provider string `mapstructure:"provider"`
	Region   string `mapstructure:"region"`
	// Scope is a single path prefix or a list of them.
	Scope    any    `mapstructure:"scope"`
	KeyID    string `mapstructure:"key_id"`
	Secret   string `mapstructure:"secret"`
	Endpoint string `mapstructure:"endpoint"`
	URLStyle string `mapstructure:"url_style"`
	UseSSL   *bool  `mapstructure:"use_ssl"`
}

func parseParams(raw map[string]any) (*Params, error) {
	params := &Params{}
	if len(raw) == 0 {
		return params, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           params,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}

	for i, s := range params.Secrets {
		if s.Type == "" {
			return nil, fmt.Errorf("invalid duckdb params: secret %d has no type", i)
		}
	}
	return params, nil
}

// setupStatements returns the statements Connect runs, in order:
// extensions, then settings sorted by name, then secrets.
func setupStatements(p *Params) []string {
	var stmts []string
	for _, ext := range p.Extensions {
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}
	for _, name := range slices.Sorted(maps.Keys(p.Settings)) {
		stmts = append(stmts, fmt.Sprintf("SET GLOBAL %s = %s", name, quote(p.Settings[name])))
	}
	for _, s := range p.Secrets {
		stmts = append(stmts, buildCreateSecretSQL(s))
	}
	return stmts
}

func buildCreateSecretSQL(s SecretConfig) string {
	opts := []string{"TYPE " + s.Type}
	if s.Provider != "" {
		opts = append(opts, "PROVIDER "+s.Provider)
	}
	if s.Region != "" {
		opts = append(opts, "REGION "+quote(s.Region))
	}
	if scope := scopeSQL(s.Scope); scope != "" {
		opts = append(opts, "SCOPE "+scope)
	}
	if s.KeyID != "" {
		opts = append(opts, "KEY_ID "+quote(s.KeyID))
	}
	if s.Secret != "" {
		opts = append(opts, "SECRET "+quote(s.Secret))
	}
	if s.Endpoint != "" {
		opts = append(opts, "ENDPOINT "+quote(s.Endpoint))
	}
	if s.URLStyle != "" {
		opts = append(opts, "URL_STYLE "+quote(s.URLStyle))
	}
	if s.UseSSL != nil {
		opts = append(opts, fmt.Sprintf("USE_SSL %t", *s.UseSSL))
	}
	return "CREATE SECRET (\n    " + strings.Join(opts, ",\n    ") + "\n)"
}

func scopeSQL(scope any) string {
	var items []string
	switch v := scope.(type) {
	case nil:
		return ""
	case string:
		return quote(v)
	case []string:
		items = v
	case []any:
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
	default:
		return quote(fmt.Sprint(v))
	}

	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quote(item)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// redactSecret hides credentials of CREATE SECRET statements in logs and errors.
func redactSecret(stmt string) string {
	if strings.HasPrefix(stmt, "CREATE SECRET") {
		return "CREATE SECRET (...)"
	}
	return stmt
}
