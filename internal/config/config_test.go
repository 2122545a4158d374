package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty directory so no user config leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("FUNDCRM_REMOTE_BACKEND", "")
	t.Setenv("FUNDCRM_USER_ID", "")
	return home
}

// validCfg returns a fully-valid Config for mutation testing.
func validCfg() *Config {
	return &Config{
		Remote:  RemoteConfig{Backend: BackendMemory},
		Neo4j:   Neo4jConfig{URI: "bolt://localhost:7687"},
		Local:   LocalConfig{Dir: "/tmp/fundcrm", KeyPrefix: DefaultKeyPrefix},
		Persist: PersistConfig{Debounce: time.Second, BaseDelay: time.Second, MaxAttempts: 5},
		Equity:  EquityConfig{DefaultValuationCap: DefaultValuationCap},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Remote.Backend)
	assert.Equal(t, filepath.Join(home, ".fundcrm", "fundcrm.db"), cfg.Remote.SQLitePath)
	assert.Equal(t, filepath.Join(home, ".fundcrm", "local"), cfg.Local.Dir)
	assert.Equal(t, "fundraising-crm", cfg.Local.KeyPrefix)
	assert.Equal(t, time.Second, cfg.Persist.Debounce)
	assert.Equal(t, time.Second, cfg.Persist.BaseDelay)
	assert.Equal(t, 5, cfg.Persist.MaxAttempts)
	assert.Equal(t, 10_000_000.0, cfg.Equity.DefaultValuationCap)
	assert.Empty(t, cfg.Identity.UserID)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("FUNDCRM_REMOTE_BACKEND", "sqlite")
	t.Setenv("FUNDCRM_USER_ID", "alice")
	t.Setenv("ANTHROPIC_API_KEY", "test-key-12345")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Remote.Backend)
	assert.Equal(t, "alice", cfg.Identity.UserID)
	assert.Equal(t, "test-key-12345", cfg.Claude.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".fundcrm")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	yaml := `
remote:
  backend: neo4j
neo4j:
  uri: bolt://graph:7687
persist:
  debounce: 250ms
  max_attempts: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendNeo4j, cfg.Remote.Backend)
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, 250*time.Millisecond, cfg.Persist.Debounce)
	assert.Equal(t, 3, cfg.Persist.MaxAttempts)
}

func TestLoad_InvalidBackend(t *testing.T) {
	isolate(t)
	t.Setenv("FUNDCRM_REMOTE_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote.backend")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"sqlite without path", func(c *Config) { c.Remote.Backend = BackendSQLite }, "remote.sqlite_path"},
		{"neo4j without uri", func(c *Config) { c.Remote.Backend = BackendNeo4j; c.Neo4j.URI = "" }, "neo4j.uri"},
		{"empty local dir", func(c *Config) { c.Local.Dir = "" }, "local.dir"},
		{"empty key prefix", func(c *Config) { c.Local.KeyPrefix = "" }, "local.key_prefix"},
		{"zero debounce", func(c *Config) { c.Persist.Debounce = 0 }, "persist.debounce"},
		{"negative base delay", func(c *Config) { c.Persist.BaseDelay = -time.Second }, "persist.base_delay"},
		{"zero attempts", func(c *Config) { c.Persist.MaxAttempts = 0 }, "persist.max_attempts"},
		{"zero valuation cap", func(c *Config) { c.Equity.DefaultValuationCap = 0 }, "equity.default_valuation_cap"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	require.NoError(t, validCfg().Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validCfg()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSecretsMasked(t *testing.T) {
	s := ClaudeConfig{APIKey: "sk-ant-1234567890abcdef", Model: "claude-haiku-4-5-20251001"}.String()
	assert.Contains(t, s, "sk-a")
	assert.NotContains(t, s, "1234567890")

	n := Neo4jConfig{URI: "bolt://x", Password: "hunter2"}.String()
	assert.NotContains(t, n, "hunter2")
	assert.Contains(t, n, "***")
}
