package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultKeyPrefix prefixes local-store keys: <prefix>-<user>.
	DefaultKeyPrefix = "fundraising-crm"

	// DefaultValuationCap is used for rounds that carry no valuation cap.
	DefaultValuationCap = 10_000_000
)

// Remote backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
)

// Config holds all configuration for fundcrm.
type Config struct {
	Remote   RemoteConfig   `mapstructure:"remote"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Local    LocalConfig    `mapstructure:"local"`
	Persist  PersistConfig  `mapstructure:"persist"`
	Identity IdentityConfig `mapstructure:"identity"`
	Equity   EquityConfig   `mapstructure:"equity"`
	Claude   ClaudeConfig   `mapstructure:"claude"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	API      APIConfig      `mapstructure:"api"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// RemoteConfig selects the remote document store.
type RemoteConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Neo4jConfig holds Neo4j connection settings.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// String returns a safe representation of Neo4jConfig with the password masked.
func (c Neo4jConfig) String() string {
	return fmt.Sprintf("Neo4jConfig{URI:%s, Username:%s, Password:%s, Database:%s}", c.URI, c.Username, maskAPIKey(c.Password), c.Database)
}

// LocalConfig holds the on-device document store settings.
type LocalConfig struct {
	Dir       string `mapstructure:"dir"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// PersistConfig tunes debounced saving.
type PersistConfig struct {
	Debounce    time.Duration `mapstructure:"debounce"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// IdentityConfig names the signed-in user. Empty means anonymous.
type IdentityConfig struct {
	UserID string `mapstructure:"user_id"`
}

// EquityConfig holds equity projection settings.
type EquityConfig struct {
	DefaultValuationCap float64 `mapstructure:"default_valuation_cap"`
}

// ClaudeConfig holds Anthropic Claude API settings.
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of ClaudeConfig with the API key masked.
func (c ClaudeConfig) String() string {
	masked := maskAPIKey(c.APIKey)
	return fmt.Sprintf("ClaudeConfig{APIKey:%s, Model:%s}", masked, c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("remote.backend", BackendMemory)
	v.SetDefault("remote.sqlite_path", filepath.Join(homeDir(), ".fundcrm", "fundcrm.db"))

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("local.dir", filepath.Join(homeDir(), ".fundcrm", "local"))
	v.SetDefault("local.key_prefix", DefaultKeyPrefix)

	v.SetDefault("persist.debounce", time.Second)
	v.SetDefault("persist.base_delay", time.Second)
	v.SetDefault("persist.max_attempts", 5)

	v.SetDefault("identity.user_id", "")

	v.SetDefault("equity.default_valuation_cap", DefaultValuationCap)

	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".fundcrm"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("FUNDCRM")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("remote.backend", "FUNDCRM_REMOTE_BACKEND")
	_ = v.BindEnv("remote.sqlite_path", "FUNDCRM_REMOTE_SQLITE_PATH")
	_ = v.BindEnv("neo4j.uri", "FUNDCRM_NEO4J_URI")
	_ = v.BindEnv("neo4j.password", "FUNDCRM_NEO4J_PASSWORD")
	_ = v.BindEnv("local.dir", "FUNDCRM_LOCAL_DIR")
	_ = v.BindEnv("identity.user_id", "FUNDCRM_USER_ID")
	_ = v.BindEnv("api.listen_addr", "FUNDCRM_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "FUNDCRM_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK; use defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Remote.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Remote.SQLitePath == "" {
			return fmt.Errorf("remote.sqlite_path must not be empty for the sqlite backend")
		}
	case BackendNeo4j:
		if c.Neo4j.URI == "" {
			return fmt.Errorf("neo4j.uri must not be empty for the neo4j backend")
		}
	default:
		return fmt.Errorf("remote.backend must be one of memory, sqlite, neo4j (got %q)", c.Remote.Backend)
	}
	if c.Local.Dir == "" {
		return fmt.Errorf("local.dir must not be empty")
	}
	if c.Local.KeyPrefix == "" {
		return fmt.Errorf("local.key_prefix must not be empty")
	}
	if c.Persist.Debounce <= 0 {
		return fmt.Errorf("persist.debounce must be greater than 0")
	}
	if c.Persist.BaseDelay <= 0 {
		return fmt.Errorf("persist.base_delay must be greater than 0")
	}
	if c.Persist.MaxAttempts < 1 {
		return fmt.Errorf("persist.max_attempts must be at least 1")
	}
	if c.Equity.DefaultValuationCap <= 0 {
		return fmt.Errorf("equity.default_valuation_cap must be greater than 0")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
