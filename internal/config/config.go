// Package config provides configuration management for Activity Architect.
//
// Configuration is layered with koanf: built-in defaults, then an optional
// YAML file (ARCHITECT_CONFIG, or architect.yaml in the working directory),
// then ARCHITECT_* environment variables, which win.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/scrypster/activity-architect/pkg/types"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "ARCHITECT_CONFIG"

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "ARCHITECT_"

// DefaultConfigPaths are searched in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"architect.yaml",
	"architect.yml",
}

// Config holds all configuration settings.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Engine   EngineConfig   `koanf:"engine"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host          string        `koanf:"host"`            // default 127.0.0.1
	Port          int           `koanf:"port"`            // default 6464
	RateLimit     float64       `koanf:"rate_limit"`      // sustained requests per second
	RateBurst     int           `koanf:"rate_burst"`      // burst size
	ShutdownGrace time.Duration `koanf:"shutdown_grace"`  // graceful shutdown timeout
	AllowedOrigin []string      `koanf:"allowed_origins"` // websocket origin patterns
}

// StorageConfig selects and configures the durable store.
type StorageConfig struct {
	Engine      string `koanf:"engine"`       // sqlite or postgres
	DataPath    string `koanf:"data_path"`    // directory holding architect.db
	PostgresDSN string `koanf:"postgres_dsn"` // used when engine is postgres

	// Breaker settings for the store circuit breaker.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// CatalogConfig points at the catalog source.
type CatalogConfig struct {
	// Source is file (Path, or the embedded catalog) or store (the catalog
	// last seeded into the store, falling back to file while it is empty).
	Source string `koanf:"source"`

	// Path is a YAML/JSON catalog file. Empty means the embedded catalog.
	Path string `koanf:"path"`

	// Watch reloads Path when it changes on disk. Only used with the file
	// source.
	Watch bool `koanf:"watch"`

	// SeedStore writes the loaded catalog into the store at startup.
	SeedStore bool `koanf:"seed_store"`
}

// EngineConfig holds matching defaults.
type EngineConfig struct {
	DefaultTolerance float64 `koanf:"default_tolerance"`
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	Mode     string `koanf:"mode"`      // development or production
	APIToken string `koanf:"api_token"` // bearer token required in production
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          6464,
			RateLimit:     20,
			RateBurst:     40,
			ShutdownGrace: 5 * time.Second,
			AllowedOrigin: []string{"localhost:6464", "127.0.0.1:6464"},
		},
		Storage: StorageConfig{
			Engine:             "sqlite",
			DataPath:           "./data",
			BreakerMaxFailures: 3,
			BreakerTimeout:     30 * time.Second,
		},
		Catalog: CatalogConfig{
			Source:    "file",
			SeedStore: true,
		},
		Engine: EngineConfig{
			DefaultTolerance: types.DefaultTolerance,
		},
		Security: SecurityConfig{
			Mode: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional config file and
// the environment.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load environment: %w", err)
	}

	if raw, ok := k.Get("server.allowed_origins").(string); ok {
		if err := k.Set("server.allowed_origins", splitList(raw)); err != nil {
			return nil, fmt.Errorf("config: allowed_origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: storage.postgres_dsn is required for the postgres engine")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}

	switch c.Catalog.Source {
	case "file", "store":
	default:
		return fmt.Errorf("config: unknown catalog source %q", c.Catalog.Source)
	}

	if err := types.ValidateTolerance(c.Engine.DefaultTolerance); err != nil {
		return fmt.Errorf("config: engine.default_tolerance: %w", err)
	}

	if c.Security.Mode == "production" && c.Security.APIToken == "" {
		return fmt.Errorf("config: security.api_token is required in production mode")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SQLitePath returns the database file inside the data directory.
func (c *Config) SQLitePath() string {
	return strings.TrimRight(c.Storage.DataPath, "/") + "/architect.db"
}

// envMappings maps lower-cased variable names (prefix stripped) to koanf
// paths. Unlisted variables are ignored.
var envMappings = map[string]string{
	"host":                 "server.host",
	"port":                 "server.port",
	"rate_limit":           "server.rate_limit",
	"rate_burst":           "server.rate_burst",
	"shutdown_grace":       "server.shutdown_grace",
	"allowed_origins":      "server.allowed_origins",
	"storage_engine":       "storage.engine",
	"data_path":            "storage.data_path",
	"postgres_dsn":         "storage.postgres_dsn",
	"breaker_max_failures": "storage.breaker_max_failures",
	"breaker_timeout":      "storage.breaker_timeout",
	"catalog_path":         "catalog.path",
	"catalog_source":       "catalog.source",
	"catalog_watch":        "catalog.watch",
	"catalog_seed_store":   "catalog.seed_store",
	"default_tolerance":    "engine.default_tolerance",
	"security_mode":        "security.mode",
	"api_token":            "security.api_token",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
}

// envTransformFunc maps ARCHITECT_DATA_PATH to storage.data_path and so on.
// The env provider strips nothing itself, so the prefix is removed here.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return envMappings[key]
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
