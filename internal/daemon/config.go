// Package daemon manages the LifeLock server lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// Config holds all daemon configuration.
type Config struct {
	API           APIConfig                 `toml:"api"`
	Storage       StorageConfig             `toml:"storage"`
	Cache         CacheConfig               `toml:"cache"`
	Events        EventsConfig              `toml:"events"`
	Engine        EngineConfig              `toml:"engine"`
	Notifications domain.NotificationPolicy `toml:"notifications"`
	Logging       LoggingConfig             `toml:"logging"`
	Telemetry     TelemetryConfig           `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver      string `toml:"driver"` // "sqlite" or "postgres"
	Dir         string `toml:"dir"`
	DatabaseURL string `toml:"database_url"`
	MaxConns    int    `toml:"max_conns"`
}

// CacheConfig enables the Redis challenge store.
type CacheConfig struct {
	RedisURL string `toml:"redis_url"` // empty disables
}

// EventsConfig controls domain event publishing.
type EventsConfig struct {
	AMQPURL          string `toml:"amqp_url"` // empty logs events instead
	Exchange         string `toml:"exchange"`
	FailureThreshold uint32 `toml:"failure_threshold"`
	OpenTimeout      string `toml:"open_timeout"`
}

// EngineConfig tunes the scoring engine.
type EngineConfig struct {
	TablesFile       string `toml:"tables_file"` // optional YAML overlay
	Timezone         string `toml:"timezone"`
	ComboWindow      string `toml:"combo_window"`
	PerfectDayTarget int    `toml:"perfect_day_target"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := lifelockHome()
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 7340,
		},
		Storage: StorageConfig{
			Driver:   "sqlite",
			Dir:      homeDir,
			MaxConns: 10,
		},
		Events: EventsConfig{
			Exchange:         "lifelock.rewards",
			FailureThreshold: 5,
			OpenTimeout:      "30s",
		},
		Engine: EngineConfig{
			Timezone:         "Local",
			ComboWindow:      "30m",
			PerfectDayTarget: 5,
		},
		Notifications: domain.DefaultNotificationPolicy(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from $LIFELOCK_HOME/config.toml, falling back to
// defaults, then applies .env and environment overrides.
func LoadConfig() (Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides cfg from LIFELOCK_* environment variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("LIFELOCK_DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
		cfg.Storage.Driver = "postgres"
	}
	if v := os.Getenv("LIFELOCK_REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("LIFELOCK_AMQP_URL"); v != "" {
		cfg.Events.AMQPURL = v
	}
	if v := os.Getenv("LIFELOCK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LIFELOCK_TIMEZONE"); v != "" {
		cfg.Engine.Timezone = v
	}
	if v := os.Getenv("LIFELOCK_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LIFELOCK_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	return nil
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Notifications.MaxPerDay < 0 {
		return fmt.Errorf("notifications.max_per_day must be >= 0")
	}
	return nil
}

// Location resolves the engine timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone: %w", err)
	}
	return loc, nil
}

// SaveConfig writes the config to $LIFELOCK_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath returns the location of config.toml.
func ConfigPath() string {
	return filepath.Join(lifelockHome(), "config.toml")
}

// lifelockHome returns the LifeLock data directory.
func lifelockHome() string {
	if env := os.Getenv("LIFELOCK_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lifelock")
}

// Home is exported for use by other packages.
func Home() string {
	return lifelockHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
