package daemon

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 7340 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7340)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Notifications.MaxPerDay != 3 {
		t.Errorf("Notifications.MaxPerDay = %d, want 3", cfg.Notifications.MaxPerDay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LIFELOCK_HOME", home)
	t.Setenv("LIFELOCK_API_PORT", "9000")
	t.Setenv("LIFELOCK_LOG_LEVEL", "debug")

	toml := "[engine]\nperfect_day_target = 7\n\n[notifications]\nmax_per_day = 5\nquiet_start = \"23:00\"\nquiet_end = \"07:00\"\n"
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(toml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Engine.PerfectDayTarget != 7 {
		t.Errorf("PerfectDayTarget = %d, want 7", cfg.Engine.PerfectDayTarget)
	}
	if cfg.Notifications.MaxPerDay != 5 || cfg.Notifications.QuietStart != "23:00" {
		t.Errorf("Notifications = %+v", cfg.Notifications)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000 from env", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Defaults survive a partial file.
	if cfg.Engine.ComboWindow != "30m" {
		t.Errorf("ComboWindow = %q, want default 30m", cfg.Engine.ComboWindow)
	}
}

func TestLoadConfig_DatabaseURLSelectsPostgres(t *testing.T) {
	t.Setenv("LIFELOCK_HOME", t.TempDir())
	t.Setenv("LIFELOCK_DATABASE_URL", "postgres://localhost/lifelock")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Storage.Driver)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"postgres without url", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"bad port", func(c *Config) { c.API.Port = 0 }},
		{"bad timezone", func(c *Config) { c.Engine.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("LIFELOCK_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.API.Port = 8123
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}
	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.API.Port != 8123 {
		t.Errorf("API.Port = %d, want 8123", got.API.Port)
	}
}

func TestParseDuration(t *testing.T) {
	if got := parseDuration("45m", time.Minute); got != 45*time.Minute {
		t.Errorf("parseDuration(45m) = %v", got)
	}
	if got := parseDuration("soon", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(soon) = %v, want fallback", got)
	}
}

// ─── Daemon Wiring ──────────────────────────────────────────────────────────

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "user_id", "ana")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, `"user_id":"ana"`) {
		t.Errorf("expected JSON output, got %s", out)
	}
}

func TestNewWithConfig_SQLite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Dir = t.TempDir()
	cfg.Engine.Timezone = "UTC"
	cfg.Engine.PerfectDayTarget = 4

	d, err := NewWithConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	defer d.Close()

	if d.Rewards.Calculator().Tables().PerfectDayTarget != 4 {
		t.Error("engine config should override the perfect-day target")
	}
	d.Health.RunOnce(context.Background())
	if !d.Health.IsHealthy() {
		t.Errorf("fresh daemon should be healthy: %+v", d.Health.Statuses())
	}
	if d.Server.Handler() == nil {
		t.Error("Handler() returned nil")
	}
}

func TestNewWithConfig_BadTablesFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Dir = t.TempDir()
	cfg.Engine.TablesFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := NewWithConfig(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for a missing tables file")
	}
}
