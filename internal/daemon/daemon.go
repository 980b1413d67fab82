package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lifelock-app/lifelock/internal/api"
	"github.com/lifelock-app/lifelock/internal/app/engagement"
	"github.com/lifelock-app/lifelock/internal/app/rewards"
	"github.com/lifelock-app/lifelock/internal/domain"
	"github.com/lifelock-app/lifelock/internal/health"
	"github.com/lifelock-app/lifelock/internal/infra/events"
	"github.com/lifelock-app/lifelock/internal/infra/postgres"
	"github.com/lifelock-app/lifelock/internal/infra/rediscache"
	"github.com/lifelock-app/lifelock/internal/infra/sqlite"
	"github.com/lifelock-app/lifelock/internal/mcp"
)

// Daemon is the core LifeLock runtime. It wires together all services.
type Daemon struct {
	Config  Config
	Logger  *slog.Logger
	Store   domain.Store
	Cache   *rediscache.ChallengeStore // nil when Redis is not configured
	Events  domain.EventPublisher
	Rewards *rewards.Service
	Health  *health.Checker
	Server  *api.Server
	MCP     *mcpserver.MCPServer
	cancel  context.CancelFunc
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates and initializes a Daemon with all services wired.
func New(ctx context.Context) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg, NewLogger(cfg.Logging, os.Stderr))
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(ctx context.Context, cfg Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, _ := cfg.Location()

	calc, err := NewCalculator(cfg.Engine)
	if err != nil {
		return nil, err
	}

	d := &Daemon{Config: cfg, Logger: logger}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	d.Store = store
	d.Health = health.NewChecker(health.DefaultInterval, health.PingCheck("store", store, false))
	if cfg.Storage.Driver == "sqlite" {
		d.Health.Add(health.DataDirCheck(cfg.Storage.Dir))
	}

	// nil keeps challenges in the main store, sharing its transactions.
	var challenges domain.ChallengeStore
	if cfg.Cache.RedisURL != "" {
		cache, err := rediscache.Dial(ctx, cfg.Cache.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open challenge cache: %w", err)
		}
		d.Cache = cache
		challenges = cache
		d.Health.Add(health.PingCheck("redis", cache, true))
	}

	d.Events = newPublisher(cfg.Events, logger, d.Health)

	d.Rewards = rewards.NewService(rewards.Options{
		Store:      store,
		Challenges: challenges,
		Events:     d.Events,
		Calculator: calc,
		Policy:     cfg.Notifications,
		Location:   loc,
		Logger:     logger.With("component", "rewards"),
	})

	d.Server = api.NewServer(d.Rewards, d.Health, logger.With("component", "api"))
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}
	d.MCP = mcp.NewServer(d.Rewards)
	d.Server.SetMCPHandler(mcp.HTTPHandler(d.MCP))

	return d, nil
}

// NewCalculator builds the scoring engine from cfg, overlaying the optional
// tables file and the configured combo window and perfect-day target.
func NewCalculator(cfg EngineConfig) (*engagement.Calculator, error) {
	tables := engagement.DefaultTables()
	if cfg.TablesFile != "" {
		loaded, err := engagement.LoadTables(cfg.TablesFile)
		if err != nil {
			return nil, fmt.Errorf("load tables: %w", err)
		}
		tables = loaded
	}
	tables.ComboWindow = parseDuration(cfg.ComboWindow, tables.ComboWindow)
	if cfg.PerfectDayTarget > 0 {
		tables.PerfectDayTarget = cfg.PerfectDayTarget
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return engagement.NewCalculator(tables), nil
}

func openStore(ctx context.Context, cfg StorageConfig) (domain.Store, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	default:
		dir := cfg.Dir
		if dir == "" {
			dir = lifelockHome()
		}
		s, err := sqlite.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return s, nil
	}
}

// newPublisher returns the AMQP publisher behind a circuit breaker, or a
// log publisher when no broker is configured or reachable.
func newPublisher(cfg EventsConfig, logger *slog.Logger, checker *health.Checker) domain.EventPublisher {
	logPub := events.NewLogPublisher(logger.With("component", "events"))
	if cfg.AMQPURL == "" {
		return logPub
	}
	amqpPub, err := events.DialAMQP(cfg.AMQPURL, cfg.Exchange, logger)
	if err != nil {
		logger.Warn("event broker unavailable, logging events instead", "error", err)
		return logPub
	}
	checker.Add(health.PingCheck("events", amqpPub, true))
	return events.NewBreakerPublisher(amqpPub, logPub, events.BreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		Timeout:          parseDuration(cfg.OpenTimeout, 30*time.Second),
		MaxRequests:      1,
	}, logger)
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			d.Logger.Error("http shutdown failed", "error", err)
		}
	}()

	d.Logger.Info("LifeLock serving", "addr", "http://"+addr, "storage", d.Config.Storage.Driver,
		"metrics", d.Config.Telemetry.Prometheus)

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		cancel()
		return err
	}
	<-done
	d.Close()
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Events != nil {
		if err := d.Events.Close(); err != nil {
			d.Logger.Warn("close events", "error", err)
		}
	}
	if d.Cache != nil {
		_ = d.Cache.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
}
