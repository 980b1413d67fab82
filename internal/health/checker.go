// Package health runs periodic dependency checks for the server.
// Results back the /health endpoint and the health_check_status gauge.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lifelock-app/lifelock/internal/infra/metrics"
)

// DefaultInterval is how often Run re-evaluates every check.
const DefaultInterval = 60 * time.Second

// checkTimeout bounds a single check.
const checkTimeout = 5 * time.Second

// Check is one named probe. RecoverFn, when set, runs after a failed probe.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
	// Optional checks are reported but do not make the service unhealthy.
	Optional bool
}

// Status is the latest outcome of one Check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Optional  bool      `json:"optional,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is anything with a context-aware connectivity probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker evaluates its checks on an interval and keeps the last results.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a checker. A non-positive interval means DefaultInterval.
func NewChecker(interval time.Duration, checks ...Check) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Checker{interval: interval, checks: checks}
}

// Add registers another check. Call before Run.
func (c *Checker) Add(check Check) {
	c.mu.Lock()
	c.checks = append(c.checks, check)
	c.mu.Unlock()
}

// Run evaluates all checks now and then every interval until ctx ends.
func (c *Checker) Run(ctx context.Context) {
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce evaluates every check and stores the results.
func (c *Checker) RunOnce(ctx context.Context) {
	c.mu.RLock()
	checks := append([]Check(nil), c.checks...)
	c.mu.RUnlock()

	statuses := make([]Status, len(checks))
	for i, check := range checks {
		s := Status{
			Name:      check.Name,
			Optional:  check.Optional,
			CheckedAt: time.Now(),
		}
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check.CheckFn(cctx)
		cancel()
		if err != nil {
			s.Error = err.Error()
			if check.RecoverFn != nil {
				_ = check.RecoverFn(ctx)
			}
		} else {
			s.Healthy = true
		}
		statuses[i] = s

		gauge := 0.0
		if s.Healthy {
			gauge = 1
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(gauge)
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns a copy of the latest results in registration order.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Status(nil), c.statuses...)
}

// IsHealthy reports whether every required check passed on the last run.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, st := range c.statuses {
		if !st.Healthy && !st.Optional {
			return false
		}
	}
	return true
}

// ─── Probes ─────────────────────────────────────────────────────────────────

// PingCheck probes p.
func PingCheck(name string, p Pinger, optional bool) Check {
	return Check{
		Name:     name,
		Optional: optional,
		CheckFn:  p.Ping,
	}
}

// DataDirCheck verifies the data directory exists and is writable.
func DataDirCheck(dir string) Check {
	return Check{
		Name: "data_dir",
		CheckFn: func(context.Context) error {
			return checkWritableDir(dir)
		},
		RecoverFn: func(context.Context) error {
			return os.MkdirAll(dir, 0700)
		},
	}
}

func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s: not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
