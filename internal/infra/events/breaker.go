package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// BreakerConfig tunes the circuit in front of a publisher.
type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	Timeout          time.Duration // open → half-open delay
	MaxRequests      uint32        // probes allowed while half-open
}

// DefaultBreakerConfig returns the production settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Timeout: 30 * time.Second, MaxRequests: 1}
}

// BreakerPublisher stops calling a failing broker until it recovers.
// While the circuit is open, events go to the fallback publisher.
type BreakerPublisher struct {
	next     domain.EventPublisher
	fallback domain.EventPublisher
	cb       *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerPublisher wraps next. fallback may be nil.
func NewBreakerPublisher(next, fallback domain.EventPublisher, cfg BreakerConfig, logger *slog.Logger) *BreakerPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureThreshold == 0 {
		cfg = DefaultBreakerConfig()
	}
	settings := gobreaker.Settings{
		Name:        "event-publisher",
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerPublisher{
		next:     next,
		fallback: fallback,
		cb:       gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Publish forwards evt through the breaker.
func (p *BreakerPublisher) Publish(ctx context.Context, evt domain.Event) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, evt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		if p.fallback != nil {
			return p.fallback.Publish(ctx, evt)
		}
		return domain.ErrPublisherUnavailable
	}
	return err
}

// State returns the breaker state name ("closed", "open", "half-open").
func (p *BreakerPublisher) State() string {
	return p.cb.State().String()
}

// Close closes both publishers.
func (p *BreakerPublisher) Close() error {
	var errs []error
	if err := p.next.Close(); err != nil {
		errs = append(errs, err)
	}
	if p.fallback != nil {
		if err := p.fallback.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
