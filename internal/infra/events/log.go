package events

import (
	"context"
	"log/slog"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// LogPublisher writes events to the structured log. It is the publisher
// used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that only logs.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs evt at info level.
func (p *LogPublisher) Publish(_ context.Context, evt domain.Event) error {
	p.logger.Info("event", "id", evt.ID, "type", evt.Type, "user_id", evt.UserID, "payload", evt.Payload)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
