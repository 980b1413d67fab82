package domain

import (
	"context"
	"time"
)

// ─── Persistence Interfaces ─────────────────────────────────────────────────
// Infrastructure implements them; the application layer depends on them.

// StatsStore persists user snapshots and the XP ledger.
type StatsStore interface {
	// GetStats returns ErrUserNotFound when the user has no snapshot yet.
	GetStats(ctx context.Context, userID string) (UserStats, error)

	// UpdateStats runs fn over the current snapshot (NewUserStats when absent)
	// and stores the result atomically. Ledger rows returned by fn are
	// appended in the same transaction.
	UpdateStats(ctx context.Context, userID string, fn func(UserStats) (UserStats, []XPEvent, error)) (UserStats, error)

	// UpdateProgress is UpdateStats with the day's challenge in the same
	// transaction: the stored challenge for date (nil when none) is locked,
	// passed to fn, and ProgressUpdate.Challenge is written back before the
	// commit.
	UpdateProgress(ctx context.Context, userID, date string, fn ProgressFunc) (UserStats, error)

	// ListXPEvents returns the newest ledger rows first.
	ListXPEvents(ctx context.Context, userID string, limit int) ([]XPEvent, error)
}

// ChallengeStore keeps exactly one challenge per (user, day).
type ChallengeStore interface {
	// GetOrCreateChallenge returns the stored challenge for the day, or stores
	// and returns gen() when none exists. Concurrent callers observe the same
	// challenge.
	GetOrCreateChallenge(ctx context.Context, userID, date string, gen func() DailyChallenge) (DailyChallenge, error)

	// SaveChallenge overwrites the stored state of c.
	SaveChallenge(ctx context.Context, c DailyChallenge) error

	// SwapChallenge stores next only while the stored progress and completed
	// flag still match old. It returns ErrChallengeConflict otherwise.
	SwapChallenge(ctx context.Context, old, next DailyChallenge) error
}

// ProgressUpdate is what one atomic completion writes.
type ProgressUpdate struct {
	Stats     UserStats
	Events    []XPEvent
	Challenge *DailyChallenge // nil leaves the stored challenge untouched
}

// ProgressFunc maps the locked snapshot and challenge to the next state.
type ProgressFunc func(stats UserStats, challenge *DailyChallenge) (ProgressUpdate, error)

// NotificationStore persists user notifications.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n Notification) (int64, error)
	CountNotificationsSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListPendingNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationShown(ctx context.Context, userID string, id int64) error
}

// Store is the full persistence surface a backend provides.
type Store interface {
	StatsStore
	ChallengeStore
	NotificationStore
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}
