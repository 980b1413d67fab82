package rewards

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lifelock-app/lifelock/internal/domain"
	"github.com/lifelock-app/lifelock/internal/infra/metrics"
)

// Notifier raises user-facing notifications under a delivery policy:
//   - at most MaxPerDay per user per calendar day
//   - nothing between QuietStart and QuietEnd (user's timezone)
//   - only rewards are announced; a broken streak is never notified
type Notifier struct {
	store  domain.NotificationStore
	policy domain.NotificationPolicy
	loc    *time.Location
}

// NewNotifier creates a notifier. A nil loc means UTC.
func NewNotifier(store domain.NotificationStore, policy domain.NotificationPolicy, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{store: store, policy: policy, loc: loc}
}

// Create stores notif unless the policy suppresses it, in which case the
// returned id is 0.
func (n *Notifier) Create(ctx context.Context, notif domain.Notification) (int64, error) {
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}
	at := notif.CreatedAt.In(n.loc)

	if n.isQuietHour(at) {
		metrics.NotificationsSuppressed.WithLabelValues("quiet_hours").Inc()
		return 0, nil
	}

	y, m, d := at.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, n.loc)
	sent, err := n.store.CountNotificationsSince(ctx, notif.UserID, dayStart)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	if sent >= n.policy.MaxPerDay {
		metrics.NotificationsSuppressed.WithLabelValues("daily_cap").Inc()
		return 0, nil
	}

	notif.Shown = false
	id, err := n.store.InsertNotification(ctx, notif)
	if err != nil {
		return 0, fmt.Errorf("store notification: %w", err)
	}
	return id, nil
}

// Pending returns unshown notifications, oldest first.
func (n *Notifier) Pending(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	return n.store.ListPendingNotifications(ctx, userID, limit)
}

// MarkShown acknowledges one of userID's notifications.
func (n *Notifier) MarkShown(ctx context.Context, userID string, id int64) error {
	return n.store.MarkNotificationShown(ctx, userID, id)
}

// Policy returns the delivery policy in force.
func (n *Notifier) Policy() domain.NotificationPolicy {
	return n.policy
}

// isQuietHour reports whether t falls in [QuietStart, QuietEnd). The window
// may wrap midnight. An unparsable or empty window disables quiet hours.
func (n *Notifier) isQuietHour(t time.Time) bool {
	start, okStart := clockMinutes(n.policy.QuietStart)
	end, okEnd := clockMinutes(n.policy.QuietEnd)
	if !okStart || !okEnd || start == end {
		return false
	}
	now := t.Hour()*60 + t.Minute()
	if start < end {
		return start <= now && now < end
	}
	return now >= start || now < end
}

// clockMinutes converts "15:04" to minutes after midnight.
func clockMinutes(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
