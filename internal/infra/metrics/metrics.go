// Package metrics provides Prometheus metrics for LifeLock: XP awards,
// completions, levels, achievements, challenges, previews, events and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Scoring ────────────────────────────────────────────────────────────────

// XPAwarded counts XP granted, by work type ("challenge" for challenge bonuses).
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lifelock",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded.",
}, []string{"work_type"})

// TasksCompleted counts task completions by resolved priority.
var TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lifelock",
	Name:      "tasks_completed_total",
	Help:      "Total completed tasks.",
}, []string{"priority"})

// XPConfidence observes the confidence score of every scored completion.
var XPConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "lifelock",
	Name:      "xp_confidence",
	Help:      "Confidence score of XP calculations (0-100).",
	Buckets:   []float64{50, 60, 70, 80, 90, 95, 100},
})

// CompletionLatency tracks end-to-end completion handling in seconds.
var CompletionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "lifelock",
	Name:      "completion_latency_seconds",
	Help:      "Time to score and persist one task completion.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
})

// PreviewsServed counts previews by kind (single, contextual, list).
var PreviewsServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lifelock",
	Name:      "previews_total",
	Help:      "Total XP previews served.",
}, []string{"kind"})

// ─── Progression ────────────────────────────────────────────────────────────

// LevelUps counts level-up transitions.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lifelock",
	Name:      "level_ups_total",
	Help:      "Total level-ups.",
})

// AchievementsUnlocked counts unlocks by achievement id.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lifelock",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked.",
}, []string{"achievement"})

// ChallengesCompleted counts completed daily challenges by kind.
var ChallengesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lifelock",
	Name:      "challenges_completed_total",
	Help:      "Total daily challenges completed.",
}, []string{"kind"})

// ─── Events ─────────────────────────────────────────────────────────────────

// EventsPublished counts published domain events by type and result.
var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lifelock",
	Name:      "events_published_total",
	Help:      "Total domain events published.",
}, []string{"type", "result"})

// NotificationsSuppressed counts notifications dropped by policy.
var NotificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lifelock",
	Name:      "notifications_suppressed_total",
	Help:      "Notifications suppressed by the delivery policy.",
}, []string{"reason"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus reports each health check (1 = healthy, 0 = failing).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "lifelock",
	Name:      "health_check_status",
	Help:      "Health check status (1 healthy, 0 failing).",
}, []string{"check"})
