package domain

import "time"

// ─── XP Ledger ──────────────────────────────────────────────────────────────

// XPSource categorizes how XP was earned.
type XPSource string

const (
	XPTaskCompleted      XPSource = "TASK_COMPLETED"
	XPChallengeCompleted XPSource = "CHALLENGE_COMPLETED"
)

// XPEvent is one append-only ledger row. The sum of a user's events equals
// their TotalXP.
type XPEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Source    XPSource  `json:"source"`
	SourceID  string    `json:"source_id,omitempty"` // task or challenge id
	Amount    int       `json:"amount"`
	Breakdown []string  `json:"breakdown,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── Domain Events ──────────────────────────────────────────────────────────

// EventType doubles as the message routing key.
type EventType string

const (
	EventXPAwarded           EventType = "xp.awarded"
	EventLevelUp             EventType = "level.up"
	EventAchievementUnlocked EventType = "achievement.unlocked"
	EventChallengeCompleted  EventType = "challenge.completed"
)

// Event is the envelope published for every reward state change.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	UserID     string         `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}
