package domain

import (
	"slices"
	"time"
)

// ─── User Statistics ────────────────────────────────────────────────────────

// DateLayout is the calendar-day key used for challenges and day rollover.
const DateLayout = "2006-01-02"

// UserStats is the per-user snapshot the engine reads and returns.
// The engine never mutates a snapshot it was handed; it returns a new one.
type UserStats struct {
	UserID                 string     `json:"user_id"`
	TotalXP                int        `json:"total_xp"`
	Level                  int        `json:"level"`
	XPInCurrentLevel       int        `json:"xp_in_current_level"`
	XPForNextLevel         int        `json:"xp_for_next_level"`
	CurrentStreak          int        `json:"current_streak"`
	LongestStreak          int        `json:"longest_streak"`
	TotalTasksCompleted    int        `json:"total_tasks_completed"`
	TasksCompletedToday    int        `json:"tasks_completed_today"`
	XPEarnedToday          int        `json:"xp_earned_today"`
	PerfectDays            int        `json:"perfect_days"`
	UnlockedAchievements   []string   `json:"unlocked_achievements"` // unlock order
	TotalAchievementPoints int        `json:"total_achievement_points"`
	ComboCount             int        `json:"combo_count"`
	MaxCombo               int        `json:"max_combo"`
	LastCompletionTime     *time.Time `json:"last_completion_time,omitempty"`
	FreezeWeekISO          string     `json:"freeze_week_iso,omitempty"` // "2026-W42"
	DeepWorkCompleted      int        `json:"deep_work_completed"`
	MorningTasksCompleted  int        `json:"morning_tasks_completed"`
	CriticalTasksCompleted int        `json:"critical_tasks_completed"`
	ChallengesCompleted    int        `json:"challenges_completed"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// NewUserStats returns the snapshot of a user who has never completed a task.
func NewUserStats(userID string) UserStats {
	return UserStats{UserID: userID, Level: 1, UnlockedAchievements: []string{}}
}

// Clone returns a deep copy so callers can derive a new snapshot safely.
func (s UserStats) Clone() UserStats {
	out := s
	out.UnlockedAchievements = slices.Clone(s.UnlockedAchievements)
	if out.UnlockedAchievements == nil {
		out.UnlockedAchievements = []string{}
	}
	if s.LastCompletionTime != nil {
		t := *s.LastCompletionTime
		out.LastCompletionTime = &t
	}
	return out
}

// HasAchievement reports whether id is already unlocked.
func (s UserStats) HasAchievement(id string) bool {
	return slices.Contains(s.UnlockedAchievements, id)
}

// ─── Achievement Types ──────────────────────────────────────────────────────

// AchievementCategory groups achievements by theme.
type AchievementCategory string

const (
	CatStreak  AchievementCategory = "STREAK"
	CatVolume  AchievementCategory = "VOLUME"
	CatQuality AchievementCategory = "QUALITY"
	CatSpecial AchievementCategory = "SPECIAL"
	CatLevel   AchievementCategory = "LEVEL"
)

// Rarity grades how hard an achievement is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "COMMON"
	RarityRare      Rarity = "RARE"
	RarityEpic      Rarity = "EPIC"
	RarityLegendary Rarity = "LEGENDARY"
)

// AchievementDef is one immutable catalog entry.
type AchievementDef struct {
	ID          string                             `json:"id"`
	Name        string                             `json:"name"`
	Description string                             `json:"description"`
	Emoji       string                             `json:"emoji"`
	Category    AchievementCategory                `json:"category"`
	Points      int                                `json:"points"`
	Rarity      Rarity                             `json:"rarity"`
	Predicate   func(UserStats) bool               `json:"-"`
	Progress    func(UserStats) (current, max int) `json:"-"`
}

// AchievementProgress is partial progress toward a locked achievement.
type AchievementProgress struct {
	Current    int `json:"current"`
	Max        int `json:"max"`
	Percentage int `json:"percentage"` // 0-100
}

// AchievementStatus pairs a catalog entry with one user's state.
type AchievementStatus struct {
	AchievementDef
	Unlocked bool                `json:"unlocked"`
	Progress AchievementProgress `json:"progress"`
}

// ─── Daily Challenge Types ──────────────────────────────────────────────────

// ChallengeKind identifies the matching rule of a daily challenge.
type ChallengeKind string

const (
	ChallengeDeepFocus       ChallengeKind = "deep-focus"
	ChallengeMorningMomentum ChallengeKind = "morning-momentum"
	ChallengeTaskSprint      ChallengeKind = "task-sprint"
	ChallengePriorityCrusher ChallengeKind = "priority-crusher"
	ChallengeLearningQuest   ChallengeKind = "learning-quest"
	ChallengeXPHunter        ChallengeKind = "xp-hunter"
	ChallengeFocusFlow       ChallengeKind = "focus-flow"
)

// DailyChallenge is the single challenge active for a user on one calendar day.
type DailyChallenge struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	Date            string        `json:"date"` // DateLayout
	Kind            ChallengeKind `json:"kind"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Emoji           string        `json:"emoji"`
	TargetValue     int           `json:"target_value"`
	CurrentProgress int           `json:"current_progress"`
	Completed       bool          `json:"completed"`
	XPReward        int           `json:"xp_reward"`
	BonusReward     string        `json:"bonus_reward,omitempty"`
	ExpiresAt       time.Time     `json:"expires_at"`
}

// IsExpired returns true once now is past the end of the challenge's day.
func (c DailyChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ProgressPct returns completion percentage (0-100).
func (c DailyChallenge) ProgressPct() float64 {
	if c.TargetValue <= 0 {
		return 100.0
	}
	pct := float64(c.CurrentProgress) / float64(c.TargetValue) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// CompletedTaskContext describes a finished task for challenge matching.
type CompletedTaskContext struct {
	TaskID         string     `json:"task_id,omitempty"`
	WorkType       WorkType   `json:"work_type"`
	Priority       Priority   `json:"priority"`
	Difficulty     Difficulty `json:"difficulty,omitempty"`
	LearningValue  int        `json:"learning_value"`
	XPEarned       int        `json:"xp_earned"`
	TimeOfDay      TimeOfDay  `json:"time_of_day,omitempty"`
	InFocusSession bool       `json:"in_focus_session,omitempty"`
	CompletedAt    time.Time  `json:"completed_at"`
}

// ─── Preview Types ──────────────────────────────────────────────────────────

// XPPreview is a what-if XP estimate for display before a task is done.
type XPPreview struct {
	TaskID string `json:"task_id,omitempty"`
	Title  string `json:"title,omitempty"`
	XPResult
	EstimatedXP        int      `json:"estimated_xp"`
	MinXP              int      `json:"min_xp"`
	MaxXP              int      `json:"max_xp"`
	MotivationMessage  string   `json:"motivation_message"`
	PriorityReason     string   `json:"priority_reason"`
	BonusOpportunities []string `json:"bonus_opportunities"`
}

// ContextualPreviews shows one task under four modifier variants.
type ContextualPreviews struct {
	Now        XPPreview `json:"now"`
	Morning    XPPreview `json:"morning"`
	InFocus    XPPreview `json:"in_focus"`
	WithStreak XPPreview `json:"with_streak"`
}

// ─── Completion Outcome ─────────────────────────────────────────────────────

// CompletionOutcome is every delta produced by completing one task.
type CompletionOutcome struct {
	Stats              UserStats        `json:"stats"`
	XP                 XPResult         `json:"xp"`
	TotalXPAwarded     int              `json:"total_xp_awarded"`
	PreviousLevel      int              `json:"previous_level"`
	LeveledUp          bool             `json:"leveled_up"`
	NewAchievements    []AchievementDef `json:"new_achievements"`
	Challenge          *DailyChallenge  `json:"challenge,omitempty"`
	ChallengeBonusXP   int              `json:"challenge_bonus_xp"`
	ChallengeCompleted bool             `json:"challenge_completed"`
	StreakExtended     bool             `json:"streak_extended"`
	FreezeUsed         bool             `json:"freeze_used"`
	PerfectDay         bool             `json:"perfect_day"`
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes notifications.
type NotificationType string

const (
	NotifyAchievement       NotificationType = "achievement"
	NotifyLevelUp           NotificationType = "level_up"
	NotifyChallengeComplete NotificationType = "challenge_complete"
	NotifyPerfectDay        NotificationType = "perfect_day"
)

// Notification is a user-facing message.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// NotificationPolicy governs how often notifications are sent.
type NotificationPolicy struct {
	MaxPerDay  int    `json:"max_per_day" toml:"max_per_day"`
	QuietStart string `json:"quiet_start" toml:"quiet_start"` // "22:00"
	QuietEnd   string `json:"quiet_end" toml:"quiet_end"`     // "08:00"
}

// DefaultNotificationPolicy returns at most 3 per day, quiet 22:00–08:00.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		MaxPerDay:  3,
		QuietStart: "22:00",
		QuietEnd:   "08:00",
	}
}
