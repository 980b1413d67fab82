package api

import (
	"github.com/lifelock-app/lifelock/internal/domain"
)

// ModifierContext is the request form of domain.UserModifierContext; every
// field is optional.
type ModifierContext struct {
	CurrentStreakDays                 int              `json:"current_streak_days,omitempty" minimum:"0"`
	TasksCompletedToday               int              `json:"tasks_completed_today,omitempty" minimum:"0"`
	ConsecutiveDaysActive             int              `json:"consecutive_days_active,omitempty" minimum:"0"`
	UserLevel                         int              `json:"user_level,omitempty" minimum:"0"`
	TimeOfDay                         domain.TimeOfDay `json:"time_of_day,omitempty" enum:"morning,afternoon,evening,night"`
	CompletedInFocusSession           bool             `json:"completed_in_focus_session,omitempty"`
	RecentCompletionWithinComboWindow bool             `json:"recent_completion_within_combo_window,omitempty"`
	ComboCount                        int              `json:"combo_count,omitempty" minimum:"0"`
}

func (m ModifierContext) toDomain() domain.UserModifierContext {
	return domain.UserModifierContext{
		CurrentStreakDays:                 m.CurrentStreakDays,
		TasksCompletedToday:               m.TasksCompletedToday,
		ConsecutiveDaysActive:             m.ConsecutiveDaysActive,
		UserLevel:                         max(1, m.UserLevel),
		TimeOfDay:                         m.TimeOfDay,
		CompletedInFocusSession:           m.CompletedInFocusSession,
		RecentCompletionWithinComboWindow: m.RecentCompletionWithinComboWindow,
		ComboCount:                        m.ComboCount,
	}
}

// ImportanceRequest is the body of POST /v1/importance.
type ImportanceRequest struct {
	Title       string `json:"title" minLength:"1"`
	Description string `json:"description,omitempty"`
}

// XPRequest is the body of POST /v1/xp.
type XPRequest struct {
	Task    domain.TaskScoringInput `json:"task"`
	Context ModifierContext         `json:"context,omitempty"`
}

// PreviewRequest previews one task, personalised when UserID is set.
type PreviewRequest struct {
	UserID  string                  `json:"user_id,omitempty"`
	Task    domain.TaskScoringInput `json:"task"`
	InFocus bool                    `json:"in_focus,omitempty"`
}

// PreviewListRequest previews several tasks at once.
type PreviewListRequest struct {
	UserID string                    `json:"user_id,omitempty"`
	Tasks  []domain.TaskScoringInput `json:"tasks" minItems:"1" maxItems:"200"`
}

// CompletionRequest is the body of POST /v1/users/{user_id}/completions.
type CompletionRequest struct {
	Task    domain.TaskScoringInput `json:"task"`
	InFocus bool                    `json:"in_focus,omitempty"`
}

// LevelResponse describes the level for an XP total.
type LevelResponse struct {
	domain.LevelInfo
	TotalXP     int      `json:"total_xp"`
	ProgressPct float64  `json:"progress_pct"`
	Unlocks     []string `json:"unlocks,omitempty"`
}

// ChallengeResponse adds derived progress to a daily challenge.
type ChallengeResponse struct {
	domain.DailyChallenge
	ProgressPct float64 `json:"progress_pct"`
	Expired     bool    `json:"expired"`
}
