// Package domain holds the value types shared by the LifeLock scoring engine
// and the layers that persist, publish and serve its results.
// Nothing in this package performs I/O.
package domain

import "strings"

// ─── Task Attributes ────────────────────────────────────────────────────────

// Priority is the urgency tier of a task.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityUrgent   Priority = "URGENT"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// AllPriorities lists priorities from lowest to highest.
func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent, PriorityCritical}
}

// Rank orders priorities: LOW=0 … CRITICAL=4. Unknown values rank as MEDIUM.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	case PriorityCritical:
		return 4
	default:
		return 1
	}
}

// ParsePriority normalizes s. ok is false for empty or unknown input.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PriorityCritical, PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return p, true
	}
	return "", false
}

// WorkType classifies the kind of effort a task needs.
type WorkType string

const (
	WorkDeep    WorkType = "DEEP"
	WorkLight   WorkType = "LIGHT"
	WorkMorning WorkType = "MORNING"
)

// ParseWorkType normalizes s. ok is false for empty or unknown input.
func ParseWorkType(s string) (WorkType, bool) {
	w := WorkType(strings.ToUpper(strings.TrimSpace(s)))
	switch w {
	case WorkDeep, WorkLight, WorkMorning:
		return w, true
	}
	return "", false
}

// Difficulty is the designer-facing difficulty grade.
type Difficulty string

const (
	DifficultyTrivial  Difficulty = "TRIVIAL"
	DifficultyEasy     Difficulty = "EASY"
	DifficultyModerate Difficulty = "MODERATE"
	DifficultyHard     Difficulty = "HARD"
	DifficultyExpert   Difficulty = "EXPERT"
)

// ParseDifficulty normalizes s. ok is false for empty or unknown input.
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case DifficultyTrivial, DifficultyEasy, DifficultyModerate, DifficultyHard, DifficultyExpert:
		return d, true
	}
	return "", false
}

// TimeOfDay buckets the wall-clock time a task was completed.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
)

// ─── Scoring Inputs ─────────────────────────────────────────────────────────

// TaskScoringInput describes a task to be scored. Empty enums and nil
// pointers mean "not supplied"; the engine infers or defaults them.
type TaskScoringInput struct {
	ID                       string     `json:"id,omitempty" yaml:"id"`
	Title                    string     `json:"title" yaml:"title"`
	Description              string     `json:"description,omitempty" yaml:"description"`
	Priority                 Priority   `json:"priority,omitempty" yaml:"priority"`
	WorkType                 WorkType   `json:"work_type,omitempty" yaml:"work_type"`
	Difficulty               Difficulty `json:"difficulty,omitempty" yaml:"difficulty"`
	EstimatedDurationMinutes *int       `json:"estimated_duration_minutes,omitempty" yaml:"estimated_duration_minutes"`
	Complexity               *int       `json:"complexity,omitempty" yaml:"complexity"`
	LearningValue            *int       `json:"learning_value,omitempty" yaml:"learning_value"`
	StrategicImportance      *int       `json:"strategic_importance,omitempty" yaml:"strategic_importance"`
	AIAnalyzed               bool       `json:"ai_analyzed,omitempty" yaml:"ai_analyzed"`
}

// UserModifierContext carries the user-state modifiers for one scoring call.
type UserModifierContext struct {
	CurrentStreakDays                 int       `json:"current_streak_days"`
	TasksCompletedToday               int       `json:"tasks_completed_today"`
	ConsecutiveDaysActive             int       `json:"consecutive_days_active"`
	UserLevel                         int       `json:"user_level"`
	TimeOfDay                         TimeOfDay `json:"time_of_day,omitempty"`
	CompletedInFocusSession           bool      `json:"completed_in_focus_session,omitempty"`
	RecentCompletionWithinComboWindow bool      `json:"recent_completion_within_combo_window,omitempty"`
	ComboCount                        int       `json:"combo_count,omitempty"`
}

// ─── Scoring Outputs ────────────────────────────────────────────────────────

// ImportanceAnalysis is the Importance Detector's verdict on free text.
type ImportanceAnalysis struct {
	Priority            Priority `json:"priority"`
	Complexity          int      `json:"complexity"`
	LearningValue       int      `json:"learning_value"`
	StrategicImportance int      `json:"strategic_importance"`
	Reasoning           []string `json:"reasoning"`
}

// XPResult is the output of one XP calculation.
// Breakdown lines are in the order the terms were applied.
type XPResult struct {
	FinalXP            int      `json:"final_xp"`
	BaseXP             int      `json:"base_xp"`
	PriorityMultiplier float64  `json:"priority_multiplier"`
	ComboMultiplier    float64  `json:"combo_multiplier"`
	LearningBonus      int      `json:"learning_bonus"`
	StreakBonus        int      `json:"streak_bonus"`
	Breakdown          []string `json:"breakdown"`
	ConfidenceScore    int      `json:"confidence_score"`

	// Resolved attributes after inference and defaulting.
	Priority            Priority   `json:"priority"`
	WorkType            WorkType   `json:"work_type"`
	Difficulty          Difficulty `json:"difficulty"`
	Complexity          int        `json:"complexity"`
	LearningValue       int        `json:"learning_value"`
	StrategicImportance int        `json:"strategic_importance"`
	Reasoning           []string   `json:"reasoning,omitempty"`
}

// Ptr returns a pointer to v. Handy for the optional TaskScoringInput fields.
func Ptr[T any](v T) *T {
	return &v
}

// LevelInfo is a position on the level curve.
type LevelInfo struct {
	Level          int `json:"level"`
	XPInLevel      int `json:"xp_in_level"`
	XPForNextLevel int `json:"xp_for_next_level"` // 0 at the level cap
}
