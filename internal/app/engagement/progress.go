package engagement

import (
	"time"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// CompletionOptions carries the per-completion inputs besides the task.
type CompletionOptions struct {
	Now            time.Time              // completion time, in the user's location
	InFocusSession bool
	Challenge      *domain.DailyChallenge // today's challenge, nil to skip
}

// ModifierContextFor derives the modifier context a task completed at now
// would receive. It does not advance the streak or the combo.
func (c *Calculator) ModifierContextFor(stats domain.UserStats, now time.Time, inFocus bool) domain.UserModifierContext {
	ctx := domain.UserModifierContext{
		CurrentStreakDays:       stats.CurrentStreak,
		TasksCompletedToday:     stats.TasksCompletedToday,
		ConsecutiveDaysActive:   stats.CurrentStreak,
		UserLevel:               max(1, stats.Level),
		TimeOfDay:               TimeOfDayAt(now),
		CompletedInFocusSession: inFocus,
	}
	if last := stats.LastCompletionTime; last != nil {
		if !sameDay(*last, now) {
			ctx.TasksCompletedToday = 0
		}
		if c.withinCombo(*last, now) {
			ctx.RecentCompletionWithinComboWindow = true
			ctx.ComboCount = stats.ComboCount + 1
		}
	}
	return ctx
}

func (c *Calculator) withinCombo(last, now time.Time) bool {
	gap := now.Sub(last)
	return gap >= 0 && gap <= c.tables.ComboWindow
}

// ApplyCompletion runs the full reward pipeline for one completed task:
// day rollover, streak, combo, XP, totals, level, achievements and daily
// challenge. stats is not modified; the new snapshot is in the outcome.
func (c *Calculator) ApplyCompletion(stats domain.UserStats, task domain.TaskScoringInput, opts CompletionOptions) domain.CompletionOutcome {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	next := stats.Clone()
	next.Level = max(1, next.Level)
	out := domain.CompletionOutcome{PreviousLevel: next.Level}

	// Day rollover
	if last := next.LastCompletionTime; last != nil && !sameDay(*last, now) {
		next.TasksCompletedToday = 0
		next.XPEarnedToday = 0
	}

	// Combo uses the previous completion time, so read it before the streak.
	recent := next.LastCompletionTime != nil && c.withinCombo(*next.LastCompletionTime, now)

	var sc StreakChange
	next, sc = AdvanceStreak(next, now)
	out.StreakExtended, out.FreezeUsed = sc.Extended, sc.FreezeUsed

	if recent {
		next.ComboCount++
	} else {
		next.ComboCount = 1
	}
	next.MaxCombo = max(next.MaxCombo, next.ComboCount)

	ctx := domain.UserModifierContext{
		CurrentStreakDays:                 next.CurrentStreak,
		TasksCompletedToday:               next.TasksCompletedToday,
		ConsecutiveDaysActive:             next.CurrentStreak,
		UserLevel:                         next.Level,
		TimeOfDay:                         TimeOfDayAt(now),
		CompletedInFocusSession:           opts.InFocusSession,
		RecentCompletionWithinComboWindow: recent,
		ComboCount:                        next.ComboCount,
	}
	xp := c.CalculateIntelligentXP(task, ctx)
	out.XP = xp

	// Totals
	next.TotalXP += xp.FinalXP
	next.XPEarnedToday += xp.FinalXP
	next.TotalTasksCompleted++
	next.TasksCompletedToday++
	if xp.WorkType == domain.WorkDeep {
		next.DeepWorkCompleted++
	}
	if ctx.TimeOfDay == domain.TimeMorning {
		next.MorningTasksCompleted++
	}
	if xp.Priority == domain.PriorityCritical {
		next.CriticalTasksCompleted++
	}
	if next.TasksCompletedToday == c.tables.PerfectDayTarget {
		next.PerfectDays++
		out.PerfectDay = true
	}
	completedAt := now
	next.LastCompletionTime = &completedAt
	next.UpdatedAt = now

	next = applyLevel(next)
	var unlocked []domain.AchievementDef
	next, unlocked = settleAchievements(next)
	out.NewAchievements = unlocked

	if opts.Challenge != nil {
		updated, bonus := UpdateChallengeProgress(*opts.Challenge, domain.CompletedTaskContext{
			TaskID:         task.ID,
			WorkType:       xp.WorkType,
			Priority:       xp.Priority,
			Difficulty:     xp.Difficulty,
			LearningValue:  xp.LearningValue,
			XPEarned:       xp.FinalXP,
			TimeOfDay:      ctx.TimeOfDay,
			InFocusSession: opts.InFocusSession,
			CompletedAt:    now,
		})
		out.Challenge = &updated
		if bonus > 0 {
			out.ChallengeBonusXP = bonus
			out.ChallengeCompleted = true
			next.TotalXP += bonus
			next.XPEarnedToday += bonus
			next.ChallengesCompleted++
			next = applyLevel(next)
			next, unlocked = settleAchievements(next)
			out.NewAchievements = append(out.NewAchievements, unlocked...)
		}
	}

	out.TotalXPAwarded = xp.FinalXP + out.ChallengeBonusXP
	out.LeveledUp = next.Level > out.PreviousLevel
	out.Stats = next
	return out
}
