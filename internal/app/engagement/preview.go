package engagement

import (
	"fmt"
	"math"
	"sort"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// Motivation tiers, by estimated XP.
const (
	highValueXP   = 150
	solidRewardXP = 80
	steadyXP      = 40
)

// previewSpread is the half-width of the XP range at zero confidence.
const previewSpread = 0.5

// streakWithBonusDays is how far the "with streak" preview extends the streak.
const streakWithBonusDays = 7

// GenerateTaskPreview estimates the XP for task without side effects. A nil
// userContext previews for a brand-new user.
func (c *Calculator) GenerateTaskPreview(task domain.TaskScoringInput, userContext *domain.UserModifierContext) domain.XPPreview {
	ctx := domain.UserModifierContext{UserLevel: 1}
	if userContext != nil {
		ctx = *userContext
	}
	return c.preview(task, ctx)
}

func (c *Calculator) preview(task domain.TaskScoringInput, ctx domain.UserModifierContext) domain.XPPreview {
	res, r := c.calculate(task, ctx)

	spread := float64(100-res.ConfidenceScore) / 100 * previewSpread
	return domain.XPPreview{
		TaskID:             task.ID,
		Title:              task.Title,
		XPResult:           res,
		EstimatedXP:        res.FinalXP,
		MinXP:              max(0, int(math.Round(float64(res.FinalXP)*(1-spread)))),
		MaxXP:              int(math.Round(float64(res.FinalXP) * (1 + spread))),
		MotivationMessage:  motivationFor(res.FinalXP),
		PriorityReason:     c.priorityReason(r),
		BonusOpportunities: c.bonusOpportunities(ctx),
	}
}

// GetContextualPreviews runs the calculator four times with one modifier
// changed each time. ctx is taken by value and never modified.
func (c *Calculator) GetContextualPreviews(task domain.TaskScoringInput, ctx domain.UserModifierContext) domain.ContextualPreviews {
	morning := ctx
	morning.TimeOfDay = domain.TimeMorning

	focus := ctx
	focus.CompletedInFocusSession = true

	streak := ctx
	streak.CurrentStreakDays = max(0, ctx.CurrentStreakDays) + streakWithBonusDays

	return domain.ContextualPreviews{
		Now:        c.preview(task, ctx),
		Morning:    c.preview(task, morning),
		InFocus:    c.preview(task, focus),
		WithStreak: c.preview(task, streak),
	}
}

// GenerateTaskListPreview previews every task and sorts by estimated XP,
// highest first. Ties keep input order.
func (c *Calculator) GenerateTaskListPreview(tasks []domain.TaskScoringInput, ctx domain.UserModifierContext) []domain.XPPreview {
	previews := make([]domain.XPPreview, 0, len(tasks))
	for _, task := range tasks {
		previews = append(previews, c.preview(task, ctx))
	}
	sort.SliceStable(previews, func(i, j int) bool {
		return previews[i].EstimatedXP > previews[j].EstimatedXP
	})
	return previews
}

func motivationFor(xp int) string {
	switch {
	case xp >= highValueXP:
		return fmt.Sprintf("🔥 HIGH VALUE: %d XP, a big step toward your next level", xp)
	case xp >= solidRewardXP:
		return fmt.Sprintf("💪 SOLID REWARD: %d XP for meaningful progress", xp)
	case xp >= steadyXP:
		return fmt.Sprintf("📈 STEADY PROGRESS: %d XP keeps the momentum going", xp)
	default:
		return fmt.Sprintf("⚡ QUICK WIN: %d XP, easy to knock out", xp)
	}
}

func (c *Calculator) priorityReason(r resolution) string {
	mult := c.tables.PriorityMultipliers[r.priority]
	switch r.prioritySource {
	case sourceInferred:
		if len(r.reasoning) > 0 {
			return fmt.Sprintf("%s priority (×%.1f) inferred: %s", r.priority, mult, r.reasoning[0])
		}
		return fmt.Sprintf("%s priority (×%.1f) assumed: no urgency signals in the title", r.priority, mult)
	case sourceDefaulted:
		return fmt.Sprintf("%s priority (×%.1f) used: the supplied priority was not recognized", r.priority, mult)
	default:
		return fmt.Sprintf("%s priority (×%.1f) as set on the task", r.priority, mult)
	}
}

// streakMilestones are the streak achievements a preview can point at.
var streakMilestones = []string{"streak-starter", "weekly-warrior", "monthly-master", "unstoppable"}

func (c *Calculator) bonusOpportunities(ctx domain.UserModifierContext) []string {
	t := c.tables
	out := []string{}
	if !ctx.CompletedInFocusSession {
		out = append(out, fmt.Sprintf("Complete in a focus session for +%d%%", t.FocusBonusPct))
	}
	if ctx.TimeOfDay != domain.TimeMorning {
		out = append(out, fmt.Sprintf("Complete in the morning for +%d%%", t.MorningBonusPct))
	}
	for _, id := range streakMilestones {
		def, err := FindAchievement(id)
		if err != nil || def.Progress == nil {
			continue
		}
		_, target := def.Progress(domain.UserStats{})
		if gap := target - ctx.CurrentStreakDays; gap > 0 {
			out = append(out, fmt.Sprintf("%d %s away from %s achievement", gap, plural(gap, "day", "days"), def.Name))
			break
		}
	}
	if !ctx.RecentCompletionWithinComboWindow {
		out = append(out, fmt.Sprintf("Finish another task within %s to start a combo", formatWindow(t)))
	} else {
		next := c.comboMultiplier(domain.UserModifierContext{
			RecentCompletionWithinComboWindow: true,
			ComboCount:                        max(2, ctx.ComboCount) + 1,
		})
		out = append(out, fmt.Sprintf("Keep the combo going for ×%.1f on the next task", next))
	}
	return out
}

func formatWindow(t Tables) string {
	return fmt.Sprintf("%.0f minutes", t.ComboWindow.Minutes())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
