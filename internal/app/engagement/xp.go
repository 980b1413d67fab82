package engagement

import (
	"fmt"
	"math"
	"strings"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// Calculator scores tasks against one immutable set of Tables.
// It holds no other state and is safe for concurrent use.
type Calculator struct {
	tables Tables
}

// NewCalculator creates a calculator over t. Callers validate t first
// (LoadTables does).
func NewCalculator(t Tables) *Calculator {
	return &Calculator{tables: t}
}

// DefaultCalculator returns a calculator over DefaultTables.
func DefaultCalculator() *Calculator {
	return NewCalculator(DefaultTables())
}

// Tables returns the calculator's tuning tables.
func (c *Calculator) Tables() Tables {
	return c.tables
}

// CalculateIntelligentXP scores a task with the default tables.
func CalculateIntelligentXP(task domain.TaskScoringInput, ctx domain.UserModifierContext) domain.XPResult {
	return DefaultCalculator().CalculateIntelligentXP(task, ctx)
}

// attrSource records where a resolved attribute came from.
type attrSource int

const (
	sourceSupplied attrSource = iota
	sourceInferred
	sourceDefaulted
)

// resolution is a task after inference, defaulting and clamping.
type resolution struct {
	priority       domain.Priority
	prioritySource attrSource
	workType       domain.WorkType
	difficulty     domain.Difficulty
	duration       int
	hasDuration    bool
	complexity     int
	learning       int
	strategic      int
	penalty        int
	inferred       bool
	reasoning      []string
}

// resolve fills every attribute of task. The Importance Detector only runs
// when a text-inferable field is missing.
func (c *Calculator) resolve(task domain.TaskScoringInput) resolution {
	ct := c.tables.Confidence
	var r resolution

	needsText := task.Priority == "" || task.Complexity == nil || task.LearningValue == nil || task.StrategicImportance == nil
	var analysis domain.ImportanceAnalysis
	if needsText {
		analysis = AnalyzeImportance(task.Title, task.Description)
		r.reasoning = analysis.Reasoning
	}

	switch p, ok := domain.ParsePriority(string(task.Priority)); {
	case ok:
		r.priority = p
	case task.Priority != "":
		r.priority, r.prioritySource = domain.PriorityMedium, sourceDefaulted
		r.penalty += ct.PriorityPenalty
	default:
		r.priority, r.prioritySource = analysis.Priority, sourceInferred
		r.penalty += ct.PriorityPenalty
		r.inferred = true
	}

	if w, ok := domain.ParseWorkType(string(task.WorkType)); ok {
		r.workType = w
	} else {
		r.workType = domain.WorkLight
		r.penalty += ct.WorkTypePenalty
	}

	r.complexity = c.score(task.Complexity, analysis.Complexity, &r)
	r.learning = c.score(task.LearningValue, analysis.LearningValue, &r)
	r.strategic = c.score(task.StrategicImportance, analysis.StrategicImportance, &r)

	switch d, ok := domain.ParseDifficulty(string(task.Difficulty)); {
	case ok:
		r.difficulty = d
	case task.Difficulty != "":
		r.difficulty = domain.DifficultyModerate
		r.penalty += ct.DifficultyPenalty
	default:
		r.difficulty = difficultyFromComplexity(r.complexity)
		r.penalty += ct.DifficultyPenalty
	}

	if task.EstimatedDurationMinutes != nil {
		r.duration = max(0, *task.EstimatedDurationMinutes)
		r.hasDuration = true
	} else {
		r.penalty += ct.DurationPenalty
	}
	return r
}

func (c *Calculator) score(supplied *int, inferred int, r *resolution) int {
	if supplied != nil {
		return clamp(*supplied, 0, 10)
	}
	r.penalty += c.tables.Confidence.ScorePenalty
	r.inferred = true
	return inferred
}

func difficultyFromComplexity(complexity int) domain.Difficulty {
	switch {
	case complexity <= 2:
		return domain.DifficultyTrivial
	case complexity <= 4:
		return domain.DifficultyEasy
	case complexity <= 6:
		return domain.DifficultyModerate
	case complexity <= 8:
		return domain.DifficultyHard
	default:
		return domain.DifficultyExpert
	}
}

// CalculateIntelligentXP scores one task under the given modifiers.
// The result depends only on its arguments.
func (c *Calculator) CalculateIntelligentXP(task domain.TaskScoringInput, ctx domain.UserModifierContext) domain.XPResult {
	res, _ := c.calculate(task, ctx)
	return res
}

func (c *Calculator) calculate(task domain.TaskScoringInput, ctx domain.UserModifierContext) (domain.XPResult, resolution) {
	t := c.tables
	r := c.resolve(task)
	out := domain.XPResult{
		Priority:            r.priority,
		WorkType:            r.workType,
		Difficulty:          r.difficulty,
		Complexity:          r.complexity,
		LearningValue:       r.learning,
		StrategicImportance: r.strategic,
		Reasoning:           r.reasoning,
		Breakdown:           make([]string, 0, 9),
	}

	// 1. Base from work type and difficulty.
	workBase, diffBonus := t.WorkTypeBase[r.workType], t.DifficultyBonus[r.difficulty]
	out.BaseXP = workBase + diffBonus
	out.Breakdown = append(out.Breakdown, fmt.Sprintf("Base: %d (%s work) + %d (%s) = %d",
		workBase, r.workType, diffBonus, r.difficulty, out.BaseXP))

	// 2. Duration, sub-linear.
	durBonus := c.durationBonus(r.duration)
	if r.hasDuration {
		out.Breakdown = append(out.Breakdown, fmt.Sprintf("Duration: +%d (%d min)", durBonus, r.duration))
	} else {
		out.Breakdown = append(out.Breakdown, "Duration: +0 (no estimate)")
	}

	// 2b. Complexity and strategic weight.
	quality := float64(r.complexity)*t.ComplexityWeight + float64(r.strategic)*t.StrategicWeight
	out.Breakdown = append(out.Breakdown, fmt.Sprintf("Complexity & strategy: +%.0f (complexity %d, strategic %d)",
		quality, r.complexity, r.strategic))
	xp := float64(out.BaseXP+durBonus) + quality

	// 3. Priority.
	out.PriorityMultiplier = t.PriorityMultipliers[r.priority]
	xp *= out.PriorityMultiplier
	out.Breakdown = append(out.Breakdown, fmt.Sprintf("Priority %s: ×%.1f → %.0f", r.priority, out.PriorityMultiplier, xp))

	// 4. Learning.
	out.LearningBonus = min(t.LearningCap, r.learning*t.LearningPerPoint)
	xp += float64(out.LearningBonus)
	out.Breakdown = append(out.Breakdown, fmt.Sprintf("Learning bonus: +%d (learning value %d)", out.LearningBonus, r.learning))

	// 5. Streak, saturating.
	out.StreakBonus = c.streakBonus(ctx.CurrentStreakDays)
	xp += float64(out.StreakBonus)
	out.Breakdown = append(out.Breakdown, fmt.Sprintf("Streak bonus: +%d (%d-day streak)", out.StreakBonus, max(0, ctx.CurrentStreakDays)))

	// 6. Combo.
	out.ComboMultiplier = c.comboMultiplier(ctx)
	xp *= out.ComboMultiplier
	if ctx.RecentCompletionWithinComboWindow {
		out.Breakdown = append(out.Breakdown, fmt.Sprintf("Combo: ×%.1f (combo %d)", out.ComboMultiplier, max(2, ctx.ComboCount)))
	} else {
		out.Breakdown = append(out.Breakdown, "Combo: ×1.0 (no recent completion)")
	}

	// 7. Context.
	pct, parts := 0, []string{}
	if ctx.TimeOfDay == domain.TimeMorning {
		pct += t.MorningBonusPct
		parts = append(parts, fmt.Sprintf("morning +%d%%", t.MorningBonusPct))
	}
	if ctx.CompletedInFocusSession {
		pct += t.FocusBonusPct
		parts = append(parts, fmt.Sprintf("focus session +%d%%", t.FocusBonusPct))
	}
	xp *= 1 + float64(pct)/100
	if len(parts) > 0 {
		out.Breakdown = append(out.Breakdown, fmt.Sprintf("Context: +%d%% (%s)", pct, strings.Join(parts, ", ")))
	} else {
		out.Breakdown = append(out.Breakdown, "Context: +0%")
	}

	// 8. Round and clamp.
	out.FinalXP = max(0, int(math.Round(xp)))
	out.Breakdown = append(out.Breakdown, fmt.Sprintf("Final XP: %d", out.FinalXP))

	out.ConfidenceScore = c.confidence(task, r)
	return out, r
}

func (c *Calculator) durationBonus(minutes int) int {
	t := c.tables
	if minutes <= 0 {
		return 0
	}
	m := float64(min(minutes, t.DurationCapMinutes))
	return int(math.Round(t.DurationScale * math.Log2(1+m/float64(t.DurationUnitMinutes))))
}

// StreakBonus returns the saturating bonus for a streak of days.
func (c *Calculator) StreakBonus(days int) int {
	return c.streakBonus(days)
}

func (c *Calculator) streakBonus(days int) int {
	if days <= 0 {
		return 0
	}
	t := c.tables
	return int(math.Round(float64(t.StreakBonusMax) * (1 - math.Exp(-float64(days)/t.StreakSaturationDays))))
}

func (c *Calculator) comboMultiplier(ctx domain.UserModifierContext) float64 {
	if !ctx.RecentCompletionWithinComboWindow {
		return 1.0
	}
	steps := max(1, ctx.ComboCount-1)
	return 1 + math.Min(c.tables.ComboStep*float64(steps), c.tables.ComboCap)
}

func (c *Calculator) confidence(task domain.TaskScoringInput, r resolution) int {
	ct := c.tables.Confidence
	score := ct.Baseline - r.penalty
	if r.inferred {
		score += min(ct.KeywordBoostCap, ct.KeywordBoost*len(r.reasoning))
		score = max(score, ct.InferredFloor)
	}
	if task.AIAnalyzed {
		score = max(score, ct.AIAnalyzedFloor)
	}
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
