package engagement_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lifelock-app/lifelock/internal/app/engagement"
	"github.com/lifelock-app/lifelock/internal/domain"
)

// advance records one day of activity the way the completion pipeline does.
func advance(s domain.UserStats, at time.Time) (domain.UserStats, engagement.StreakChange) {
	next, ch := engagement.AdvanceStreak(s, at)
	next.LastCompletionTime = &at
	return next, ch
}

func hasID(defs []domain.AchievementDef, id string) bool {
	for _, d := range defs {
		if d.ID == id {
			return true
		}
	}
	return false
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestStreak_FirstContribution(t *testing.T) {
	s, ch := advance(domain.NewUserStats("u1"), time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	if s.CurrentStreak != 1 || s.LongestStreak != 1 {
		t.Errorf("expected 1/1, got %d/%d", s.CurrentStreak, s.LongestStreak)
	}
	if !ch.Extended {
		t.Error("first contribution should extend the streak")
	}
}

func TestStreak_ConsecutiveDays(t *testing.T) {
	s := domain.NewUserStats("u1")
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s, _ = advance(s, base.AddDate(0, 0, i))
	}
	if s.CurrentStreak != 5 {
		t.Errorf("expected 5 consecutive, got %d", s.CurrentStreak)
	}
}

func TestStreak_SameDayIdempotent(t *testing.T) {
	day := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	s, _ := advance(domain.NewUserStats("u1"), day)
	s, _ = advance(s, day.Add(2*time.Hour))
	s, ch := advance(s, day.Add(5*time.Hour))
	if s.CurrentStreak != 1 {
		t.Errorf("expected 1 (same day), got %d", s.CurrentStreak)
	}
	if ch.Extended {
		t.Error("same-day activity should not extend")
	}
}

func TestStreak_WeeklyFreeze(t *testing.T) {
	// Tue 1 Jul 2025 .. Sun 6 Jul 2025 share ISO week 2025-W27.
	s := domain.NewUserStats("u1")
	s, _ = advance(s, time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC))
	s, _ = advance(s, time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC))
	s, ch := advance(s, time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC)) // skipped Thursday
	if !ch.FreezeUsed || s.CurrentStreak != 3 {
		t.Fatalf("expected freeze to keep streak at 3, got %d (freeze=%v)", s.CurrentStreak, ch.FreezeUsed)
	}
	if s.FreezeWeekISO != "2025-W27" {
		t.Errorf("expected freeze week 2025-W27, got %s", s.FreezeWeekISO)
	}

	s, ch = advance(s, time.Date(2025, 7, 6, 9, 0, 0, 0, time.UTC)) // skipped Saturday
	if !ch.Reset || s.CurrentStreak != 1 {
		t.Errorf("second miss in one week should reset, got %d", s.CurrentStreak)
	}
	if s.LongestStreak != 3 {
		t.Errorf("longest should stay 3, got %d", s.LongestStreak)
	}
}

func TestStreak_LongGapResets(t *testing.T) {
	s := domain.NewUserStats("u1")
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		s, _ = advance(s, base.AddDate(0, 0, i))
	}
	s, ch := advance(s, base.AddDate(0, 0, 10))
	if !ch.Reset || s.CurrentStreak != 1 || s.LongestStreak != 4 {
		t.Errorf("expected reset to 1 with longest 4, got %d/%d", s.CurrentStreak, s.LongestStreak)
	}
}

func TestTimeOfDayAt(t *testing.T) {
	tests := []struct {
		hour int
		want domain.TimeOfDay
	}{
		{4, domain.TimeNight},
		{5, domain.TimeMorning},
		{11, domain.TimeMorning},
		{12, domain.TimeAfternoon},
		{17, domain.TimeEvening},
		{21, domain.TimeNight},
	}
	for _, tt := range tests {
		at := time.Date(2026, 1, 5, tt.hour, 30, 0, 0, time.UTC)
		if got := engagement.TimeOfDayAt(at); got != tt.want {
			t.Errorf("hour %d: got %s, want %s", tt.hour, got, tt.want)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestAchievements_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range engagement.AllAchievements() {
		if seen[def.ID] {
			t.Errorf("duplicate achievement id %s", def.ID)
		}
		seen[def.ID] = true
		if def.Predicate == nil || def.Progress == nil {
			t.Errorf("%s: missing predicate or progress", def.ID)
		}
	}
}

func TestAchievements_WeeklyWarrior(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.CurrentStreak = 7
	unlocked := engagement.CheckAchievements(stats)
	if !hasID(unlocked, "weekly-warrior") {
		t.Fatalf("expected weekly-warrior, got %v", unlocked)
	}

	// Catalog order: streak-starter precedes weekly-warrior.
	if unlocked[0].ID != "streak-starter" || unlocked[1].ID != "weekly-warrior" {
		t.Errorf("unexpected order: %s, %s", unlocked[0].ID, unlocked[1].ID)
	}
}

func TestAchievements_OneWay(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.CurrentStreak = 7
	stats = engagement.ApplyUnlocks(stats, engagement.CheckAchievements(stats))
	if !stats.HasAchievement("weekly-warrior") {
		t.Fatal("weekly-warrior should be unlocked")
	}
	points := stats.TotalAchievementPoints

	stats.CurrentStreak = 1 // streak broken
	if hasID(engagement.CheckAchievements(stats), "weekly-warrior") {
		t.Error("already-unlocked achievement reported again")
	}
	stats = engagement.ApplyUnlocks(stats, engagement.CheckAchievements(stats))
	if !stats.HasAchievement("weekly-warrior") {
		t.Error("achievement revoked after streak regressed")
	}
	if stats.TotalAchievementPoints != points {
		t.Errorf("points changed from %d to %d", points, stats.TotalAchievementPoints)
	}

	for _, st := range engagement.AchievementBoard(stats) {
		if st.ID == "weekly-warrior" && (!st.Unlocked || st.Progress.Percentage != 100) {
			t.Errorf("board should show weekly-warrior complete, got %+v", st.Progress)
		}
	}
}

func TestAchievements_ApplyUnlocksIsPure(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.TotalTasksCompleted = 1
	_ = engagement.ApplyUnlocks(stats, engagement.CheckAchievements(stats))
	if len(stats.UnlockedAchievements) != 0 || stats.TotalAchievementPoints != 0 {
		t.Error("ApplyUnlocks mutated its input")
	}
}

func TestAchievementProgress(t *testing.T) {
	stats := domain.NewUserStats("u1")
	tests := []struct {
		streak  int
		current int
		pct     int
	}{
		{0, 0, 0},
		{3, 3, 43},
		{7, 7, 100},
		{12, 7, 100},
	}
	for _, tt := range tests {
		stats.CurrentStreak = tt.streak
		p, err := engagement.GetAchievementProgress("weekly-warrior", stats)
		if err != nil {
			t.Fatalf("progress: %v", err)
		}
		if p.Current != tt.current || p.Max != 7 || p.Percentage != tt.pct {
			t.Errorf("streak %d: got %+v, want current=%d pct=%d", tt.streak, p, tt.current, tt.pct)
		}
	}

	if _, err := engagement.GetAchievementProgress("no-such", stats); !errors.Is(err, domain.ErrAchievementNotFound) {
		t.Errorf("expected ErrAchievementNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Daily Challenge Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestChallenge_Deterministic(t *testing.T) {
	stats := domain.NewUserStats("u1")
	date := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	a := engagement.GenerateDailyChallenge(stats, date)
	b := engagement.GenerateDailyChallenge(stats, date.Add(6*time.Hour))
	if a.ID != b.ID || a.Kind != b.Kind || a.TargetValue != b.TargetValue || !a.ExpiresAt.Equal(b.ExpiresAt) {
		t.Errorf("same day produced different challenges: %+v vs %+v", a, b)
	}
	if a.Date != "2026-03-02" {
		t.Errorf("expected date key 2026-03-02, got %s", a.Date)
	}
	want := time.Date(2026, 3, 2, 23, 59, 59, 999999999, time.UTC)
	if !a.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %s, got %s", want, a.ExpiresAt)
	}
	if a.TargetValue <= 0 || a.XPReward <= 0 || a.CurrentProgress != 0 || a.Completed {
		t.Errorf("bad fresh challenge: %+v", a)
	}
}

func TestChallenge_ScalesWithLevel(t *testing.T) {
	novice := domain.NewUserStats("u1")
	veteran := domain.NewUserStats("u1")
	veteran.Level = 35
	for d := 0; d < 14; d++ {
		date := time.Date(2026, 3, 1+d, 9, 0, 0, 0, time.UTC)
		n := engagement.GenerateDailyChallenge(novice, date)
		v := engagement.GenerateDailyChallenge(veteran, date)
		if v.XPReward <= n.XPReward {
			t.Errorf("day %d: veteran reward %d not above novice %d", d, v.XPReward, n.XPReward)
		}
	}
}

func TestChallenge_IdempotentCompletion(t *testing.T) {
	c := domain.DailyChallenge{
		Kind: domain.ChallengeTaskSprint, TargetValue: 2, XPReward: 50,
		ExpiresAt: time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC),
	}
	task := domain.CompletedTaskContext{WorkType: domain.WorkLight, CompletedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	c, bonus := engagement.UpdateChallengeProgress(c, task)
	if c.CurrentProgress != 1 || bonus != 0 || c.Completed {
		t.Fatalf("after 1: progress=%d bonus=%d completed=%v", c.CurrentProgress, bonus, c.Completed)
	}
	c, bonus = engagement.UpdateChallengeProgress(c, task)
	if !c.Completed || bonus != 50 {
		t.Fatalf("after 2: completed=%v bonus=%d", c.Completed, bonus)
	}
	again, bonus := engagement.UpdateChallengeProgress(c, task)
	if bonus != 0 || again.CurrentProgress != c.CurrentProgress {
		t.Errorf("completed challenge changed: bonus=%d progress=%d", bonus, again.CurrentProgress)
	}
}

func TestChallenge_MatchingAndExpiry(t *testing.T) {
	c := domain.DailyChallenge{
		Kind: domain.ChallengeDeepFocus, TargetValue: 2, XPReward: 50,
		ExpiresAt: time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC),
	}
	light := domain.CompletedTaskContext{WorkType: domain.WorkLight, CompletedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	if got, _ := engagement.UpdateChallengeProgress(c, light); got.CurrentProgress != 0 {
		t.Errorf("light task advanced a deep-focus challenge")
	}

	deep := light
	deep.WorkType = domain.WorkDeep
	if got, _ := engagement.UpdateChallengeProgress(c, deep); got.CurrentProgress != 1 {
		t.Errorf("deep task should advance, got %d", got.CurrentProgress)
	}

	deep.CompletedAt = time.Date(2026, 3, 3, 0, 0, 1, 0, time.UTC)
	if got, _ := engagement.UpdateChallengeProgress(c, deep); got.CurrentProgress != 0 {
		t.Errorf("expired challenge advanced")
	}
}

func TestChallenge_XPHunterCountsXP(t *testing.T) {
	now := time.Now()
	c := domain.DailyChallenge{Kind: domain.ChallengeXPHunter, TargetValue: 200, XPReward: 75, ExpiresAt: now.Add(time.Hour)}
	c, _ = engagement.UpdateChallengeProgress(c, domain.CompletedTaskContext{XPEarned: 120, CompletedAt: now})
	c, bonus := engagement.UpdateChallengeProgress(c, domain.CompletedTaskContext{XPEarned: 120, CompletedAt: now})
	if !c.Completed || bonus != 75 || c.CurrentProgress != 200 {
		t.Errorf("expected completed at 200 with bonus 75, got %+v bonus=%d", c, bonus)
	}
}

func TestChallenge_UntimedCompletionIgnored(t *testing.T) {
	// ExpiresAt is long past; an untimed completion must not sneak through.
	c := domain.DailyChallenge{
		Kind: domain.ChallengeTaskSprint, TargetValue: 1, XPReward: 50,
		ExpiresAt: time.Date(2020, 1, 1, 23, 59, 59, 0, time.UTC),
	}
	got, bonus := engagement.UpdateChallengeProgress(c, domain.CompletedTaskContext{WorkType: domain.WorkLight})
	if got.CurrentProgress != 0 || got.Completed || bonus != 0 {
		t.Errorf("untimed completion advanced challenge: %+v bonus=%d", got, bonus)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Preview Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestPreview_Motivation(t *testing.T) {
	calc := engagement.DefaultCalculator()
	quick := domain.TaskScoringInput{
		Title: "x", Priority: domain.PriorityLow, WorkType: domain.WorkLight, Difficulty: domain.DifficultyTrivial,
		Complexity: domain.Ptr(0), LearningValue: domain.Ptr(0), StrategicImportance: domain.Ptr(0),
	}
	tests := []struct {
		task domain.TaskScoringInput
		tier string
	}{
		{scored(domain.WorkDeep, domain.DifficultyExpert, domain.PriorityCritical), "HIGH VALUE"},
		{scored(domain.WorkDeep, domain.DifficultyModerate, domain.PriorityMedium), "SOLID REWARD"},
		{scored(domain.WorkLight, domain.DifficultyEasy, domain.PriorityLow), "STEADY PROGRESS"},
		{quick, "QUICK WIN"},
	}
	for _, tt := range tests {
		p := calc.GenerateTaskPreview(tt.task, nil)
		if !strings.Contains(p.MotivationMessage, tt.tier) {
			t.Errorf("%d XP: expected %q, got %q", p.EstimatedXP, tt.tier, p.MotivationMessage)
		}
		if p.MinXP > p.EstimatedXP || p.MaxXP < p.EstimatedXP {
			t.Errorf("range [%d,%d] excludes %d", p.MinXP, p.MaxXP, p.EstimatedXP)
		}
	}
}

func TestPreview_RangeWidensWithLowConfidence(t *testing.T) {
	calc := engagement.DefaultCalculator()
	guessed := calc.GenerateTaskPreview(domain.TaskScoringInput{Title: "Plan the product roadmap", WorkType: domain.WorkDeep}, nil)
	if guessed.MaxXP-guessed.MinXP <= 0 {
		t.Errorf("expected a range for an inferred task, got [%d,%d]", guessed.MinXP, guessed.MaxXP)
	}
	if !strings.Contains(guessed.PriorityReason, "inferred") {
		t.Errorf("expected inferred priority reason, got %q", guessed.PriorityReason)
	}

	full := scored(domain.WorkDeep, domain.DifficultyHard, domain.PriorityHigh)
	full.EstimatedDurationMinutes = domain.Ptr(30)
	exact := calc.GenerateTaskPreview(full, nil)
	if exact.MinXP != exact.EstimatedXP || exact.MaxXP != exact.EstimatedXP {
		t.Errorf("full confidence should collapse the range, got [%d,%d] around %d", exact.MinXP, exact.MaxXP, exact.EstimatedXP)
	}
}

func TestPreview_BonusOpportunities(t *testing.T) {
	calc := engagement.DefaultCalculator()
	ctx := domain.UserModifierContext{CurrentStreakDays: 5, UserLevel: 3, TimeOfDay: domain.TimeEvening}
	p := calc.GenerateTaskPreview(scored(domain.WorkDeep, domain.DifficultyHard, domain.PriorityHigh), &ctx)
	joined := strings.Join(p.BonusOpportunities, "|")
	for _, want := range []string{"2 days away from Weekly Warrior achievement", "focus session for +15%", "morning for +10%"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %v", want, p.BonusOpportunities)
		}
	}
}

func TestContextualPreviews_ReadOnly(t *testing.T) {
	calc := engagement.DefaultCalculator()
	ctx := domain.UserModifierContext{CurrentStreakDays: 2, UserLevel: 4, TimeOfDay: domain.TimeAfternoon}
	before := ctx
	task := scored(domain.WorkDeep, domain.DifficultyHard, domain.PriorityHigh)

	p := calc.GetContextualPreviews(task, ctx)
	if ctx != before {
		t.Errorf("context mutated: %+v -> %+v", before, ctx)
	}
	if p.Morning.EstimatedXP <= p.Now.EstimatedXP {
		t.Errorf("morning %d should beat afternoon %d", p.Morning.EstimatedXP, p.Now.EstimatedXP)
	}
	if p.InFocus.EstimatedXP <= p.Now.EstimatedXP {
		t.Errorf("focus %d should beat now %d", p.InFocus.EstimatedXP, p.Now.EstimatedXP)
	}
	if p.WithStreak.StreakBonus <= p.Now.StreakBonus {
		t.Errorf("streak bonus %d should beat %d", p.WithStreak.StreakBonus, p.Now.StreakBonus)
	}
}

func TestTaskListPreview_SortedDescending(t *testing.T) {
	calc := engagement.DefaultCalculator()
	tasks := []domain.TaskScoringInput{
		scored(domain.WorkLight, domain.DifficultyEasy, domain.PriorityLow),
		scored(domain.WorkDeep, domain.DifficultyExpert, domain.PriorityCritical),
		scored(domain.WorkDeep, domain.DifficultyModerate, domain.PriorityMedium),
	}
	tasks[0].ID, tasks[1].ID, tasks[2].ID = "low", "critical", "medium"

	list := calc.GenerateTaskListPreview(tasks, domain.UserModifierContext{UserLevel: 1})
	want := []string{"critical", "medium", "low"}
	for i, id := range want {
		if list[i].TaskID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, list[i].TaskID)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Completion Pipeline Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestApplyCompletion_FirstTask(t *testing.T) {
	calc := engagement.DefaultCalculator()
	stats := domain.NewUserStats("u1")
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	out := calc.ApplyCompletion(stats, scored(domain.WorkDeep, domain.DifficultyModerate, domain.PriorityMedium), engagement.CompletionOptions{Now: now})

	if stats.TotalXP != 0 || len(stats.UnlockedAchievements) != 0 {
		t.Error("input snapshot was mutated")
	}
	s := out.Stats
	if s.TotalXP != out.XP.FinalXP || out.TotalXPAwarded != out.XP.FinalXP {
		t.Errorf("total %d != awarded %d", s.TotalXP, out.XP.FinalXP)
	}
	if s.TotalTasksCompleted != 1 || s.TasksCompletedToday != 1 || s.CurrentStreak != 1 || s.ComboCount != 1 {
		t.Errorf("unexpected counters: %+v", s)
	}
	if !hasID(out.NewAchievements, "first-steps") || !s.HasAchievement("first-steps") {
		t.Errorf("expected first-steps unlock, got %v", out.NewAchievements)
	}
	if s.DeepWorkCompleted != 1 {
		t.Errorf("expected 1 deep work task, got %d", s.DeepWorkCompleted)
	}
	if s.LastCompletionTime == nil || !s.LastCompletionTime.Equal(now) {
		t.Errorf("last completion not recorded")
	}
}

func TestApplyCompletion_LevelUp(t *testing.T) {
	calc := engagement.DefaultCalculator()
	stats := domain.NewUserStats("u1")
	stats.TotalXP = 90

	out := calc.ApplyCompletion(stats, scored(domain.WorkDeep, domain.DifficultyModerate, domain.PriorityMedium),
		engagement.CompletionOptions{Now: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)})
	if !out.LeveledUp || out.PreviousLevel != 1 || out.Stats.Level != 2 {
		t.Errorf("expected level 1 → 2, got %d → %d (leveledUp=%v)", out.PreviousLevel, out.Stats.Level, out.LeveledUp)
	}
	want := engagement.CalculateLevel(out.Stats.TotalXP)
	if out.Stats.XPInCurrentLevel != want.XPInLevel || out.Stats.XPForNextLevel != want.XPForNextLevel {
		t.Errorf("level fields out of sync: %+v", out.Stats)
	}
}

func TestApplyCompletion_ComboAndRollover(t *testing.T) {
	calc := engagement.DefaultCalculator()
	task := scored(domain.WorkLight, domain.DifficultyEasy, domain.PriorityMedium)
	t0 := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	first := calc.ApplyCompletion(domain.NewUserStats("u1"), task, engagement.CompletionOptions{Now: t0})
	second := calc.ApplyCompletion(first.Stats, task, engagement.CompletionOptions{Now: t0.Add(10 * time.Minute)})
	if second.Stats.ComboCount != 2 || second.XP.ComboMultiplier <= 1.0 {
		t.Errorf("expected combo 2 with multiplier > 1, got %d ×%.2f", second.Stats.ComboCount, second.XP.ComboMultiplier)
	}

	third := calc.ApplyCompletion(second.Stats, task, engagement.CompletionOptions{Now: t0.Add(2 * time.Hour)})
	if third.Stats.ComboCount != 1 || third.XP.ComboMultiplier != 1.0 {
		t.Errorf("combo should reset after window, got %d", third.Stats.ComboCount)
	}
	if third.Stats.MaxCombo != 2 {
		t.Errorf("expected max combo 2, got %d", third.Stats.MaxCombo)
	}

	nextDay := calc.ApplyCompletion(third.Stats, task, engagement.CompletionOptions{Now: t0.AddDate(0, 0, 1)})
	if nextDay.Stats.TasksCompletedToday != 1 || nextDay.Stats.XPEarnedToday != nextDay.XP.FinalXP {
		t.Errorf("day rollover failed: today=%d xpToday=%d", nextDay.Stats.TasksCompletedToday, nextDay.Stats.XPEarnedToday)
	}
	if nextDay.Stats.CurrentStreak != 2 {
		t.Errorf("expected streak 2, got %d", nextDay.Stats.CurrentStreak)
	}
}

func TestApplyCompletion_PerfectDayCountsOnce(t *testing.T) {
	calc := engagement.DefaultCalculator()
	task := scored(domain.WorkLight, domain.DifficultyEasy, domain.PriorityMedium)
	stats := domain.NewUserStats("u1")
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	var perfectOn []int
	for i := 0; i < 7; i++ {
		out := calc.ApplyCompletion(stats, task, engagement.CompletionOptions{Now: start.Add(time.Duration(i) * time.Hour)})
		if out.PerfectDay {
			perfectOn = append(perfectOn, i+1)
		}
		stats = out.Stats
	}
	if stats.PerfectDays != 1 || len(perfectOn) != 1 || perfectOn[0] != 5 {
		t.Errorf("expected one perfect day on task 5, got %d (%v)", stats.PerfectDays, perfectOn)
	}
	if !stats.HasAchievement("productive-day") {
		t.Error("expected productive-day after 5 tasks")
	}
}

func TestApplyCompletion_ChallengeBonusOnce(t *testing.T) {
	calc := engagement.DefaultCalculator()
	task := scored(domain.WorkLight, domain.DifficultyEasy, domain.PriorityMedium)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	challenge := domain.DailyChallenge{
		Kind: domain.ChallengeTaskSprint, TargetValue: 2, XPReward: 50,
		ExpiresAt: time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC),
	}

	stats := domain.NewUserStats("u1")
	bonuses := 0
	for i := 0; i < 3; i++ {
		out := calc.ApplyCompletion(stats, task, engagement.CompletionOptions{Now: start.Add(time.Duration(i) * time.Hour), Challenge: &challenge})
		if out.ChallengeBonusXP > 0 {
			bonuses++
			if out.TotalXPAwarded != out.XP.FinalXP+50 {
				t.Errorf("awarded %d, want %d", out.TotalXPAwarded, out.XP.FinalXP+50)
			}
		}
		challenge = *out.Challenge
		stats = out.Stats
	}
	if bonuses != 1 || stats.ChallengesCompleted != 1 {
		t.Errorf("expected exactly one bonus, got %d (challenges=%d)", bonuses, stats.ChallengesCompleted)
	}
}

func TestModifierContextFor(t *testing.T) {
	calc := engagement.DefaultCalculator()
	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	stats := domain.NewUserStats("u1")
	stats.CurrentStreak, stats.ComboCount, stats.TasksCompletedToday, stats.Level = 4, 2, 3, 6
	stats.LastCompletionTime = &last

	ctx := calc.ModifierContextFor(stats, last.Add(10*time.Minute), true)
	if !ctx.RecentCompletionWithinComboWindow || ctx.ComboCount != 3 || ctx.TimeOfDay != domain.TimeMorning {
		t.Errorf("unexpected context: %+v", ctx)
	}
	if ctx.TasksCompletedToday != 3 || ctx.UserLevel != 6 || !ctx.CompletedInFocusSession {
		t.Errorf("unexpected context: %+v", ctx)
	}

	tomorrow := calc.ModifierContextFor(stats, last.AddDate(0, 0, 1), false)
	if tomorrow.TasksCompletedToday != 0 || tomorrow.RecentCompletionWithinComboWindow {
		t.Errorf("expected rolled-over context, got %+v", tomorrow)
	}
}
