package engagement

import (
	"fmt"
	"math"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// CheckAchievements returns catalog entries whose predicate holds for stats
// and which are not yet unlocked, in catalog order. Unlocks are one-way:
// an id already present in stats is never re-evaluated.
func CheckAchievements(stats domain.UserStats) []domain.AchievementDef {
	var unlocked []domain.AchievementDef
	for _, def := range AllAchievements() {
		if stats.HasAchievement(def.ID) {
			continue
		}
		if def.Predicate != nil && def.Predicate(stats) {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}

// ApplyUnlocks returns a copy of stats with defs recorded as unlocked and
// their points added. Already-unlocked ids are ignored.
func ApplyUnlocks(stats domain.UserStats, defs []domain.AchievementDef) domain.UserStats {
	next := stats.Clone()
	for _, def := range defs {
		if next.HasAchievement(def.ID) {
			continue
		}
		next.UnlockedAchievements = append(next.UnlockedAchievements, def.ID)
		next.TotalAchievementPoints += def.Points
	}
	return next
}

// settleAchievements unlocks until no predicate changes, so achievements that
// count other achievements see unlocks from the same pass.
func settleAchievements(stats domain.UserStats) (domain.UserStats, []domain.AchievementDef) {
	var all []domain.AchievementDef
	for range len(AllAchievements()) {
		found := CheckAchievements(stats)
		if len(found) == 0 {
			break
		}
		stats = ApplyUnlocks(stats, found)
		all = append(all, found...)
	}
	return stats, all
}

// FindAchievement looks up a catalog entry by id.
func FindAchievement(id string) (domain.AchievementDef, error) {
	for _, def := range AllAchievements() {
		if def.ID == id {
			return def, nil
		}
	}
	return domain.AchievementDef{}, fmt.Errorf("%w: %s", domain.ErrAchievementNotFound, id)
}

// GetAchievementProgress reports partial progress toward an achievement.
// Percentage is round(current/max*100) clamped to [0,100].
func GetAchievementProgress(id string, stats domain.UserStats) (domain.AchievementProgress, error) {
	def, err := FindAchievement(id)
	if err != nil {
		return domain.AchievementProgress{}, err
	}
	return progressOf(def, stats), nil
}

func progressOf(def domain.AchievementDef, stats domain.UserStats) domain.AchievementProgress {
	if def.Progress == nil {
		return domain.AchievementProgress{}
	}
	current, target := def.Progress(stats)
	p := domain.AchievementProgress{Current: current, Max: target}
	if target > 0 {
		p.Percentage = clamp(int(math.Round(float64(current)/float64(target)*100)), 0, 100)
	}
	return p
}

// AchievementBoard returns the whole catalog annotated with one user's state.
// Unlocked entries report full progress even if the stat has since regressed.
func AchievementBoard(stats domain.UserStats) []domain.AchievementStatus {
	defs := AllAchievements()
	board := make([]domain.AchievementStatus, 0, len(defs))
	for _, def := range defs {
		st := domain.AchievementStatus{AchievementDef: def, Progress: progressOf(def, stats)}
		if stats.HasAchievement(def.ID) {
			st.Unlocked = true
			st.Progress.Current = max(st.Progress.Current, st.Progress.Max)
			st.Progress.Percentage = 100
		}
		board = append(board, st)
	}
	return board
}

// ─── Achievement Catalog ────────────────────────────────────────────────────

// metric reads one counter from a snapshot.
type metric func(domain.UserStats) int

// threshold builds the predicate and progress funcs for "metric ≥ target".
func threshold(m metric, target int) (func(domain.UserStats) bool, func(domain.UserStats) (int, int)) {
	return func(s domain.UserStats) bool { return m(s) >= target },
		func(s domain.UserStats) (int, int) { return min(max(0, m(s)), target), target }
}

func achievement(id, name, desc, emoji string, cat domain.AchievementCategory, rarity domain.Rarity, points int, m metric, target int) domain.AchievementDef {
	pred, prog := threshold(m, target)
	return domain.AchievementDef{
		ID: id, Name: name, Description: desc, Emoji: emoji,
		Category: cat, Rarity: rarity, Points: points,
		Predicate: pred, Progress: prog,
	}
}

var (
	tasksDone     metric = func(s domain.UserStats) int { return s.TotalTasksCompleted }
	tasksToday    metric = func(s domain.UserStats) int { return s.TasksCompletedToday }
	streakDays    metric = func(s domain.UserStats) int { return s.CurrentStreak }
	xpToday       metric = func(s domain.UserStats) int { return s.XPEarnedToday }
	perfectDays   metric = func(s domain.UserStats) int { return s.PerfectDays }
	deepWork      metric = func(s domain.UserStats) int { return s.DeepWorkCompleted }
	mornings      metric = func(s domain.UserStats) int { return s.MorningTasksCompleted }
	criticals     metric = func(s domain.UserStats) int { return s.CriticalTasksCompleted }
	bestCombo     metric = func(s domain.UserStats) int { return s.MaxCombo }
	challenges    metric = func(s domain.UserStats) int { return s.ChallengesCompleted }
	levelReached  metric = func(s domain.UserStats) int { return s.Level }
	totalXP       metric = func(s domain.UserStats) int { return s.TotalXP }
	unlockedCount metric = func(s domain.UserStats) int { return len(s.UnlockedAchievements) }
)

// AllAchievements returns the full achievement catalog in evaluation order.
func AllAchievements() []domain.AchievementDef {
	return []domain.AchievementDef{
		// ── Volume (4) ─────────────────────────────────────────────────
		achievement("first-steps", "First Steps", "Complete your first task", "👣",
			domain.CatVolume, domain.RarityCommon, 10, tasksDone, 1),
		achievement("getting-started", "Getting Started", "Complete 10 tasks", "🚀",
			domain.CatVolume, domain.RarityCommon, 25, tasksDone, 10),
		achievement("task-centurion", "Task Centurion", "Complete 100 tasks", "🏛️",
			domain.CatVolume, domain.RarityEpic, 100, tasksDone, 100),
		achievement("task-legend", "Task Legend", "Complete 1,000 tasks", "👑",
			domain.CatVolume, domain.RarityLegendary, 250, tasksDone, 1000),

		// ── Streaks (4) ────────────────────────────────────────────────
		achievement("streak-starter", "Streak Starter", "Stay active 3 days in a row", "✨",
			domain.CatStreak, domain.RarityCommon, 15, streakDays, 3),
		achievement("weekly-warrior", "Weekly Warrior", "Stay active 7 days in a row", "🔥",
			domain.CatStreak, domain.RarityRare, 50, streakDays, 7),
		achievement("monthly-master", "Monthly Master", "Stay active 30 days in a row", "💪",
			domain.CatStreak, domain.RarityEpic, 150, streakDays, 30),
		achievement("unstoppable", "Unstoppable", "Stay active 100 days in a row", "⭐",
			domain.CatStreak, domain.RarityLegendary, 500, streakDays, 100),

		// ── Quality (7) ────────────────────────────────────────────────
		achievement("productive-day", "Productive Day", "Complete 5 tasks in one day", "📈",
			domain.CatQuality, domain.RarityCommon, 20, tasksToday, 5),
		achievement("power-day", "Power Day", "Complete 10 tasks in one day", "⚡",
			domain.CatQuality, domain.RarityRare, 50, tasksToday, 10),
		achievement("xp-sprinter", "XP Sprinter", "Earn 500 XP in one day", "🏃",
			domain.CatQuality, domain.RarityRare, 60, xpToday, 500),
		achievement("perfect-week", "Perfect Week", "Reach 7 perfect days", "🌟",
			domain.CatQuality, domain.RarityEpic, 120, perfectDays, 7),
		achievement("deep-diver", "Deep Diver", "Complete 25 deep work tasks", "🤿",
			domain.CatQuality, domain.RarityRare, 60, deepWork, 25),
		achievement("early-bird", "Early Bird", "Complete 20 tasks in the morning", "🌅",
			domain.CatQuality, domain.RarityRare, 40, mornings, 20),
		achievement("fire-fighter", "Fire Fighter", "Complete 10 critical tasks", "🧯",
			domain.CatQuality, domain.RarityRare, 50, criticals, 10),

		// ── Special (2) ────────────────────────────────────────────────
		achievement("combo-master", "Combo Master", "Chain 5 tasks in a single combo", "🎯",
			domain.CatSpecial, domain.RarityRare, 40, bestCombo, 5),
		achievement("challenger", "Challenger", "Complete 7 daily challenges", "🏅",
			domain.CatSpecial, domain.RarityEpic, 100, challenges, 7),

		// ── Levels & XP (6) ────────────────────────────────────────────
		achievement("level-5", "Rising Star", "Reach level 5", "🌱",
			domain.CatLevel, domain.RarityCommon, 25, levelReached, 5),
		achievement("level-10", "Double Digits", "Reach level 10", "🔟",
			domain.CatLevel, domain.RarityRare, 50, levelReached, 10),
		achievement("level-25", "Seasoned", "Reach level 25", "🎖️",
			domain.CatLevel, domain.RarityEpic, 150, levelReached, 25),
		achievement("level-50", "Grandmaster", "Reach level 50", "🏆",
			domain.CatLevel, domain.RarityLegendary, 400, levelReached, 50),
		achievement("xp-1k", "Thousand Club", "Earn 1,000 total XP", "💯",
			domain.CatLevel, domain.RarityCommon, 20, totalXP, 1000),
		achievement("xp-10k", "XP Titan", "Earn 10,000 total XP", "💎",
			domain.CatLevel, domain.RarityRare, 75, totalXP, 10000),

		// ── Meta (1) ───────────────────────────────────────────────────
		achievement("collector", "Collector", "Unlock 10 achievements", "🗃️",
			domain.CatSpecial, domain.RarityEpic, 100, unlockedCount, 10),
	}
}
