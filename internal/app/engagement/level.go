package engagement

import (
	"math"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// MaxLevel caps the level curve.
const MaxLevel = 100

// XPForLevel returns the cumulative XP required to reach a given level.
// Exponential curve: 500 * (1.2^(level-1) - 1), so L2=100, L3=220, L4=364.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	level = min(level, MaxLevel)
	return int(math.Round(500 * (math.Pow(1.2, float64(level-1)) - 1)))
}

// LevelForXP returns the largest level whose threshold is at most xp.
func LevelForXP(xp int) int {
	level := 1
	for level < MaxLevel {
		if xp < XPForLevel(level+1) {
			return level
		}
		level++
	}
	return MaxLevel
}

// CalculateLevel maps cumulative XP to a level and the progress within it.
// Negative XP is treated as zero.
func CalculateLevel(totalXP int) domain.LevelInfo {
	totalXP = max(0, totalXP)
	level := LevelForXP(totalXP)
	info := domain.LevelInfo{
		Level:     level,
		XPInLevel: totalXP - XPForLevel(level),
	}
	if level < MaxLevel {
		info.XPForNextLevel = XPForLevel(level+1) - totalXP
	}
	return info
}

// LevelProgressPct returns progress toward the next level (0.0–100.0).
func LevelProgressPct(totalXP int) float64 {
	info := CalculateLevel(totalXP)
	if info.Level >= MaxLevel {
		return 100.0
	}
	span := XPForLevel(info.Level+1) - XPForLevel(info.Level)
	if span <= 0 {
		return 100.0
	}
	return float64(info.XPInLevel) / float64(span) * 100.0
}

// applyLevel recomputes the level fields of s from its TotalXP.
func applyLevel(s domain.UserStats) domain.UserStats {
	info := CalculateLevel(s.TotalXP)
	s.Level = info.Level
	s.XPInCurrentLevel = info.XPInLevel
	s.XPForNextLevel = info.XPForNextLevel
	return s
}

// UnlocksForLevel returns the titles and features unlocked at a level.
func UnlocksForLevel(level int) []string {
	unlocks := map[int][]string{
		1:   {"Task tracking", "XP previews", "Daily challenges"},
		5:   {"Title: Apprentice", "Custom focus timers"},
		10:  {"Title: Achiever", "Weekly insights"},
		15:  {"Deep-work analytics"},
		20:  {"Title: Strategist", "Time-boxing templates"},
		25:  {"Harder daily challenges"},
		30:  {"Title: Master of Focus"},
		40:  {"Custom achievement badges"},
		50:  {"Title: Grandmaster", "Profile flair"},
		75:  {"Title: Legend"},
		100: {"Title: LifeLock Immortal", "Hall of fame entry"},
	}
	if u, ok := unlocks[level]; ok {
		return u
	}
	return nil
}
