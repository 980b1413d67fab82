package engagement

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// challengeNamespace scopes deterministic challenge ids.
var challengeNamespace = uuid.MustParse("6f1c2a9e-4b1d-5c3e-9a7f-2d8e0b4c6a13")

// challengeTemplate is one entry of the daily challenge pool. Targets and
// rewards grow with the user's tier (level / 10, capped at 3).
type challengeTemplate struct {
	kind        domain.ChallengeKind
	name        string
	description string // %d is the target
	emoji       string
	baseTarget  int
	tierTarget  int
	baseXP      int
	tierXP      int
	bonusReward string
	// progress returns how far one completed task advances the challenge.
	progress func(domain.CompletedTaskContext) int
}

func countIf(ok bool) int {
	if ok {
		return 1
	}
	return 0
}

// challengePool returns the challenge templates in selection order.
func challengePool() []challengeTemplate {
	return []challengeTemplate{
		{
			kind: domain.ChallengeDeepFocus, name: "Deep Focus", emoji: "🧠",
			description: "Complete %d deep work tasks today",
			baseTarget: 2, tierTarget: 1, baseXP: 50, tierXP: 25,
			progress: func(t domain.CompletedTaskContext) int { return countIf(t.WorkType == domain.WorkDeep) },
		},
		{
			kind: domain.ChallengeMorningMomentum, name: "Morning Momentum", emoji: "🌅",
			description: "Complete %d tasks before noon",
			baseTarget: 3, tierTarget: 1, baseXP: 40, tierXP: 20,
			progress: func(t domain.CompletedTaskContext) int { return countIf(t.TimeOfDay == domain.TimeMorning) },
		},
		{
			kind: domain.ChallengeTaskSprint, name: "Task Sprint", emoji: "🏃",
			description: "Complete %d tasks today",
			baseTarget: 5, tierTarget: 2, baseXP: 50, tierXP: 25,
			bonusReward: "Sprinter badge",
			progress: func(domain.CompletedTaskContext) int { return 1 },
		},
		{
			kind: domain.ChallengePriorityCrusher, name: "Priority Crusher", emoji: "🎯",
			description: "Complete %d high-priority tasks",
			baseTarget: 2, tierTarget: 1, baseXP: 60, tierXP: 30,
			progress: func(t domain.CompletedTaskContext) int {
				return countIf(t.Priority.Rank() >= domain.PriorityHigh.Rank())
			},
		},
		{
			kind: domain.ChallengeLearningQuest, name: "Learning Quest", emoji: "📚",
			description: "Complete %d tasks with high learning value",
			baseTarget: 2, tierTarget: 1, baseXP: 45, tierXP: 20,
			progress: func(t domain.CompletedTaskContext) int { return countIf(t.LearningValue >= 7) },
		},
		{
			kind: domain.ChallengeXPHunter, name: "XP Hunter", emoji: "💰",
			description: "Earn %d XP today",
			baseTarget: 200, tierTarget: 150, baseXP: 75, tierXP: 25,
			bonusReward: "Double-XP flair",
			progress: func(t domain.CompletedTaskContext) int { return max(0, t.XPEarned) },
		},
		{
			kind: domain.ChallengeFocusFlow, name: "Focus Flow", emoji: "🌊",
			description: "Complete %d tasks inside a focus session",
			baseTarget: 2, tierTarget: 1, baseXP: 50, tierXP: 25,
			progress: func(t domain.CompletedTaskContext) int { return countIf(t.InFocusSession) },
		},
	}
}

func templateFor(kind domain.ChallengeKind) (challengeTemplate, bool) {
	for _, tmpl := range challengePool() {
		if tmpl.kind == kind {
			return tmpl, true
		}
	}
	return challengeTemplate{}, false
}

// challengeTier scales challenge difficulty with level: 0–3.
func challengeTier(level int) int {
	return clamp(level/10, 0, 3)
}

// challengeSeed hashes (user, day, tier) so the draw is stable within a day.
func challengeSeed(userID, date string, tier int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", userID, date, tier)
	return int64(h.Sum64())
}

// GenerateDailyChallenge picks the challenge for stats' user on date's
// calendar day (in date's location). Identical inputs yield an identical
// challenge, id included.
func GenerateDailyChallenge(stats domain.UserStats, date time.Time) domain.DailyChallenge {
	day := date.Format(domain.DateLayout)
	tier := challengeTier(stats.Level)

	pool := challengePool()
	r := rand.New(rand.NewSource(challengeSeed(stats.UserID, day, tier)))
	tmpl := pool[r.Intn(len(pool))]

	target := tmpl.baseTarget + tier*tmpl.tierTarget
	y, m, d := date.Date()
	return domain.DailyChallenge{
		ID:          uuid.NewSHA1(challengeNamespace, []byte(stats.UserID+"|"+day+"|"+string(tmpl.kind))).String(),
		UserID:      stats.UserID,
		Date:        day,
		Kind:        tmpl.kind,
		Name:        tmpl.name,
		Description: fmt.Sprintf(tmpl.description, target),
		Emoji:       tmpl.emoji,
		TargetValue: target,
		XPReward:    tmpl.baseXP + tier*tmpl.tierXP,
		BonusReward: tmpl.bonusReward,
		ExpiresAt:   time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), date.Location()),
	}
}

// UpdateChallengeProgress advances c by one completed task. bonusXP is
// non-zero only on the call that completes the challenge. Completed or
// expired challenges are returned unchanged, as are completions without a
// timestamp since their day cannot be checked.
func UpdateChallengeProgress(c domain.DailyChallenge, task domain.CompletedTaskContext) (domain.DailyChallenge, int) {
	if c.Completed || task.CompletedAt.IsZero() {
		return c, 0
	}
	if c.IsExpired(task.CompletedAt) {
		return c, 0
	}
	tmpl, ok := templateFor(c.Kind)
	if !ok {
		return c, 0
	}
	inc := tmpl.progress(task)
	if inc <= 0 {
		return c, 0
	}

	c.CurrentProgress = min(c.CurrentProgress+inc, c.TargetValue)
	if c.CurrentProgress >= c.TargetValue {
		c.Completed = true
		return c, c.XPReward
	}
	return c, 0
}
