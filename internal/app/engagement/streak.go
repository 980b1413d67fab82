package engagement

import (
	"fmt"
	"time"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// StreakChange reports what AdvanceStreak did.
type StreakChange struct {
	Extended   bool // streak grew by one day
	FreezeUsed bool // a single missed day was bridged by the weekly freeze
	Reset      bool // streak broke and restarted at 1
}

// AdvanceStreak records activity at now, measured in now's location.
// Same day: no-op. Next day: +1. One missed day: the once-per-ISO-week
// freeze keeps the streak alive, otherwise reset to 1. Longer gap: reset.
// Streaks break silently; nothing here raises a notification.
func AdvanceStreak(stats domain.UserStats, now time.Time) (domain.UserStats, StreakChange) {
	next := stats.Clone()
	var ch StreakChange

	if next.LastCompletionTime == nil || next.CurrentStreak <= 0 {
		next.CurrentStreak = 1
		ch.Extended = true
	} else {
		gap := daysBetween(next.LastCompletionTime.In(now.Location()), now)
		switch {
		case gap <= 0:
			// Same day, already counted
			return next, ch

		case gap == 1:
			next.CurrentStreak++
			ch.Extended = true

		case gap == 2:
			week := isoWeek(now)
			if next.FreezeWeekISO != week {
				next.FreezeWeekISO = week
				next.CurrentStreak++
				ch.Extended, ch.FreezeUsed = true, true
			} else {
				next.CurrentStreak = 1
				ch.Reset = true
			}

		default:
			next.CurrentStreak = 1
			ch.Reset = true
		}
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	return next, ch
}

// daysBetween counts calendar days from a to b in b's location.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// sameDay reports whether a and b fall on the same calendar day in b's location.
func sameDay(a, b time.Time) bool {
	return daysBetween(a.In(b.Location()), b) == 0
}

// isoWeek returns "YYYY-Www" for the given time.
func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// TimeOfDayAt buckets t: 05–12 morning, 12–17 afternoon, 17–21 evening,
// otherwise night.
func TimeOfDayAt(t time.Time) domain.TimeOfDay {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return domain.TimeMorning
	case h >= 12 && h < 17:
		return domain.TimeAfternoon
	case h >= 17 && h < 21:
		return domain.TimeEvening
	default:
		return domain.TimeNight
	}
}
