package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// ─── User Statistics ────────────────────────────────────────────────────────

const statsColumns = `user_id, total_xp, level, xp_in_level, xp_for_next_level,
	current_streak, longest_streak, total_tasks, tasks_today, xp_today,
	perfect_days, achievement_points, combo_count, max_combo, last_completion,
	freeze_week, deep_work, morning_tasks, critical_tasks, challenges_completed,
	updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetStats returns the user's snapshot or domain.ErrUserNotFound.
func (d *DB) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	return getStats(ctx, d.db, userID)
}

func getStats(ctx context.Context, q querier, userID string) (domain.UserStats, error) {
	row := q.QueryRowContext(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = ?`, userID)
	s, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("scan stats: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT achievement_id FROM user_achievements WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return domain.UserStats{}, err
		}
		s.UnlockedAchievements = append(s.UnlockedAchievements, id)
	}
	return s, rows.Err()
}

// UpdateStats applies fn to the current snapshot inside one transaction.
func (d *DB) UpdateStats(ctx context.Context, userID string, fn func(domain.UserStats) (domain.UserStats, []domain.XPEvent, error)) (domain.UserStats, error) {
	return d.update(ctx, userID, "", func(cur domain.UserStats, _ *domain.DailyChallenge) (domain.ProgressUpdate, error) {
		next, events, err := fn(cur)
		return domain.ProgressUpdate{Stats: next, Events: events}, err
	})
}

// UpdateProgress applies fn to the snapshot and the challenge stored for
// date inside one transaction.
func (d *DB) UpdateProgress(ctx context.Context, userID, date string, fn domain.ProgressFunc) (domain.UserStats, error) {
	if date == "" {
		return domain.UserStats{}, fmt.Errorf("%w: challenge date is required", domain.ErrInvalidInput)
	}
	return d.update(ctx, userID, date, fn)
}

func (d *DB) update(ctx context.Context, userID, date string, fn domain.ProgressFunc) (domain.UserStats, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cur, err := getStats(ctx, tx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		cur = domain.NewUserStats(userID)
	} else if err != nil {
		return domain.UserStats{}, err
	}

	var challenge *domain.DailyChallenge
	if date != "" {
		c, err := getChallenge(ctx, tx, userID, date)
		switch {
		case err == nil:
			challenge = &c
		case !errors.Is(err, sql.ErrNoRows):
			return domain.UserStats{}, fmt.Errorf("read challenge: %w", err)
		}
	}

	upd, err := fn(cur.Clone(), challenge)
	if err != nil {
		return domain.UserStats{}, err
	}
	next := upd.Stats
	next.UserID = userID
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now()
	}

	if err := upsertStats(ctx, tx, next); err != nil {
		return domain.UserStats{}, err
	}
	for i, id := range next.UnlockedAchievements {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_achievements (user_id, achievement_id, seq, unlocked_at) VALUES (?, ?, ?, ?)`,
			userID, id, i, next.UpdatedAt.UnixMilli(),
		); err != nil {
			return domain.UserStats{}, fmt.Errorf("insert achievement %s: %w", id, err)
		}
	}
	for _, e := range upd.Events {
		if err := insertXPEvent(ctx, tx, e); err != nil {
			return domain.UserStats{}, err
		}
	}
	if upd.Challenge != nil {
		if err := saveChallenge(ctx, tx, *upd.Challenge); err != nil {
			return domain.UserStats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.UserStats{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func upsertStats(ctx context.Context, q querier, s domain.UserStats) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO user_stats (`+statsColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			total_xp=excluded.total_xp, level=excluded.level,
			xp_in_level=excluded.xp_in_level, xp_for_next_level=excluded.xp_for_next_level,
			current_streak=excluded.current_streak, longest_streak=excluded.longest_streak,
			total_tasks=excluded.total_tasks, tasks_today=excluded.tasks_today,
			xp_today=excluded.xp_today, perfect_days=excluded.perfect_days,
			achievement_points=excluded.achievement_points, combo_count=excluded.combo_count,
			max_combo=excluded.max_combo, last_completion=excluded.last_completion,
			freeze_week=excluded.freeze_week, deep_work=excluded.deep_work,
			morning_tasks=excluded.morning_tasks, critical_tasks=excluded.critical_tasks,
			challenges_completed=excluded.challenges_completed, updated_at=excluded.updated_at`,
		s.UserID, s.TotalXP, s.Level, s.XPInCurrentLevel, s.XPForNextLevel,
		s.CurrentStreak, s.LongestStreak, s.TotalTasksCompleted, s.TasksCompletedToday, s.XPEarnedToday,
		s.PerfectDays, s.TotalAchievementPoints, s.ComboCount, s.MaxCombo, nullableMilli(s.LastCompletionTime),
		s.FreezeWeekISO, s.DeepWorkCompleted, s.MorningTasksCompleted, s.CriticalTasksCompleted, s.ChallengesCompleted,
		s.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}
	return nil
}

func scanStats(sc scanner) (domain.UserStats, error) {
	var s domain.UserStats
	var last sql.NullInt64
	var updated int64
	err := sc.Scan(&s.UserID, &s.TotalXP, &s.Level, &s.XPInCurrentLevel, &s.XPForNextLevel,
		&s.CurrentStreak, &s.LongestStreak, &s.TotalTasksCompleted, &s.TasksCompletedToday, &s.XPEarnedToday,
		&s.PerfectDays, &s.TotalAchievementPoints, &s.ComboCount, &s.MaxCombo, &last,
		&s.FreezeWeekISO, &s.DeepWorkCompleted, &s.MorningTasksCompleted, &s.CriticalTasksCompleted, &s.ChallengesCompleted,
		&updated)
	if err != nil {
		return s, err
	}
	s.LastCompletionTime = fromMilli(last)
	s.UpdatedAt = time.UnixMilli(updated)
	s.UnlockedAchievements = []string{}
	return s, nil
}

// ─── XP Ledger ──────────────────────────────────────────────────────────────

func insertXPEvent(ctx context.Context, q querier, e domain.XPEvent) error {
	breakdown, err := json.Marshal(e.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO xp_events (user_id, source, source_id, amount, breakdown, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, string(e.Source), e.SourceID, e.Amount, string(breakdown), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert xp event: %w", err)
	}
	return nil
}

// ListXPEvents returns the newest ledger rows first.
func (d *DB) ListXPEvents(ctx context.Context, userID string, limit int) ([]domain.XPEvent, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, source, source_id, amount, breakdown, created_at
		 FROM xp_events WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.XPEvent
	for rows.Next() {
		var e domain.XPEvent
		var breakdown string
		var created int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Source, &e.SourceID, &e.Amount, &breakdown, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(breakdown), &e.Breakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown %d: %w", e.ID, err)
		}
		e.CreatedAt = time.UnixMilli(created)
		events = append(events, e)
	}
	return events, rows.Err()
}
