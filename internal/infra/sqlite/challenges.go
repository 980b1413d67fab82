package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// ─── Daily Challenges ───────────────────────────────────────────────────────

// GetOrCreateChallenge inserts gen() unless a challenge already exists for
// (userID, date), then returns the stored row. The primary key makes
// concurrent first accesses converge on one challenge.
func (d *DB) GetOrCreateChallenge(ctx context.Context, userID, date string, gen func() domain.DailyChallenge) (domain.DailyChallenge, error) {
	if c, err := getChallenge(ctx, d.db, userID, date); err == nil {
		return c, nil
	}

	c := gen()
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_challenges
		 (user_id, date, id, kind, name, description, emoji, target, progress, completed, xp_reward, bonus_reward, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, date, c.ID, string(c.Kind), c.Name, c.Description, c.Emoji,
		c.TargetValue, c.CurrentProgress, c.Completed, c.XPReward, c.BonusReward, c.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("insert challenge: %w", err)
	}
	return getChallenge(ctx, d.db, userID, date)
}

// SaveChallenge overwrites the progress of a stored challenge.
func (d *DB) SaveChallenge(ctx context.Context, c domain.DailyChallenge) error {
	return saveChallenge(ctx, d.db, c)
}

// SwapChallenge writes next only if the stored progress still equals old's.
func (d *DB) SwapChallenge(ctx context.Context, old, next domain.DailyChallenge) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE daily_challenges SET progress = ?, completed = ?
		 WHERE user_id = ? AND date = ? AND progress = ? AND completed = ?`,
		next.CurrentProgress, next.Completed, next.UserID, next.Date, old.CurrentProgress, old.Completed,
	)
	if err != nil {
		return fmt.Errorf("swap challenge: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := getChallenge(ctx, d.db, next.UserID, next.Date); errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", domain.ErrChallengeNotFound, next.UserID, next.Date)
	}
	return fmt.Errorf("%w: %s/%s", domain.ErrChallengeConflict, next.UserID, next.Date)
}

func saveChallenge(ctx context.Context, q querier, c domain.DailyChallenge) error {
	res, err := q.ExecContext(ctx,
		`UPDATE daily_challenges SET progress = ?, completed = ? WHERE user_id = ? AND date = ?`,
		c.CurrentProgress, c.Completed, c.UserID, c.Date,
	)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%s", domain.ErrChallengeNotFound, c.UserID, c.Date)
	}
	return nil
}

func getChallenge(ctx context.Context, q querier, userID, date string) (domain.DailyChallenge, error) {
	row := q.QueryRowContext(ctx,
		`SELECT user_id, date, id, kind, name, description, emoji, target, progress, completed, xp_reward, bonus_reward, expires_at
		 FROM daily_challenges WHERE user_id = ? AND date = ?`, userID, date,
	)
	var c domain.DailyChallenge
	var expires int64
	err := row.Scan(&c.UserID, &c.Date, &c.ID, &c.Kind, &c.Name, &c.Description, &c.Emoji,
		&c.TargetValue, &c.CurrentProgress, &c.Completed, &c.XPReward, &c.BonusReward, &expires)
	if err != nil {
		return domain.DailyChallenge{}, err
	}
	c.ExpiresAt = time.UnixMilli(expires)
	return c, nil
}
