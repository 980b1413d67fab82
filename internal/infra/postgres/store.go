// Package postgres implements domain.Store on PostgreSQL through pgx.
// It serves multi-instance deployments where the SQLite file cannot be shared.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ domain.Store = (*Store)(nil)

// Open connects to url, applies the schema and returns a ready store.
func Open(ctx context.Context, url string, maxConns int) (*Store, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is required for PostgreSQL")
	}

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewFromPool wraps an existing pool. The schema must already exist.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_stats (
		user_id              TEXT PRIMARY KEY,
		total_xp             INTEGER NOT NULL DEFAULT 0,
		level                INTEGER NOT NULL DEFAULT 1,
		xp_in_level          INTEGER NOT NULL DEFAULT 0,
		xp_for_next_level    INTEGER NOT NULL DEFAULT 0,
		current_streak       INTEGER NOT NULL DEFAULT 0,
		longest_streak       INTEGER NOT NULL DEFAULT 0,
		total_tasks          INTEGER NOT NULL DEFAULT 0,
		tasks_today          INTEGER NOT NULL DEFAULT 0,
		xp_today             INTEGER NOT NULL DEFAULT 0,
		perfect_days         INTEGER NOT NULL DEFAULT 0,
		achievements         TEXT[] NOT NULL DEFAULT '{}',
		achievement_points   INTEGER NOT NULL DEFAULT 0,
		combo_count          INTEGER NOT NULL DEFAULT 0,
		max_combo            INTEGER NOT NULL DEFAULT 0,
		last_completion      TIMESTAMPTZ,
		freeze_week          TEXT NOT NULL DEFAULT '',
		deep_work            INTEGER NOT NULL DEFAULT 0,
		morning_tasks        INTEGER NOT NULL DEFAULT 0,
		critical_tasks       INTEGER NOT NULL DEFAULT 0,
		challenges_completed INTEGER NOT NULL DEFAULT 0,
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS xp_events (
		id         BIGSERIAL PRIMARY KEY,
		user_id    TEXT NOT NULL,
		source     TEXT NOT NULL,
		source_id  TEXT NOT NULL DEFAULT '',
		amount     INTEGER NOT NULL,
		breakdown  JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_xp_events_user ON xp_events(user_id, id DESC)`,
	`CREATE TABLE IF NOT EXISTS daily_challenges (
		user_id      TEXT NOT NULL,
		date         TEXT NOT NULL,
		id           TEXT NOT NULL,
		kind         TEXT NOT NULL,
		name         TEXT NOT NULL,
		description  TEXT NOT NULL,
		emoji        TEXT NOT NULL DEFAULT '',
		target       INTEGER NOT NULL,
		progress     INTEGER NOT NULL DEFAULT 0,
		completed    BOOLEAN NOT NULL DEFAULT FALSE,
		xp_reward    INTEGER NOT NULL,
		bonus_reward TEXT NOT NULL DEFAULT '',
		expires_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         BIGSERIAL PRIMARY KEY,
		user_id    TEXT NOT NULL,
		type       TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		shown      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, shown, created_at)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// ─── User Statistics ────────────────────────────────────────────────────────

const statsColumns = `user_id, total_xp, level, xp_in_level, xp_for_next_level,
	current_streak, longest_streak, total_tasks, tasks_today, xp_today,
	perfect_days, achievements, achievement_points, combo_count, max_combo,
	last_completion, freeze_week, deep_work, morning_tasks, critical_tasks,
	challenges_completed, updated_at`

func scanStats(row pgx.Row) (domain.UserStats, error) {
	var st domain.UserStats
	err := row.Scan(&st.UserID, &st.TotalXP, &st.Level, &st.XPInCurrentLevel, &st.XPForNextLevel,
		&st.CurrentStreak, &st.LongestStreak, &st.TotalTasksCompleted, &st.TasksCompletedToday, &st.XPEarnedToday,
		&st.PerfectDays, &st.UnlockedAchievements, &st.TotalAchievementPoints, &st.ComboCount, &st.MaxCombo,
		&st.LastCompletionTime, &st.FreezeWeekISO, &st.DeepWorkCompleted, &st.MorningTasksCompleted, &st.CriticalTasksCompleted,
		&st.ChallengesCompleted, &st.UpdatedAt)
	if st.UnlockedAchievements == nil {
		st.UnlockedAchievements = []string{}
	}
	return st, err
}

// GetStats returns the user's snapshot or domain.ErrUserNotFound.
func (s *Store) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	st, err := scanStats(s.pool.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("get stats: %w", err)
	}
	return st, nil
}

// UpdateStats locks the user's row for the duration of fn, so concurrent
// completions from several instances are serialized.
func (s *Store) UpdateStats(ctx context.Context, userID string, fn func(domain.UserStats) (domain.UserStats, []domain.XPEvent, error)) (domain.UserStats, error) {
	return s.update(ctx, userID, "", func(cur domain.UserStats, _ *domain.DailyChallenge) (domain.ProgressUpdate, error) {
		next, events, err := fn(cur)
		return domain.ProgressUpdate{Stats: next, Events: events}, err
	})
}

// UpdateProgress locks the user's row and the challenge row for date, runs
// fn and writes both back in one transaction.
func (s *Store) UpdateProgress(ctx context.Context, userID, date string, fn domain.ProgressFunc) (domain.UserStats, error) {
	if date == "" {
		return domain.UserStats{}, fmt.Errorf("%w: challenge date is required", domain.ErrInvalidInput)
	}
	return s.update(ctx, userID, date, fn)
}

func (s *Store) update(ctx context.Context, userID, date string, fn domain.ProgressFunc) (domain.UserStats, error) {
	var next domain.UserStats
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID,
		); err != nil {
			return fmt.Errorf("ensure stats row: %w", err)
		}
		cur, err := scanStats(tx.QueryRow(ctx,
			`SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil {
			return fmt.Errorf("lock stats: %w", err)
		}

		var challenge *domain.DailyChallenge
		if date != "" {
			c, err := getChallenge(ctx, tx, userID, date, "FOR UPDATE")
			switch {
			case err == nil:
				challenge = &c
			case !errors.Is(err, pgx.ErrNoRows):
				return fmt.Errorf("lock challenge: %w", err)
			}
		}

		upd, err := fn(cur.Clone(), challenge)
		if err != nil {
			return err
		}
		next = upd.Stats
		events := upd.Events
		next.UserID = userID
		if next.UpdatedAt.IsZero() {
			next.UpdatedAt = time.Now()
		}

		if _, err := tx.Exec(ctx,
			`UPDATE user_stats SET
				total_xp = $2, level = $3, xp_in_level = $4, xp_for_next_level = $5,
				current_streak = $6, longest_streak = $7, total_tasks = $8, tasks_today = $9,
				xp_today = $10, perfect_days = $11, achievements = $12, achievement_points = $13,
				combo_count = $14, max_combo = $15, last_completion = $16, freeze_week = $17,
				deep_work = $18, morning_tasks = $19, critical_tasks = $20,
				challenges_completed = $21, updated_at = $22
			 WHERE user_id = $1`,
			userID, next.TotalXP, next.Level, next.XPInCurrentLevel, next.XPForNextLevel,
			next.CurrentStreak, next.LongestStreak, next.TotalTasksCompleted, next.TasksCompletedToday,
			next.XPEarnedToday, next.PerfectDays, next.UnlockedAchievements, next.TotalAchievementPoints,
			next.ComboCount, next.MaxCombo, next.LastCompletionTime, next.FreezeWeekISO,
			next.DeepWorkCompleted, next.MorningTasksCompleted, next.CriticalTasksCompleted,
			next.ChallengesCompleted, next.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update stats: %w", err)
		}

		if upd.Challenge != nil {
			if err := saveChallenge(ctx, tx, *upd.Challenge); err != nil {
				return err
			}
		}

		if len(events) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, e := range events {
			if e.CreatedAt.IsZero() {
				e.CreatedAt = next.UpdatedAt
			}
			breakdown := e.Breakdown
			if breakdown == nil {
				breakdown = []string{}
			}
			batch.Queue(
				`INSERT INTO xp_events (user_id, source, source_id, amount, breakdown, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				e.UserID, string(e.Source), e.SourceID, e.Amount, breakdown, e.CreatedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert xp events: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.UserStats{}, err
	}
	return next, nil
}

// ListXPEvents returns the newest ledger rows first.
func (s *Store) ListXPEvents(ctx context.Context, userID string, limit int) ([]domain.XPEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, source, source_id, amount, breakdown, created_at
		 FROM xp_events WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list xp events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.XPEvent, error) {
		var e domain.XPEvent
		var source string
		err := row.Scan(&e.ID, &e.UserID, &source, &e.SourceID, &e.Amount, &e.Breakdown, &e.CreatedAt)
		e.Source = domain.XPSource(source)
		return e, err
	})
}

// ─── Daily Challenges ───────────────────────────────────────────────────────

// GetOrCreateChallenge inserts gen() unless (userID, date) already exists and
// returns the stored row.
func (s *Store) GetOrCreateChallenge(ctx context.Context, userID, date string, gen func() domain.DailyChallenge) (domain.DailyChallenge, error) {
	c, err := getChallenge(ctx, s.pool, userID, date, "")
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyChallenge{}, fmt.Errorf("get challenge: %w", err)
	}

	c = gen()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO daily_challenges
		 (user_id, date, id, kind, name, description, emoji, target, progress, completed, xp_reward, bonus_reward, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (user_id, date) DO NOTHING`,
		userID, date, c.ID, string(c.Kind), c.Name, c.Description, c.Emoji,
		c.TargetValue, c.CurrentProgress, c.Completed, c.XPReward, c.BonusReward, c.ExpiresAt,
	); err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("insert challenge: %w", err)
	}
	return getChallenge(ctx, s.pool, userID, date, "")
}

// SaveChallenge overwrites the progress of a stored challenge.
func (s *Store) SaveChallenge(ctx context.Context, c domain.DailyChallenge) error {
	return saveChallenge(ctx, s.pool, c)
}

// SwapChallenge writes next only if the stored progress still equals old's.
func (s *Store) SwapChallenge(ctx context.Context, old, next domain.DailyChallenge) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE daily_challenges SET progress = $3, completed = $4
		 WHERE user_id = $1 AND date = $2 AND progress = $5 AND completed = $6`,
		next.UserID, next.Date, next.CurrentProgress, next.Completed, old.CurrentProgress, old.Completed)
	if err != nil {
		return fmt.Errorf("swap challenge: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := getChallenge(ctx, s.pool, next.UserID, next.Date, ""); errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", domain.ErrChallengeNotFound, next.UserID, next.Date)
	}
	return fmt.Errorf("%w: %s/%s", domain.ErrChallengeConflict, next.UserID, next.Date)
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func saveChallenge(ctx context.Context, q dbtx, c domain.DailyChallenge) error {
	tag, err := q.Exec(ctx,
		`UPDATE daily_challenges SET progress = $3, completed = $4 WHERE user_id = $1 AND date = $2`,
		c.UserID, c.Date, c.CurrentProgress, c.Completed)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", domain.ErrChallengeNotFound, c.UserID, c.Date)
	}
	return nil
}

// getChallenge reads one challenge row; lock is "" or a locking clause.
func getChallenge(ctx context.Context, q dbtx, userID, date, lock string) (domain.DailyChallenge, error) {
	var c domain.DailyChallenge
	var kind string
	err := q.QueryRow(ctx,
		`SELECT user_id, date, id, kind, name, description, emoji, target, progress, completed, xp_reward, bonus_reward, expires_at
		 FROM daily_challenges WHERE user_id = $1 AND date = $2 `+lock, userID, date,
	).Scan(&c.UserID, &c.Date, &c.ID, &kind, &c.Name, &c.Description, &c.Emoji,
		&c.TargetValue, &c.CurrentProgress, &c.Completed, &c.XPReward, &c.BonusReward, &c.ExpiresAt)
	c.Kind = domain.ChallengeKind(kind)
	return c, err
}

// ─── Notifications ──────────────────────────────────────────────────────────

// InsertNotification stores n and returns its ID.
func (s *Store) InsertNotification(ctx context.Context, n domain.Notification) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, type, title, body, created_at, shown)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		n.UserID, string(n.Type), n.Title, n.Body, n.CreatedAt, n.Shown,
	).Scan(&id)
	return id, err
}

// CountNotificationsSince counts a user's notifications created at or after since.
func (s *Store) CountNotificationsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND created_at >= $2`, userID, since,
	).Scan(&count)
	return count, err
}

// ListPendingNotifications returns unshown notifications, oldest first.
func (s *Store) ListPendingNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, type, title, body, created_at, shown
		 FROM notifications WHERE user_id = $1 AND NOT shown ORDER BY created_at, id LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Notification, error) {
		var n domain.Notification
		var typ string
		err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Body, &n.CreatedAt, &n.Shown)
		n.Type = domain.NotificationType(typ)
		return n, err
	})
}

// MarkNotificationShown marks a user's notification as shown.
func (s *Store) MarkNotificationShown(ctx context.Context, userID string, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET shown = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", domain.ErrNotificationNotFound, id)
	}
	return nil
}
