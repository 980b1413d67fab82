// Package sqlite provides SQLite-based persistent storage for LifeLock.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/lifelock-app/lifelock/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
// It implements domain.Store.
type DB struct {
	db *sql.DB
}

var _ domain.Store = (*DB)(nil)

// Open creates or opens the SQLite database at dir/lifelock.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "lifelock.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// One row per user: the current statistics snapshot.
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
			achievement_points   INTEGER NOT NULL DEFAULT 0,
			combo_count          INTEGER NOT NULL DEFAULT 0,
			max_combo            INTEGER NOT NULL DEFAULT 0,
			last_completion      INTEGER,
			freeze_week          TEXT NOT NULL DEFAULT '',
			deep_work            INTEGER NOT NULL DEFAULT 0,
			morning_tasks        INTEGER NOT NULL DEFAULT 0,
			critical_tasks       INTEGER NOT NULL DEFAULT 0,
			challenges_completed INTEGER NOT NULL DEFAULT 0,
			updated_at           INTEGER NOT NULL
		)`,

		// Unlocked achievements; seq preserves unlock order.
		`CREATE TABLE IF NOT EXISTS user_achievements (
			user_id        TEXT NOT NULL REFERENCES user_stats(user_id) ON DELETE CASCADE,
			achievement_id TEXT NOT NULL,
			seq            INTEGER NOT NULL,
			unlocked_at    INTEGER NOT NULL,
			PRIMARY KEY (user_id, achievement_id)
		)`,

		// Append-only XP ledger.
		`CREATE TABLE IF NOT EXISTS xp_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			source     TEXT NOT NULL,
			source_id  TEXT NOT NULL DEFAULT '',
			amount     INTEGER NOT NULL,
			breakdown  TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_xp_events_user ON xp_events(user_id, id)`,

		// One daily challenge per (user, day).
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
			completed    BOOLEAN NOT NULL DEFAULT 0,
			xp_reward    INTEGER NOT NULL,
			bonus_reward TEXT NOT NULL DEFAULT '',
			expires_at   INTEGER NOT NULL,
			PRIMARY KEY (user_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			shown      BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_user ON notifications(user_id, shown, created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableMilli(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMilli(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
