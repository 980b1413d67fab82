package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Lookup errors
	ErrUserNotFound         = errors.New("user not found")
	ErrAchievementNotFound  = errors.New("achievement not found")
	ErrChallengeNotFound    = errors.New("daily challenge not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Concurrency errors
	ErrChallengeConflict = errors.New("daily challenge changed concurrently")

	// Input errors
	ErrInvalidInput = errors.New("invalid input")

	// Engine configuration errors
	ErrInvalidTables = errors.New("invalid XP tuning tables")

	// Infrastructure availability
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrPublisherUnavailable = errors.New("event publisher unavailable")
)
