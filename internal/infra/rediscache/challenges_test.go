package rediscache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelock-app/lifelock/internal/domain"
	"github.com/lifelock-app/lifelock/internal/infra/rediscache"
)

func setupStore(t *testing.T) *rediscache.ChallengeStore {
	t.Helper()

	url := os.Getenv("LIFELOCK_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LIFELOCK_TEST_REDIS_URL not set, skipping integration test")
	}
	store, err := rediscache.Dial(context.Background(), url)
	if err != nil {
		t.Skipf("Failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func challenge(userID, id string) domain.DailyChallenge {
	return domain.DailyChallenge{
		ID: id, UserID: userID, Date: "2026-03-02", Kind: domain.ChallengeDeepFocus,
		Name: "Deep Focus", Description: "Complete 2 deep work tasks", TargetValue: 2, XPReward: 60,
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
}

func TestDial_InvalidURL(t *testing.T) {
	_, err := rediscache.Dial(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestChallengeStore_FirstWriterWins(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.NewString()

	a, err := store.GetOrCreateChallenge(ctx, userID, "2026-03-02", func() domain.DailyChallenge { return challenge(userID, "a") })
	require.NoError(t, err)
	b, err := store.GetOrCreateChallenge(ctx, userID, "2026-03-02", func() domain.DailyChallenge { return challenge(userID, "b") })
	require.NoError(t, err)

	assert.Equal(t, "a", a.ID)
	assert.Equal(t, "a", b.ID)
}

func TestChallengeStore_SaveKeepsState(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.NewString()

	c, err := store.GetOrCreateChallenge(ctx, userID, "2026-03-02", func() domain.DailyChallenge { return challenge(userID, "a") })
	require.NoError(t, err)

	c.CurrentProgress, c.Completed = 2, true
	require.NoError(t, store.SaveChallenge(ctx, c))

	got, err := store.GetOrCreateChallenge(ctx, userID, "2026-03-02", func() domain.DailyChallenge { return challenge(userID, "z") })
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, 2, got.CurrentProgress)
}

func TestChallengeStore_SaveUnknown(t *testing.T) {
	store := setupStore(t)
	err := store.SaveChallenge(context.Background(), challenge(uuid.NewString(), "a"))
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestChallengeStore_SwapComparesProgress(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.NewString()

	old, err := store.GetOrCreateChallenge(ctx, userID, "2026-03-02", func() domain.DailyChallenge { return challenge(userID, "a") })
	require.NoError(t, err)

	next := old
	next.CurrentProgress, next.Completed = 2, true
	require.NoError(t, store.SwapChallenge(ctx, old, next))
	assert.ErrorIs(t, store.SwapChallenge(ctx, old, next), domain.ErrChallengeConflict)

	other := challenge(uuid.NewString(), "b")
	assert.ErrorIs(t, store.SwapChallenge(ctx, other, other), domain.ErrChallengeNotFound)
}

func TestChallengeStore_UnreachableIsUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	store := rediscache.New(client)
	defer store.Close()

	_, err := store.GetOrCreateChallenge(context.Background(), "ana", "2026-03-02",
		func() domain.DailyChallenge { return challenge("ana", "a") })
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
