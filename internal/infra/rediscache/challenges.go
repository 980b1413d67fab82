// Package rediscache keeps daily challenges in Redis so several API
// instances agree on one challenge per user per day without a shared
// database round trip.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lifelock-app/lifelock/internal/domain"
)

// KeyPrefix namespaces every key written by ChallengeStore.
const KeyPrefix = "lifelock:challenge:"

// retention keeps a challenge readable for a while after its day ends.
const retention = 24 * time.Hour

// ChallengeStore implements domain.ChallengeStore on Redis.
type ChallengeStore struct {
	client *redis.Client
}

var _ domain.ChallengeStore = (*ChallengeStore)(nil)

// New wraps an existing client.
func New(client *redis.Client) *ChallengeStore {
	return &ChallengeStore{client: client}
}

// Dial parses url (redis://host:port/db) and verifies the connection.
func Dial(ctx context.Context, url string) (*ChallengeStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &ChallengeStore{client: client}, nil
}

// Ping checks connectivity.
func (s *ChallengeStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *ChallengeStore) Close() error {
	return s.client.Close()
}

func key(userID, date string) string {
	return KeyPrefix + userID + ":" + date
}

// GetOrCreateChallenge claims the key with SETNX; a losing writer reads
// the winner's challenge.
func (s *ChallengeStore) GetOrCreateChallenge(ctx context.Context, userID, date string, gen func() domain.DailyChallenge) (domain.DailyChallenge, error) {
	k := key(userID, date)
	if c, err := s.get(ctx, k); err == nil {
		return c, nil
	} else if !errors.Is(err, redis.Nil) {
		return domain.DailyChallenge{}, fmt.Errorf("%w: get %s: %w", domain.ErrStoreUnavailable, k, err)
	}

	c := gen()
	payload, err := json.Marshal(c)
	if err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("encode challenge: %w", err)
	}
	ttl := time.Until(c.ExpiresAt) + retention
	if ttl <= 0 {
		ttl = retention
	}
	ok, err := s.client.SetNX(ctx, k, payload, ttl).Result()
	if err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("%w: setnx %s: %w", domain.ErrStoreUnavailable, k, err)
	}
	if ok {
		return c, nil
	}
	return s.get(ctx, k)
}

// SaveChallenge overwrites c and keeps the key's expiry.
func (s *ChallengeStore) SaveChallenge(ctx context.Context, c domain.DailyChallenge) error {
	k := key(c.UserID, c.Date)
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	status, err := s.client.SetArgs(ctx, k, payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if errors.Is(err, redis.Nil) || (err == nil && status != "OK") {
		return fmt.Errorf("%w: %s/%s", domain.ErrChallengeNotFound, c.UserID, c.Date)
	}
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrStoreUnavailable, k, err)
	}
	return nil
}

// SwapChallenge writes next under WATCH only if the stored progress still
// equals old's.
func (s *ChallengeStore) SwapChallenge(ctx context.Context, old, next domain.DailyChallenge) error {
	k := key(next.UserID, next.Date)
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s/%s", domain.ErrChallengeNotFound, next.UserID, next.Date)
		}
		if err != nil {
			return fmt.Errorf("%w: get %s: %w", domain.ErrStoreUnavailable, k, err)
		}
		var cur domain.DailyChallenge
		if err := json.Unmarshal(raw, &cur); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		if cur.CurrentProgress != old.CurrentProgress || cur.Completed != old.Completed {
			return fmt.Errorf("%w: %s/%s", domain.ErrChallengeConflict, next.UserID, next.Date)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, k, payload, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}, k)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: %s/%s", domain.ErrChallengeConflict, next.UserID, next.Date)
	case errors.Is(err, domain.ErrChallengeNotFound), errors.Is(err, domain.ErrChallengeConflict),
		errors.Is(err, domain.ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: swap %s: %w", domain.ErrStoreUnavailable, k, err)
	}
}

func (s *ChallengeStore) get(ctx context.Context, k string) (domain.DailyChallenge, error) {
	raw, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		return domain.DailyChallenge{}, err
	}
	var c domain.DailyChallenge
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("decode %s: %w", k, err)
	}
	return c, nil
}
