package quota

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/studyforge/billing/pkg/plan"
)

// cachedStore is a read-through Redis cache in front of a UsageStore.
// Counter reads sit on every creation attempt, so a short TTL takes the
// pressure off the database; writes go straight through and drop the key.
type cachedStore struct {
	inner  UsageStore
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps a UsageStore with a Redis read-through cache.
// A zero ttl defaults to 30 seconds.
func NewCachedStore(inner UsageStore, client *redis.Client, ttl time.Duration) UsageStore {
	if inner == nil {
		panic("quota: inner usage store is required")
	}
	if client == nil {
		panic("quota: redis client is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &cachedStore{inner: inner, client: client, ttl: ttl}
}

func cacheKey(userID uuid.UUID, month string) string {
	return "usage:" + userID.String() + ":" + month
}

func (s *cachedStore) Counters(ctx context.Context, userID uuid.UUID, month string) (Counters, error) {
	k := cacheKey(userID, month)

	if raw, err := s.client.Get(ctx, k).Bytes(); err == nil {
		var c Counters
		if err := json.Unmarshal(raw, &c); err == nil {
			return c, nil
		}
		// Corrupt entry: fall through to the source and overwrite it.
	}

	c, err := s.inner.Counters(ctx, userID, month)
	if err != nil {
		return Counters{}, err
	}

	if raw, err := json.Marshal(c); err == nil {
		// Cache failures are invisible to callers; the source already answered.
		_ = s.client.Set(ctx, k, raw, s.ttl).Err()
	}
	return c, nil
}

func (s *cachedStore) IncrementCreated(ctx context.Context, userID uuid.UUID, month string, res plan.Resource) error {
	if err := s.inner.IncrementCreated(ctx, userID, month, res); err != nil {
		return err
	}
	_ = s.client.Del(ctx, cacheKey(userID, month)).Err()
	return nil
}

func (s *cachedStore) AddMinutesUsed(ctx context.Context, userID uuid.UUID, month string, minutes float64) error {
	if err := s.inner.AddMinutesUsed(ctx, userID, month, minutes); err != nil {
		return err
	}
	_ = s.client.Del(ctx, cacheKey(userID, month)).Err()
	return nil
}
