package feederrepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// LiveState holds the short-lived "feeding" flag a feeder shows right after
// a meal was paid for.
type LiveState interface {
	MarkFeeding(ctx context.Context, feederID string, ttl time.Duration) error
	Feeding(ctx context.Context, feederIDs []string) (map[string]bool, error)
}

const liveKeyPrefix = "pawbit:feeder:feeding:"

type redisLive struct{ rdb redis.UniversalClient }

func NewRedisLive(rdb redis.UniversalClient) LiveState { return &redisLive{rdb: rdb} }

func (r *redisLive) MarkFeeding(ctx context.Context, feederID string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, liveKeyPrefix+feederID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set feeding: %w", err)
	}
	return nil
}

func (r *redisLive) Feeding(ctx context.Context, feederIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(feederIDs))
	if len(feederIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(feederIDs))
	for i, id := range feederIDs {
		keys[i] = liveKeyPrefix + id
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget feeding: %w", err)
	}
	for i, v := range vals {
		if v != nil {
			out[feederIDs[i]] = true
		}
	}
	return out, nil
}

type memLive struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryLive() LiveState {
	return &memLive{until: map[string]time.Time{}, now: time.Now}
}

func (m *memLive) MarkFeeding(_ context.Context, feederID string, ttl time.Duration) error {
	m.mu.Lock()
	m.until[feederID] = m.now().Add(ttl)
	m.mu.Unlock()
	return nil
}

func (m *memLive) Feeding(_ context.Context, feederIDs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make(map[string]bool, len(feederIDs))
	for _, id := range feederIDs {
		if t, ok := m.until[id]; ok {
			if now.Before(t) {
				out[id] = true
			} else {
				delete(m.until, id)
			}
		}
	}
	return out, nil
}
