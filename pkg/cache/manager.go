// Package cache provides an optional Redis-backed cache of detail records,
// keyed by plant id. Detail records change rarely; caching them lets
// repeated enrichment runs skip most detail fetches entirely.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/verdantio/trefle-fetch/pkg/api"
)

// ErrCacheMiss indicates the requested plant id was not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// DefaultTTL is how long a cached detail record stays valid.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "trefle:detail:"

// Manager handles detail-record caching with a Redis backend.
type Manager struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewManager creates a cache manager. A zero ttl falls back to DefaultTTL.
func NewManager(redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// GetDetail retrieves a cached detail record by plant id.
// Returns ErrCacheMiss if the id is not cached.
func (m *Manager) GetDetail(ctx context.Context, id string) (api.Record, error) {
	data, err := m.redis.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec api.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		// Drop the corrupted entry so the next run refetches it.
		_ = m.redis.Del(ctx, keyPrefix+id).Err()
		return nil, fmt.Errorf("decode cached detail %s: %w", id, err)
	}

	CacheHits.Inc()
	m.logger.Debug().Str("plant_id", id).Msg("Detail cache hit")
	return rec, nil
}

// SetDetail stores a detail record under the plant id with the manager TTL.
func (m *Manager) SetDetail(ctx context.Context, id string, rec api.Record) error {
	if len(rec) == 0 {
		return fmt.Errorf("refusing to cache empty detail record for %s", id)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("encode detail record: %w", err)
	}

	if err := m.redis.Set(ctx, keyPrefix+id, data, m.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	m.logger.Debug().
		Str("plant_id", id).
		Dur("ttl", m.ttl).
		Msg("Cached detail record")
	return nil
}

// Delete removes a cached detail record.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.redis.Del(ctx, keyPrefix+id).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
