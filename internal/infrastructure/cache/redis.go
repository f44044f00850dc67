package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

// Redis is a Redis-backed cache. Expiry is delegated to Redis TTLs, so lazy
// eviction and sweeping are handled by the server. Keys are scoped by prefix
// so the stream and info caches can share one database.
type Redis[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache storing JSON-encoded values under
// prefix-scoped keys with the given TTL.
func NewRedis[V any](client *redis.Client, prefix string, ttl time.Duration) *Redis[V] {
	return &Redis[V]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

var _ Cache[string] = (*Redis[string])(nil)

// Get retrieves a value by ID. Returns a miss on redis.Nil.
func (r *Redis[V]) Get(ctx context.Context, id model.VideoID) (V, bool, error) {
	var zero V

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("redis get: %w", err)
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("deserialize cached value: %w", err)
	}
	return value, true, nil
}

// Set stores a value with the cache's TTL.
func (r *Redis[V]) Set(ctx context.Context, id model.VideoID, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serialize cached value: %w", err)
	}
	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear removes every key under the cache's prefix and returns how many were
// removed.
func (r *Redis[V]) Clear(ctx context.Context) (int, error) {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return len(keys), nil
}

// Len counts the keys under the cache's prefix.
func (r *Redis[V]) Len(ctx context.Context) (int, error) {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (r *Redis[V]) key(id model.VideoID) string {
	return r.prefix + id.String()
}

func (r *Redis[V]) scanKeys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
