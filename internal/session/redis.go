package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "visit:"
	defaultTTL     = 24 * time.Hour
)

// RedisStorage keeps the visit slot in Redis with a sliding TTL, so the value
// disappears on its own once the visit goes idle.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	scope  string
}

// NewRedisStorage creates a Redis-backed storage. scope partitions keys per
// client (for example a device or browser-context id).
func NewRedisStorage(client *redis.Client, scope string, ttl time.Duration) *RedisStorage {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStorage{client: client, ttl: ttl, scope: scope}
}

// NewRedisStorageFromURL parses a redis:// URL and builds the storage.
func NewRedisStorageFromURL(rawURL, scope string, ttl time.Duration) (*RedisStorage, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStorage(redis.NewClient(opts), scope, ttl), nil
}

// Get implements Storage. Refreshes the TTL on every read.
func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	k := s.key(key)
	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	// A failed refresh only shortens the visit; the value itself is still valid.
	_ = s.client.Expire(ctx, k, s.ttl).Err()

	return val, true, nil
}

// Set implements Storage.
func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

func (s *RedisStorage) key(key string) string {
	if s.scope == "" {
		return redisKeyPrefix + key
	}
	return redisKeyPrefix + s.scope + ":" + key
}

var _ Storage = (*RedisStorage)(nil)
