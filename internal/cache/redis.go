package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna/predictor/internal/saves"
)

// DefaultKeyPrefix namespaces save slot keys
const DefaultKeyPrefix = "predictor:saves:"

// RedisCache holds save slot mappings in Redis, one JSON document per
// namespace. It satisfies saves.Backend.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and verifies the connection
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: DefaultKeyPrefix}
}

// WithTTL makes every namespace expire ttl after its last write. Zero keeps
// keys forever.
func (rc *RedisCache) WithTTL(ttl time.Duration) *RedisCache {
	rc.ttl = ttl
	return rc
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Key returns the Redis key holding namespace's mapping
func (rc *RedisCache) Key(namespace string) string {
	return rc.prefix + namespace
}

// LoadAll reads and decodes the namespace's mapping. A missing key is an
// empty mapping.
func (rc *RedisCache) LoadAll(ctx context.Context, namespace string) (map[string]saves.Slot, error) {
	raw, err := rc.client.Get(ctx, rc.Key(namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[string]saves.Slot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rc.Key(namespace), err)
	}
	return saves.DecodeMapping(raw)
}

// ReplaceAll writes the full mapping for namespace
func (rc *RedisCache) ReplaceAll(ctx context.Context, namespace string, slots map[string]saves.Slot) error {
	raw, err := saves.EncodeMapping(slots)
	if err != nil {
		return err
	}
	if err := rc.client.Set(ctx, rc.Key(namespace), raw, rc.ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", rc.Key(namespace), err)
	}
	return nil
}

// Delete removes the mapping of each namespace
func (rc *RedisCache) Delete(ctx context.Context, namespaces ...string) error {
	keys := make([]string, len(namespaces))
	for i, ns := range namespaces {
		keys[i] = rc.Key(ns)
	}
	return rc.client.Del(ctx, keys...).Err()
}
