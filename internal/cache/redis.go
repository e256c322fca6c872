package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisKey prefixes every model cache key.
	DefaultRedisKey = "gochat:models"

	// DefaultRedisTTL bounds how long an abandoned entry survives in Redis.
	DefaultRedisTTL = 24 * time.Hour
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g. "redis://localhost:6379/0")
	URL string

	// Key prefixes the stored key; the endpoint namespace is appended.
	Key string

	// Endpoint is the provider base URL the cached list belongs to.
	Endpoint string

	TTL time.Duration
}

// RedisCache implements Cache on a single Redis key.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := NewRedisCacheWithClient(client, cfg)
	slog.Info("redis cache connected", "key", c.key, "ttl", c.ttl)
	return c, nil
}

// NewRedisCacheWithClient wraps an existing client. The cache owns it afterwards.
func NewRedisCacheWithClient(client *redis.Client, cfg RedisConfig) *RedisCache {
	prefix := cfg.Key
	if prefix == "" {
		prefix = DefaultRedisKey
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisCache{
		client: client,
		key:    prefix + ":" + Namespace(cfg.Endpoint),
		ttl:    ttl,
	}
}

// Key returns the Redis key holding the model list.
func (c *RedisCache) Key() string {
	return c.key
}

// Get retrieves the model list from Redis.
func (c *RedisCache) Get(ctx context.Context) (*ModelCache, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache from redis: %w", err)
	}

	var cache ModelCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache from redis: %w", err)
	}
	return &cache, nil
}

// Set stores the model list in Redis.
func (c *RedisCache) Set(ctx context.Context, cache *ModelCache) error {
	if cache == nil {
		return nil
	}
	data, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache in redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
