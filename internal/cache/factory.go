package cache

import (
	"context"
	"fmt"
	"time"

	"gochat/config"
)

// New builds the configured cache backend for the endpoint at baseURL.
func New(ctx context.Context, cfg config.CacheConfig, baseURL string) (Cache, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalCacheForEndpoint(cfg.Local.Dir, baseURL), nil
	case "redis":
		if cfg.Redis.URL == "" {
			return nil, fmt.Errorf("redis cache requires a URL")
		}
		c, err := NewRedisCache(ctx, RedisConfig{
			URL:      cfg.Redis.URL,
			Key:      cfg.Redis.Key,
			Endpoint: baseURL,
			TTL:      TTL(cfg),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// TTL converts the configured seconds into a duration.
func TTL(cfg config.CacheConfig) time.Duration {
	return time.Duration(cfg.TTL) * time.Second
}
