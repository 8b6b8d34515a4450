package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/claimcheck/internal/model"
)

// New builds the configured cache. It returns nil when caching is disabled.
func New(ctx context.Context, cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	ttl := model.Seconds(cfg.TTL)

	switch strings.ToLower(cfg.Backend) {
	case "", "layered", "memory":
		return NewLayeredCache(ttl, cfg.Dir, ttl), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return NewRedisCache(client, "claimcheck:cache:", ttl), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: layered, redis)", cfg.Backend)
	}
}
