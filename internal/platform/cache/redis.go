package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"codecourt/internal/platform/config"
)

// Connect creates a redis client and verifies the connection. Redis backs the
// reconcile locks, the default-code cache, and proctor flags.
func Connect(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return rdb, nil
}
