package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/navneeth/viralvibes/infrastructure/logger"
)

// NewCache connects a Redis client. A failed ping is reported but the client
// is still returned; callers treat the cache as best-effort.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis ping failed")
		return client, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
