// Package cache owns the redis connection that carries the thumbnail stream.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"canvasquest/internal/config"
)

const pingTimeout = 2 * time.Second

// NewRedisClient connects and verifies the server answers. The client is
// shared by the stream producer, the worker consumer and health checks.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Ping is a bounded liveness probe.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// StreamBacklog counts entries delivered to group but not yet acknowledged.
// A missing stream or group counts as an empty backlog.
func StreamBacklog(ctx context.Context, client *redis.Client, stream, group string) (int64, error) {
	exists, err := client.Exists(ctx, stream).Result()
	if err != nil {
		return 0, fmt.Errorf("exists %s: %w", stream, err)
	}
	if exists == 0 {
		return 0, nil
	}

	pending, err := client.XPending(ctx, stream, group).Result()
	if err != nil {
		if strings.HasPrefix(err.Error(), "NOGROUP") {
			return 0, nil
		}
		return 0, fmt.Errorf("xpending %s/%s: %w", stream, group, err)
	}
	return pending.Count, nil
}
