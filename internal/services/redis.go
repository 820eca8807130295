package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/MegaGrindStone/sentichat/internal/models"
	"github.com/redis/go-redis/v9"
)

// Redis implements theme.Store with a redis server, for deployments where the preference
// should outlive the host the UI runs on.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// DefaultRedisPrefix namespaces the keys written by the Redis store.
const DefaultRedisPrefix = "sentichat:"

// NewRedis parses a redis:// URL and verifies the server answers.
func NewRedis(ctx context.Context, url, prefix string) (Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return Redis{}, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return Redis{}, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return Redis{rdb: rdb, prefix: prefix}, nil
}

func (r Redis) themeKey() string {
	return fmt.Sprintf("%stheme", r.prefix)
}

// Theme returns the saved theme. ok is false when no theme was saved yet.
func (r Redis) Theme(ctx context.Context) (models.Theme, bool, error) {
	value, err := r.rdb.Get(ctx, r.themeKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read theme: %w", err)
	}

	theme, err := models.ParseTheme(value)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse stored theme: %w", err)
	}
	return theme, true, nil
}

// SetTheme saves theme without expiry.
func (r Redis) SetTheme(ctx context.Context, theme models.Theme) error {
	if err := r.rdb.Set(ctx, r.themeKey(), string(theme), 0).Err(); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r Redis) Close() error {
	return r.rdb.Close()
}
