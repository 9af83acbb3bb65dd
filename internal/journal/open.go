package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glizzus/sound-bridge/internal/config"
	"github.com/redis/go-redis/v9"
)

// Open returns a Redis journal when Redis is configured and a memory
// journal otherwise. The returned close func is never nil.
func Open(ctx context.Context, cfg *config.RedisConfig) (Journal, func() error, error) {
	if !cfg.Enabled() {
		slog.Info("REDIS_ADDR not set, keeping the session journal in memory")
		return NewMemoryJournal(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisJournal(client, cfg.JournalKey), client.Close, nil
}
