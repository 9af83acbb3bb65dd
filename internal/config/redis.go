package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// RedisConfig configures the session journal store.
// An empty Addr means the journal is kept in memory only.
type RedisConfig struct {
	Addr       string `env:"REDIS_ADDR"`
	Password   string `env:"REDIS_PASSWORD"`
	JournalKey string `env:"JOURNAL_KEY, default=sound-bridge:sessions"`
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	var cfg RedisConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
