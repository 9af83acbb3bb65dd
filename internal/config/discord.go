package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type DiscordConfig struct {
	Token         string `env:"DISCORD_TOKEN, required"`
	CommandPrefix string `env:"DISCORD_COMMAND_PREFIX, default=!"`
}

func NewDiscordConfigFromEnv() (*DiscordConfig, error) {
	var cfg DiscordConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.CommandPrefix) == "" {
		return nil, fmt.Errorf("DISCORD_COMMAND_PREFIX must not be blank")
	}

	return &cfg, nil
}
