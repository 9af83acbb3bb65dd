package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type VoiceConfig struct {
	ConnectTimeout    time.Duration `env:"VOICE_CONNECT_TIMEOUT, default=15s"`
	DisconnectTimeout time.Duration `env:"VOICE_DISCONNECT_TIMEOUT, default=5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT, default=30s"`
}

func NewVoiceConfigFromEnv() (*VoiceConfig, error) {
	var cfg VoiceConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout <= 0 || cfg.DisconnectTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("voice timeouts must be positive")
	}
	return &cfg, nil
}
