package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type AudioConfig struct {
	// Device is a device ID or an exact device name.
	// When empty the bot prompts for one on startup.
	Device      string `env:"AUDIO_DEVICE"`
	OpusBitrate int    `env:"AUDIO_OPUS_BITRATE, default=96000"`
}

func NewAudioConfigFromEnv() (*AudioConfig, error) {
	var cfg AudioConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	// libopus accepts 500 to 512000 bits per second.
	if cfg.OpusBitrate < 500 || cfg.OpusBitrate > 512000 {
		return nil, fmt.Errorf("AUDIO_OPUS_BITRATE out of range: %d", cfg.OpusBitrate)
	}
	return &cfg, nil
}
