package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/glizzus/sound-bridge/internal/audio"
	"github.com/glizzus/sound-bridge/internal/config"
	"github.com/glizzus/sound-bridge/internal/generator"
	"github.com/glizzus/sound-bridge/internal/handler"
	"github.com/glizzus/sound-bridge/internal/journal"
	"github.com/glizzus/sound-bridge/internal/opus"
	"github.com/glizzus/sound-bridge/internal/pipeline"
	"github.com/glizzus/sound-bridge/internal/session"
	"github.com/glizzus/sound-bridge/internal/shutdown"
	"github.com/glizzus/sound-bridge/internal/voice"
)

var stdinReader = bufio.NewReader(os.Stdin)

func prompt(label string) string {
	fmt.Printf("%s: ", label)
	input, _ := stdinReader.ReadString('\n')
	return strings.TrimSpace(input)
}

// selectDevice resolves AUDIO_DEVICE, or asks on stdin when it is unset.
// An empty answer picks the system default input.
func selectDevice(ref string) (audio.Device, error) {
	devices, err := audio.InputDevices()
	if err != nil {
		return audio.Device{}, err
	}
	if len(devices) == 0 {
		return audio.Device{}, fmt.Errorf("no audio input devices found")
	}
	if ref != "" {
		return audio.Select(devices, ref)
	}

	fmt.Println("Available input devices:")
	for _, d := range devices {
		fmt.Printf("  %s\n", d)
	}

	def, defErr := audio.DefaultInputDevice()
	label := "Select a device by ID or name"
	if defErr == nil {
		label = fmt.Sprintf("%s (default %d)", label, def.ID)
	}

	answer := prompt(label)
	if answer == "" {
		return def, defErr
	}
	return audio.Select(devices, answer)
}

func run() int {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			slog.Error("Failed to load .env file", "error", err)
			return shutdown.ExitFailure
		}
	}

	logConfig, err := config.NewLogConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load log config", "error", err)
		return shutdown.ExitFailure
	}
	level, err := logConfig.SlogLevel()
	if err != nil {
		slog.Warn("Falling back to info logging", "error", err)
	}
	slog.SetLogLoggerLevel(level)

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load discord config", "error", err)
		return shutdown.ExitFailure
	}
	audioConfig, err := config.NewAudioConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load audio config", "error", err)
		return shutdown.ExitFailure
	}
	voiceConfig, err := config.NewVoiceConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load voice config", "error", err)
		return shutdown.ExitFailure
	}
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load redis config", "error", err)
		return shutdown.ExitFailure
	}

	if err := audio.Initialize(); err != nil {
		slog.Error("Failed to initialize audio", "error", err)
		return shutdown.ExitFailure
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			slog.Warn("Failed to terminate audio", "error", err)
		}
	}()

	device, err := selectDevice(audioConfig.Device)
	if err != nil {
		slog.Error("Failed to select audio device", "error", err)
		return shutdown.ExitFailure
	}

	// The device is checked before anything talks to Discord.
	if err := audio.Validate(device); err != nil {
		slog.Error("Audio device cannot be used", "device", device.String(), "error", err)
		return startupExitCode(err)
	}

	encoder, err := opus.NewEncoder(audioConfig.OpusBitrate)
	if err != nil {
		slog.Error("Failed to create opus encoder", "error", err)
		return shutdown.ExitFailure
	}

	audioPipeline, err := pipeline.Initialize(device, audio.PortAudioOpener{}, encoder)
	if err != nil {
		slog.Error("Failed to start audio capture", "device", device.String(), "error", err)
		return startupExitCode(err)
	}
	defer audioPipeline.Stop()
	slog.Info("Capturing audio", "device", device.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionJournal, closeJournal, err := journal.Open(ctx, redisConfig)
	if err != nil {
		slog.Error("Failed to open session journal", "error", err)
		return shutdown.ExitFailure
	}
	defer func() {
		if err := closeJournal(); err != nil {
			slog.Warn("Failed to close session journal", "error", err)
		}
	}()

	discordSession, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.ReadyLog,
	})
	if err != nil {
		slog.Error("Failed to create session", "error", err)
		return shutdown.ExitFailure
	}

	registry := session.NewRegistry()
	controller := voice.NewController(voice.ControllerConfig{
		Registry:          registry,
		Player:            audioPipeline.Player(),
		Dialer:            &voice.DiscordDialer{Session: discordSession},
		Channels:          discordSession,
		Journal:           sessionJournal,
		ConnectTimeout:    voiceConfig.ConnectTimeout,
		DisconnectTimeout: voiceConfig.DisconnectTimeout,
	})
	router := handler.NewRouter(discordConfig.CommandPrefix, controller, &generator.UUIDV4Generator{})
	discordSession.AddHandler(handler.MakeMessageCreateHandler(ctx, router))

	if err := discordSession.Open(); err != nil {
		slog.Error("Failed to open session", "error", err)
		return shutdown.ExitFailure
	}

	recovered, err := voice.RecoverStale(ctx, sessionJournal, discordSession)
	if err != nil {
		slog.Warn("Failed to leave some stale voice channels", "error", err)
	}
	if recovered > 0 {
		slog.Info("Left voice channels from a previous run", "count", recovered)
	}

	go controller.Watch(ctx, audioPipeline.Errors())

	slog.Info("Sound bridge is running", "prefix", discordConfig.CommandPrefix)
	return awaitShutdown(ctx, shutdown.Config{
		Sessions:       registry,
		Leaver:         controller,
		Pipeline:       audioPipeline,
		Client:         discordSession,
		SessionTimeout: voiceConfig.DisconnectTimeout,
	}, voiceConfig.ShutdownTimeout)
}

// startupExitCode maps a failure to bring up audio capture to an exit code.
func startupExitCode(err error) int {
	var unsupported *audio.UnsupportedDeviceError
	if errors.As(err, &unsupported) {
		return shutdown.ExitUnsupportedDevice
	}
	return shutdown.ExitFailure
}

// awaitShutdown blocks until ctx is cancelled by a signal, then tears the
// bridge down within timeout.
func awaitShutdown(ctx context.Context, cfg shutdown.Config, timeout time.Duration) int {
	<-ctx.Done()
	slog.Info("Interrupted, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := shutdown.New(cfg).Run(shutdownCtx); err != nil {
		slog.Error("Shutdown did not complete cleanly", "error", err)
	}
	return shutdown.ExitInterrupted
}

func main() {
	os.Exit(run())
}
