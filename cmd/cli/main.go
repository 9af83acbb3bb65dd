package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"slices"

	"github.com/glizzus/sound-bridge/internal/audio"
	"github.com/glizzus/sound-bridge/internal/config"
	"github.com/glizzus/sound-bridge/internal/journal"
	"github.com/glizzus/sound-bridge/internal/shutdown"
	"github.com/urfave/cli/v2"
)

// withAudio runs fn between PortAudio initialization and termination.
func withAudio(fn func() error) error {
	if err := audio.Initialize(); err != nil {
		return cli.Exit(err.Error(), shutdown.ExitFailure)
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			log.Printf("Failed to terminate audio: %v", err)
		}
	}()
	return fn()
}

func openJournal(c *cli.Context) (journal.Journal, func() error, error) {
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return nil, nil, cli.Exit("Failed to load redis config: "+err.Error(), shutdown.ExitFailure)
	}
	if !redisConfig.Enabled() {
		return nil, nil, cli.Exit("REDIS_ADDR is not set, the bot keeps its journal in memory", shutdown.ExitFailure)
	}
	j, closeJournal, err := journal.Open(c.Context, redisConfig)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), shutdown.ExitFailure)
	}
	return j, closeJournal, nil
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "sound-bridge-cli",
		Description: "A development CLI tool for checking Sound Bridge's audio setup without Discord",
		Commands: []*cli.Command{
			{
				Name:  "devices",
				Usage: "List the audio input devices",
				Action: func(c *cli.Context) error {
					return withAudio(func() error {
						devices, err := audio.InputDevices()
						if err != nil {
							return cli.Exit("Failed to list devices: "+err.Error(), shutdown.ExitFailure)
						}
						if len(devices) == 0 {
							log.Println("No input devices found.")
							return nil
						}

						def, defErr := audio.DefaultInputDevice()
						for _, d := range devices {
							marker := " "
							if defErr == nil && d.ID == def.ID {
								marker = "*"
							}
							status := "ok"
							if err := audio.Validate(d); err != nil {
								status = err.Error()
							}
							fmt.Printf("%s %s: %s\n", marker, d, status)
						}
						return nil
					})
				},
			},
			{
				Name:  "check",
				Usage: "Check that a device can be bridged",
				Action: func(c *cli.Context) error {
					ref := c.String("device")
					return withAudio(func() error {
						devices, err := audio.InputDevices()
						if err != nil {
							return cli.Exit("Failed to list devices: "+err.Error(), shutdown.ExitFailure)
						}
						device, err := audio.Select(devices, ref)
						if err != nil {
							return cli.Exit(err.Error(), shutdown.ExitFailure)
						}

						if err := audio.Validate(device); err != nil {
							var unsupported *audio.UnsupportedDeviceError
							if errors.As(err, &unsupported) {
								return cli.Exit(err.Error(), shutdown.ExitUnsupportedDevice)
							}
							return cli.Exit(err.Error(), shutdown.ExitFailure)
						}
						log.Printf("%s can be bridged.", device)
						return nil
					})
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "device",
						Usage:    "ID or exact name of the device to check",
						EnvVars:  []string{"AUDIO_DEVICE"},
						Required: true,
					},
				},
			},
			{
				Name:  "journal",
				Usage: "Inspect the voice session journal in Redis",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List the voice channels the bot believes it is in",
						Action: func(c *cli.Context) error {
							j, closeJournal, err := openJournal(c)
							if err != nil {
								return err
							}
							defer closeJournal()

							entries, err := j.Entries(c.Context)
							if err != nil {
								return cli.Exit("Failed to read journal: "+err.Error(), shutdown.ExitFailure)
							}
							if len(entries) == 0 {
								log.Println("No sessions recorded.")
								return nil
							}

							guilds := make([]string, 0, len(entries))
							for guildID := range entries {
								guilds = append(guilds, guildID)
							}
							slices.Sort(guilds)
							for _, guildID := range guilds {
								fmt.Printf("guild %s -> channel %s\n", guildID, entries[guildID])
							}
							return nil
						},
					},
					{
						Name:  "clear",
						Usage: "Forget the recorded session of a guild",
						Action: func(c *cli.Context) error {
							guildID := c.String("guild-id")
							if guildID == "" {
								return cli.Exit("Please provide a guild ID using --guild-id", shutdown.ExitFailure)
							}

							j, closeJournal, err := openJournal(c)
							if err != nil {
								return err
							}
							defer closeJournal()

							if err := j.Remove(c.Context, guildID); err != nil {
								return cli.Exit("Failed to clear session: "+err.Error(), shutdown.ExitFailure)
							}
							log.Println("Session cleared.")
							return nil
						},
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "guild-id",
								Usage:    "ID of the guild to clear",
								Required: true,
							},
						},
					},
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
