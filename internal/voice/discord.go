package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-bridge/internal/journal"
)

// DiscordDialer joins voice channels through a gateway session.
type DiscordDialer struct {
	Session *discordgo.Session
}

var _ Dialer = (*DiscordDialer)(nil)

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Dial joins the channel muted=false, deafened=true. discordgo's join does
// not take a context, so when ctx ends first the join is left to finish in
// the background and disconnected right away.
func (d *DiscordDialer) Dial(ctx context.Context, groupID, channelID string) (Conn, error) {
	joined := make(chan joinResult, 1)
	go func() {
		vc, err := d.Session.ChannelVoiceJoin(groupID, channelID, false, true)
		joined <- joinResult{vc: vc, err: err}
	}()

	select {
	case r := <-joined:
		if r.err != nil {
			if r.vc != nil {
				_ = r.vc.Disconnect()
			}
			return nil, fmt.Errorf("unable to join the voice channel: %w", r.err)
		}
		if err := r.vc.Speaking(true); err != nil {
			_ = r.vc.Disconnect()
			return nil, fmt.Errorf("error setting speaking state to 'true': %w", err)
		}
		return newDiscordConn(r.vc, channelID), nil

	case <-ctx.Done():
		go func() {
			r := <-joined
			if r.vc == nil {
				return
			}
			if err := r.vc.Disconnect(); err != nil {
				slog.Warn("failed to disconnect abandoned voice join", "guildID", groupID, "channelID", channelID, "error", err)
			}
		}()
		return nil, fmt.Errorf("joining voice channel: %w", ctx.Err())
	}
}

// discordConn adapts a discordgo voice connection to Conn.
type discordConn struct {
	channelID string
	opusSend  chan<- []byte

	// Defaults to the voice connection; overridden in tests.
	speaking     func(bool) error
	disconnectVC func() error
}

func newDiscordConn(vc *discordgo.VoiceConnection, channelID string) *discordConn {
	return &discordConn{
		channelID:    channelID,
		opusSend:     vc.OpusSend,
		speaking:     vc.Speaking,
		disconnectVC: vc.Disconnect,
	}
}

func (c *discordConn) ChannelID() string {
	return c.channelID
}

func (c *discordConn) OpusSend() chan<- []byte {
	return c.opusSend
}

// Disconnect leaves the channel. It returns when ctx ends even if the
// gateway never answers; the teardown then finishes in the background.
func (c *discordConn) Disconnect(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		if err := c.speaking(false); err != nil {
			slog.Warn("failed to stop speaking", "channelID", c.channelID, "error", err)
		}
		done <- c.disconnectVC()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to disconnect: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("disconnecting from channel %s: %w", c.channelID, ctx.Err())
	}
}

// VoiceStateLeaver sends a raw voice state update.
// *discordgo.Session satisfies it.
type VoiceStateLeaver interface {
	ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error
}

// RecoverStale leaves every voice channel a previous process recorded but
// never left, and clears those journal entries. It returns how many
// guilds were cleaned up.
func RecoverStale(ctx context.Context, j journal.Journal, leaver VoiceStateLeaver) (int, error) {
	entries, err := j.Entries(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	recovered := 0
	for groupID, channelID := range entries {
		// An empty channel ID tells the gateway to leave voice in that guild.
		if err := leaver.ChannelVoiceJoinManual(groupID, "", false, false); err != nil {
			errs = append(errs, fmt.Errorf("failed to leave stale channel %s in guild %s: %w", channelID, groupID, err))
			continue
		}
		if err := j.Remove(ctx, groupID); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Info("left stale voice channel", "guildID", groupID, "channelID", channelID)
		recovered++
	}
	return recovered, errors.Join(errs...)
}
