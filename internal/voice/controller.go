// Package voice drives the per-guild voice state machine that connects
// guilds to the shared player.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-bridge/internal/journal"
	"github.com/glizzus/sound-bridge/internal/pipeline"
	"github.com/glizzus/sound-bridge/internal/session"
)

const (
	defaultConnectTimeout    = 15 * time.Second
	defaultDisconnectTimeout = 5 * time.Second
)

// ChannelLister reads a guild's channel topology.
// *discordgo.Session satisfies it.
type ChannelLister interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
}

// Conn is an open voice connection that accepts Opus frames.
type Conn interface {
	session.Connection
	OpusSend() chan<- []byte
}

// Dialer opens voice connections.
type Dialer interface {
	Dial(ctx context.Context, groupID, channelID string) (Conn, error)
}

type ControllerConfig struct {
	Registry *session.Registry
	Player   *pipeline.Player
	Dialer   Dialer
	Channels ChannelLister
	Journal  journal.Journal

	ConnectTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// Controller owns the transitions Disconnected -> Connected -> Disconnected
// of every guild. Commands for one guild run one at a time, including their
// network I/O; commands for different guilds run concurrently.
type Controller struct {
	registry *session.Registry
	player   *pipeline.Player
	dialer   Dialer
	channels ChannelLister
	journal  journal.Journal

	connectTimeout    time.Duration
	disconnectTimeout time.Duration

	locks *groupLocks
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.Journal == nil {
		cfg.Journal = journal.NewMemoryJournal()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = defaultDisconnectTimeout
	}
	return &Controller{
		registry:          cfg.Registry,
		player:            cfg.Player,
		dialer:            cfg.Dialer,
		channels:          cfg.Channels,
		journal:           cfg.Journal,
		connectTimeout:    cfg.ConnectTimeout,
		disconnectTimeout: cfg.DisconnectTimeout,
		locks:             newGroupLocks(),
	}
}

// Handle runs a play or stop command. Other actions are ignored here.
func (c *Controller) Handle(ctx context.Context, cmd Command) Outcome {
	switch cmd.Action {
	case ActionPlay:
		return c.Play(ctx, cmd.GroupID, cmd.Target)
	case ActionStop:
		return c.Stop(ctx, cmd.GroupID)
	default:
		return Outcome{Kind: OutcomeIgnored, GroupID: cmd.GroupID}
	}
}

// Play connects the guild to target and attaches the player.
// A guild that is already connected has to be stopped first.
// A failed play never leaves a session behind.
func (c *Controller) Play(ctx context.Context, groupID, target string) Outcome {
	release, err := c.locks.acquire(ctx, groupID)
	if err != nil {
		return cancelled(groupID, err)
	}
	defer release()

	if existing, ok := c.registry.Lookup(groupID); ok {
		return Outcome{
			Kind:      OutcomeAlreadyConnected,
			GroupID:   groupID,
			ChannelID: existing.ChannelID,
			Err:       &session.AlreadyConnectedError{GroupID: groupID, ChannelID: existing.ChannelID},
		}
	}

	channels, err := c.channels.GuildChannels(groupID)
	if err != nil {
		return c.connectionFailed(groupID, "", fmt.Errorf("failed to get guild channels: %w", err))
	}

	channel, err := ResolveTarget(channels, target)
	if err != nil {
		slog.Info("rejected play target", "guildID", groupID, "target", target, "error", err)
		return Outcome{Kind: OutcomeInvalidTarget, GroupID: groupID, ChannelRef: target, Err: err}
	}

	if err := c.connect(ctx, groupID, channel.ID); err != nil {
		return c.connectionFailed(groupID, channel.ID, err)
	}

	slog.Info("joined voice channel", "guildID", groupID, "channelID", channel.ID, "channelName", channel.Name)
	return Outcome{Kind: OutcomeConnected, GroupID: groupID, ChannelID: channel.ID}
}

func (c *Controller) connect(ctx context.Context, groupID, channelID string) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(dialCtx, groupID, channelID)
	if err != nil {
		return err
	}

	attachment, err := c.player.Attach(groupID, conn.OpusSend())
	if err != nil {
		c.disconnect(ctx, groupID, conn)
		return fmt.Errorf("failed to attach player: %w", err)
	}

	if _, err := c.registry.Create(groupID, channelID, conn, attachment); err != nil {
		attachment.Detach()
		c.disconnect(ctx, groupID, conn)
		return err
	}

	if err := c.journal.Record(context.WithoutCancel(ctx), groupID, channelID); err != nil {
		slog.Warn("failed to journal voice session", "guildID", groupID, "error", err)
	}
	return nil
}

// disconnect tears down a connection that never made it into the registry.
func (c *Controller) disconnect(ctx context.Context, groupID string, conn session.Connection) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.disconnectTimeout)
	defer cancel()
	if err := conn.Disconnect(ctx); err != nil {
		slog.Warn("failed to disconnect after aborted play", "guildID", groupID, "channelID", conn.ChannelID(), "error", err)
	}
}

// Stop detaches the player from the guild's connection and leaves the
// channel. Capture keeps running for a later Play.
func (c *Controller) Stop(ctx context.Context, groupID string) Outcome {
	release, err := c.locks.acquire(ctx, groupID)
	if err != nil {
		return cancelled(groupID, err)
	}
	defer release()

	sess, err := c.teardown(ctx, groupID)
	if errors.Is(err, ErrNotConnected) {
		return Outcome{Kind: OutcomeNotConnected, GroupID: groupID, Err: err}
	}
	if err != nil {
		slog.Warn("voice disconnect did not complete cleanly", "guildID", groupID, "channelID", sess.ChannelID, "error", err)
	}
	return Outcome{Kind: OutcomeDisconnected, GroupID: groupID, ChannelID: sess.ChannelID}
}

// Leave tears down the guild's session, giving up if ctx ends before the
// guild is free or before the connection closes.
func (c *Controller) Leave(ctx context.Context, groupID string) error {
	release, err := c.locks.acquire(ctx, groupID)
	if err != nil {
		return fmt.Errorf("waiting for guild %s: %w", groupID, err)
	}
	defer release()

	_, err = c.teardown(ctx, groupID)
	return err
}

// teardown must be called with the guild's lock held. The session is
// removed from the registry even when the disconnect fails; the journal
// entry is only dropped once the channel was left cleanly.
func (c *Controller) teardown(ctx context.Context, groupID string) (*session.Session, error) {
	sess, ok := c.registry.Destroy(groupID)
	if !ok {
		return nil, ErrNotConnected
	}

	sess.Attachment.Detach()

	dctx, cancel := context.WithTimeout(ctx, c.disconnectTimeout)
	defer cancel()
	if err := sess.Conn.Disconnect(dctx); err != nil {
		return sess, err
	}

	if err := c.journal.Remove(context.WithoutCancel(ctx), groupID); err != nil {
		slog.Warn("failed to remove voice session from journal", "guildID", groupID, "error", err)
	}
	slog.Info("left voice channel", "guildID", groupID, "channelID", sess.ChannelID)
	return sess, nil
}

// VoiceChannels lists the guild's voice capable channels.
func (c *Controller) VoiceChannels(groupID string) ([]*discordgo.Channel, error) {
	channels, err := c.channels.GuildChannels(groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild channels: %w", err)
	}
	return VoiceChannels(channels), nil
}

// Watch waits for a terminal pipeline error and then leaves every voice
// channel, since nothing can be forwarded anymore. It returns when ctx ends
// or after the cleanup.
func (c *Controller) Watch(ctx context.Context, errs <-chan error) {
	select {
	case <-ctx.Done():
		return
	case err := <-errs:
		sessions := c.registry.All()
		slog.Error("audio pipeline failed, leaving voice channels", "error", err, "sessions", len(sessions))
		for _, s := range sessions {
			if err := c.Leave(ctx, s.GroupID); err != nil && !errors.Is(err, ErrNotConnected) {
				slog.Error("failed to leave voice channel after pipeline failure", "guildID", s.GroupID, "error", err)
			}
		}
	}
}

func cancelled(groupID string, err error) Outcome {
	slog.Warn("gave up waiting for guild", "guildID", groupID, "error", err)
	return Outcome{Kind: OutcomeCancelled, GroupID: groupID, Err: err}
}

func (c *Controller) connectionFailed(groupID, channelID string, err error) Outcome {
	slog.Warn("voice connection failed", "guildID", groupID, "channelID", channelID, "error", err)
	return Outcome{
		Kind:      OutcomeConnectionFailed,
		GroupID:   groupID,
		ChannelID: channelID,
		Err:       &ConnectionFailedError{GroupID: groupID, ChannelID: channelID, Err: err},
	}
}
