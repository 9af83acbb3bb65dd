// Package shutdown tears the bridge down when the process is interrupted.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glizzus/sound-bridge/internal/session"
	"golang.org/x/sync/errgroup"
)

// Process exit codes.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitUnsupportedDevice = 2
	ExitInterrupted       = 130
)

const defaultSessionTimeout = 5 * time.Second

// SessionSource lists the live voice sessions.
type SessionSource interface {
	All() []*session.Session
}

// Leaver tears down one guild's session.
type Leaver interface {
	Leave(ctx context.Context, groupID string) error
}

type Pipeline interface {
	Stop()
}

type Client interface {
	Close() error
}

type Config struct {
	Sessions SessionSource
	Leaver   Leaver
	Pipeline Pipeline
	Client   Client

	// SessionTimeout bounds the teardown of each session.
	SessionTimeout time.Duration
}

type Handler struct {
	cfg Config
}

func New(cfg Config) *Handler {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = defaultSessionTimeout
	}
	return &Handler{cfg: cfg}
}

// Run leaves every voice channel before stopping capture and closing the
// gateway client. A session that fails or times out does not hold up the
// others. The returned error joins every failure.
func (h *Handler) Run(ctx context.Context) error {
	sessions := h.cfg.Sessions.All()
	slog.Info("shutting down", "sessions", len(sessions))

	// errgroup would keep only the first failure, so each leave reports into
	// its own slot of errs and the group is used to join the goroutines.
	var g errgroup.Group
	errs := make([]error, len(sessions))
	for i, s := range sessions {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, h.cfg.SessionTimeout)
			defer cancel()
			if err := h.cfg.Leaver.Leave(sctx, s.GroupID); err != nil {
				slog.Error("failed to leave voice channel during shutdown", "guildID", s.GroupID, "channelID", s.ChannelID, "error", err)
				errs[i] = fmt.Errorf("guild %s: %w", s.GroupID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if h.cfg.Pipeline != nil {
		h.cfg.Pipeline.Stop()
	}

	if h.cfg.Client != nil {
		if err := h.cfg.Client.Close(); err != nil {
			slog.Error("failed to close discord session", "error", err)
			errs = append(errs, fmt.Errorf("closing client: %w", err))
		}
	}

	return errors.Join(errs...)
}
