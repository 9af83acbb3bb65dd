// Package pipeline owns the single capture stream of the process and the
// shared player that forwards it to voice connections.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glizzus/sound-bridge/internal/audio"
	"github.com/glizzus/sound-bridge/internal/opus"
)

// ErrCaptureEnded is reported when the device stream ends on its own.
var ErrCaptureEnded = errors.New("capture stream ended")

// stopWait bounds how long Stop waits for the capture loop to notice
// the closed stream.
const stopWait = 2 * time.Second

type Pipeline struct {
	device audio.Device
	stream audio.Stream
	player *Player

	errs     chan error
	done     chan struct{}
	stopping atomic.Bool
	stopOnce sync.Once
}

// Initialize validates the device, opens and starts capture, and begins
// forwarding encoded frames to the player. An unsupported device is
// returned as *audio.UnsupportedDeviceError and no player is created.
func Initialize(device audio.Device, opener audio.Opener, enc opus.FrameEncoder) (*Pipeline, error) {
	if err := audio.Validate(device); err != nil {
		return nil, err
	}

	stream, err := opener.Open(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}
	if err := stream.Start(); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to start capture: %w", err), stream.Close())
	}

	p := &Pipeline{
		device: device,
		stream: stream,
		player: newPlayer(),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	p.player.setStatus(StatusPlaying)

	go p.run(enc)

	slog.Info("audio pipeline started", "device", device.Name, "deviceID", device.ID)
	return p, nil
}

func (p *Pipeline) run(enc opus.FrameEncoder) {
	defer close(p.done)

	err := opus.Stream(opus.NewFrameReader(p.stream), enc, p.player.broadcast)
	if p.stopping.Load() {
		return
	}
	if err == nil {
		err = ErrCaptureEnded
	}

	p.player.setStatus(StatusError)
	slog.Error("audio pipeline failed", "device", p.device.Name, "error", err)
	p.errs <- err
}

func (p *Pipeline) Device() audio.Device {
	return p.device
}

// Player returns the one shared player.
func (p *Pipeline) Player() *Player {
	return p.player
}

func (p *Pipeline) Status() Status {
	return p.player.Status()
}

// Errors delivers at most one terminal capture error.
func (p *Pipeline) Errors() <-chan error {
	return p.errs
}

// Stop detaches every connection and releases the device. It is idempotent.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.stopping.Store(true)
		p.player.setStatus(StatusIdle)
		p.player.detachAll()

		if err := p.stream.Stop(); err != nil {
			slog.Warn("failed to stop capture stream", "error", err)
		}

		// The device is only released once the capture loop is out of Read.
		select {
		case <-p.done:
			if err := p.stream.Close(); err != nil {
				slog.Warn("failed to close capture stream", "error", err)
			}
		case <-time.After(stopWait):
			slog.Warn("capture loop did not exit after stop, leaving the device open", "device", p.device.Name)
		}
		slog.Info("audio pipeline stopped", "device", p.device.Name)
	})
}
