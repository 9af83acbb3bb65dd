package voice_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-bridge/internal/audio"
	"github.com/glizzus/sound-bridge/internal/journal"
	"github.com/glizzus/sound-bridge/internal/pipeline"
	"github.com/glizzus/sound-bridge/internal/session"
	"github.com/glizzus/sound-bridge/internal/voice"
)

const (
	guildID   = "74241007174813750"
	loungeID  = "123456789012345678"
	stageID   = "223456789012345678"
	generalID = "323456789012345678"
	musicID   = "423456789012345678"
)

var guildChannels = []*discordgo.Channel{
	{ID: loungeID, GuildID: guildID, Name: "Lounge", Type: discordgo.ChannelTypeGuildVoice, Position: 2},
	{ID: stageID, GuildID: guildID, Name: "Stage", Type: discordgo.ChannelTypeGuildStageVoice, Position: 3},
	{ID: generalID, GuildID: guildID, Name: "general", Type: discordgo.ChannelTypeGuildText, Position: 0},
	{ID: musicID, GuildID: guildID, Name: "Music", Type: discordgo.ChannelTypeGuildVoice, Position: 1},
}

type fakeChannels struct {
	err error
}

func (f *fakeChannels) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return guildChannels, nil
}

type fakeConn struct {
	channelID     string
	opus          chan []byte
	disconnectErr error
	disconnects   atomic.Int32
}

func (c *fakeConn) ChannelID() string { return c.channelID }
func (c *fakeConn) OpusSend() chan<- []byte { return c.opus }

func (c *fakeConn) Disconnect(context.Context) error {
	c.disconnects.Add(1)
	return c.disconnectErr
}

type fakeDialer struct {
	mu     sync.Mutex
	dials  []string
	conns  []*fakeConn
	fail   map[string]error
	gates  map[string]chan struct{}
	jitter func() time.Duration

	disconnectErr error
}

func (d *fakeDialer) Dial(ctx context.Context, _, channelID string) (voice.Conn, error) {
	d.mu.Lock()
	d.dials = append(d.dials, channelID)
	err := d.fail[channelID]
	gate := d.gates[channelID]
	jitter := d.jitter
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if jitter != nil {
		time.Sleep(jitter())
	}
	if err != nil {
		return nil, err
	}

	conn := &fakeConn{channelID: channelID, opus: make(chan []byte, 8), disconnectErr: d.disconnectErr}
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type pipeStream struct {
	*io.PipeReader
}

func (pipeStream) Start() error { return nil }

func (s pipeStream) Stop() error { return s.PipeReader.Close() }

type pipeOpener struct {
	stream audio.Stream
}

func (o pipeOpener) Open(audio.Device) (audio.Stream, error) { return o.stream, nil }

type nopEncoder struct{}

func (nopEncoder) Encode([]byte) ([]byte, error) { return []byte{0xf8, 0xff, 0xfe}, nil }

type fixture struct {
	ctrl     *voice.Controller
	registry *session.Registry
	pipeline *pipeline.Pipeline
	capture  *io.PipeWriter
	dialer   *fakeDialer
	channels *fakeChannels
	journal  *journal.MemoryJournal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pr, pw := io.Pipe()
	device := audio.Device{Name: "Loopback", SampleRate: 48000, Channels: 2, BitDepth: 16}
	p, err := pipeline.Initialize(device, pipeOpener{stream: pipeStream{pr}}, nopEncoder{})
	if err != nil {
		t.Fatalf("failed to initialize pipeline: %v", err)
	}
	t.Cleanup(p.Stop)

	f := &fixture{
		registry: session.NewRegistry(),
		pipeline: p,
		capture:  pw,
		dialer:   &fakeDialer{fail: map[string]error{}, gates: map[string]chan struct{}{}},
		channels: &fakeChannels{},
		journal:  journal.NewMemoryJournal(),
	}
	f.ctrl = voice.NewController(voice.ControllerConfig{
		Registry:          f.registry,
		Player:            p.Player(),
		Dialer:            f.dialer,
		Channels:          f.channels,
		Journal:           f.journal,
		ConnectTimeout:    time.Second,
		DisconnectTimeout: time.Second,
	})
	return f
}

func (f *fixture) journalEntries(t *testing.T) map[string]string {
	t.Helper()
	entries, err := f.journal.Entries(t.Context())
	if err != nil {
		t.Fatalf("failed to read journal: %v", err)
	}
	return entries
}

var errRefused = errors.New("connection refused")
