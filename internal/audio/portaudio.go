package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// FramesPerBuffer is one 20 ms frame at 48 kHz.
const FramesPerBuffer = SampleRate / 50

// Initialize must be called once before any other PortAudio-backed call.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return nil
}

func Terminate() error {
	return portaudio.Terminate()
}

func deviceFromInfo(info *portaudio.DeviceInfo) Device {
	channels := info.MaxInputChannels
	if channels > Channels {
		channels = Channels
	}
	hostAPI := ""
	if info.HostApi != nil {
		hostAPI = info.HostApi.Name
	}
	return Device{
		ID:         info.Index,
		Name:       info.Name,
		HostAPI:    hostAPI,
		SampleRate: info.DefaultSampleRate,
		Channels:   channels,
		// Streams are always opened with an int16 buffer.
		BitDepth: BitDepth,
	}
}

// InputDevices lists every device that can capture audio.
func InputDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list audio devices: %w", err)
	}

	var devices []Device
	for _, info := range infos {
		if info.MaxInputChannels > 0 {
			devices = append(devices, deviceFromInfo(info))
		}
	}
	return devices, nil
}

func DefaultInputDevice() (Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("failed to get default input device: %w", err)
	}
	return deviceFromInfo(info), nil
}

// PortAudioOpener opens blocking PortAudio input streams.
type PortAudioOpener struct{}

var _ Opener = PortAudioOpener{}

func (PortAudioOpener) Open(d Device) (Stream, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list audio devices: %w", err)
	}
	if d.ID < 0 || d.ID >= len(infos) {
		return nil, fmt.Errorf("audio device %d no longer exists", d.ID)
	}

	params := portaudio.LowLatencyParameters(infos[d.ID], nil)
	params.Input.Channels = Channels
	params.SampleRate = SampleRate
	params.FramesPerBuffer = FramesPerBuffer

	buf := make([]int16, FramesPerBuffer*Channels)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream on %q: %w", d.Name, err)
	}

	return &portAudioStream{stream: stream, samples: buf}, nil
}

// ErrStreamStopped is returned by Read once the stream was stopped.
var ErrStreamStopped = errors.New("audio stream stopped")

// portAudioStream adapts a blocking PortAudio stream to io.Reader.
type portAudioStream struct {
	stream  *portaudio.Stream
	samples []int16

	// pending holds bytes of the last buffer not yet handed to a reader.
	pending []byte
	bytes   []byte

	// readMu is held for the whole of a PortAudio read. Close takes it
	// before freeing the handle.
	readMu  sync.Mutex
	stopped atomic.Bool

	stopOnce  sync.Once
	stopErr   error
	closeOnce sync.Once
	closeErr  error
}

func (s *portAudioStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	return nil
}

func (s *portAudioStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if err := s.readBuffer(); err != nil {
			return 0, err
		}
		s.bytes = PutSamples(s.bytes[:0], s.samples)
		s.pending = s.bytes
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *portAudioStream) readBuffer() error {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if s.stopped.Load() {
		return ErrStreamStopped
	}
	if err := s.stream.Read(); err != nil {
		if s.stopped.Load() {
			return ErrStreamStopped
		}
		if !errors.Is(err, portaudio.InputOverflowed) {
			return err
		}
		slog.Debug("audio input overflowed, samples were dropped")
	}
	return nil
}

// Stop aborts capture without waiting for the reader, which wakes a
// blocked Pa_ReadStream. The handle stays valid until Close.
func (s *portAudioStream) Stop() error {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.stopErr = s.stream.Abort()
	})
	return s.stopErr
}

// Close stops the stream if needed, waits for any read to return and then
// frees the PortAudio handle.
func (s *portAudioStream) Close() error {
	s.closeOnce.Do(func() {
		stopErr := s.Stop()

		s.readMu.Lock()
		defer s.readMu.Unlock()
		s.closeErr = errors.Join(stopErr, s.stream.Close())
	})
	return s.closeErr
}

// PutSamples appends samples to dst as little-endian bytes.
func PutSamples(dst []byte, samples []int16) []byte {
	for _, v := range samples {
		dst = append(dst, byte(v), byte(v>>8))
	}
	return dst
}
