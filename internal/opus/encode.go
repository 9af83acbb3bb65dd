package opus

import (
	"fmt"

	"layeh.com/gopus"
)

// Discord voice uses 48 kHz stereo Opus at 20 ms frame size.
const (
	SampleRate  = 48000
	Channels    = 2
	FrameMillis = 20

	// FrameSamples is the number of samples per channel in one frame.
	FrameSamples = SampleRate * FrameMillis / 1000
	// FrameBytes is the PCM size of one frame.
	FrameBytes = FrameSamples * Channels * 2

	maxPacketBytes = 4000
)

// FrameEncoder encodes one PCM frame of FrameBytes into an Opus packet.
type FrameEncoder interface {
	Encode(pcm []byte) ([]byte, error)
}

// Encoder is a FrameEncoder backed by libopus.
type Encoder struct {
	enc     *gopus.Encoder
	samples []int16
}

var _ FrameEncoder = (*Encoder)(nil)

// NewEncoder creates an encoder tuned for music at the given bitrate.
func NewEncoder(bitrate int) (*Encoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	enc.SetBitrate(bitrate)
	return &Encoder{
		enc:     enc,
		samples: make([]int16, FrameSamples*Channels),
	}, nil
}

func (e *Encoder) Encode(pcm []byte) ([]byte, error) {
	if len(pcm) != FrameBytes {
		return nil, fmt.Errorf("opus frame must be %d bytes, got %d", FrameBytes, len(pcm))
	}
	Samples(e.samples, pcm)
	packet, err := e.enc.Encode(e.samples, FrameSamples, maxPacketBytes)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return packet, nil
}

// Samples decodes little-endian int16 pairs from pcm into dst.
func Samples(dst []int16, pcm []byte) {
	for i := range dst {
		dst[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
}
