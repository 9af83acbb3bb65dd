package audio

import (
	"fmt"
	"io"
)

// The wire format of every stream this package produces.
const (
	SampleRate = 48000
	Channels   = 2
	BitDepth   = 16
)

// Device describes a capture device and the format it would be opened with.
type Device struct {
	ID         int
	Name       string
	HostAPI    string
	SampleRate float64
	Channels   int
	BitDepth   int
}

func (d Device) String() string {
	return fmt.Sprintf("[%d] %s (%s, %.0f Hz, %d ch, %d-bit)", d.ID, d.Name, d.HostAPI, d.SampleRate, d.Channels, d.BitDepth)
}

// UnsupportedDeviceError reports a device whose format does not match
// the fixed wire format.
type UnsupportedDeviceError struct {
	Device Device
	Reason string
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("unsupported audio device %q: %s", e.Device.Name, e.Reason)
}

var _ error = (*UnsupportedDeviceError)(nil)

// Validate checks a device against the wire format.
// The sample rate is checked first since it is the only property
// a device cannot be opened around.
func Validate(d Device) error {
	if d.SampleRate != SampleRate {
		return &UnsupportedDeviceError{
			Device: d,
			Reason: fmt.Sprintf("sample rate is %.0f Hz, want %d Hz", d.SampleRate, SampleRate),
		}
	}
	if d.Channels != Channels {
		return &UnsupportedDeviceError{
			Device: d,
			Reason: fmt.Sprintf("%d input channels, want %d", d.Channels, Channels),
		}
	}
	if d.BitDepth != BitDepth {
		return &UnsupportedDeviceError{
			Device: d,
			Reason: fmt.Sprintf("%d-bit samples, want %d-bit signed", d.BitDepth, BitDepth),
		}
	}
	return nil
}

// Stream is an open capture stream. Reads return interleaved
// little-endian int16 samples in the wire format.
//
// Stop halts capture and makes a pending or later Read return an error; it
// may be called while another goroutine is reading. Close releases the
// device and must not be called while a Read is in flight.
type Stream interface {
	io.Reader
	Start() error
	Stop() error
	Close() error
}

// Opener opens a capture stream for a validated device.
type Opener interface {
	Open(d Device) (Stream, error)
}
