// Package audio wraps a local capture device as a continuous PCM byte stream.
//
// The bridge never converts formats. A device is only usable when it delivers
// exactly what Discord voice expects: 48 kHz, two channels, signed 16-bit
// little-endian samples. Anything else is rejected with an
// UnsupportedDeviceError before a stream is opened.
package audio
