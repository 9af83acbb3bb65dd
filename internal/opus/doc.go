// Package opus turns raw capture PCM into Opus frames for Discord voice.
//
// Input is interleaved little-endian int16 stereo at 48 kHz. It is cut into
// 20 ms frames (960 samples per channel, 3840 bytes) by FrameReader, encoded
// by Encoder, and handed frame by frame to a sink by Stream.
package opus
