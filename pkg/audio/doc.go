// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the Format descriptor and sample conversion functions
// Package audio provides fundamental audio types and utilities.
//
// This package defines the types shared by the encoder and its sources:
//   - Format: Describes audio stream format (codec, sample rate, channels, bitrate)
//
// Samples travel through oggcast as interleaved float32 values in [-1, 1].
// Conversion helpers cover the integer formats produced by decoders:
//   - int16 → float32 (MP3)
//   - arbitrary bit depth → float32 (FLAC)
//
// Example:
//
//	format := audio.Format{
//	    Codec:      "opus",
//	    SampleRate: 48000,
//	    Channels:   2,
//	}
//
//	// 20ms of interleaved stereo samples
//	n := format.FrameSamples(20)
package audio
