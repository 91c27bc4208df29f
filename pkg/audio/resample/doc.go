// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts float32 audio between sample rates across chunk boundaries
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation and carries the last input frame across calls,
// so a stream resampled chunk by chunk has no gaps at the seams.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out := make([]float32, r.OutputSamplesNeeded(len(in)))
//	n := r.Resample(in, out)
package resample
