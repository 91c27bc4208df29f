// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats and sample conversions
package audio

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	Bitrate    int // Nominal bitrate in bits/s, 0 when not applicable
}

// Valid reports whether the format has a positive rate and channel count
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// FrameSamples returns the interleaved sample count for a duration in milliseconds
func (f Format) FrameSamples(durationMs int) int {
	return f.SampleRate * durationMs / 1000 * f.Channels
}

// SampleFromInt16 converts an int16 sample to float32 in [-1, 1)
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// ScaleToFloat converts a signed integer sample of the given bit depth to float32
func ScaleToFloat(sample int32, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	return float32(float64(sample) / float64(int64(1)<<uint(bitDepth-1)))
}
