// ABOUTME: Tests for audio types
// ABOUTME: Tests format helpers and sample conversion functions
package audio

import "testing"

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected float32
	}{
		{"zero", 0, 0},
		{"half", 16384, 0.5},
		{"negative half", -16384, -0.5},
		{"min", -32768, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestScaleToFloat(t *testing.T) {
	tests := []struct {
		name     string
		sample   int32
		bitDepth int
		expected float32
	}{
		{"16-bit half", 16384, 16, 0.5},
		{"24-bit half", 0x400000, 24, 0.5},
		{"8-bit min", -128, 8, -1},
		{"invalid depth", 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScaleToFloat(tt.sample, tt.bitDepth)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	f := Format{Codec: "opus", SampleRate: 48000, Channels: 2}
	if !f.Valid() {
		t.Error("expected 48kHz stereo to be valid")
	}
	if got := f.FrameSamples(20); got != 1920 {
		t.Errorf("FrameSamples(20) = %d, want 1920", got)
	}

	if (Format{SampleRate: 0, Channels: 2}).Valid() {
		t.Error("expected zero sample rate to be invalid")
	}
}
