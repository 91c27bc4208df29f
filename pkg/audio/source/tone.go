// ABOUTME: Test tone generator
// ABOUTME: Produces an endless sine wave at half volume on every channel
package source

import (
	"math"
	"sync"
)

// DefaultToneFrequency is A4
const DefaultToneFrequency = 440.0

// ToneSource generates a sine tone
type ToneSource struct {
	mu         sync.Mutex
	frame      uint64
	sampleRate int
	channels   int
	frequency  float64
}

// NewTone creates a tone generator
func NewTone(sampleRate, channels int, frequency float64) *ToneSource {
	return &ToneSource{
		sampleRate: sampleRate,
		channels:   channels,
		frequency:  frequency,
	}
}

// Read fills whole frames; it never returns io.EOF
func (s *ToneSource) Read(samples []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(samples) / s.channels
	for i := 0; i < frames; i++ {
		t := float64(s.frame+uint64(i)) / float64(s.sampleRate)
		v := float32(0.5 * math.Sin(2*math.Pi*s.frequency*t))
		for ch := 0; ch < s.channels; ch++ {
			samples[i*s.channels+ch] = v
		}
	}
	s.frame += uint64(frames)

	return frames * s.channels, nil
}

func (s *ToneSource) SampleRate() int { return s.sampleRate }
func (s *ToneSource) Channels() int   { return s.channels }
func (s *ToneSource) Metadata() (string, string, string) {
	return "Test Tone", "oggcast", ""
}
func (s *ToneSource) Close() error { return nil }
