// ABOUTME: Audio source abstraction for reading PCM from files or a test tone
// ABOUTME: Picks a decoder by file extension and optionally loops at EOF
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AudioSource provides interleaved float32 PCM in [-1, 1]
type AudioSource interface {
	// Read fills samples and returns how many were read. It returns io.EOF
	// once a non-looping source is exhausted.
	Read(samples []float32) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Channels returns the number of channels
	Channels() int
	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)
	// Close closes the audio source
	Close() error
}

// Open creates an audio source for a local file. With loop set, the source
// restarts from the beginning instead of returning io.EOF.
func Open(path string, loop bool) (AudioSource, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return NewMP3Source(path, loop)
	case ".flac":
		return NewFLACSource(path, loop)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac)", ext)
	}
}

// titleFromPath uses the file name without extension as the title
func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
