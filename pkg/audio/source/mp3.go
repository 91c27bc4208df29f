// ABOUTME: MP3 file source
// ABOUTME: Decodes with go-mp3, which always outputs 16-bit stereo
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/oggcast/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Source reads from an MP3 file
type MP3Source struct {
	file       *os.File
	decoder    *mp3.Decoder
	loop       bool
	buf        []byte
	sampleRate int
	title      string
}

// NewMP3Source creates a new MP3 audio source
func NewMP3Source(path string, loop bool) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	title := titleFromPath(path)
	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", title, decoder.SampleRate())

	return &MP3Source{
		file:       f,
		decoder:    decoder,
		loop:       loop,
		sampleRate: decoder.SampleRate(),
		title:      title,
	}, nil
}

func (s *MP3Source) Read(samples []float32) (int, error) {
	// 2 bytes per int16 sample
	if cap(s.buf) < len(samples)*2 {
		s.buf = make([]byte, len(samples)*2)
	}
	buf := s.buf[:len(samples)*2]

	filled := 0
	rewound := false
	for filled < len(buf) {
		n, err := s.decoder.Read(buf[filled:])
		filled += n
		if n > 0 {
			rewound = false
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			return s.convert(samples, filled), err
		}
		// A second EOF without any data in between means an empty stream
		if !s.loop || rewound {
			break
		}
		if err := s.rewind(); err != nil {
			return s.convert(samples, filled), err
		}
		rewound = true
	}

	count := s.convert(samples, filled)
	if count == 0 {
		return 0, io.EOF
	}
	return count, nil
}

func (s *MP3Source) convert(samples []float32, nbytes int) int {
	count := nbytes / 2
	for i := 0; i < count; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(s.buf[i*2:])))
	}
	return count
}

func (s *MP3Source) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	decoder, err := mp3.NewDecoder(s.file)
	if err != nil {
		return fmt.Errorf("failed to create new decoder: %w", err)
	}
	s.decoder = decoder
	return nil
}

func (s *MP3Source) SampleRate() int { return s.sampleRate }

// Channels is always 2; go-mp3 outputs stereo
func (s *MP3Source) Channels() int { return 2 }

func (s *MP3Source) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}

func (s *MP3Source) Close() error {
	return s.file.Close()
}
