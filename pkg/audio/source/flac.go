// ABOUTME: FLAC file source
// ABOUTME: Decodes frames with mewkiz/flac and reads Vorbis comment tags
package source

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/Resonate-Protocol/oggcast/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// FLACSource reads from a FLAC file
type FLACSource struct {
	file       *os.File
	stream     *flac.Stream
	loop       bool
	sampleRate int
	channels   int
	bitDepth   int

	// decoded samples of the current frame not yet returned
	pending []float32

	title  string
	artist string
	album  string
}

// NewFLACSource creates a new FLAC audio source
func NewFLACSource(path string, loop bool) (*FLACSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	// Parse reads every metadata block, including tags
	stream, err := flac.Parse(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	s := &FLACSource{
		file:       f,
		stream:     stream,
		loop:       loop,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		title:      titleFromPath(path),
		artist:     "Unknown Artist",
		album:      "Unknown Album",
	}
	s.readTags(stream.Blocks)

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, s.sampleRate, s.channels, s.bitDepth)

	return s, nil
}

func (s *FLACSource) readTags(blocks []*meta.Block) {
	for _, block := range blocks {
		comments, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		for _, tag := range comments.Tags {
			switch strings.ToUpper(tag[0]) {
			case "TITLE":
				s.title = tag[1]
			case "ARTIST":
				s.artist = tag[1]
			case "ALBUM":
				s.album = tag[1]
			}
		}
	}
}

func (s *FLACSource) Read(samples []float32) (int, error) {
	read := 0
	rewound := false

	for read < len(samples) {
		if len(s.pending) > 0 {
			n := copy(samples[read:], s.pending)
			s.pending = s.pending[n:]
			read += n
			continue
		}

		frame, err := s.stream.ParseNext()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return read, err
			}
			// A second EOF without any frame in between means an empty stream
			if !s.loop || rewound {
				break
			}
			if err := s.rewind(); err != nil {
				return read, err
			}
			rewound = true
			continue
		}
		rewound = false

		// Interleave the frame's subframes
		blockSize := int(frame.BlockSize)
		buf := make([]float32, 0, blockSize*s.channels)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < s.channels; ch++ {
				buf = append(buf, audio.ScaleToFloat(frame.Subframes[ch].Samples[i], s.bitDepth))
			}
		}
		s.pending = buf
	}

	if read == 0 {
		return 0, io.EOF
	}
	return read, nil
}

func (s *FLACSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(s.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	s.stream = stream
	return nil
}

func (s *FLACSource) SampleRate() int { return s.sampleRate }
func (s *FLACSource) Channels() int   { return s.channels }
func (s *FLACSource) Metadata() (string, string, string) {
	return s.title, s.artist, s.album
}
func (s *FLACSource) Close() error {
	return s.file.Close()
}
