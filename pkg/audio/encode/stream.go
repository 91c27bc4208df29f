// ABOUTME: Chunk encoder built on the Ogg Opus frame protocol
// ABOUTME: Sizes frame buffers from the byte budget and grows them on overflow
package encode

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/oggcast/pkg/audio"
)

// pageHeadroom covers page headers and VBR peaks above the estimate
const pageHeadroom = 1024

// StreamEncoder returns whole Ogg pages per call
type StreamEncoder struct {
	enc       *OggOpusEncoder
	buf       []byte
	overflows int
}

var _ Encoder = (*StreamEncoder)(nil)

// NewStream creates a stream encoder
func NewStream(cfg OggOpusConfig) (*StreamEncoder, error) {
	enc, err := NewOggOpus(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ogg opus encoder: %w", err)
	}
	return &StreamEncoder{enc: enc}, nil
}

// Encode encodes samples and returns the pages completed by them. The first
// call also returns the header pages. On error the returned pages are still
// valid stream output and must be delivered.
func (s *StreamEncoder) Encode(samples []float32) ([]byte, error) {
	return s.frame(samples, false)
}

// Finish ends the stream and returns the final pages, the last one carrying EOS
func (s *StreamEncoder) Finish() ([]byte, error) {
	return s.frame(nil, true)
}

// HeaderPages returns the pages a late listener needs before any chunk
func (s *StreamEncoder) HeaderPages() []byte {
	return s.enc.HeaderPages()
}

// Format describes the encoded stream
func (s *StreamEncoder) Format() audio.Format {
	return s.enc.Format()
}

// Overflows returns how many frames needed a larger buffer
func (s *StreamEncoder) Overflows() int {
	return s.overflows
}

// Close releases resources
func (s *StreamEncoder) Close() error {
	return s.enc.Close()
}

func (s *StreamEncoder) frame(samples []float32, finish bool) ([]byte, error) {
	estimate, err := s.enc.EncodedByteCount(len(samples))
	if err != nil {
		return nil, err
	}
	s.grow(estimate + pageHeadroom)

	s.enc.BeginFrame(s.buf)
	if _, err := s.enc.WriteSamples(samples); err != nil {
		// Pages already copied into the frame are part of the stream
		n, _ := s.enc.EndFrame()
		return append([]byte(nil), s.buf[:n]...), err
	}
	if finish {
		s.enc.FinishStream()
	}

	n, err := s.enc.EndFrame()
	out := append([]byte(nil), s.buf[:n]...)

	// Pending output is kept by the encoder; drain it with flush-only frames
	for errors.Is(err, ErrOutputOverflow) {
		s.overflows++
		s.grow(2 * len(s.buf))

		s.enc.BeginFrame(s.buf)
		n, err = s.enc.EndFrame()
		out = append(out, s.buf[:n]...)
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

func (s *StreamEncoder) grow(size int) {
	if len(s.buf) < size {
		s.buf = make([]byte, size)
	}
}
