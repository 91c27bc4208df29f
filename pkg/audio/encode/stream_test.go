// ABOUTME: Tests for the chunk stream encoder
// ABOUTME: Checks header delivery, overflow growth, codec failures and end of stream
package encode

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Resonate-Protocol/oggcast/pkg/audio/ogg"
)

func TestStreamEncoderChunks(t *testing.T) {
	s, err := NewStream(testConfig())
	if err != nil {
		t.Fatalf("failed to create stream encoder: %v", err)
	}
	defer s.Close()

	var out []byte
	for i := 0; i < 10; i++ {
		chunk, err := s.Encode(sine(blockStereo48k))
		if err != nil {
			t.Fatalf("encode %d failed: %v", i, err)
		}
		if i == 0 && !bytes.HasPrefix(chunk, s.HeaderPages()) {
			t.Error("first chunk does not start with the header pages")
		}
		out = append(out, chunk...)
	}

	final, err := s.Finish()
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	out = append(out, final...)

	pages, err := ogg.SplitPages(out)
	if err != nil {
		t.Fatalf("stream does not parse: %v", err)
	}
	if !pages[len(pages)-1].IsEOS() {
		t.Error("expected EOS on the last page")
	}

	packets, err := ogg.JoinPackets(pages)
	if err != nil {
		t.Fatalf("failed to join packets: %v", err)
	}
	// 10 blocks of input plus the lookahead block
	if len(packets) != 2+11 {
		t.Errorf("expected 11 audio packets, got %d", len(packets)-2)
	}
}

func TestStreamEncoderKeepsPagesOnCodecFailure(t *testing.T) {
	s, err := NewStream(testConfig())
	if err != nil {
		t.Fatalf("failed to create stream encoder: %v", err)
	}
	defer s.Close()

	// The header is still pending; the first block then fails in the mux
	s.enc.sess.mux.Clear()

	chunk, err := s.Encode(sine(blockStereo48k))
	if !errors.Is(err, ErrCodecFailure) {
		t.Fatalf("expected ErrCodecFailure, got %v", err)
	}
	if !errors.Is(err, ogg.ErrStreamEnded) {
		t.Errorf("expected the mux error in the chain, got %v", err)
	}
	if !bytes.Equal(chunk, s.HeaderPages()) {
		t.Errorf("expected the %d header bytes delivered before the failure, got %d bytes",
			len(s.HeaderPages()), len(chunk))
	}

	pages, err := ogg.SplitPages(chunk)
	if err != nil || len(pages) != 2 {
		t.Fatalf("returned pages do not parse: %v (%d pages)", err, len(pages))
	}
}

func TestStreamEncoderCodecFailureAfterFirstFrame(t *testing.T) {
	s, err := NewStream(testConfig())
	if err != nil {
		t.Fatalf("failed to create stream encoder: %v", err)
	}
	defer s.Close()

	first, err := s.Encode(sine(blockStereo48k))
	if err != nil {
		t.Fatalf("first encode failed: %v", err)
	}
	if len(first) <= len(s.HeaderPages()) {
		t.Fatal("expected audio pages after the header")
	}

	s.enc.sess.mux.Clear()
	if _, err := s.Encode(sine(blockStereo48k)); !errors.Is(err, ErrCodecFailure) || !errors.Is(err, ogg.ErrStreamEnded) {
		t.Errorf("expected ErrCodecFailure wrapping ErrStreamEnded, got %v", err)
	}
}

func TestStreamEncoderGrowsOnOverflow(t *testing.T) {
	s, err := NewStream(testConfig())
	if err != nil {
		t.Fatalf("failed to create stream encoder: %v", err)
	}
	defer s.Close()

	// A zero-width estimate leaves only the headroom, far less than 20 blocks need
	s.enc.sess.params.nominalBitrate = 8

	chunk, err := s.Encode(sine(blockStereo48k * 20))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if s.Overflows() == 0 {
		t.Error("expected at least one overflow")
	}

	packets, err := ogg.ReadPackets(chunk)
	if err != nil {
		t.Fatalf("chunk does not parse: %v", err)
	}
	if len(packets) != 2+20 {
		t.Errorf("expected 20 audio packets, got %d", len(packets)-2)
	}
}

func TestStreamEncoderInvalidConfig(t *testing.T) {
	s, err := NewStream(OggOpusConfig{SampleRate: 48000, Channels: 6})
	if err == nil {
		s.Close()
		t.Fatal("expected error for 6 channels")
	}
}

func TestStreamEncoderFormat(t *testing.T) {
	s, err := NewStream(OggOpusConfig{SampleRate: 24000, Channels: 1, Bitrate: 32000})
	if err != nil {
		t.Fatalf("failed to create stream encoder: %v", err)
	}
	defer s.Close()

	f := s.Format()
	if f.Codec != "opus" || f.SampleRate != 24000 || f.Channels != 1 {
		t.Errorf("unexpected format %+v", f)
	}
}
