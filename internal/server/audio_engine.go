// ABOUTME: Audio streaming engine for the oggcast server
// ABOUTME: Reads the source every 20ms, encodes Ogg Opus and fans pages out to listeners
package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/oggcast/pkg/audio"
	"github.com/Resonate-Protocol/oggcast/pkg/audio/encode"
	"github.com/Resonate-Protocol/oggcast/pkg/audio/source"
	"github.com/google/uuid"
)

const (
	// Opus runs at 48kHz; sources are resampled to it
	DefaultSampleRate = 48000
	DefaultChannels   = 2

	// Chunk timing
	ChunkDurationMs = 20
)

// chunkEncoder is the part of encode.StreamEncoder the engine drives
type chunkEncoder interface {
	Encode(samples []float32) ([]byte, error)
	Finish() ([]byte, error)
	Overflows() int
	Close() error
}

var _ chunkEncoder = (*encode.StreamEncoder)(nil)

// AudioEngine reads PCM from a source, encodes it and broadcasts the pages
type AudioEngine struct {
	server *Server

	source   source.AudioSource
	encoder  chunkEncoder
	format   audio.Format
	header   []byte // OpusHead and OpusTags pages, immutable
	pcm      []float32
	finished bool

	// Active listeners
	listeners   map[string]*Listener
	listenersMu sync.RWMutex

	// Stats
	statsMu       sync.Mutex
	chunks        uint64
	bytesEncoded  uint64
	overflowsSeen int
	lastUpdate    time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewAudioEngine creates an engine for src. The source is resampled to 48kHz.
func NewAudioEngine(server *Server, src source.AudioSource) (*AudioEngine, error) {
	input := audio.Format{SampleRate: src.SampleRate(), Channels: src.Channels()}
	if !input.Valid() {
		return nil, fmt.Errorf("invalid source format: %d Hz, %d channels", input.SampleRate, input.Channels)
	}
	channels := input.Channels
	if channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d (supported: 1, 2)", channels)
	}

	resampled := source.NewResampled(src, DefaultSampleRate)
	if src.SampleRate() != DefaultSampleRate {
		log.Printf("Resampling %d Hz -> %d Hz", src.SampleRate(), DefaultSampleRate)
	}

	encoder, err := encode.NewStream(encode.OggOpusConfig{
		SampleRate: DefaultSampleRate,
		Channels:   channels,
		Bitrate:    server.config.Bitrate,
		Serial:     uuid.New().ID(),
		Comments:   metadataComments(src),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	// Drain the header pages now; listeners get them on join
	if _, err := encoder.Encode(nil); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to emit header pages: %w", err)
	}

	format := encoder.Format()
	log.Printf("Audio engine: %s %d Hz, %d channels, %d bps", format.Codec, format.SampleRate, format.Channels, format.Bitrate)

	return &AudioEngine{
		server:    server,
		source:    resampled,
		encoder:   encoder,
		format:    format,
		header:    encoder.HeaderPages(),
		pcm:       make([]float32, format.FrameSamples(ChunkDurationMs)),
		listeners: make(map[string]*Listener),
		stopChan:  make(chan struct{}),
	}, nil
}

// metadataComments turns source metadata into OpusTags comments
func metadataComments(src source.AudioSource) []string {
	title, artist, album := src.Metadata()

	var comments []string
	for _, tag := range []struct{ field, value string }{
		{"TITLE", title},
		{"ARTIST", artist},
		{"ALBUM", album},
	} {
		if tag.value != "" {
			comments = append(comments, tag.field+"="+tag.value)
		}
	}
	return comments
}

// Start runs the engine until Stop is called or the source ends
func (e *AudioEngine) Start() {
	log.Printf("Audio engine starting")

	ticker := time.NewTicker(time.Duration(ChunkDurationMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !e.tick() {
				log.Printf("Audio engine: stream ended")
				return
			}
		case <-e.stopChan:
			log.Printf("Audio engine stopping")
			return
		}
	}
}

// Stop stops the audio engine
func (e *AudioEngine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
}

// Close releases the encoder and the source
func (e *AudioEngine) Close() error {
	e.encoder.Close()
	return e.source.Close()
}

// Format describes the encoded stream
func (e *AudioEngine) Format() audio.Format {
	return e.format
}

// Metadata returns the source title, artist and album
func (e *AudioEngine) Metadata() (string, string, string) {
	return e.source.Metadata()
}

// AddListener registers l and queues the header pages as its first message.
// Both happen under the listener lock so no chunk can slip in between.
func (e *AudioEngine) AddListener(l *Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()

	l.send <- e.header
	e.listeners[l.ID] = l

	log.Printf("Audio engine: added %s listener %s (%s)", l.Kind, l.ID, l.RemoteAddr)
}

// RemoveListener unregisters l. No chunk is sent to it after this returns.
func (e *AudioEngine) RemoveListener(l *Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()

	delete(e.listeners, l.ID)
	log.Printf("Audio engine: removed listener %s", l.ID)
}

// ListenerCount returns the number of registered listeners
func (e *AudioEngine) ListenerCount() int {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	return len(e.listeners)
}

// tick encodes one chunk and broadcasts it. It reports false once the
// stream has ended.
func (e *AudioEngine) tick() bool {
	if e.finished {
		return false
	}

	n, readErr := readFull(e.source, e.pcm)
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		log.Printf("Audio engine: source read failed: %v", readErr)
	}

	start := time.Now()
	chunk, err := e.encoder.Encode(e.pcm[:n])
	if readErr != nil {
		// The stream ends with the source even when this chunk failed
		tail, finishErr := e.encoder.Finish()
		chunk = append(chunk, tail...)
		e.finished = true
		if err == nil {
			err = finishErr
		}
	}
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("Audio engine: encode failed: %v", err)
		e.server.metrics.RecordEncodeError()

		// Pages produced before the failure are still part of the stream
		if len(chunk) > 0 {
			e.broadcast(chunk)
			e.recordStats(len(chunk))
		}
		if e.finished {
			e.server.endStream(fmt.Sprintf("encoder failed at end of stream: %v", err))
			return false
		}
		return true
	}

	overflows := e.encoder.Overflows() - e.overflowsSeen
	e.overflowsSeen += overflows
	e.server.metrics.RecordChunk(len(chunk), elapsed, overflows)

	if len(chunk) > 0 {
		e.broadcast(chunk)
	}
	chunks := e.recordStats(len(chunk))

	if e.server.config.Debug && chunks%250 == 0 {
		log.Printf("[DEBUG] chunk %d: %d samples -> %d bytes in %v", chunks, n, len(chunk), elapsed)
	}

	if e.finished {
		e.server.endStream("source ended")
		return false
	}
	return true
}

// recordStats updates the counters shown in the TUI and refreshes it once a second
func (e *AudioEngine) recordStats(size int) uint64 {
	e.statsMu.Lock()
	e.chunks++
	e.bytesEncoded += uint64(size)
	chunks := e.chunks
	refresh := time.Since(e.lastUpdate) >= time.Second
	if refresh {
		e.lastUpdate = time.Now()
	}
	e.statsMu.Unlock()

	if refresh {
		e.server.updateTUI()
	}
	return chunks
}

// Stats returns the number of chunks and bytes encoded so far
func (e *AudioEngine) Stats() (chunks, bytes uint64) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.chunks, e.bytesEncoded
}

// readFull reads until samples is full or the source returns an error
func readFull(src source.AudioSource, samples []float32) (int, error) {
	read := 0
	for read < len(samples) {
		n, err := src.Read(samples[read:])
		read += n
		if err != nil {
			return read, err
		}
		if n == 0 {
			return read, io.ErrNoProgress
		}
	}
	return read, nil
}

// broadcast queues chunk for every listener without blocking
func (e *AudioEngine) broadcast(chunk []byte) {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()

	for _, l := range e.listeners {
		select {
		case l.send <- chunk:
		default:
			e.server.metrics.RecordDrop("slow_listener")
			if e.server.config.Debug {
				log.Printf("[DEBUG] dropping chunk for slow listener %s", l.ID)
			}
		}
	}
}
