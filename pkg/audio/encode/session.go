// ABOUTME: Codec session for the Ogg Opus encoder
// ABOUTME: Five ordered stages acquired all-or-nothing and released in reverse
package encode

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/oggcast/pkg/audio/ogg"
	"gopkg.in/hraban/opus.v2"
)

const (
	// BlockDurationMs is the duration of one codec block
	BlockDurationMs = 20

	// DefaultBitratePerChannel is the VBR target when none is configured
	DefaultBitratePerChannel = 64000

	// Opus can't exceed 4000 bytes per packet
	maxPacketSize = 4000

	vendorString = "oggcast"
)

// codecParams is the configured libopus encoder
type codecParams struct {
	encoder        *opus.Encoder
	sampleRate     int
	channels       int
	nominalBitrate int
}

// analysisState buffers interleaved input until a full block is available
type analysisState struct {
	channels  int
	blockLen  int // interleaved samples per block
	lookahead int // interleaved samples of silence appended at finish
	fifo      []float32
	head      int
	submitted int64 // interleaved samples, padding excluded
	finished  bool
}

func (a *analysisState) submit(samples []float32) {
	if a.head > 0 {
		n := copy(a.fifo, a.fifo[a.head:])
		a.fifo = a.fifo[:n]
		a.head = 0
	}
	a.fifo = append(a.fifo, samples...)
	a.submitted += int64(len(samples))
}

func (a *analysisState) buffered() int {
	return len(a.fifo) - a.head
}

func (a *analysisState) ready() bool {
	b := a.buffered()
	return b >= a.blockLen || (a.finished && b > 0)
}

// next copies one block into dst, zero-padding a final partial block
func (a *analysisState) next(dst []float32) bool {
	if !a.ready() {
		return false
	}
	n := copy(dst, a.fifo[a.head:])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	a.head += n
	return true
}

// finish marks end of input and appends the encoder lookahead as silence, so
// the last input sample is encoded before the EOS packet
func (a *analysisState) finish() {
	if a.finished {
		return
	}
	a.finished = true
	a.fifo = append(a.fifo, make([]float32, a.lookahead)...)
}

func (a *analysisState) drained() bool {
	return a.finished && a.buffered() == 0
}

// blockState is the per-block work area
type blockState struct {
	pcm         []float32
	packet      []byte
	granule     int64
	granuleStep int64
	preSkip     int64
}

// session is the live codec state. It is either fully built or absent.
type session struct {
	cfg OggOpusConfig

	params   *codecParams
	tags     *ogg.OpusTags
	analysis *analysisState
	block    *blockState
	mux      *ogg.Stream

	header []byte // OpusHead and OpusTags pages

	releases []func()
}

// stage acquires one session sub-resource and returns its release func
type stage struct {
	name    string
	acquire func(s *session) (release func(), err error)
}

func defaultStages() []stage {
	return []stage{
		{name: "params", acquire: acquireParams},
		{name: "metadata", acquire: acquireMetadata},
		{name: "analysis", acquire: acquireAnalysis},
		{name: "block", acquire: acquireBlock},
		{name: "mux", acquire: acquireMux},
	}
}

// sessionBuilder acquires stages in order and unwinds them on the first failure
type sessionBuilder struct {
	sess     *session
	releases []func()
	err      error
}

func (b *sessionBuilder) acquire(st stage) {
	if b.err != nil {
		return
	}

	release, err := st.acquire(b.sess)
	if err != nil {
		b.err = &InitError{Stage: st.name, Err: err}
		b.unwind()
		return
	}
	b.releases = append(b.releases, release)
}

func (b *sessionBuilder) unwind() {
	for i := len(b.releases) - 1; i >= 0; i-- {
		b.releases[i]()
	}
	b.releases = nil
}

func (b *sessionBuilder) build() (*session, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.sess.releases = b.releases
	b.releases = nil
	return b.sess, nil
}

func openSession(cfg OggOpusConfig, stages []stage) (*session, error) {
	b := &sessionBuilder{sess: &session{cfg: cfg}}
	for _, st := range stages {
		b.acquire(st)
	}
	return b.build()
}

// close releases the stages in reverse acquisition order
func (s *session) close() {
	for i := len(s.releases) - 1; i >= 0; i-- {
		s.releases[i]()
	}
	s.releases = nil
}

func acquireParams(s *session) (func(), error) {
	cfg := s.cfg
	if cfg.Channels < 1 || cfg.Channels > 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", cfg.Channels)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", cfg.SampleRate)
	}

	// Create encoder with AppAudio mode for music
	encoder, err := opus.NewEncoder(cfg.SampleRate, cfg.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	// Opus is VBR unless told otherwise; the bitrate is its target
	bitrate := cfg.Bitrate
	if bitrate == 0 {
		bitrate = DefaultBitratePerChannel * cfg.Channels
	}
	if err := encoder.SetBitrate(bitrate); err != nil {
		return nil, fmt.Errorf("failed to set bitrate %d: %w", bitrate, err)
	}

	nominal, err := encoder.Bitrate()
	if err != nil {
		return nil, fmt.Errorf("failed to query bitrate: %w", err)
	}

	s.params = &codecParams{
		encoder:        encoder,
		sampleRate:     cfg.SampleRate,
		channels:       cfg.Channels,
		nominalBitrate: nominal,
	}

	// libopus state lives in memory owned by opus.Encoder
	return func() { s.params = nil }, nil
}

func acquireMetadata(s *session) (func(), error) {
	for _, c := range s.cfg.Comments {
		if !strings.Contains(c, "=") {
			return nil, fmt.Errorf("comment %q is not FIELD=value", c)
		}
	}

	s.tags = &ogg.OpusTags{
		Vendor:   vendorString,
		Comments: append([]string(nil), s.cfg.Comments...),
	}
	return func() { s.tags = nil }, nil
}

func acquireAnalysis(s *session) (func(), error) {
	p := s.params
	if p == nil {
		return nil, fmt.Errorf("codec parameters not initialized")
	}

	blockLen := p.sampleRate * BlockDurationMs / 1000 * p.channels
	s.analysis = &analysisState{
		channels:  p.channels,
		blockLen:  blockLen,
		lookahead: ogg.DefaultPreSkip * p.sampleRate / ogg.GranuleRate * p.channels,
		fifo:      make([]float32, 0, 2*blockLen),
	}
	return func() { s.analysis = nil }, nil
}

func acquireBlock(s *session) (func(), error) {
	a := s.analysis
	if a == nil {
		return nil, fmt.Errorf("analysis state not initialized")
	}

	frames := int64(a.blockLen / a.channels)
	s.block = &blockState{
		pcm:         make([]float32, a.blockLen),
		packet:      make([]byte, maxPacketSize),
		granuleStep: frames * ogg.GranuleRate / int64(s.params.sampleRate),
		preSkip:     ogg.DefaultPreSkip,
	}
	return func() { s.block = nil }, nil
}

func acquireMux(s *session) (func(), error) {
	if s.tags == nil {
		return nil, fmt.Errorf("metadata not initialized")
	}

	mux := ogg.NewStream(s.cfg.Serial)
	head := &ogg.OpusHead{
		Channels:        uint8(s.params.channels),
		PreSkip:         ogg.DefaultPreSkip,
		InputSampleRate: uint32(s.params.sampleRate),
	}

	// Each header packet gets its own page
	var header []byte
	for _, pkt := range [][]byte{head.Encode(), s.tags.Encode()} {
		if err := mux.PacketIn(ogg.Packet{Data: pkt}); err != nil {
			mux.Clear()
			return nil, fmt.Errorf("failed to submit header: %w", err)
		}
		for {
			page, ok := mux.Flush()
			if !ok {
				break
			}
			header = page.AppendTo(header)
		}
	}

	s.mux = mux
	s.header = header
	return func() {
		mux.Clear()
		s.mux = nil
		s.header = nil
	}, nil
}

// encodeBlock encodes one ready block and submits the packet to the mux.
// It reports false when no block is ready.
func (s *session) encodeBlock() (bool, error) {
	if !s.analysis.next(s.block.pcm) {
		return false, nil
	}

	n, err := s.params.encoder.EncodeFloat32(s.block.pcm, s.block.packet)
	if err != nil {
		return false, fmt.Errorf("%w: opus encode: %w", ErrCodecFailure, err)
	}

	s.block.granule += s.block.granuleStep
	pkt := ogg.Packet{Data: s.block.packet[:n], GranulePos: s.block.granule}

	if s.analysis.drained() {
		// Trim the zero padding of the final block via the granule position
		frames := s.analysis.submitted / int64(s.analysis.channels)
		end := s.block.preSkip + frames*ogg.GranuleRate/int64(s.params.sampleRate)
		if end < pkt.GranulePos {
			pkt.GranulePos = end
		}
		pkt.EOS = true
	}

	if err := s.mux.PacketIn(pkt); err != nil {
		return false, fmt.Errorf("%w: %w", ErrCodecFailure, err)
	}
	return true, nil
}
