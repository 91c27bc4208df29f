// ABOUTME: Ogg Opus frame encoder
// ABOUTME: Composes the codec session, byte budget and frame protocol
package encode

import (
	"log"

	"github.com/Resonate-Protocol/oggcast/pkg/audio"
)

// OggOpusConfig configures an OggOpusEncoder
type OggOpusConfig struct {
	SampleRate int
	Channels   int

	// Bitrate is the VBR target in bits/s. Zero selects
	// DefaultBitratePerChannel * Channels.
	Bitrate int

	// Serial is the Ogg logical stream serial number
	Serial uint32

	// Comments are "FIELD=value" user comments written to OpusTags
	Comments []string
}

// OggOpusEncoder encodes PCM into Ogg Opus using the frame protocol.
// It is not safe for concurrent use.
type OggOpusEncoder struct {
	cfg     OggOpusConfig
	sess    *session
	writer  *frameWriter
	initErr error
}

var _ FrameEncoder = (*OggOpusEncoder)(nil)

// NewOggOpus creates an encoder. The returned encoder is never nil: when
// initialization fails it reports StatusAbort and the error is returned.
func NewOggOpus(cfg OggOpusConfig) (*OggOpusEncoder, error) {
	return newOggOpus(cfg, defaultStages())
}

func newOggOpus(cfg OggOpusConfig, stages []stage) (*OggOpusEncoder, error) {
	cfg.Comments = append([]string(nil), cfg.Comments...)
	e := &OggOpusEncoder{cfg: cfg}

	sess, err := openSession(cfg, stages)
	if err != nil {
		log.Printf("ogg opus encoder: failed to initialize (%d Hz, %d channels): %v",
			cfg.SampleRate, cfg.Channels, err)
		e.initErr = err
		return e, err
	}

	e.sess = sess
	e.writer = newFrameWriter(sess)
	return e, nil
}

// InitStatus reports StatusOK while the encoder holds a live session
func (e *OggOpusEncoder) InitStatus() Status {
	if e.sess == nil {
		return StatusAbort
	}
	return StatusOK
}

// InitErr returns the construction error, if any
func (e *OggOpusEncoder) InitErr() error {
	return e.initErr
}

// Format describes the encoded stream
func (e *OggOpusEncoder) Format() audio.Format {
	f := audio.Format{
		Codec:      "opus",
		SampleRate: e.cfg.SampleRate,
		Channels:   e.cfg.Channels,
	}
	if e.sess != nil {
		f.Bitrate = e.sess.params.nominalBitrate
	}
	return f
}

// EncodedByteCount estimates the encoded size in bytes of numSamples
// interleaved samples (all channels). It returns 0 for an encoder that
// failed to initialize.
func (e *OggOpusEncoder) EncodedByteCount(numSamples int) (int, error) {
	if numSamples < 0 {
		panic("ogg opus encoder: negative sample count")
	}
	if e.sess == nil {
		return 0, nil
	}
	return e.sess.estimate(numSamples)
}

// BeginFrame binds buf as the output of the next frame. The encoder writes
// at most len(buf) bytes and drops its reference at EndFrame.
func (e *OggOpusEncoder) BeginFrame(buf []byte) {
	e.mustBeInitialized()
	e.writer.begin(buf)
}

// WriteSamples encodes interleaved samples and returns the number of bytes
// written into the frame buffer by this call. An empty slice only drains.
func (e *OggOpusEncoder) WriteSamples(samples []float32) (int, error) {
	e.mustBeInitialized()
	return e.writer.write(samples)
}

// FinishStream marks the end of input. The next EndFrame pads and encodes
// the last partial block and closes the Ogg stream with an EOS page.
func (e *OggOpusEncoder) FinishStream() {
	e.mustBeInitialized()
	e.writer.finish()
}

// EndFrame flushes every encoded packet into whole pages, copies them into
// the frame buffer and unbinds it. It returns the total bytes written during
// the frame. When the buffer is too small the error wraps ErrOutputOverflow
// and the rest is delivered by later frames.
func (e *OggOpusEncoder) EndFrame() (int, error) {
	e.mustBeInitialized()
	return e.writer.end()
}

// HeaderPages returns the OpusHead and OpusTags pages that start the stream
func (e *OggOpusEncoder) HeaderPages() []byte {
	if e.sess == nil {
		return nil
	}
	return append([]byte(nil), e.sess.header...)
}

// Close releases the codec session. It is safe to call on an encoder that
// failed to initialize and safe to call more than once.
func (e *OggOpusEncoder) Close() error {
	if e.sess == nil {
		return nil
	}
	e.sess.close()
	e.sess = nil
	e.writer = nil
	return nil
}

func (e *OggOpusEncoder) mustBeInitialized() {
	if e.sess == nil {
		panic("ogg opus encoder: encoder not initialized")
	}
}
