// ABOUTME: Encoder interface definitions
// ABOUTME: Common interfaces for chunk and frame based encoders
package encode

// Encoder encodes PCM float32 samples to a compressed byte stream
type Encoder interface {
	// Encode converts interleaved samples to encoded bytes. The result may be
	// empty while the codec is still collecting input.
	Encode(samples []float32) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// FrameEncoder writes encoded output into caller-owned frame buffers
type FrameEncoder interface {
	// InitStatus reports whether construction succeeded
	InitStatus() Status

	// EncodedByteCount estimates the encoded size of numSamples interleaved samples
	EncodedByteCount(numSamples int) (int, error)

	// BeginFrame binds buf as the output of the next frame
	BeginFrame(buf []byte)

	// WriteSamples encodes samples and returns the bytes written by this call
	WriteSamples(samples []float32) (int, error)

	// EndFrame flushes output into the frame and unbinds the buffer
	EndFrame() (int, error)

	// Close releases encoder resources
	Close() error
}

// Status is the construction outcome of a FrameEncoder
type Status int

const (
	StatusOK Status = iota
	StatusAbort
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAbort:
		return "abort"
	default:
		return "unknown"
	}
}
