// ABOUTME: Error values reported by the encoders
// ABOUTME: Recoverable failures only; protocol misuse panics instead
package encode

import (
	"errors"
	"fmt"
)

var (
	// ErrInconsistentConfig means the codec reported a bitrate, sample rate
	// or channel count that is not strictly positive.
	ErrInconsistentConfig = errors.New("encode: codec reported inconsistent configuration")

	// ErrOutputOverflow means EndFrame could not fit all flushed output into
	// the frame buffer. The remainder is kept for the next frame.
	ErrOutputOverflow = errors.New("encode: output buffer too small for flush")

	// ErrCodecFailure wraps errors from the codec or the page multiplexer.
	ErrCodecFailure = errors.New("encode: codec failure")

	// ErrStreamFinished is returned when samples arrive after FinishStream.
	ErrStreamFinished = errors.New("encode: stream already finished")
)

// InitError reports which session stage failed during construction.
// Every stage acquired before it has been released.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("encode: %s initialization failed: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
