// ABOUTME: Audio encoder package producing Ogg Opus from PCM
// ABOUTME: Provides the frame protocol encoder and a streaming adapter
// Package encode turns interleaved float32 PCM into an Ogg Opus byte stream.
//
// OggOpusEncoder implements FrameEncoder: the caller lends it an output
// buffer per frame, pushes samples, and ends the frame. Output that does not
// fit is kept and delivered in a later frame, so nothing is dropped.
//
//	enc, err := encode.NewOggOpus(encode.OggOpusConfig{SampleRate: 48000, Channels: 2})
//	if err != nil {
//	    return err
//	}
//	defer enc.Close()
//
//	size, _ := enc.EncodedByteCount(len(samples))
//	buf := make([]byte, size+4096)
//	enc.BeginFrame(buf)
//	enc.WriteSamples(samples)
//	n, err := enc.EndFrame()
//	// buf[:n] holds whole Ogg pages unless err wraps ErrOutputOverflow
//
// StreamEncoder wraps the frame protocol behind the simpler Encoder
// interface and grows its buffer when a frame overflows.
//
// Calling BeginFrame twice, passing a nil buffer, or calling WriteSamples,
// EndFrame or FinishStream outside a frame panics: those are caller bugs.
package encode
