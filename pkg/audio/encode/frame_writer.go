// ABOUTME: Begin/write/end frame protocol over a codec session
// ABOUTME: Drains pages into the bound buffer and keeps what does not fit
package encode

import "fmt"

// frameWriter moves session output into caller frame buffers.
// States: idle (open == false) and frame open.
type frameWriter struct {
	sess *session

	// pending holds encoded bytes not yet copied into a frame buffer
	pending []byte

	buf     []byte
	written int
	open    bool
}

func newFrameWriter(sess *session) *frameWriter {
	return &frameWriter{
		sess:    sess,
		pending: append([]byte(nil), sess.header...),
	}
}

func (w *frameWriter) begin(buf []byte) {
	if buf == nil {
		panic("ogg opus encoder: nil frame buffer")
	}
	if w.open {
		panic("ogg opus encoder: unpaired begin/end")
	}
	w.buf = buf
	w.written = 0
	w.open = true
}

func (w *frameWriter) write(samples []float32) (int, error) {
	if !w.open {
		panic("ogg opus encoder: write_samples outside of frame")
	}

	if len(samples) > 0 {
		if w.sess.analysis.finished {
			return 0, ErrStreamFinished
		}
		w.sess.analysis.submit(samples)
	}

	start := w.written
	_, err := w.drain(false)
	return w.written - start, err
}

func (w *frameWriter) finish() {
	if !w.open {
		panic("ogg opus encoder: finish outside of frame")
	}
	w.sess.analysis.finish()
}

func (w *frameWriter) end() (int, error) {
	if !w.open {
		panic("ogg opus encoder: end_frame outside of frame")
	}

	complete, err := w.drain(true)
	n := w.written

	w.buf = nil
	w.written = 0
	w.open = false

	if err != nil {
		return n, err
	}
	if !complete {
		return n, fmt.Errorf("%w: %d bytes pending", ErrOutputOverflow, w.outstanding())
	}
	return n, nil
}

// drain copies pending bytes, then pulls pages and encodes blocks until
// nothing is left to do. With flush set, partially filled pages are forced
// out once no block is ready. It reports false when the buffer filled up
// with output still pending.
func (w *frameWriter) drain(flush bool) (bool, error) {
	for {
		if !w.deliver() {
			return false, nil
		}

		if page, ok := w.sess.mux.PageOut(); ok {
			w.pending = page.AppendTo(w.pending)
			continue
		}

		encoded, err := w.sess.encodeBlock()
		if err != nil {
			return false, err
		}
		if encoded {
			continue
		}

		if flush {
			if page, ok := w.sess.mux.Flush(); ok {
				w.pending = page.AppendTo(w.pending)
				continue
			}
		}
		return true, nil
	}
}

// deliver copies as much pending output as fits and reports whether
// pending output is now empty
func (w *frameWriter) deliver() bool {
	n := copy(w.buf[w.written:], w.pending)
	w.written += n
	w.pending = w.pending[:copy(w.pending, w.pending[n:])]
	return len(w.pending) == 0
}

// outstanding is the encoded output not yet delivered
func (w *frameWriter) outstanding() int {
	return len(w.pending) + w.sess.mux.Pending()
}
