// ABOUTME: Resampling wrapper around an AudioSource
// ABOUTME: Converts any source to the sample rate the encoder needs
package source

import (
	"errors"
	"io"

	"github.com/Resonate-Protocol/oggcast/pkg/audio/resample"
)

// ResampledSource wraps an AudioSource and resamples to a target sample rate
type ResampledSource struct {
	source     AudioSource
	resampler  *resample.Resampler
	targetRate int

	input   []float32
	output  []float32
	pending []float32
	eof     bool
}

// NewResampled returns src unchanged when it already runs at rate
func NewResampled(src AudioSource, rate int) AudioSource {
	if src.SampleRate() == rate {
		return src
	}
	return &ResampledSource{
		source:     src,
		resampler:  resample.New(src.SampleRate(), rate, src.Channels()),
		targetRate: rate,
	}
}

func (r *ResampledSource) Read(samples []float32) (int, error) {
	read := 0
	for read < len(samples) {
		if len(r.pending) > 0 {
			n := copy(samples[read:], r.pending)
			r.pending = r.pending[n:]
			read += n
			continue
		}
		if r.eof {
			break
		}

		want := r.resampler.InputSamplesNeeded(len(samples) - read)
		if want < r.source.Channels() {
			want = r.source.Channels()
		}
		if cap(r.input) < want {
			r.input = make([]float32, want)
		}

		n, err := r.source.Read(r.input[:want])
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return read, err
			}
			r.eof = true
		}

		need := r.resampler.OutputSamplesNeeded(n)
		if cap(r.output) < need {
			r.output = make([]float32, need)
		}
		out := r.resampler.Resample(r.input[:n], r.output[:need])
		r.pending = r.output[:out]
	}

	if read == 0 && r.eof {
		return 0, io.EOF
	}
	return read, nil
}

func (r *ResampledSource) SampleRate() int {
	return r.targetRate
}

func (r *ResampledSource) Channels() int {
	return r.source.Channels()
}

func (r *ResampledSource) Metadata() (string, string, string) {
	return r.source.Metadata()
}

func (r *ResampledSource) Close() error {
	return r.source.Close()
}
