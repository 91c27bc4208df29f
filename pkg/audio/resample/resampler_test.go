// ABOUTME: Tests for audio resampler
// ABOUTME: Tests linear interpolation and continuity across chunks
package resample

import (
	"math"
	"testing"
)

func TestNew(t *testing.T) {
	r := New(44100, 48000, 2)

	if r.InputRate() != 44100 {
		t.Errorf("expected input rate 44100, got %d", r.InputRate())
	}
	if r.OutputRate() != 48000 {
		t.Errorf("expected output rate 48000, got %d", r.OutputRate())
	}
	if r.channels != 2 {
		t.Errorf("expected channels 2, got %d", r.channels)
	}
}

func TestResampleIdentity(t *testing.T) {
	r := New(48000, 48000, 1)

	input := []float32{0, 0.1, 0.2, 0.3, 0.4}
	output := make([]float32, r.OutputSamplesNeeded(len(input)))
	n := r.Resample(input, output)

	// The last frame is held back until the next chunk arrives
	if n != 4 {
		t.Fatalf("expected 4 samples, got %d", n)
	}
	for i := 0; i < n; i++ {
		if output[i] != input[i] {
			t.Errorf("sample %d: got %v, want %v", i, output[i], input[i])
		}
	}
}

func TestResampleChunkedMatchesWhole(t *testing.T) {
	input := make([]float32, 2*4410)
	for i := 0; i < len(input)/2; i++ {
		v := float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
		input[2*i] = v
		input[2*i+1] = -v
	}

	whole := New(44100, 48000, 2)
	wantBuf := make([]float32, whole.OutputSamplesNeeded(len(input)))
	want := wantBuf[:whole.Resample(input, wantBuf)]

	chunked := New(44100, 48000, 2)
	var got []float32
	for i := 0; i < len(input); i += 2 * 441 {
		chunk := input[i : i+2*441]
		buf := make([]float32, chunked.OutputSamplesNeeded(len(chunk)))
		got = append(got, buf[:chunked.Resample(chunk, buf)]...)
	}

	if len(got) != len(want) {
		t.Fatalf("chunked produced %d samples, whole produced %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-4 {
			t.Fatalf("sample %d differs: %v vs %v", i, got[i], want[i])
		}
	}
}

func TestResampleRatio(t *testing.T) {
	tests := []struct {
		name    string
		in, out int
	}{
		{"upsample 44.1k to 48k", 44100, 48000},
		{"downsample 96k to 48k", 96000, 48000},
		{"upsample 16k to 48k", 16000, 48000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.in, tt.out, 2)
			inputFrames := tt.in / 10 // 100ms
			input := make([]float32, inputFrames*2)
			output := make([]float32, r.OutputSamplesNeeded(len(input)))

			n := r.Resample(input, output)
			gotFrames := n / 2
			wantFrames := tt.out / 10

			// The held-back final frame costs up to one input frame of output
			if math.Abs(float64(gotFrames-wantFrames)) > float64(tt.out/tt.in+1) {
				t.Errorf("expected about %d frames, got %d", wantFrames, gotFrames)
			}
		})
	}
}

func TestResampleInterpolates(t *testing.T) {
	// Doubling the rate inserts midpoints
	r := New(24000, 48000, 1)
	input := []float32{0, 1, 0}
	output := make([]float32, r.OutputSamplesNeeded(len(input)))

	n := r.Resample(input, output)
	want := []float32{0, 0.5, 1, 0.5}
	if n != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), n)
	}
	for i := range want {
		if math.Abs(float64(output[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %v, want %v", i, output[i], want[i])
		}
	}
}

func TestResampleEmptyInput(t *testing.T) {
	r := New(44100, 48000, 2)
	if n := r.Resample(nil, make([]float32, 10)); n != 0 {
		t.Errorf("expected 0 samples for empty input, got %d", n)
	}
}

func TestReset(t *testing.T) {
	input := make([]float32, 200)
	for i := range input {
		input[i] = float32(i%7) / 7
	}

	fresh := New(44100, 48000, 2)
	want := make([]float32, 400)
	wantN := fresh.Resample(input, want)

	r := New(44100, 48000, 2)
	r.Resample(input, make([]float32, 400))
	r.Reset()

	if r.position != 0 {
		t.Errorf("expected position 0 after reset, got %v", r.position)
	}
	for ch, v := range r.lastFrame {
		if v != 0 {
			t.Errorf("expected silent carried frame after reset, channel %d = %v", ch, v)
		}
	}

	got := make([]float32, 400)
	if n := r.Resample(input, got); n != wantN {
		t.Fatalf("expected %d samples after reset, got %d", wantN, n)
	}
	for i := 0; i < wantN; i++ {
		if got[i] != want[i] {
			t.Fatalf("sample %d differs after reset: %v != %v", i, got[i], want[i])
		}
	}
}
