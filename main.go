// ABOUTME: Entry point for the oggcast file encoder
// ABOUTME: Encodes an audio file or test tone to Ogg Opus, records a live stream, or lists servers
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Resonate-Protocol/oggcast/internal/discovery"
	"github.com/Resonate-Protocol/oggcast/internal/version"
	"github.com/Resonate-Protocol/oggcast/pkg/audio/encode"
	"github.com/Resonate-Protocol/oggcast/pkg/audio/source"
)

// commentFlags collects repeated -comment values
type commentFlags []string

func (c *commentFlags) String() string { return strings.Join(*c, ", ") }

func (c *commentFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("comment %q must be FIELD=value", v)
	}
	*c = append(*c, v)
	return nil
}

var (
	inPath   = flag.String("in", "", "Input audio file (MP3, FLAC). Empty = test tone")
	outPath  = flag.String("out", "out.ogg", "Output Ogg Opus file")
	bitrate  = flag.Int("bitrate", 0, "Opus target bitrate in bits/s (default: 64000 per channel)")
	seconds  = flag.Float64("seconds", 5, "Test tone length in seconds; with -record, the time limit (0 = until the stream ends)")
	rate     = flag.Int("rate", 48000, "Encoder sample rate (8000, 12000, 16000, 24000, 48000)")
	debug    = flag.Bool("debug", false, "Enable debug logging")
	discover = flag.Duration("discover", 0, "Browse for oggcast servers for this long and exit")
	showVer  = flag.Bool("version", false, "Print version and exit")
	record   = flag.String("record", "", "Record a live stream from host:port into -out for -seconds")
	comments commentFlags
)

func main() {
	flag.Var(&comments, "comment", "OpusTags comment FIELD=value (repeatable)")
	flag.Parse()

	switch {
	case *showVer:
		fmt.Println(version.String())
	case *discover > 0:
		browse(*discover)
	case *record != "":
		if err := recordStream(*record, *outPath, *seconds); err != nil {
			log.Fatalf("oggcast: %v", err)
		}
	default:
		if err := run(); err != nil {
			log.Fatalf("oggcast: %v", err)
		}
	}
}

// browse prints every server discovered within d
func browse(d time.Duration) {
	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()

	if err := mgr.Browse(); err != nil {
		log.Fatalf("failed to browse: %v", err)
	}

	seen := make(map[string]bool)
	timeout := time.After(d)
	for {
		select {
		case server := <-mgr.Servers():
			if url := server.URL(); !seen[url] {
				seen[url] = true
				fmt.Printf("%s\t%s\n", server.Name, url)
			}
		case <-timeout:
			return
		}
	}
}

func openInput() (source.AudioSource, error) {
	if *inPath == "" {
		return newLimited(source.NewTone(*rate, 2, source.DefaultToneFrequency), *seconds), nil
	}
	return source.Open(*inPath, false)
}

func run() error {
	src, err := openInput()
	if err != nil {
		return err
	}
	defer src.Close()

	title, artist, album := src.Metadata()
	tags := append([]string(nil), comments...)
	for _, tag := range []struct{ field, value string }{{"TITLE", title}, {"ARTIST", artist}, {"ALBUM", album}} {
		if tag.value != "" && !hasField(tags, tag.field) {
			tags = append(tags, tag.field+"="+tag.value)
		}
	}

	enc, err := encode.NewStream(encode.OggOpusConfig{
		SampleRate: *rate,
		Channels:   src.Channels(),
		Bitrate:    *bitrate,
		Serial:     uint32(time.Now().UnixNano()),
		Comments:   tags,
	})
	if err != nil {
		return err
	}
	defer enc.Close()

	out, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	input := source.NewResampled(src, *rate)
	if src.SampleRate() != *rate {
		log.Printf("Resampling %d Hz -> %d Hz", src.SampleRate(), *rate)
	}

	format := enc.Format()
	pcm := make([]float32, format.FrameSamples(encode.BlockDurationMs))

	var written, frames int64
	start := time.Now()
	for {
		n, readErr := input.Read(pcm)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read input: %w", readErr)
		}
		frames += int64(n / format.Channels)

		chunk, err := enc.Encode(pcm[:n])
		if err != nil {
			return err
		}
		if _, err := out.Write(chunk); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		written += int64(len(chunk))

		if *debug && len(chunk) > 0 {
			log.Printf("[DEBUG] %d samples -> %d bytes", n, len(chunk))
		}
		if readErr != nil {
			break
		}
	}

	tail, err := enc.Finish()
	if err != nil {
		return err
	}
	if _, err := out.Write(tail); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	written += int64(len(tail))

	duration := float64(frames) / float64(format.SampleRate)
	kbps := 0.0
	if duration > 0 {
		kbps = float64(written) * 8 / duration / 1000
	}
	log.Printf("Wrote %s: %d bytes, %.2fs of audio, %.1f kbps average, %d overflow retries, took %v",
		*outPath, written, duration, kbps, enc.Overflows(), time.Since(start).Round(time.Millisecond))

	return out.Close()
}

func hasField(tags []string, field string) bool {
	for _, t := range tags {
		if name, _, ok := strings.Cut(t, "="); ok && strings.EqualFold(name, field) {
			return true
		}
	}
	return false
}

// limitedSource ends an endless source after a fixed duration
type limitedSource struct {
	source.AudioSource
	remaining int
}

func newLimited(src source.AudioSource, seconds float64) *limitedSource {
	frames := int(seconds * float64(src.SampleRate()))
	return &limitedSource{AudioSource: src, remaining: frames * src.Channels()}
}

func (l *limitedSource) Read(samples []float32) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if len(samples) > l.remaining {
		samples = samples[:l.remaining]
	}
	n, err := l.AudioSource.Read(samples)
	l.remaining -= n
	return n, err
}
