// ABOUTME: Tests for OpusHead and OpusTags packets
// ABOUTME: Checks wire layout and parse round trips
package ogg

import (
	"errors"
	"reflect"
	"testing"
)

func TestOpusHead(t *testing.T) {
	head := &OpusHead{Channels: 2, PreSkip: DefaultPreSkip, InputSampleRate: 44100}
	data := head.Encode()

	if len(data) != 19 {
		t.Fatalf("OpusHead is %d bytes, want 19", len(data))
	}
	if string(data[:8]) != "OpusHead" || data[8] != 1 {
		t.Errorf("bad magic/version: %q %d", data[:8], data[8])
	}

	parsed, err := ParseOpusHead(data)
	if err != nil {
		t.Fatalf("ParseOpusHead() error = %v", err)
	}
	if *parsed != *head {
		t.Errorf("ParseOpusHead() = %+v, want %+v", parsed, head)
	}

	if _, err := ParseOpusHead(data[:10]); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("short header error = %v, want ErrInvalidHeader", err)
	}
}

func TestOpusTags(t *testing.T) {
	tags := &OpusTags{Vendor: "oggcast", Comments: []string{"TITLE=Test", "ENCODER=oggcast"}}
	parsed, err := ParseOpusTags(tags.Encode())
	if err != nil {
		t.Fatalf("ParseOpusTags() error = %v", err)
	}
	if !reflect.DeepEqual(parsed, tags) {
		t.Errorf("ParseOpusTags() = %+v, want %+v", parsed, tags)
	}

	empty := &OpusTags{Vendor: "x"}
	parsed, err = ParseOpusTags(empty.Encode())
	if err != nil {
		t.Fatalf("ParseOpusTags() error = %v", err)
	}
	if parsed.Vendor != "x" || len(parsed.Comments) != 0 {
		t.Errorf("unexpected tags %+v", parsed)
	}
}
