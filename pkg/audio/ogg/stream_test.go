// ABOUTME: Tests for the Ogg stream multiplexer
// ABOUTME: Covers page boundaries, granule positions, continuation and EOS
package ogg

import (
	"bytes"
	"errors"
	"testing"
)

func packetOf(size int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, size)
}

func TestStream_BOSPageHoldsFirstPacket(t *testing.T) {
	s := NewStream(42)
	if err := s.PacketIn(Packet{Data: packetOf(19, 1)}); err != nil {
		t.Fatalf("PacketIn() error = %v", err)
	}
	if err := s.PacketIn(Packet{Data: packetOf(10, 2), GranulePos: 0}); err != nil {
		t.Fatalf("PacketIn() error = %v", err)
	}

	page, ok := s.PageOut()
	if !ok {
		t.Fatal("expected BOS page to be ready")
	}
	if !page.IsBOS() || page.Sequence != 0 || page.Serial != 42 {
		t.Errorf("unexpected BOS page header: %+v", page)
	}
	if len(page.Segments) != 1 || len(page.Payload) != 19 {
		t.Errorf("BOS page should carry only the first packet, got %d segments", len(page.Segments))
	}

	if _, ok := s.PageOut(); ok {
		t.Error("small second packet should not produce a page without flush")
	}

	page, ok = s.Flush()
	if !ok {
		t.Fatal("Flush() returned no page")
	}
	if page.IsBOS() || page.Sequence != 1 || len(page.Payload) != 10 {
		t.Errorf("unexpected flushed page: %+v", page)
	}
	if _, ok := s.Flush(); ok {
		t.Error("Flush() on empty stream returned a page")
	}
}

func TestStream_PageTargetSize(t *testing.T) {
	s := NewStream(1)
	s.PacketIn(Packet{Data: packetOf(19, 0)})
	s.PageOut()

	for i := 1; i <= 10; i++ {
		if err := s.PacketIn(Packet{Data: packetOf(1000, byte(i)), GranulePos: int64(i * 960)}); err != nil {
			t.Fatalf("PacketIn() error = %v", err)
		}
	}

	page, ok := s.PageOut()
	if !ok {
		t.Fatal("expected a full page")
	}
	if len(page.Payload) != 5000 {
		t.Errorf("page payload = %d bytes, want 5000 (five whole packets)", len(page.Payload))
	}
	if page.GranulePos != 5*960 {
		t.Errorf("GranulePos = %d, want %d", page.GranulePos, 5*960)
	}

	page, ok = s.PageOut()
	if !ok || len(page.Payload) != 5000 || page.GranulePos != 10*960 {
		t.Fatalf("second page: ok=%v page=%+v", ok, page)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
}

func TestStream_ContinuedPacket(t *testing.T) {
	s := NewStream(1)
	s.PacketIn(Packet{Data: packetOf(19, 0)})
	s.PageOut()

	big := packetOf(70000, 7)
	s.PacketIn(Packet{Data: big, GranulePos: 960})

	first, ok := s.PageOut()
	if !ok {
		t.Fatal("expected a page for 255 lacing values")
	}
	if len(first.Segments) != 255 || first.GranulePos != -1 || first.IsContinued() {
		t.Errorf("first page: %d segments, granule %d, flags %#x", len(first.Segments), first.GranulePos, first.HeaderType)
	}

	second, ok := s.Flush()
	if !ok {
		t.Fatal("expected remainder page")
	}
	if !second.IsContinued() || second.GranulePos != 960 {
		t.Errorf("second page: flags %#x granule %d", second.HeaderType, second.GranulePos)
	}

	packets, err := JoinPackets([]*Page{first, second})
	if err != nil {
		t.Fatalf("JoinPackets() error = %v", err)
	}
	if len(packets) != 1 || !bytes.Equal(packets[0], big) {
		t.Errorf("reassembled %d packets", len(packets))
	}
}

func TestStream_EOS(t *testing.T) {
	s := NewStream(1)
	s.PacketIn(Packet{Data: packetOf(19, 0)})
	s.PageOut()

	s.PacketIn(Packet{Data: packetOf(30, 1), GranulePos: 960, EOS: true})
	page, ok := s.PageOut()
	if !ok {
		t.Fatal("EOS packet should make the page ready")
	}
	if !page.IsEOS() {
		t.Error("expected EOS flag on last page")
	}

	if err := s.PacketIn(Packet{Data: packetOf(5, 1)}); !errors.Is(err, ErrStreamEnded) {
		t.Errorf("PacketIn() after EOS error = %v, want ErrStreamEnded", err)
	}
}

func TestStream_Clear(t *testing.T) {
	s := NewStream(1)
	s.PacketIn(Packet{Data: packetOf(100, 0)})
	s.Clear()

	if s.Pending() != 0 {
		t.Errorf("Pending() = %d after Clear", s.Pending())
	}
	if _, ok := s.Flush(); ok {
		t.Error("Flush() returned a page after Clear")
	}
	if err := s.PacketIn(Packet{Data: packetOf(1, 0)}); !errors.Is(err, ErrStreamEnded) {
		t.Errorf("PacketIn() after Clear error = %v, want ErrStreamEnded", err)
	}
}

func TestReadPackets(t *testing.T) {
	s := NewStream(9)
	want := [][]byte{packetOf(19, 1), packetOf(300, 2), packetOf(0, 3), packetOf(510, 4)}

	var out []byte
	for i, p := range want {
		s.PacketIn(Packet{Data: p, GranulePos: int64(i)})
		for {
			page, ok := s.Flush()
			if !ok {
				break
			}
			out = page.AppendTo(out)
		}
	}

	got, err := ReadPackets(out)
	if err != nil {
		t.Fatalf("ReadPackets() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d packets, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("packet %d mismatch: %d bytes vs %d", i, len(got[i]), len(want[i]))
		}
	}
}
