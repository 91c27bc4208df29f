// ABOUTME: Ogg stream state for one logical bitstream
// ABOUTME: Packets go in, pages come out once enough data is buffered
package ogg

const (
	// pageTargetSize is the body size at which a page is considered full.
	pageTargetSize = 4096

	maxPageSegments = 255
)

// Packet is one codec packet submitted to a Stream
type Packet struct {
	Data []byte
	// GranulePos is the granule position at the end of this packet.
	GranulePos int64
	// EOS marks the last packet of the logical stream.
	EOS bool
}

// Stream multiplexes packets of one logical bitstream into pages.
// A Stream is not safe for concurrent use.
type Stream struct {
	serial   uint32
	sequence uint32

	body     []byte
	lacing   []byte
	granules []int64 // granule per lacing value, -1 unless the value ends a packet

	packets   int64
	bosDone   bool
	eosIn     bool
	continued bool
	cleared   bool
}

// NewStream creates stream state for the given serial number
func NewStream(serial uint32) *Stream {
	return &Stream{serial: serial}
}

// Serial returns the bitstream serial number
func (s *Stream) Serial() uint32 { return s.serial }

// Pending returns the number of body bytes not yet emitted as pages
func (s *Stream) Pending() int { return len(s.body) }

// Packets returns the number of packets submitted so far
func (s *Stream) Packets() int64 { return s.packets }

// PacketIn submits a packet. The packet data is copied.
func (s *Stream) PacketIn(p Packet) error {
	if s.cleared || s.eosIn {
		return ErrStreamEnded
	}

	segments := segmentTable(len(p.Data))
	for i, seg := range segments {
		s.lacing = append(s.lacing, seg)
		if i == len(segments)-1 {
			s.granules = append(s.granules, p.GranulePos)
		} else {
			s.granules = append(s.granules, -1)
		}
	}
	s.body = append(s.body, p.Data...)
	s.packets++

	if p.EOS {
		s.eosIn = true
	}
	return nil
}

// PageOut returns the next page if one is complete. A page is complete when
// the BOS page is due, when 4096 body bytes or 255 lacing values are buffered,
// or when the EOS packet has been submitted.
func (s *Stream) PageOut() (*Page, bool) {
	if len(s.lacing) == 0 {
		return nil, false
	}
	if s.bosDone && !s.eosIn && len(s.lacing) < maxPageSegments && len(s.body) < pageTargetSize {
		return nil, false
	}
	return s.buildPage(), true
}

// Flush returns a page holding buffered packets even if it is not full.
// Call it until it reports false to drain the stream.
func (s *Stream) Flush() (*Page, bool) {
	if len(s.lacing) == 0 {
		return nil, false
	}
	return s.buildPage(), true
}

// Clear drops all buffered data. The stream accepts no packets afterwards.
func (s *Stream) Clear() {
	s.body = nil
	s.lacing = nil
	s.granules = nil
	s.cleared = true
}

func (s *Stream) buildPage() *Page {
	n := len(s.lacing)
	if n > maxPageSegments {
		n = maxPageSegments
	}

	if !s.bosDone {
		for i := 0; i < n; i++ {
			if s.lacing[i] < MaxSegmentSize {
				n = i + 1
				break
			}
		}
	} else {
		acc := 0
		for i := 0; i < n; i++ {
			acc += int(s.lacing[i])
			if acc >= pageTargetSize && s.lacing[i] < MaxSegmentSize {
				n = i + 1
				break
			}
		}
	}

	granule := int64(-1)
	bodyLen := 0
	for i := 0; i < n; i++ {
		bodyLen += int(s.lacing[i])
		if s.lacing[i] < MaxSegmentSize {
			granule = s.granules[i]
		}
	}

	var flags byte
	if s.continued {
		flags |= FlagContinuation
	}
	if !s.bosDone {
		flags |= FlagBOS
	}
	if s.eosIn && n == len(s.lacing) {
		flags |= FlagEOS
	}

	page := &Page{
		HeaderType: flags,
		GranulePos: granule,
		Serial:     s.serial,
		Sequence:   s.sequence,
		Segments:   append([]byte(nil), s.lacing[:n]...),
		Payload:    append([]byte(nil), s.body[:bodyLen]...),
	}

	s.continued = s.lacing[n-1] == MaxSegmentSize
	s.lacing = append(s.lacing[:0], s.lacing[n:]...)
	s.granules = append(s.granules[:0], s.granules[n:]...)
	s.body = append(s.body[:0], s.body[bodyLen:]...)
	s.sequence++
	s.bosDone = true

	return page
}
