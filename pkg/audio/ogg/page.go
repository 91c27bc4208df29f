// ABOUTME: Ogg page encoding and parsing
// ABOUTME: Handles the 27-byte header, lacing table and CRC
package ogg

import "encoding/binary"

// Page header flags
const (
	FlagContinuation = 0x01
	FlagBOS          = 0x02
	FlagEOS          = 0x04
)

const (
	pageHeaderSize = 27
	oggMagic       = "OggS"
	crcOffset      = 22

	// MaxSegmentSize is the largest lacing value; a value below it ends a packet.
	MaxSegmentSize = 255
)

// Page is a single Ogg page
type Page struct {
	HeaderType byte
	// GranulePos is the position of the last packet completed on this page,
	// -1 when no packet ends here.
	GranulePos int64
	Serial     uint32
	Sequence   uint32
	Segments   []byte
	Payload    []byte
}

// Size returns the encoded page length in bytes
func (p *Page) Size() int {
	return pageHeaderSize + len(p.Segments) + len(p.Payload)
}

// IsBOS reports whether the page starts a logical stream
func (p *Page) IsBOS() bool { return p.HeaderType&FlagBOS != 0 }

// IsEOS reports whether the page ends a logical stream
func (p *Page) IsEOS() bool { return p.HeaderType&FlagEOS != 0 }

// IsContinued reports whether the page starts in the middle of a packet
func (p *Page) IsContinued() bool { return p.HeaderType&FlagContinuation != 0 }

// Encode returns the wire form of the page
func (p *Page) Encode() []byte {
	return p.AppendTo(make([]byte, 0, p.Size()))
}

// AppendTo appends the wire form of the page to dst
func (p *Page) AppendTo(dst []byte) []byte {
	start := len(dst)

	dst = append(dst, oggMagic...)
	dst = append(dst, 0, p.HeaderType)
	dst = binary.LittleEndian.AppendUint64(dst, uint64(p.GranulePos))
	dst = binary.LittleEndian.AppendUint32(dst, p.Serial)
	dst = binary.LittleEndian.AppendUint32(dst, p.Sequence)
	dst = append(dst, 0, 0, 0, 0) // CRC placeholder
	dst = append(dst, byte(len(p.Segments)))
	dst = append(dst, p.Segments...)
	dst = append(dst, p.Payload...)

	crc := crcUpdate(0, dst[start:])
	binary.LittleEndian.PutUint32(dst[start+crcOffset:], crc)
	return dst
}

// ParsePage parses the page at the start of data and returns it together
// with the number of bytes it occupies. Payload and Segments alias data.
func ParsePage(data []byte) (*Page, int, error) {
	if len(data) < pageHeaderSize {
		return nil, 0, ErrUnexpectedEOS
	}
	if string(data[:4]) != oggMagic || data[4] != 0 {
		return nil, 0, ErrInvalidPage
	}

	nsegs := int(data[26])
	headerLen := pageHeaderSize + nsegs
	if len(data) < headerLen {
		return nil, 0, ErrUnexpectedEOS
	}

	segments := data[pageHeaderSize:headerLen]
	bodyLen := 0
	for _, s := range segments {
		bodyLen += int(s)
	}
	total := headerLen + bodyLen
	if len(data) < total {
		return nil, 0, ErrUnexpectedEOS
	}

	crc := crcUpdate(0, data[:crcOffset])
	crc = crcUpdate(crc, []byte{0, 0, 0, 0})
	crc = crcUpdate(crc, data[crcOffset+4:total])
	if crc != binary.LittleEndian.Uint32(data[crcOffset:]) {
		return nil, 0, ErrBadCRC
	}

	return &Page{
		HeaderType: data[5],
		GranulePos: int64(binary.LittleEndian.Uint64(data[6:14])),
		Serial:     binary.LittleEndian.Uint32(data[14:18]),
		Sequence:   binary.LittleEndian.Uint32(data[18:22]),
		Segments:   segments,
		Payload:    data[headerLen:total],
	}, total, nil
}

// segmentTable returns the lacing values for a packet of the given length.
// A packet whose length is a multiple of 255 ends with a zero lacing value.
func segmentTable(packetLen int) []byte {
	n := packetLen/MaxSegmentSize + 1
	segments := make([]byte, n)
	for i := 0; i < n-1; i++ {
		segments[i] = MaxSegmentSize
	}
	segments[n-1] = byte(packetLen % MaxSegmentSize)
	return segments
}
