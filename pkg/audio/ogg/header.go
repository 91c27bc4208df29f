// ABOUTME: OpusHead and OpusTags header packets (RFC 7845 section 5)
// ABOUTME: Encodes the identification and comment headers of an Ogg Opus stream
package ogg

import (
	"encoding/binary"
	"fmt"
)

const (
	// DefaultPreSkip is the standard libopus encoder lookahead at 48kHz.
	DefaultPreSkip = 312

	// GranuleRate is the fixed granule clock of Ogg Opus.
	GranuleRate = 48000

	opusHeadMagic   = "OpusHead"
	opusTagsMagic   = "OpusTags"
	opusHeadSize    = 19
	opusHeadVersion = 1
)

// OpusHead is the identification header (mapping family 0 only)
type OpusHead struct {
	Channels        uint8
	PreSkip         uint16
	InputSampleRate uint32
	OutputGain      int16
}

// Encode returns the 19-byte OpusHead packet
func (h *OpusHead) Encode() []byte {
	b := make([]byte, 0, opusHeadSize)
	b = append(b, opusHeadMagic...)
	b = append(b, opusHeadVersion, h.Channels)
	b = binary.LittleEndian.AppendUint16(b, h.PreSkip)
	b = binary.LittleEndian.AppendUint32(b, h.InputSampleRate)
	b = binary.LittleEndian.AppendUint16(b, uint16(h.OutputGain))
	b = append(b, 0) // channel mapping family 0
	return b
}

// ParseOpusHead decodes an OpusHead packet
func ParseOpusHead(data []byte) (*OpusHead, error) {
	if len(data) < opusHeadSize || string(data[:8]) != opusHeadMagic {
		return nil, ErrInvalidHeader
	}
	if data[8] != opusHeadVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidHeader, data[8])
	}
	if data[18] != 0 {
		return nil, fmt.Errorf("%w: mapping family %d", ErrInvalidHeader, data[18])
	}

	return &OpusHead{
		Channels:        data[9],
		PreSkip:         binary.LittleEndian.Uint16(data[10:12]),
		InputSampleRate: binary.LittleEndian.Uint32(data[12:16]),
		OutputGain:      int16(binary.LittleEndian.Uint16(data[16:18])),
	}, nil
}

// OpusTags is the comment header
type OpusTags struct {
	Vendor   string
	Comments []string // "FIELD=value"
}

// Encode returns the OpusTags packet
func (t *OpusTags) Encode() []byte {
	size := 8 + 4 + len(t.Vendor) + 4
	for _, c := range t.Comments {
		size += 4 + len(c)
	}

	b := make([]byte, 0, size)
	b = append(b, opusTagsMagic...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(t.Vendor)))
	b = append(b, t.Vendor...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(t.Comments)))
	for _, c := range t.Comments {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(c)))
		b = append(b, c...)
	}
	return b
}

// ParseOpusTags decodes an OpusTags packet
func ParseOpusTags(data []byte) (*OpusTags, error) {
	if len(data) < 16 || string(data[:8]) != opusTagsMagic {
		return nil, ErrInvalidHeader
	}

	off := 8
	readString := func() (string, error) {
		if len(data) < off+4 {
			return "", ErrInvalidHeader
		}
		n := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if n < 0 || len(data) < off+n {
			return "", ErrInvalidHeader
		}
		s := string(data[off : off+n])
		off += n
		return s, nil
	}

	vendor, err := readString()
	if err != nil {
		return nil, err
	}
	if len(data) < off+4 {
		return nil, ErrInvalidHeader
	}
	count := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4

	tags := &OpusTags{Vendor: vendor}
	for i := 0; i < count; i++ {
		c, err := readString()
		if err != nil {
			return nil, err
		}
		tags.Comments = append(tags.Comments, c)
	}
	return tags, nil
}
