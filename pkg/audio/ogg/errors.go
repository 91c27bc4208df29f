// ABOUTME: Sentinel errors for Ogg page parsing and multiplexing
// ABOUTME: Callers match them with errors.Is
package ogg

import "errors"

var (
	// ErrInvalidPage indicates a missing "OggS" magic or an unknown version.
	ErrInvalidPage = errors.New("ogg: invalid page structure")

	// ErrInvalidHeader indicates a malformed OpusHead or OpusTags packet.
	ErrInvalidHeader = errors.New("ogg: invalid Opus header")

	// ErrBadCRC indicates the page checksum does not match its contents.
	ErrBadCRC = errors.New("ogg: CRC mismatch")

	// ErrUnexpectedEOS indicates the data ends inside a page or a packet.
	ErrUnexpectedEOS = errors.New("ogg: unexpected end of stream")

	// ErrStreamEnded is returned by PacketIn after an EOS packet or Clear.
	ErrStreamEnded = errors.New("ogg: stream ended")
)
