// ABOUTME: Ogg bitstream multiplexer for a single logical Opus stream
// ABOUTME: Builds Ogg pages from codec packets and parses them back
// Package ogg implements the parts of the Ogg container (RFC 3533) and the
// Ogg Opus mapping (RFC 7845) that an encoder needs.
//
// A Stream accepts packets and hands out pages, pull style:
//
//	s := ogg.NewStream(serial)
//	s.PacketIn(ogg.Packet{Data: packet, GranulePos: granule})
//	for {
//	    page, ok := s.PageOut()
//	    if !ok {
//	        break
//	    }
//	    out = page.AppendTo(out)
//	}
//
// PageOut only returns a page once enough data is buffered (4096 body bytes
// or 255 lacing values). Flush returns whatever is buffered. The first page
// of a stream (BOS) always carries exactly one packet, which is how the
// OpusHead identification header gets its own page.
//
// # Page layout
//
//	Bytes 0-3:   "OggS" capture pattern
//	Byte 4:      Stream structure version (0)
//	Byte 5:      Header type flags (continuation, BOS, EOS)
//	Bytes 6-13:  Granule position
//	Bytes 14-17: Bitstream serial number
//	Bytes 18-21: Page sequence number
//	Bytes 22-25: CRC checksum
//	Byte 26:     Number of segments
//	Bytes 27+:   Segment table, then payload
//
// The CRC is CRC-32 with polynomial 0x04C11DB7 computed over the whole page
// with the CRC field zeroed. It is not the IEEE CRC from hash/crc32.
package ogg
