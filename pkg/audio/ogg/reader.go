// ABOUTME: Splits an Ogg byte stream into pages and reassembles packets
// ABOUTME: Used to inspect encoder output and validate received header pages
package ogg

// SplitPages parses concatenated pages. The returned pages alias data.
func SplitPages(data []byte) ([]*Page, error) {
	var pages []*Page
	for len(data) > 0 {
		page, n, err := ParsePage(data)
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
		data = data[n:]
	}
	return pages, nil
}

// JoinPackets reassembles the packets carried by a sequence of pages of one
// logical stream. A packet left unfinished by the last page is an error.
func JoinPackets(pages []*Page) ([][]byte, error) {
	var packets [][]byte
	var partial []byte
	inPacket := false

	for _, page := range pages {
		if page.IsContinued() != inPacket {
			return packets, ErrInvalidPage
		}

		off := 0
		for _, seg := range page.Segments {
			partial = append(partial, page.Payload[off:off+int(seg)]...)
			off += int(seg)
			inPacket = true
			if seg < MaxSegmentSize {
				packets = append(packets, partial)
				partial = nil
				inPacket = false
			}
		}
	}

	if inPacket {
		return packets, ErrUnexpectedEOS
	}
	return packets, nil
}

// ReadPackets parses data and returns the packets it carries
func ReadPackets(data []byte) ([][]byte, error) {
	pages, err := SplitPages(data)
	if err != nil {
		return nil, err
	}
	return JoinPackets(pages)
}
