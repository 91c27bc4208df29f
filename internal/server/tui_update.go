// ABOUTME: TUI update helpers for server
// ABOUTME: Functions to send server state updates to TUI
package server

import (
	"fmt"
	"sort"
)

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil || s.audioEngine == nil {
		return
	}

	s.tui.Update(s.status())
}

// status snapshots the state shown in the TUI
func (s *Server) status() ServerStatus {
	e := s.audioEngine

	e.listenersMu.RLock()
	listeners := make([]ListenerInfo, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, ListenerInfo{
			ID:         l.ID,
			Kind:       l.Kind,
			RemoteAddr: l.RemoteAddr,
			Connected:  l.Connected,
		})
	}
	e.listenersMu.RUnlock()

	sort.Slice(listeners, func(i, j int) bool {
		return listeners[i].Connected.Before(listeners[j].Connected)
	})

	title, artist, _ := e.Metadata()
	audioTitle := title
	if artist != "" {
		audioTitle = artist + " - " + title
	}

	format := e.Format()
	chunks, bytes := e.Stats()

	ended := false
	select {
	case <-s.endChan:
		ended = true
	default:
	}

	return ServerStatus{
		Name:         s.config.Name,
		Port:         s.config.Port,
		Format:       fmt.Sprintf("%s %d Hz %dch @ %d kbps", format.Codec, format.SampleRate, format.Channels, format.Bitrate/1000),
		Listeners:    listeners,
		AudioTitle:   audioTitle,
		Chunks:       chunks,
		BytesEncoded: bytes,
		Ended:        ended,
	}
}
