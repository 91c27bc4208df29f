// ABOUTME: WebSocket control message definitions for oggcast
// ABOUTME: JSON text messages exchanged before and alongside binary Ogg pages
package protocol

// Message types
const (
	TypeServerHello    = "server/hello"
	TypeStreamStart    = "stream/start"
	TypeStreamMetadata = "stream/metadata"
	TypeStreamEnd      = "stream/end"
	TypeServerError    = "server/error"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ServerHello is the first message on every WebSocket connection
type ServerHello struct {
	ServerID   string `json:"server_id"`
	ListenerID string `json:"listener_id"`
	Name       string `json:"name"`
	Version    int    `json:"version"`
}

// StreamStart describes the stream. The next binary message carries the
// Ogg header pages; every later binary message holds whole Ogg pages.
type StreamStart struct {
	Codec      string `json:"codec"`     // "opus"
	Container  string `json:"container"` // "ogg"
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Bitrate    int    `json:"bitrate"`
	PreSkip    int    `json:"pre_skip"`
}

// StreamMetadata contains track information
type StreamMetadata struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// StreamEnd is sent when the source is exhausted and the stream has ended
type StreamEnd struct {
	Reason string `json:"reason"`
}

// ServerError reports a fatal condition before the server closes the connection
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
