// ABOUTME: WebSocket listener client for oggcast servers
// ABOUTME: Performs the control handshake and delivers Ogg pages on a channel
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/Resonate-Protocol/oggcast/internal/protocol"
	"github.com/Resonate-Protocol/oggcast/pkg/audio/ogg"
	"github.com/gorilla/websocket"
)

const handshakeTimeout = 5 * time.Second

// Config holds client configuration
type Config struct {
	ServerAddr string // host:port
	Path       string // default "/ws"
}

// Client listens to one oggcast stream over WebSocket
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex

	// Filled in by the handshake
	Hello  protocol.ServerHello
	Start  protocol.StreamStart
	Header []byte // OpusHead and OpusTags pages

	// Pages carries binary messages after the header, each holding whole pages
	Pages    chan []byte
	Metadata chan protocol.StreamMetadata

	// Ended is closed when the server ends the stream or the connection drops
	Ended chan struct{}

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	endOnce   sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = "/ws"
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:   config,
		Pages:    make(chan []byte, 100),
		Metadata: make(chan protocol.StreamMetadata, 10),
		Ended:    make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect dials the server, reads the handshake and starts the reader
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake reads server/hello, stream/start, stream/metadata and the
// binary header pages, in that order
func (c *Client) handshake() error {
	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer c.conn.SetReadDeadline(time.Time{})

	if err := c.readControl(protocol.TypeServerHello, &c.Hello); err != nil {
		return err
	}
	if err := c.readControl(protocol.TypeStreamStart, &c.Start); err != nil {
		return err
	}

	var meta protocol.StreamMetadata
	if err := c.readControl(protocol.TypeStreamMetadata, &meta); err != nil {
		return err
	}
	c.Metadata <- meta

	msgType, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read header pages: %w", err)
	}
	if msgType != websocket.BinaryMessage {
		return fmt.Errorf("expected binary header pages, got message type %d", msgType)
	}

	packets, err := ogg.ReadPackets(data)
	if err != nil {
		return fmt.Errorf("invalid header pages: %w", err)
	}
	if len(packets) != 2 {
		return fmt.Errorf("expected 2 header packets, got %d", len(packets))
	}
	if _, err := ogg.ParseOpusHead(packets[0]); err != nil {
		return fmt.Errorf("invalid OpusHead: %w", err)
	}
	c.Header = data

	log.Printf("Handshake complete with %s (%s %d Hz, %d channels)",
		c.Hello.Name, c.Start.Codec, c.Start.SampleRate, c.Start.Channels)
	return nil
}

// readControl reads one text message of the given type into payload
func (c *Client) readControl(msgType string, payload interface{}) error {
	kind, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", msgType, err)
	}
	if kind != websocket.TextMessage {
		return fmt.Errorf("expected %s, got binary message", msgType)
	}

	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", msgType, err)
	}
	if msg.Type != msgType {
		return fmt.Errorf("expected %s, got %s", msgType, msg.Type)
	}
	return json.Unmarshal(msg.Payload, payload)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.end()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Read error: %v", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			select {
			case c.Pages <- data:
			case <-c.ctx.Done():
				return
			}
		case websocket.TextMessage:
			if !c.handleJSONMessage(data) {
				return
			}
		}
	}
}

// handleJSONMessage routes a control message and reports false at stream end
func (c *Client) handleJSONMessage(data []byte) bool {
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return true
	}

	switch msg.Type {
	case protocol.TypeStreamMetadata:
		var meta protocol.StreamMetadata
		if err := json.Unmarshal(msg.Payload, &meta); err == nil {
			select {
			case c.Metadata <- meta:
			default:
			}
		}
	case protocol.TypeStreamEnd:
		var end protocol.StreamEnd
		json.Unmarshal(msg.Payload, &end)
		log.Printf("Stream ended: %s", end.Reason)
		return false
	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
	return true
}

func (c *Client) end() {
	c.endOnce.Do(func() { close(c.Ended) })
	c.Close()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
