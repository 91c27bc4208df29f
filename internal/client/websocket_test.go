// ABOUTME: Tests for the WebSocket listener client
// ABOUTME: Runs the handshake against a scripted test server
package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/oggcast/internal/protocol"
	"github.com/Resonate-Protocol/oggcast/pkg/audio/ogg"
	"github.com/gorilla/websocket"
)

func headerPages(t *testing.T) []byte {
	t.Helper()
	s := ogg.NewStream(7)
	head := &ogg.OpusHead{Channels: 2, PreSkip: ogg.DefaultPreSkip, InputSampleRate: 48000}
	tags := &ogg.OpusTags{Vendor: "test"}

	var out []byte
	for _, pkt := range [][]byte{head.Encode(), tags.Encode()} {
		if err := s.PacketIn(ogg.Packet{Data: pkt}); err != nil {
			t.Fatal(err)
		}
		page, _ := s.Flush()
		out = page.AppendTo(out)
	}
	return out
}

// scriptedServer sends msgs in order, then waits for the client to close
func scriptedServer(t *testing.T, msgs []interface{}) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, m := range msgs {
			switch v := m.(type) {
			case []byte:
				conn.WriteMessage(websocket.BinaryMessage, v)
			default:
				data, _ := json.Marshal(v)
				conn.WriteMessage(websocket.TextMessage, data)
			}
		}
		conn.ReadMessage()
	}))
}

func handshakeMessages(t *testing.T) []interface{} {
	return []interface{}{
		protocol.Message{Type: protocol.TypeServerHello, Payload: protocol.ServerHello{ServerID: "srv", Name: "test", Version: 1}},
		protocol.Message{Type: protocol.TypeStreamStart, Payload: protocol.StreamStart{Codec: "opus", Container: "ogg", SampleRate: 48000, Channels: 2}},
		protocol.Message{Type: protocol.TypeStreamMetadata, Payload: protocol.StreamMetadata{Title: "Song"}},
		headerPages(t),
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{ServerAddr: "localhost:8927"})
	if c.config.Path != "/ws" {
		t.Errorf("expected default path /ws, got %q", c.config.Path)
	}
	if c.IsConnected() {
		t.Error("new client should not be connected")
	}
}

func TestClientHandshakeAndPages(t *testing.T) {
	msgs := append(handshakeMessages(t),
		[]byte("page-1"),
		protocol.Message{Type: protocol.TypeStreamEnd, Payload: protocol.StreamEnd{Reason: "done"}},
	)
	ts := scriptedServer(t, msgs)
	defer ts.Close()

	c := NewClient(Config{ServerAddr: strings.TrimPrefix(ts.URL, "http://")})
	if err := c.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer c.Close()

	if c.Hello.ServerID != "srv" || c.Start.Codec != "opus" || c.Start.Channels != 2 {
		t.Errorf("unexpected handshake state: %+v %+v", c.Hello, c.Start)
	}
	if len(c.Header) == 0 {
		t.Error("expected header pages")
	}

	select {
	case meta := <-c.Metadata:
		if meta.Title != "Song" {
			t.Errorf("unexpected metadata %+v", meta)
		}
	default:
		t.Error("expected metadata from handshake")
	}

	select {
	case page := <-c.Pages:
		if string(page) != "page-1" {
			t.Errorf("unexpected page %q", page)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for page")
	}

	select {
	case <-c.Ended:
	case <-time.After(2 * time.Second):
		t.Fatal("expected stream end")
	}
}

func TestClientRejectsBadHandshake(t *testing.T) {
	ts := scriptedServer(t, []interface{}{
		protocol.Message{Type: protocol.TypeStreamStart, Payload: protocol.StreamStart{}},
	})
	defer ts.Close()

	c := NewClient(Config{ServerAddr: strings.TrimPrefix(ts.URL, "http://")})
	err := c.Connect()
	if err == nil {
		c.Close()
		t.Fatal("expected handshake error")
	}
	if !strings.Contains(err.Error(), "expected server/hello") {
		t.Errorf("unexpected error: %v", err)
	}
	if c.IsConnected() {
		t.Error("client should be closed after failed handshake")
	}
}
