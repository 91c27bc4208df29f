// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests manager defaults, TXT records and entry conversion
package discovery

import (
	"net"
	"reflect"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{
		ServiceName: "Test Server",
		Port:        8927,
	})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	defer mgr.Stop()

	if mgr.config.Path != "/stream.ogg" {
		t.Errorf("expected default path /stream.ogg, got %q", mgr.config.Path)
	}
}

func TestTXTRecords(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   []string
	}{
		{"default path", Config{}, []string{"path=/stream.ogg"}},
		{"with codec", Config{Path: "/live.ogg", Codec: "opus"}, []string{"path=/live.ogg", "codec=opus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewManager(tt.config)
			defer mgr.Stop()

			if got := mgr.txtRecords(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEntryToServer(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "Living Room._oggcast._tcp.local.",
		Host:       "livingroom.local.",
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       8927,
		InfoFields: []string{"path=/live.ogg", "codec=opus"},
	}

	server := entryToServer(entry)
	if server.Name != "Living Room" {
		t.Errorf("expected name %q, got %q", "Living Room", server.Name)
	}
	if server.URL() != "http://192.168.1.20:8927/live.ogg" {
		t.Errorf("unexpected URL %q", server.URL())
	}
}

func TestEntryToServerWithoutAddress(t *testing.T) {
	server := entryToServer(&mdns.ServiceEntry{Name: "x", Host: "host.local.", Port: 80})
	if server.Host != "host.local." || server.Path != "/stream.ogg" {
		t.Errorf("unexpected server %+v", server)
	}
}
