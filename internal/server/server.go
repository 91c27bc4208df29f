// ABOUTME: Main server implementation for oggcast
// ABOUTME: Serves the live Ogg Opus stream over HTTP and WebSocket
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/oggcast/internal/discovery"
	"github.com/Resonate-Protocol/oggcast/internal/metrics"
	"github.com/Resonate-Protocol/oggcast/internal/protocol"
	"github.com/Resonate-Protocol/oggcast/internal/version"
	"github.com/Resonate-Protocol/oggcast/pkg/audio/ogg"
	"github.com/Resonate-Protocol/oggcast/pkg/audio/source"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// ProtocolVersion of the WebSocket control messages
	ProtocolVersion = 1

	// StreamPath serves the Ogg stream over plain HTTP
	StreamPath = "/stream.ogg"

	// listenerQueueSize is the number of chunks (20ms each) buffered per listener
	listenerQueueSize = 100

	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Debug      bool
	UseTUI     bool
	AudioFile  string // Path to audio file to stream (MP3, FLAC). Empty = test tone
	Bitrate    int    // Opus target bitrate in bits/s. Zero = 64 kbps per channel
}

// Server streams one live Ogg Opus stream to any number of listeners
type Server struct {
	config   Config
	serverID string

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Metrics
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	// Audio streaming
	audioEngine *AudioEngine

	// mDNS discovery
	mdnsManager *discovery.Manager

	// TUI
	tui       *ServerTUI
	startTime time.Time

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	endChan    chan struct{} // closed when the stream has ended
	endOnce    sync.Once
	endReason  string // set before endChan is closed
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Listener is one connected HTTP or WebSocket client
type Listener struct {
	ID         string
	Kind       string // "http" or "websocket"
	RemoteAddr string
	Connected  time.Time

	// send carries []byte Ogg pages and protocol.Message values
	send chan interface{}
	done chan struct{}
}

func newListener(kind, remoteAddr string) *Listener {
	return &Listener{
		ID:         uuid.New().String(),
		Kind:       kind,
		RemoteAddr: remoteAddr,
		Connected:  time.Now(),
		send:       make(chan interface{}, listenerQueueSize),
		done:       make(chan struct{}),
	}
}

// New creates a new server instance
func New(config Config) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		registry: registry,
		metrics:  metrics.New(registry),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Listeners are players on a trusted local network
				origin := r.Header.Get("Origin")
				if origin != "" && origin != "http://localhost" && origin != "http://127.0.0.1" {
					log.Printf("Warning: accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
		endChan:   make(chan struct{}),
	}

	s.mux.HandleFunc(StreamPath, s.handleStream)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return s
}

// Handler returns the HTTP handler serving every endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// openSource opens the configured file, or a test tone when none is set
func (s *Server) openSource() (source.AudioSource, error) {
	if s.config.AudioFile == "" {
		return source.NewTone(DefaultSampleRate, DefaultChannels, source.DefaultToneFrequency), nil
	}
	return source.Open(s.config.AudioFile, true)
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	// Start TUI if enabled
	if s.config.UseTUI {
		s.tui = NewServerTUI(s.config.Name, s.config.Port)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()

		// Give TUI time to initialize
		time.Sleep(100 * time.Millisecond)
	}

	log.Printf("Server starting: %s (ID: %s, %s)", s.config.Name, s.serverID, version.String())

	src, err := s.openSource()
	if err != nil {
		s.stopTUI()
		return fmt.Errorf("failed to open audio source: %w", err)
	}

	audioEngine, err := NewAudioEngine(s, src)
	if err != nil {
		src.Close()
		s.stopTUI()
		return fmt.Errorf("failed to create audio engine: %w", err)
	}
	s.audioEngine = audioEngine
	s.updateTUI()

	// Start mDNS advertisement if enabled
	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        StreamPath,
			Codec:       audioEngine.Format().Codec,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	// Start audio streaming
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.audioEngine.Start()
	}()

	// Start HTTP server
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Listening on %s (stream: %s, websocket: /ws, metrics: /metrics)", addr, StreamPath)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for stop signal, TUI quit, or server error
	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	// Mark server as shutting down to reject new connections
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	// Release streaming handlers blocked on their queues
	s.Stop()

	s.stopTUI()
	s.audioEngine.Stop()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	s.audioEngine.Close()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Server) stopTUI() {
	if s.tui != nil {
		s.tui.Stop()
	}
}

// endStream tells every listener that no more chunks will come
func (s *Server) endStream(reason string) {
	s.endOnce.Do(func() {
		log.Printf("Stream ended: %s", reason)
		s.endReason = reason
		close(s.endChan)
	})
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShutdown
}

func (s *Server) addListener(l *Listener) {
	s.audioEngine.AddListener(l)
	s.metrics.RecordListenerJoin(l.Kind)
	s.updateTUI()
}

func (s *Server) removeListener(l *Listener) {
	s.audioEngine.RemoveListener(l)
	s.metrics.RecordListenerLeave(l.Kind)
	log.Printf("Listener disconnected: %s (%s)", l.ID, l.RemoteAddr)
	s.updateTUI()
}

// handleStream serves the Ogg stream as a chunked HTTP response
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.audioEngine == nil || s.shuttingDown() {
		http.Error(w, "stream not available", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/ogg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.WriteHeader(http.StatusOK)

	l := newListener("http", r.RemoteAddr)
	s.addListener(l)
	defer s.removeListener(l)

	log.Printf("New HTTP listener %s from %s", l.ID, r.RemoteAddr)

	write := func(msg interface{}) bool {
		data, ok := msg.([]byte)
		if !ok {
			return true
		}
		if _, err := w.Write(data); err != nil {
			if s.config.Debug {
				log.Printf("[DEBUG] HTTP listener %s write failed: %v", l.ID, err)
			}
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case msg := <-l.send:
			if !write(msg) {
				return
			}
		case <-s.endChan:
			drain(l, write)
			return
		case <-r.Context().Done():
			return
		case <-s.stopChan:
			return
		}
	}
}

// drain writes whatever is still queued for l
func drain(l *Listener, write func(interface{}) bool) {
	for {
		select {
		case msg := <-l.send:
			if !write(msg) {
				return
			}
		default:
			return
		}
	}
}

// handleWebSocket handles WebSocket listeners
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.audioEngine == nil {
		http.Error(w, "stream not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.shuttingDown() {
		log.Printf("Rejecting connection during shutdown")
		return
	}

	l := newListener("websocket", r.RemoteAddr)
	log.Printf("New WebSocket listener %s from %s", l.ID, r.RemoteAddr)

	// Control messages precede the header pages queued by addListener
	format := s.audioEngine.Format()
	title, artist, album := s.audioEngine.Metadata()
	l.send <- protocol.Message{
		Type: protocol.TypeServerHello,
		Payload: protocol.ServerHello{
			ServerID:   s.serverID,
			ListenerID: l.ID,
			Name:       s.config.Name,
			Version:    ProtocolVersion,
		},
	}
	l.send <- protocol.Message{
		Type: protocol.TypeStreamStart,
		Payload: protocol.StreamStart{
			Codec:      format.Codec,
			Container:  "ogg",
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
			Bitrate:    format.Bitrate,
			PreSkip:    ogg.DefaultPreSkip,
		},
	}
	l.send <- protocol.Message{
		Type:    protocol.TypeStreamMetadata,
		Payload: protocol.StreamMetadata{Title: title, Artist: artist, Album: album},
	}

	s.addListener(l)
	defer func() {
		s.removeListener(l)
		close(l.done)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.listenerWriter(conn, l)
	}()

	// Listeners send nothing meaningful; reading detects disconnects
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		if s.config.Debug {
			log.Printf("[DEBUG] ignoring message from %s (type %d, %d bytes)", l.ID, msgType, len(data))
		}
	}
}

// listenerWriter owns all writes to a WebSocket connection
func (s *Server) listenerWriter(conn *websocket.Conn, l *Listener) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(msg interface{}) bool {
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))

		switch v := msg.(type) {
		case []byte:
			if err := conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
				log.Printf("Error writing binary message: %v", err)
				return false
			}
		default:
			data, err := json.Marshal(v)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				return true
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing text message: %v", err)
				return false
			}
		}
		return true
	}

	closeConn := func(code int, text string) {
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeDeadline))
	}

	for {
		select {
		case msg := <-l.send:
			if !write(msg) {
				return
			}

		case <-s.endChan:
			drain(l, write)
			write(protocol.Message{
				Type:    protocol.TypeStreamEnd,
				Payload: protocol.StreamEnd{Reason: s.endReason},
			})
			closeConn(websocket.CloseNormalClosure, "stream ended")
			return

		case <-s.stopChan:
			closeConn(websocket.CloseGoingAway, "server shutting down")
			return

		case <-l.done:
			return

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// statusResponse is the JSON body of /status
type statusResponse struct {
	ServerID   string `json:"server_id"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	Listeners  int    `json:"listeners"`
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Bitrate    int    `json:"bitrate"`
	Title      string `json:"title,omitempty"`
	Chunks     uint64 `json:"chunks"`
	Bytes      uint64 `json:"bytes"`
}

// handleStatus reports server and stream state as JSON
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  version.String(),
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
	}
	if e := s.audioEngine; e != nil {
		format := e.Format()
		resp.Listeners = e.ListenerCount()
		resp.Codec = format.Codec
		resp.SampleRate = format.SampleRate
		resp.Channels = format.Channels
		resp.Bitrate = format.Bitrate
		resp.Title, _, _ = e.Metadata()
		resp.Chunks, resp.Bytes = e.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Error writing status: %v", err)
	}
}
