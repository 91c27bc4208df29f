// ABOUTME: Server TUI for displaying listeners and stream stats
// ABOUTME: Real-time server status display using bubbletea
package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Width(10)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	endedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
	addrColumn   = lipgloss.NewStyle().Width(24)
	kindColumn   = lipgloss.NewStyle().Width(11)
)

// listenerLimit caps the rows shown in the listener table
const listenerLimit = 20

// ServerTUI manages the server TUI
type ServerTUI struct {
	program  *tea.Program
	initial  ServerStatus
	updates  chan ServerStatus
	quitChan chan struct{} // Signal to stop the server

	mu      sync.Mutex
	stopped bool
}

// ServerStatus holds server state for TUI
type ServerStatus struct {
	Name         string
	Port         int
	Format       string
	Listeners    []ListenerInfo
	AudioTitle   string
	Chunks       uint64
	BytesEncoded uint64
	Ended        bool
}

// ListenerInfo holds listener information for display
type ListenerInfo struct {
	ID         string
	Kind       string
	RemoteAddr string
	Connected  time.Time
}

// tuiModel is the bubbletea model for server TUI
type tuiModel struct {
	status    ServerStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
}

type tickMsg time.Time
type statusMsg ServerStatus

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		// Redraw for uptime and listener ages
		return m, tickEvery()

	case statusMsg:
		m.status = ServerStatus(msg)
	}

	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down server...\n"
	}

	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}

	b.WriteString(titleStyle.Render("oggcast server"))
	b.WriteString("\n\n")

	elapsed := time.Since(m.startTime)
	row("Server", m.status.Name)
	row("Port", fmt.Sprintf("%d", m.status.Port))
	row("Uptime", elapsed.Round(time.Second).String())
	row("Playing", m.status.AudioTitle)
	row("Format", m.status.Format)
	row("Encoded", fmt.Sprintf("%d chunks, %s", m.status.Chunks, formatTraffic(m.status.BytesEncoded, elapsed)))
	if m.status.Ended {
		b.WriteString(endedStyle.Render("Stream ended"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Listeners (%d)", len(m.status.Listeners))))
	b.WriteString("\n\n")
	b.WriteString(listenerTable(m.status.Listeners))

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

// listenerTable renders one line per listener, oldest first
func listenerTable(listeners []ListenerInfo) string {
	if len(listeners) == 0 {
		return valueStyle.Render("  No listeners connected") + "\n"
	}

	var b strings.Builder
	for i, l := range listeners {
		if i == listenerLimit {
			b.WriteString(valueStyle.Render(fmt.Sprintf("  ... and %d more", len(listeners)-listenerLimit)))
			b.WriteString("\n")
			break
		}
		b.WriteString("  ")
		b.WriteString(addrColumn.Render(l.RemoteAddr))
		b.WriteString(kindColumn.Render(l.Kind))
		b.WriteString(valueStyle.Render(time.Since(l.Connected).Round(time.Second).String()))
		b.WriteString("\n")
	}
	return b.String()
}

// formatTraffic renders encoded bytes and the average bitrate over elapsed
func formatTraffic(bytes uint64, elapsed time.Duration) string {
	kbps := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		kbps = float64(bytes) * 8 / secs / 1000
	}
	return fmt.Sprintf("%.1f KiB (%.1f kbps)", float64(bytes)/1024, kbps)
}

// NewServerTUI creates a new server TUI
func NewServerTUI(serverName string, port int) *ServerTUI {
	return &ServerTUI{
		initial: ServerStatus{
			Name:       serverName,
			Port:       port,
			AudioTitle: "Initializing...",
		},
		updates:  make(chan ServerStatus, 10),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the TUI until it quits
func (t *ServerTUI) Start() error {
	m := tuiModel{
		status:    t.initial,
		startTime: time.Now(),
		quitChan:  t.quitChan,
	}

	t.mu.Lock()
	t.program = tea.NewProgram(m, tea.WithAltScreen())
	program := t.program
	t.mu.Unlock()

	go func() {
		for status := range t.updates {
			program.Send(statusMsg(status))
		}
	}()

	_, err := program.Run()
	return err
}

// Update sends a status update to the TUI
func (t *ServerTUI) Update(status ServerStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	select {
	case t.updates <- status:
	default:
		// Don't block if channel is full
	}
}

// Stop stops the TUI. Later updates are dropped.
func (t *ServerTUI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true

	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan returns the channel that signals when user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
