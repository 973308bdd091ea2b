// ABOUTME: Bubbletea model for the appliance monitor client
// ABOUTME: Renders the websocket status feed; q quits, r reconnects
package tui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/cambox-project/cambox-go/internal/monitor"
)

// Model holds the monitor client state.
type Model struct {
	addr string

	conn      *websocket.Conn
	connected bool
	errText   string

	status   monitor.Status
	haveData bool

	width    int
	height   int
	quitting bool
}

type connectedMsg struct{ conn *websocket.Conn }
type statusMsg monitor.Status
type disconnectedMsg struct{ err error }

// NewModel creates a model that will connect to the given monitor
// address.
func NewModel(addr string) Model {
	return Model{addr: addr}
}

// connect dials the appliance's status feed.
func connect(addr string) tea.Cmd {
	return func() tea.Msg {
		u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
		conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
		if err != nil {
			return disconnectedMsg{err}
		}
		return connectedMsg{conn}
	}
}

// waitForStatus blocks on the next status frame.
func waitForStatus(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		var st monitor.Status
		if err := conn.ReadJSON(&st); err != nil {
			return disconnectedMsg{err}
		}
		return statusMsg(st)
	}
}

// Init starts the first connection attempt.
func (m Model) Init() tea.Cmd {
	return connect(m.addr)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case connectedMsg:
		m.conn = msg.conn
		m.connected = true
		m.errText = ""
		return m, waitForStatus(m.conn)

	case statusMsg:
		m.status = monitor.Status(msg)
		m.haveData = true
		if m.conn != nil {
			return m, waitForStatus(m.conn)
		}

	case disconnectedMsg:
		if m.conn != nil {
			m.conn.Close()
			m.conn = nil
		}
		m.connected = false
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.conn != nil {
			m.conn.Close()
			m.conn = nil
		}
		return m, tea.Quit
	case "r":
		if !m.connected {
			return m, connect(m.addr)
		}
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	liveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))

	mutedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "running":
		return liveStyle
	case "failed":
		return mutedStyle
	case "opening":
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	default:
		return valueStyle
	}
}

// View renders the status screen.
func (m Model) View() string {
	if m.quitting {
		return "Closing monitor...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("CamBox Monitor"))
	b.WriteString("\n\n")

	if !m.connected && !m.haveData {
		if m.errText != "" {
			b.WriteString(fmt.Sprintf("Cannot reach %s: %s\n\n", m.addr, m.errText))
			b.WriteString(helpStyle.Render("r:Retry  q:Quit"))
		} else {
			b.WriteString(fmt.Sprintf("Connecting to %s...\n\n", m.addr))
			b.WriteString(helpStyle.Render("q:Quit"))
		}
		b.WriteString("\n")
		return b.String()
	}

	st := m.status

	b.WriteString(headerStyle.Render("Appliance: "))
	b.WriteString(valueStyle.Render(st.Hostname))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Version:   "))
	b.WriteString(valueStyle.Render(st.Version))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Uptime:    "))
	uptime := time.Duration(st.UptimeSeconds * float64(time.Second)).Round(time.Second)
	b.WriteString(valueStyle.Render(uptime.String()))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Intercom"))
	b.WriteString("\n")

	b.WriteString("  State:    ")
	b.WriteString(stateStyle(st.Session.State).Render(st.Session.State))
	if st.Session.ID != "" {
		b.WriteString(valueStyle.Render(fmt.Sprintf("  (session %s)", st.Session.ID)))
	}
	b.WriteString("\n")

	b.WriteString("  Audio:    ")
	if st.Session.Muted {
		b.WriteString(mutedStyle.Render("MUTED"))
	} else {
		b.WriteString(liveStyle.Render("LIVE"))
	}
	b.WriteString("\n")

	b.WriteString(valueStyle.Render(fmt.Sprintf("  Restarts: %d", st.Session.Restarts)))
	b.WriteString("\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("  TX: %.1f pkt/s  RX: %.1f pkt/s  Capture: %.0f samp/s",
		st.Session.SendPacketsPerSec, st.Session.RecvPacketsPerSec, st.Session.CaptureSamplesPerSec)))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Video"))
	b.WriteString("\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("  %.1f fps  (%d frames)", st.Video.FPS, st.Video.Frames)))
	b.WriteString("\n\n")

	if !m.connected {
		b.WriteString(mutedStyle.Render("DISCONNECTED"))
		if m.errText != "" {
			b.WriteString(valueStyle.Render("  " + m.errText))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q:Quit  r:Reconnect"))
	b.WriteString("\n")

	return b.String()
}
