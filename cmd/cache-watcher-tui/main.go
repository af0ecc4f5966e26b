// cache-watcher-tui renders a live terminal dashboard of a running
// query server: cache occupancy, hit rate and source traffic, fed by
// the /api/v1/stream websocket.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fillbot/gofill/internal/server"
)

const barWidth = 24

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")) // green

	badStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")) // red

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// model is the application state.
type model struct {
	addr string

	conn       *gorillaWS.Conn
	connected  bool
	connecting bool

	stats      server.Stats
	haveStats  bool
	lastUpdate time.Time

	err error
}

// tickMsg drives the clock and reconnection attempts.
type tickMsg time.Time

// connectedMsg carries a freshly dialed stream connection.
type connectedMsg struct {
	conn *gorillaWS.Conn
}

// statsMsg is one snapshot read off the stream.
type statsMsg server.Stats

// streamErrMsg reports a failed dial or a broken stream.
type streamErrMsg struct {
	err error
}

func initialModel(addr string) model {
	return model{addr: addr, connecting: true}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		connectCmd(m.addr),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.conn != nil {
				_ = m.conn.Close()
			}
			return m, tea.Quit
		}

	case tickMsg:
		if !m.connected && !m.connecting {
			m.connecting = true
			return m, tea.Batch(tickCmd(), connectCmd(m.addr))
		}
		return m, tickCmd()

	case connectedMsg:
		m.conn = msg.conn
		m.connected = true
		m.connecting = false
		m.err = nil
		return m, listenCmd(m.conn)

	case statsMsg:
		m.stats = server.Stats(msg)
		m.haveStats = true
		m.lastUpdate = time.Now()
		if m.conn != nil {
			return m, listenCmd(m.conn)
		}
		return m, nil

	case streamErrMsg:
		if m.conn != nil {
			_ = m.conn.Close()
			m.conn = nil
		}
		m.connected = false
		m.connecting = false
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	status := goodStyle.Render("connected")
	if !m.connected {
		if m.connecting {
			status = dimStyle.Render("connecting...")
		} else {
			status = badStyle.Render("reconnecting")
		}
	}
	header := headerStyle.Render(fmt.Sprintf("fill cache watcher | ws://%s/api/v1/stream | %s", m.addr, status))
	s.WriteString(header)
	s.WriteString("\n\n")

	if !m.haveStats {
		if m.err != nil {
			s.WriteString(badStyle.Render(fmt.Sprintf("stream error: %v", m.err)))
			s.WriteString("\n\n")
		}
		s.WriteString("waiting for first snapshot...\n\npress q to quit")
		return s.String()
	}

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCachePanel(m.stats), "  ", renderTrafficPanel(m.stats))
	s.WriteString(panels)
	s.WriteString("\n\n")

	age := time.Since(m.lastUpdate).Round(time.Second)
	footer := fmt.Sprintf("uptime %s | last update %s ago | press q to quit",
		(time.Duration(m.stats.UptimeSeconds) * time.Second).String(), age)
	if m.err != nil {
		footer += badStyle.Render(fmt.Sprintf(" | %v", m.err))
	}
	s.WriteString(dimStyle.Render(footer))
	s.WriteString("\n")

	return s.String()
}

func renderCachePanel(st server.Stats) string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Bucket cache"))
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("buckets   %s\n",
		valueStyle.Render(fmt.Sprintf("%d / %d", st.CacheLen, st.CacheCap))))
	s.WriteString(fmt.Sprintf("          %s\n\n", renderBar(st.CacheLen, st.CacheCap)))

	s.WriteString(fmt.Sprintf("stored    %d\n", st.Counters["buckets_stored"]))
	s.WriteString(fmt.Sprintf("evicted   %d\n", st.Counters["buckets_evicted"]))
	s.WriteString(fmt.Sprintf("prefetch  %d\n", st.Counters["prefetch_buckets"]))

	return borderStyle.Render(s.String())
}

func renderTrafficPanel(st server.Stats) string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Queries and source"))
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("queries   %s\n", valueStyle.Render(fmt.Sprintf("%d", st.Counters["queries_total"]))))
	errs := st.Counters["query_errors"]
	errStr := fmt.Sprintf("%d", errs)
	if errs > 0 {
		errStr = badStyle.Render(errStr)
	}
	s.WriteString(fmt.Sprintf("errors    %s\n\n", errStr))

	hits, misses := st.Counters["cache_hits"], st.Counters["cache_misses"]
	rate := "--"
	if hits+misses > 0 {
		rate = fmt.Sprintf("%.1f%%", 100*float64(hits)/float64(hits+misses))
	}
	s.WriteString(fmt.Sprintf("hit rate  %s  (%d hits, %d misses)\n\n", goodStyle.Render(rate), hits, misses))

	s.WriteString(fmt.Sprintf("fetches   %d (%d failed)\n", st.Counters["adapter_calls"], st.Counters["adapter_errors"]))
	s.WriteString(fmt.Sprintf("fills     %d\n", st.Counters["fills_fetched"]))

	return borderStyle.Render(s.String())
}

func renderBar(used, capacity int) string {
	if capacity <= 0 {
		return strings.Repeat("-", barWidth)
	}
	filled := used * barWidth / capacity
	if filled > barWidth {
		filled = barWidth
	}
	return goodStyle.Render(strings.Repeat("#", filled)) + dimStyle.Render(strings.Repeat("-", barWidth-filled))
}

// Commands

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func connectCmd(addr string) tea.Cmd {
	return func() tea.Msg {
		u := url.URL{Scheme: "ws", Host: addr, Path: "/api/v1/stream"}
		dialer := gorillaWS.Dialer{HandshakeTimeout: 30 * time.Second}
		conn, resp, err := dialer.Dial(u.String(), nil)
		if err != nil {
			return streamErrMsg{err: fmt.Errorf("dial %s: %w", u.String(), err)}
		}
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return connectedMsg{conn: conn}
	}
}

func listenCmd(conn *gorillaWS.Conn) tea.Cmd {
	return func() tea.Msg {
		var st server.Stats
		if err := conn.ReadJSON(&st); err != nil {
			return streamErrMsg{err: err}
		}
		return statsMsg(st)
	}
}

func main() {
	addr := flag.String("addr", getenv("FILLQUERY_SERVER_ADDR", "localhost:8080"), "query server host:port")
	flag.Parse()

	// Redirect logrus to a file so nothing scribbles over the TUI.
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logDir = os.TempDir()
	}
	logFile := filepath.Join(logDir, "cache-watcher-tui.log")
	if file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
		logrus.SetOutput(file)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   true,
		})
	}

	if len(os.Getenv("DEBUG")) > 0 {
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
	}

	p := tea.NewProgram(initialModel(normalizeAddr(*addr)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("run program: %v", err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// normalizeAddr strips scheme and trailing slash so both
// "http://host:port/" and "host:port" work.
func normalizeAddr(addr string) string {
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "ws://")
	return strings.TrimSuffix(addr, "/")
}
