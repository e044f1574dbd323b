package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mdp/qrterminal/v3"

	"github.com/exgaso/armory-http/server"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	addrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
)

type refreshMsg struct{}

type tickMsg time.Time

// serverErrMsg carries a fatal server error into the program so the
// dashboard can quit instead of waiting on an address that never comes.
type serverErrMsg struct {
	err error
}

type model struct {
	srvr      *server.Server
	transfers table.Model
	files     table.Model
	showFiles bool
	fatal     error
}

func newModel(srvr *server.Server) model {
	transfers := table.New(
		table.WithColumns([]table.Column{
			{Title: "Client", Width: 18},
			{Title: "File", Width: 28},
			{Title: "Dir", Width: 9},
			{Title: "Sent", Width: 10},
			{Title: "Speed", Width: 12},
		}),
		table.WithHeight(6),
	)

	files := table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 44},
			{Title: "Size", Width: 12},
		}),
		table.WithHeight(12),
	)

	styles := table.DefaultStyles()
	styles.Header = headerStyle
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	transfers.SetStyles(styles)
	files.SetStyles(styles)

	return model{srvr: srvr, transfers: transfers, files: files}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "l":
			m.showFiles = !m.showFiles
			if m.showFiles {
				m.reloadFiles()
			}
			return m, nil
		}
	case serverErrMsg:
		m.fatal = msg.err
		return m, tea.Quit
	case refreshMsg:
		m.reloadTransfers()
		return m, nil
	case tickMsg:
		m.reloadTransfers()
		if m.showFiles {
			m.reloadFiles()
		}
		return m, tick()
	}

	var cmd tea.Cmd
	if m.showFiles {
		m.files, cmd = m.files.Update(msg)
	} else {
		m.transfers, cmd = m.transfers.Update(msg)
	}
	return m, cmd
}

func (m *model) reloadTransfers() {
	state := m.srvr.GetState()

	conns := make([]*server.Conn, 0, len(state.Conns))
	for _, conn := range state.Conns {
		conns = append(conns, conn)
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].ID < conns[j].ID
	})

	rows := make([]table.Row, 0, len(conns))
	for _, conn := range conns {
		client := "unknown"
		if conn.Client != nil {
			client = conn.Client.Host
		}
		sent := humanizeBytes(conn.TotalSent)
		if conn.TotalSize > 0 {
			sent = fmt.Sprintf("%s/%s", humanizeBytes(conn.TotalSent), humanizeBytes(conn.TotalSize))
		}
		rows = append(rows, table.Row{
			client,
			conn.Filename,
			conn.Direction.String(),
			sent,
			humanizeBytes(conn.CurSpeed) + "/s",
		})
	}
	m.transfers.SetRows(rows)
}

func (m *model) reloadFiles() {
	entries, err := os.ReadDir(m.srvr.Root())
	if err != nil {
		m.files.SetRows([]table.Row{{"error reading directory", err.Error()}})
		return
	}

	rows := make([]table.Row, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		size := ""
		if entry.IsDir() {
			name += "/"
		} else if info, err := entry.Info(); err == nil {
			size = humanizeBytes(info.Size())
		}
		rows = append(rows, table.Row{name, size})
	}
	m.files.SetRows(rows)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("armory-http"))
	b.WriteString("\n\n")

	state := m.srvr.GetState()
	if state.Addr == nil {
		b.WriteString("Waiting for the server address...\n")
		b.WriteString(helpStyle.Render("q quit"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(addrStyle.Render("Serving " + state.Dir + " at " + *state.Addr))
	b.WriteString("\n\n")

	qr := &strings.Builder{}
	qrterminal.GenerateWithConfig(*state.Addr, qrterminal.Config{
		Level:          qrterminal.L,
		Writer:         qr,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
	})
	b.WriteString(qr.String())
	b.WriteString("\n")

	if m.showFiles {
		b.WriteString(headerStyle.Render("Served files"))
		b.WriteString("\n")
		b.WriteString(m.files.View())
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("Active transfers: %d", len(state.Conns))))
		b.WriteString("\n")
		b.WriteString(m.transfers.View())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("l toggle file list · q quit"))
	b.WriteString("\n")

	return b.String()
}

func humanizeBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Start runs the dashboard until the operator quits or the server dies.
// The event channel just triggers redraws; all data is pulled from the
// server's state snapshot. A non-nil value on serverErr (a failed bind,
// typically) quits the dashboard and is returned to the caller.
func Start(srvr *server.Server, events <-chan server.ServerEvent, serverErr <-chan error) error {
	p := tea.NewProgram(newModel(srvr), tea.WithAltScreen())

	go func() {
		for range events {
			p.Send(refreshMsg{})
		}
	}()

	go func() {
		if err := <-serverErr; err != nil {
			p.Send(serverErrMsg{err: err})
		}
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(model); ok && m.fatal != nil {
		return m.fatal
	}
	return nil
}
