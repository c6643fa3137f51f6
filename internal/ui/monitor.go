package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/intrepidcs/libicsneo-sub002/internal/message"
)

// DefaultMonitorRows bounds the rows the monitor keeps.
const DefaultMonitorRows = 1000

// MonitorConfig configures the bus monitor
type MonitorConfig struct {
	Title   string // e.g., "SIM001 via sim"
	MaxRows int    // default DefaultMonitorRows
}

type trafficMsg struct{ msg *message.Message }

type sourceClosedMsg struct{}

// Monitor is an interactive table of live traffic.
//
// Keys: q quits, p pauses, c clears.
type Monitor struct {
	config  MonitorConfig
	source  <-chan *message.Message
	table   table.Model
	rows    []table.Row
	total   int
	tx      int
	paused  bool
	closed  bool
	started time.Time
	width   int
	height  int
}

var monitorColumns = []table.Column{
	{Title: "Time (s)", Width: 14},
	{Title: "Network", Width: 10},
	{Title: "Kind", Width: 12},
	{Title: "ID", Width: 10},
	{Title: "Len", Width: 4},
	{Title: "Data", Width: 40},
	{Title: "Flags", Width: 8},
}

// NewMonitor creates a monitor fed by source. Closing source ends the feed
// but keeps the table on screen.
func NewMonitor(config MonitorConfig, source <-chan *message.Message) Monitor {
	if config.MaxRows <= 0 {
		config.MaxRows = DefaultMonitorRows
	}
	width, height := GetTerminalSize()

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(MutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(TextColor).
		Background(PrimaryColor)

	t := table.New(
		table.WithColumns(monitorColumns),
		table.WithFocused(true),
		table.WithHeight(tableHeight(height)),
		table.WithStyles(styles),
	)

	return Monitor{
		config:  config,
		source:  source,
		table:   t,
		started: time.Now(),
		width:   width,
		height:  height,
	}
}

func tableHeight(termHeight int) int {
	// Title, status and table header.
	h := termHeight - 5
	if h < 5 {
		h = 5
	}
	return h
}

func waitForTraffic(source <-chan *message.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-source
		if !ok {
			return sourceClosedMsg{}
		}
		return trafficMsg{msg: msg}
	}
}

// Init implements tea.Model
func (m Monitor) Init() tea.Cmd {
	return waitForTraffic(m.source)
}

// Update implements tea.Model
func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
			return m, nil
		case "c":
			m.rows = nil
			m.table.SetRows(nil)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(tableHeight(msg.Height))
		m.table.SetWidth(msg.Width)
		return m, nil

	case trafficMsg:
		m.total++
		if msg.msg.CAN != nil && msg.msg.CAN.Transmitted {
			m.tx++
		}
		if !m.paused {
			m.rows = append(m.rows, MessageRow(msg.msg))
			if len(m.rows) > m.config.MaxRows {
				m.rows = m.rows[len(m.rows)-m.config.MaxRows:]
			}
			m.table.SetRows(m.rows)
			m.table.GotoBottom()
		}
		return m, waitForTraffic(m.source)

	case sourceClosedMsg:
		m.closed = true
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m Monitor) View() string {
	title := MonitorTitleStyle.Render("icsneo monitor")
	if m.config.Title != "" {
		title += MonitorStatusStyle.Render(m.config.Title)
	}

	state := "live"
	switch {
	case m.closed:
		state = "source closed"
	case m.paused:
		state = "paused"
	}
	elapsed := time.Since(m.started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(m.total) / elapsed
	}
	status := MonitorStatusStyle.Render(fmt.Sprintf(
		"%s · %d messages (%d tx) · %.1f msg/s · q quit · p pause · c clear",
		state, m.total, m.tx, rate))

	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View(), status)
}

// Total returns the number of messages seen, including paused ones
func (m Monitor) Total() int {
	return m.total
}

// Rows returns the rows currently held
func (m Monitor) Rows() []table.Row {
	return m.rows
}

// MessageRow formats one message as a monitor row
func MessageRow(msg *message.Message) table.Row {
	ts := fmt.Sprintf("%.6f", float64(msg.Timestamp)/1e9)
	id := ""
	var flags []string
	if f := msg.CAN; f != nil {
		if f.IsExtended {
			id = fmt.Sprintf("%08X", f.ArbID)
			flags = append(flags, "X")
		} else {
			id = fmt.Sprintf("%03X", f.ArbID)
		}
		if f.IsCANFD {
			flags = append(flags, "FD")
		}
		if f.BRS {
			flags = append(flags, "B")
		}
		if f.IsRemote {
			flags = append(flags, "R")
		}
		if f.Transmitted {
			flags = append(flags, "TX")
		}
	} else if msg.HasCommand {
		id = msg.Command.String()
	}

	data := fmt.Sprintf("% X", msg.Data)
	if len(data) > 40 {
		data = data[:37] + "..."
	}

	return table.Row{
		ts,
		msg.Network.String(),
		msg.Kind.String(),
		id,
		fmt.Sprintf("%d", len(msg.Data)),
		data,
		strings.Join(flags, " "),
	}
}

// RunMonitor runs the monitor full screen until the user quits
func RunMonitor(config MonitorConfig, source <-chan *message.Message) error {
	_, err := tea.NewProgram(NewMonitor(config, source), tea.WithAltScreen()).Run()
	return err
}
