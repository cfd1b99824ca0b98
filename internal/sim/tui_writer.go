package sim

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"journey-sim/internal/config"
	"journey-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// recordMsg carries one published record for the log and counters.
type recordMsg struct {
	channel string
	kind    telemetry.Kind
	line    string
}

// statusMsg carries journey progress after a tick.
type statusMsg struct{ Status }

const maxLogLines = 500

// TUIWriter renders published records in a bubbletea dashboard.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
// Quitting the dashboard interrupts the process so the journey stops.
func NewTUIWriter(cfg *config.JourneyConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements RecordWriter.
func (w *TUIWriter) Write(_ context.Context, channel string, rec telemetry.Record) error {
	line := fmt.Sprintf("[%s] %-8s %s %s",
		recordTime(rec).Format(time.RFC3339), rec.Kind(), rec.RecordID(), summarize(rec))
	w.program.Send(recordMsg{channel: channel, kind: rec.Kind(), line: line})
	return nil
}

// ObserveTick implements TickObserver.
func (w *TUIWriter) ObserveTick(st Status) {
	w.program.Send(statusMsg{st})
}

// Close stops the dashboard and waits for it to restore the terminal.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg        *config.JourneyConfig
	table      table.Model
	vp         viewport.Model
	logs       []string
	counts     map[telemetry.Kind]int
	status     Status
	wrap       bool
	autoscroll bool
	header     string
	height     int
}

func newTUIModel(cfg *config.JourneyConfig) tuiModel {
	cols := []table.Column{
		{Title: "Kind", Width: 10},
		{Title: "Channel", Width: 20},
		{Title: "Published", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(len(telemetry.Kinds)+1))
	m := tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		counts:     make(map[telemetry.Kind]int),
		autoscroll: true,
	}
	if cfg != nil {
		m.status.DeviceID = cfg.DeviceID
	}
	m.refreshTable()
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "a":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case recordMsg:
		m.counts[msg.kind]++
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshTable()
		m.refreshViewport()
	case statusMsg:
		m.status = msg.Status
		m.header = m.renderHeader()
		m.updateViewportHeight()
	}
	return m, nil
}

func (m *tuiModel) refreshTable() {
	rows := make([]table.Row, 0, len(telemetry.Kinds))
	for _, k := range telemetry.Kinds {
		channel := ""
		if m.cfg != nil {
			channel = m.cfg.Topics.For(k)
		}
		rows = append(rows, table.Row{string(k), channel, strconv.Itoa(m.counts[k])})
	}
	m.table.SetRows(rows)
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - lipgloss.Height(m.header) - lipgloss.Height(m.table.View()) - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render("journey " + m.status.DeviceID)
	st := m.status
	state := "running"
	switch {
	case st.Completed:
		state = "arrived"
	case !st.Running && st.Ticks == 0:
		state = "waiting"
	}
	progress := fmt.Sprintf("tick %d  emitted %d  lat=%.5f lon=%.5f  %.1f km to go  %s",
		st.Ticks, st.Emitted, st.Position.Lat, st.Position.Lon, st.RemainingKM, state)
	if !st.Clock.IsZero() {
		progress += "  clock " + st.Clock.Format(time.RFC3339)
	}
	return title + "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(progress)
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	help := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("q quit • w wrap • a autoscroll")
	return strings.Join([]string{
		m.header,
		divider,
		m.table.View(),
		divider,
		m.vp.View(),
		help,
	}, "\n")
}
