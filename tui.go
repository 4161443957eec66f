package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"intentdeck/activity"
	"intentdeck/clipboard"
	"intentdeck/display"
	"intentdeck/intent"
	"intentdeck/recorder"
	"intentdeck/visualizer"
)

type snapshotMsg recorder.Snapshot
type displayMsg display.View
type frameMsg struct{ token uint64 }

// actionMsg reports the outcome of a recorder call run off the event loop.
type actionMsg struct {
	action string
	err    error
}

const (
	panelHeight = 10
	minLeft     = 40
)

type tuiModel struct {
	app *app

	width, height int
	snap          recorder.Snapshot
	view          display.View
	entries       []activity.Entry
	deviceLine    string

	status    string
	statusErr bool
	copied    bool

	prompting bool
	input     []rune
}

func newTUIModel(a *app) tuiModel {
	return tuiModel{
		app:        a,
		entries:    activity.Seed(),
		deviceLine: deviceLineText(a.device),
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	readyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	intentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
)

func frameTick(token uint64) tea.Cmd {
	return tea.Tick(visualizer.FrameInterval, func(time.Time) tea.Msg {
		return frameMsg{token: token}
	})
}

// Recorder calls notify the sink, which sends to the program, so they
// must never run inside Update.
func (m tuiModel) do(action string, fn func() error) tea.Cmd {
	return func() tea.Msg { return actionMsg{action: action, err: fn()} }
}

func (m tuiModel) Init() tea.Cmd {
	snap := m.app.rec.Snapshot()
	return func() tea.Msg { return snapshotMsg(snap) }
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.app.vis.Resize(m.leftWidth()-2, panelHeight)

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.updateKey(msg)

	case snapshotMsg:
		s := recorder.Snapshot(msg)
		if s.Seq <= m.snap.Seq {
			return m, nil
		}
		m.snap = s
		if s.Err != nil {
			m.setStatus(s.Err.Error(), true)
		}
		if token, start := m.app.vis.Update(s.IsRecording(), s.URL); start {
			return m, frameTick(token)
		}

	case frameMsg:
		if m.app.vis.Frame(msg.token) {
			return m, frameTick(msg.token)
		}

	case displayMsg:
		m.view = display.View(msg)
		m.copied = false

	case actionMsg:
		switch {
		case msg.err == nil:
			if msg.action == "upload" {
				m.setStatus("file loaded", false)
			}
		case errors.Is(msg.err, recorder.ErrStale):
		default:
			m.setStatus(msg.action+": "+msg.err.Error(), true)
		}
	}
	return m, nil
}

func (m *tuiModel) setStatus(text string, isErr bool) {
	m.status, m.statusErr = text, isErr
}

func (m tuiModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rec := m.app.rec
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r":
		m.setStatus("", false)
		return m, m.do("record", rec.Start)
	case "s":
		return m, m.do("stop", func() error { rec.Stop(); return nil })
	case "a", "enter":
		m.setStatus("", false)
		return m, m.do("analyze", func() error {
			_, err := rec.Analyze(context.Background())
			return err
		})
	case "x":
		m.setStatus("", false)
		return m, m.do("reset", func() error { rec.Reset(); return nil })
	case "u":
		m.prompting = true
		m.input = m.input[:0]
	case "c":
		if m.view.Status != display.Showing {
			return m, nil
		}
		if err := clipboard.Copy(m.view.Result.Intent); err != nil {
			m.setStatus("copy: "+err.Error(), true)
			return m, nil
		}
		m.copied = true
	}
	return m, nil
}

func (m tuiModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.prompting = false
	case tea.KeyEnter:
		m.prompting = false
		path := string(m.input)
		a := m.app
		return m, m.do("upload", func() error { return a.uploadFile(path) })
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

func (m tuiModel) leftWidth() int {
	return max(minLeft, m.width*3/5)
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	left := m.leftWidth()
	right := max(20, m.width-left-1)

	leftPanel := lipgloss.NewStyle().Width(left).Render(m.viewLeft(left))
	rightPanel := lipgloss.NewStyle().Width(right).PaddingLeft(1).Render(m.viewRight(right - 1))
	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m tuiModel) viewLeft(width int) string {
	var lines []string
	lines = append(lines, titleStyle.Render("intentdeck"), "")
	lines = append(lines, panelStyle.Width(width-2).Render(m.app.vis.View()))
	lines = append(lines, m.stateLine())
	if r := m.snap.Clip; r != nil && m.snap.State != recorder.Recording {
		detail := fmt.Sprintf("%s · %s · %.1fs", r.Name, r.MIME, r.Duration.Seconds())
		lines = append(lines, dimStyle.Render(detail))
		if r.Source == recorder.SourceMic && !r.Voiced {
			lines = append(lines, warnStyle.Render("⚠ no voice detected"))
		}
	}
	lines = append(lines, dimStyle.Render(m.deviceLine))
	if m.status != "" {
		style := dimStyle
		if m.statusErr {
			style = errStyle
		}
		lines = append(lines, style.Render(m.status))
	}
	lines = append(lines, "")
	if m.prompting {
		lines = append(lines, keyStyle.Render("upload: ")+string(m.input)+"█")
		lines = append(lines, helpStyle.Render("enter to load, esc to cancel"))
	} else {
		lines = append(lines, helpLine())
	}
	lines = append(lines, helpStyle.Render("intentdeck "+version))
	return strings.Join(lines, "\n")
}

func helpLine() string {
	keys := []struct{ key, label string }{
		{"r", "record"}, {"s", "stop"}, {"a", "analyze"}, {"x", "reset"},
		{"u", "upload"}, {"c", "copy"}, {"q", "quit"},
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = keyStyle.Render(k.key) + helpStyle.Render(" "+k.label)
	}
	return strings.Join(parts, helpStyle.Render("  "))
}

func (m tuiModel) stateLine() string {
	switch m.snap.State {
	case recorder.Recording:
		return recStyle.Render(fmt.Sprintf("● REC %d", m.snap.Countdown))
	case recorder.Processing:
		return busyStyle.Render("◌ PROCESSING")
	case recorder.Ready:
		return readyStyle.Render("■ READY")
	}
	return dimStyle.Render("○ IDLE")
}

func (m tuiModel) viewRight(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Intent") + "\n\n")
	switch m.view.Status {
	case display.Analyzing:
		b.WriteString(busyStyle.Render("Analyzing...") + "\n")
	case display.Showing:
		label := m.view.Result.Intent
		line := intentStyle.Render(intent.Glyph(label) + " " + label)
		if m.view.Result.Failed {
			line = errStyle.Render(label)
		}
		if m.copied {
			line += " " + readyStyle.Render("[✓ copied]")
		}
		b.WriteString(line + "\n")
		if m.view.Result.Failed {
			break
		}
		if intent.Known(label) {
			b.WriteString(dimStyle.Render(intent.Describe(label)) + "\n")
		}
		for _, e := range m.view.Result.Entities {
			b.WriteString(dimStyle.Render(e.Type+": "+e.Value) + "\n")
		}
	default:
		b.WriteString(dimStyle.Render("Record or upload audio, then analyze.") + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("Recent activity") + "\n\n")
	for _, e := range m.entries {
		b.WriteString(intentStyle.Render(e.Glyph()) + " " + truncate(e.Transcript, width-2) + "\n")
		b.WriteString(dimStyle.Render("  "+e.Intent+" · "+activity.FormatTime(e.Timestamp)) + "\n")
	}
	return b.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
