package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/driver/mock"
	"github.com/wippyai/objtrack/layer"
	"github.com/wippyai/objtrack/replay"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	callStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD866"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))
)

type keyMap struct {
	Step key.Binding
	All  key.Binding
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Step, k.All, k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Step: key.NewBinding(key.WithKeys("n", "enter", " "), key.WithHelp("n", "step")),
	All:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run to end")),
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "select")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "select")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type interactiveModel struct {
	err      error
	runner   *replay.Runner
	layer    *layer.Layer
	help     help.Model
	detail   viewport.Model
	selected int
	width    int
}


func newInteractiveModel(l *layer.Layer, drv *mock.Driver, script *replay.Script) *interactiveModel {
	return &interactiveModel{
		runner: replay.NewRunner(l, drv, script),
		layer:  l,
		help:   help.New(),
		detail: viewport.New(80, 8),
	}
}

func (m *interactiveModel) Init() tea.Cmd { return nil }

// The runner is not safe for concurrent use, so steps run inside Update.
func (m *interactiveModel) step() error {
	_, err := m.runner.Step(context.Background())
	return err
}

func (m *interactiveModel) apply(err error) {
	if err != nil {
		m.err = err
		return
	}
	m.selected = len(m.runner.Outcome().Steps) - 1
	m.showDetail()
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.detail.Width = msg.Width - 2
		m.detail.Height = max(msg.Height/3, 4)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Step):
			if m.err == nil && !m.runner.Done() {
				m.apply(m.step())
			}
		case key.Matches(msg, keys.All):
			for m.err == nil && !m.runner.Done() {
				m.apply(m.step())
			}
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
				m.showDetail()
			}
		case key.Matches(msg, keys.Down):
			if m.selected < len(m.runner.Outcome().Steps)-1 {
				m.selected++
				m.showDetail()
			}
		}
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *interactiveModel) showDetail() {
	steps := m.runner.Outcome().Steps
	if m.selected >= len(steps) {
		m.detail.SetContent("")
		return
	}
	st := steps[m.selected]

	var b strings.Builder
	b.WriteString(st.Call.String())
	b.WriteString("\n")
	if len(st.Call.Out) > 0 {
		fmt.Fprintf(&b, "out: %v\n", st.Call.Out)
	}
	for _, v := range st.Violations {
		b.WriteString(severityStyle(v.Severity).Render(fmt.Sprintf("%-8s %s", v.Severity, v.ID)))
		b.WriteString("\n  ")
		b.WriteString(v.Message)
		b.WriteString("\n")
	}
	for _, mm := range st.Mismatches {
		b.WriteString(errorStyle.Render("mismatch: " + mm))
		b.WriteString("\n")
	}
	m.detail.SetContent(b.String())
	m.detail.GotoTop()
}

func severityStyle(s diag.Severity) lipgloss.Style {
	switch {
	case s.Has(diag.SeverityError):
		return errorStyle
	case s.Has(diag.SeverityWarning):
		return warnStyle
	}
	return doneStyle
}

func (m *interactiveModel) View() string {
	var b strings.Builder
	script := m.runner.Script()

	b.WriteString(titleStyle.Render("objtrack"))
	b.WriteString(" ")
	b.WriteString(script.Name)
	b.WriteString("\n\n")

	steps := m.runner.Outcome().Steps
	for i, st := range script.Steps {
		line := fmt.Sprintf("%3d  %s", i+1, st.Call)
		switch {
		case i < len(steps):
			res := steps[i]
			status := okStyle.Render(res.Result.String())
			if len(res.Violations) > 0 || len(res.Mismatches) > 0 {
				status = errorStyle.Render(fmt.Sprintf("%s (%d)", res.Result, len(res.Violations)+len(res.Mismatches)))
			}
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString(doneStyle.Render("  " + line))
			}
			b.WriteString("  ")
			b.WriteString(status)
		case i == m.runner.Next():
			b.WriteString("  ")
			b.WriteString(callStyle.Render(line))
			b.WriteString("  <- next")
		default:
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(paneStyle.Render(m.detail.View()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else if m.runner.Done() {
		stats := m.layer.Stats()
		summary := fmt.Sprintf("done: %d violations", stats.TotalViolations())
		if err := m.runner.Outcome().Err(); err != nil {
			b.WriteString(errorStyle.Render(summary + ", expectations failed"))
		} else {
			b.WriteString(okStyle.Render(summary))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(keys))
	return b.String()
}

func runInteractive(l *layer.Layer, drv *mock.Driver, script *replay.Script) error {
	p := tea.NewProgram(newInteractiveModel(l, drv, script), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
