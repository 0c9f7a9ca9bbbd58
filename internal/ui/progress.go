// Package ui renders live progress for `brick check --ui`.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"brick/internal/driver"
)

type progressModel struct {
	title      string
	events     <-chan driver.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []funcItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type funcItem struct {
	name   string
	status string
	cached bool
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model listing funcs and updating
// their status from events until the channel is closed.
func NewProgressModel(title string, funcs []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]funcItem, len(funcs))
	index := make(map[string]int, len(funcs))
	for i, name := range funcs {
		items[i] = funcItem{name: name, status: "queued"}
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(driver.Event(msg)), m.listen())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth = 10
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.items {
		status := item.status
		if item.cached {
			status = "cached"
		}
		styled := styleStatus(status).Render(fmt.Sprintf("%*s", statusWidth, status))
		fmt.Fprintf(&b, "  %s %s\n", styled, truncate(item.name, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) apply(ev driver.Event) tea.Cmd {
	if ev.Func == "" {
		m.stageLabel = fmt.Sprintf("%s %s", ev.Stage, ev.Status)
		return nil
	}
	idx, ok := m.index[ev.Func]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	switch {
	case ev.Stage == driver.StageCache && ev.Status == driver.StatusDone:
		item.status, item.cached = "done", true
	case ev.Status == driver.StatusWorking:
		item.status = "checking"
	default:
		item.status = string(ev.Status)
	}
	return m.prog.SetPercent(m.fraction())
}

// fraction counts finished functions as 1 and running ones as 1/2.
func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 {
		return 1
	}
	total := 0.0
	for _, item := range m.items {
		switch item.status {
		case "done", "error":
			total++
		case "checking":
			total += 0.5
		}
	}
	return total / float64(len(m.items))
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "cached":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "checking":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
