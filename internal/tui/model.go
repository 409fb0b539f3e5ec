// Package tui is a terminal front-end with several live-search widgets
// sharing one connection.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/omochice/live-search/internal/search"
	"github.com/omochice/live-search/pkg/protocol"
)

// SessionFactory creates the search session behind a widget.
type SessionFactory interface {
	NewSession(input search.Input, surface search.Surface, hooks search.Hooks) *search.Session
}

// WidgetSpec describes one search widget.
type WidgetSpec struct {
	Label       string
	Placeholder string
	// Filter hides results from this widget only, e.g. search.Exclude.
	Filter func(protocol.Result) bool
}

// RedrawMsg asks the model to re-render after a pane changed.
type RedrawMsg struct{}

type statusMsg time.Time

const statusInterval = 500 * time.Millisecond

type widget struct {
	label   string
	field   textinput.Model
	input   *Input
	pane    *Pane
	session *search.Session
}

// Model represents the UI state
type Model struct {
	widgets []*widget
	focus   int
	styles  *Styles
	status  func() string
	open    func() bool
}

// New creates the model and one session per spec. status and open report
// the shared connection for the status line.
func New(sessions SessionFactory, specs []WidgetSpec, status func() string, open func() bool) *Model {
	m := &Model{
		styles: NewStyles(),
		status: status,
		open:   open,
	}

	for _, spec := range specs {
		field := textinput.New()
		field.Placeholder = spec.Placeholder
		field.Prompt = "> "
		field.CharLimit = 200

		hooks := Hooks()
		hooks.Filter = spec.Filter

		w := &widget{
			label: spec.Label,
			field: field,
			input: &Input{},
			pane:  NewPane(),
		}
		w.session = sessions.NewSession(w.input, w.pane, hooks)
		m.widgets = append(m.widgets, w)
	}

	m.setFocus(0)
	return m
}

// Attach routes pane change notifications to p.
func (m *Model) Attach(p *tea.Program) {
	for _, w := range m.widgets {
		w.pane.SetNotify(func() { p.Send(RedrawMsg{}) })
	}
}

// Panes returns the result pane of every widget, in display order.
func (m *Model) Panes() []*Pane {
	out := make([]*Pane, len(m.widgets))
	for i, w := range m.widgets {
		out[i] = w.pane
	}
	return out
}

// Inputs returns the polled input of every widget, in display order.
func (m *Model) Inputs() []*Input {
	out := make([]*Input, len(m.widgets))
	for i, w := range m.widgets {
		out[i] = w.input
	}
	return out
}

// Focus returns the index of the focused widget.
func (m *Model) Focus() int {
	return m.focus
}

// Dispose unregisters every session.
func (m *Model) Dispose() {
	for _, w := range m.widgets {
		w.session.Dispose()
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, statusTick())
}

func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return statusMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "down":
			m.setFocus((m.focus + 1) % len(m.widgets))
			return m, nil
		case "shift+tab", "up":
			m.setFocus((m.focus - 1 + len(m.widgets)) % len(m.widgets))
			return m, nil
		}
	case RedrawMsg:
		return m, nil
	case statusMsg:
		return m, statusTick()
	}

	if len(m.widgets) == 0 {
		return m, nil
	}
	w := m.widgets[m.focus]
	var cmd tea.Cmd
	w.field, cmd = w.field.Update(msg)
	w.input.set(w.field.Value(), w.field.Focused())
	return m, cmd
}

func (m *Model) setFocus(i int) {
	if len(m.widgets) == 0 {
		return
	}
	m.focus = i
	for j, w := range m.widgets {
		if j == i {
			w.field.Focus()
			w.field.PromptStyle = m.styles.Focused
		} else {
			w.field.Blur()
			w.field.PromptStyle = m.styles.Blurred
		}
		w.input.set(w.field.Value(), w.field.Focused())
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("isiXhosa live search"))
	b.WriteString("\n")

	for _, w := range m.widgets {
		b.WriteString(m.styles.Label.Render(w.label))
		b.WriteString("\n")
		b.WriteString(w.field.View())
		b.WriteString("\n")
		b.WriteString(w.pane.Render(m.styles))
		b.WriteString("\n")
	}

	if m.status != nil {
		style := m.styles.StatusDown
		if m.open != nil && m.open() {
			style = m.styles.StatusOpen
		}
		b.WriteString(style.Render("connection: " + m.status()))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Render("tab/shift+tab: switch field • esc: quit"))
	return b.String()
}
