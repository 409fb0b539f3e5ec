package tui

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/omochice/live-search/internal/search"
)

// Kind selects how a Line is styled.
type Kind int

const (
	KindGroup Kind = iota
	KindItem
	KindSuggestion
	KindPlaceholder
)

// Line is a node of a rendered result pane.
type Line struct {
	Kind     Kind
	Text     string
	Children []*Line
}

// Append implements search.Node.
func (l *Line) Append(child search.Node) {
	l.Children = append(l.Children, child.(*Line))
}

func (l *Line) render(b *strings.Builder, styles *Styles) {
	switch l.Kind {
	case KindItem:
		b.WriteString(styles.Item.Render(l.Text))
		b.WriteString("\n")
	case KindSuggestion:
		b.WriteString(styles.Suggestion.Render(l.Text + " (suggested)"))
		b.WriteString("\n")
	case KindPlaceholder:
		b.WriteString(styles.Placeholder.Render(l.Text))
		b.WriteString("\n")
	}
	for _, c := range l.Children {
		c.render(b, styles)
	}
}

// Pane is the results surface of one widget. It is written from the
// transport goroutine and read by the UI loop.
type Pane struct {
	mu         sync.Mutex
	root       Line
	hasResults bool
	notify     func()
	pending    atomic.Bool
}

func NewPane() *Pane {
	return &Pane{}
}

// Append implements search.Surface.
func (p *Pane) Append(child search.Node) {
	p.mu.Lock()
	p.root.Append(child)
	p.mu.Unlock()
	p.changed()
}

// Clear implements search.Surface.
func (p *Pane) Clear() {
	p.mu.Lock()
	p.root.Children = nil
	p.mu.Unlock()
	p.changed()
}

// SetHasResults implements search.Surface.
func (p *Pane) SetHasResults(v bool) {
	p.mu.Lock()
	p.hasResults = v
	p.mu.Unlock()
	p.changed()
}

func (p *Pane) HasResults() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasResults
}

// SetNotify sets the function called after the pane changed.
func (p *Pane) SetNotify(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notify = fn
}

// changed coalesces notifications so a burst of appends posts one redraw.
func (p *Pane) changed() {
	p.mu.Lock()
	notify := p.notify
	p.mu.Unlock()
	if notify == nil || !p.pending.CompareAndSwap(false, true) {
		return
	}
	go func() {
		p.pending.Store(false)
		notify()
	}()
}

// Render returns the pane contents styled for display.
func (p *Pane) Render(styles *Styles) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	p.root.render(&b, styles)
	body := strings.TrimSuffix(b.String(), "\n")
	if p.hasResults {
		return styles.PaneResults.Render(body)
	}
	return styles.Pane.Render(body)
}

// Lines returns the plain text of every rendered line, in order.
func (p *Pane) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	var walk func(l *Line)
	walk = func(l *Line) {
		if l.Kind != KindGroup {
			out = append(out, l.Text)
		}
		for _, c := range l.Children {
			walk(c)
		}
	}
	walk(&p.root)
	return out
}

// Input mirrors a textinput's value and focus for the poll loop.
type Input struct {
	mu      sync.RWMutex
	value   string
	focused bool
}

func (i *Input) set(value string, focused bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.value = value
	i.focused = focused
}

// Value implements search.Input.
func (i *Input) Value() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.value
}

// Focused implements search.Input.
func (i *Input) Focused() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.focused
}

// Hooks renders results as a group of styled lines.
func Hooks() search.Hooks {
	return search.Hooks{
		Container: func() search.Node {
			return &Line{Kind: KindGroup}
		},
		Item: func(text string, id uint64, isSuggestion bool) search.Node {
			if isSuggestion {
				return &Line{Kind: KindSuggestion, Text: text}
			}
			return &Line{Kind: KindItem, Text: text}
		},
		Placeholder: func() search.Node {
			return &Line{Kind: KindPlaceholder, Text: "No results"}
		},
	}
}

var (
	_ search.Surface = (*Pane)(nil)
	_ search.Node    = (*Line)(nil)
	_ search.Input   = (*Input)(nil)
)
