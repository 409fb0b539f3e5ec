package search

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/omochice/live-search/pkg/protocol"
)

// Node is an element of a rendered result set.
type Node interface {
	Append(child Node)
}

// Surface is the bound results area of a widget.
type Surface interface {
	Append(child Node)
	// Clear removes every rendered node.
	Clear()
	// SetHasResults toggles the presentational "has results" flag.
	SetHasResults(bool)
}

// Input is the bound input control of a widget.
type Input interface {
	Value() string
	Focused() bool
}

// Hooks is the renderer capability set injected into a session.
// Item is required. Without Placeholder an empty result set renders nothing;
// the rest have neutral defaults.
type Hooks struct {
	// Container returns the node results are grouped in, or nil to attach
	// items directly to the surface.
	Container func() Node
	// Item builds the node for one result.
	Item func(text string, id uint64, isSuggestion bool) Node
	// PostItem runs after the item has been attached.
	PostItem func(item Node)
	// Wrapper returns an optional wrapper for the item and the node inside
	// it that the item is appended to.
	Wrapper func(id uint64, isSuggestion bool) (wrapper Node, inner Node)
	// Filter drops results that should not be shown.
	Filter func(r protocol.Result) bool
	// Format turns a result into the text handed to Item.
	Format func(r protocol.Result) string
	// Placeholder builds the "no results" node.
	Placeholder func() Node
}

func (h Hooks) withDefaults() Hooks {
	if h.Container == nil {
		h.Container = func() Node { return nil }
	}
	if h.PostItem == nil {
		h.PostItem = func(Node) {}
	}
	if h.Wrapper == nil {
		h.Wrapper = func(uint64, bool) (Node, Node) { return nil, nil }
	}
	if h.Filter == nil {
		h.Filter = func(protocol.Result) bool { return true }
	}
	if h.Format == nil {
		h.Format = PlainText
	}
	return h
}

// Exclude returns a filter that hides one entry, e.g. the word being edited
// from its own duplicate search.
func Exclude(id uint64, isSuggestion bool) func(protocol.Result) bool {
	return func(r protocol.Result) bool {
		return !(r.ID == id && r.IsSuggestion == isSuggestion)
	}
}

// PlainText renders a result as a single line of text. Results carrying
// pre-rendered markup in "html" are reduced to their text content.
func PlainText(r protocol.Result) string {
	if markup := r.Text("html"); markup != "" {
		return htmlText(markup)
	}

	english, xhosa := r.Text("english"), r.Text("xhosa")
	switch {
	case english != "" && xhosa != "":
		return english + " - " + xhosa
	case english != "":
		return english
	default:
		return xhosa
	}
}

func htmlText(markup string) string {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return markup
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
