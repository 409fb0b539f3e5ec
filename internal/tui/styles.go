package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title       lipgloss.Style
	Label       lipgloss.Style
	Focused     lipgloss.Style
	Blurred     lipgloss.Style
	Pane        lipgloss.Style
	PaneResults lipgloss.Style
	Item        lipgloss.Style
	Suggestion  lipgloss.Style
	Placeholder lipgloss.Style
	StatusOpen  lipgloss.Style
	StatusDown  lipgloss.Style
	Help        lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1),
		Label:   lipgloss.NewStyle().Bold(true),
		Focused: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		Blurred: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Pane: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1).
			MarginBottom(1).
			Width(60),
		PaneResults: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("78")).
			Padding(0, 1).
			MarginBottom(1).
			Width(60),
		Item:        lipgloss.NewStyle(),
		Suggestion:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true), // yellow
		Placeholder: lipgloss.NewStyle().Faint(true).Italic(true),
		StatusOpen:  lipgloss.NewStyle().Foreground(lipgloss.Color("78")),  // green
		StatusDown:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")), // red
		Help:        lipgloss.NewStyle().Faint(true),
	}
}
