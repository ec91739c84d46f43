package ui

import "github.com/charmbracelet/lipgloss"

var (
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
	Subtext0 = lipgloss.Color("#a6adc8")
	Surface1 = lipgloss.Color("#45475a")
)

// styles are bound to one renderer so colour follows the output writer.
type styles struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	hot     lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
	barFull lipgloss.Style
	barRest lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Foreground(Sapphire).Bold(true),
		ok:      r.NewStyle().Foreground(Green).Bold(true),
		hot:     r.NewStyle().Foreground(Peach).Bold(true),
		err:     r.NewStyle().Foreground(Red).Bold(true),
		muted:   r.NewStyle().Foreground(Subtext0),
		barFull: r.NewStyle().Foreground(Green),
		barRest: r.NewStyle().Foreground(Surface1),
	}
}
