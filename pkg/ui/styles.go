package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette
var (
	Primary = lipgloss.Color("#7D56F4")
	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
	Bright  = lipgloss.Color("#FAFAFA")
)

// styles are bound to one renderer so colour follows the destination
// writer, not the process's stdout.
type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	partial lipgloss.Style
	name    lipgloss.Style
	muted   lipgloss.Style
	item    lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(Primary),
		label:   r.NewStyle().Foreground(Muted).Width(10),
		value:   r.NewStyle().Foreground(Bright).Bold(true),
		ok:      r.NewStyle().Foreground(Success).Bold(true),
		failed:  r.NewStyle().Foreground(Error).Bold(true),
		partial: r.NewStyle().Foreground(Warning).Bold(true),
		name:    r.NewStyle().Width(16),
		muted:   r.NewStyle().Foreground(Muted),
		item:    r.NewStyle().PaddingLeft(4),
	}
}
