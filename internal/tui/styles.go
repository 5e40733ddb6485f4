package tui

import "github.com/charmbracelet/lipgloss"

var (
	forest = lipgloss.Color("#2E7D32")
	moss   = lipgloss.Color("#8BC34A")
	amber  = lipgloss.Color("#FFC107")
	red    = lipgloss.Color("#E53935")
	bark   = lipgloss.Color("#6D4C41")
	faint  = lipgloss.Color("#9E9E9E")
)

type styles struct {
	Header   lipgloss.Style
	Title    lipgloss.Style
	Footer   lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Correct  lipgloss.Style
	Wrong    lipgloss.Style
	Error    lipgloss.Style
	XP       lipgloss.Style
	Card     lipgloss.Style
	Image    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(forest).Padding(0, 1),
		Title:    lipgloss.NewStyle().Bold(true).Foreground(forest),
		Footer:   lipgloss.NewStyle().Foreground(faint),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(moss),
		Muted:    lipgloss.NewStyle().Foreground(faint),
		Correct:  lipgloss.NewStyle().Bold(true).Foreground(moss),
		Wrong:    lipgloss.NewStyle().Bold(true).Foreground(red),
		Error:    lipgloss.NewStyle().Foreground(red),
		XP:       lipgloss.NewStyle().Bold(true).Foreground(amber),
		Card:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(bark).Padding(0, 1),
		Image:    lipgloss.NewStyle().Italic(true).Foreground(bark),
	}
}

var theme = defaultStyles()
