package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

// StatusInfo is what the bottom bar reports.
type StatusInfo struct {
	User        string
	DataAge     string
	Refreshing  bool
	AutoRefresh bool
	Err         string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, s StatusInfo) string {
	t := theme.Active
	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	left := base.Render(" [?]help  [r]efresh  [q]uit")
	if s.User != "" {
		left += base.Render("  │  ") + accent.Render(s.User)
	}

	var right string
	switch {
	case s.Err != "":
		right = warn.Render(s.Err + " ")
	case s.Refreshing:
		right = accent.Render("refreshing… ")
	default:
		auto := "manual"
		if s.AutoRefresh {
			auto = "auto"
		}
		right = base.Render("data " + s.DataAge + " · " + auto + " ")
	}

	gap := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + base.Render(strings.Repeat(" ", gap)) + right
}
