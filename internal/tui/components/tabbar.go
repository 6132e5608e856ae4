package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

// Tab is one entry in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // index of Key in Name, -1 when shown as a suffix
}

// Tabs in display order. The app switches on these indices.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Simulator", Key: 's', KeyPos: 0},
	{Name: "Transactions", Key: 't', KeyPos: 0},
	{Name: "Social", Key: 'c', KeyPos: 2},
	{Name: "Settings", Key: 'x', KeyPos: -1},
}

func tabLabel(tab Tab, active bool) string {
	t := theme.Active
	bg := t.Surface
	if active {
		return lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true).Padding(0, 1).Render(tab.Name)
	}
	plain := lipgloss.NewStyle().Foreground(t.TextMuted).Background(bg)
	key := lipgloss.NewStyle().Foreground(t.Accent).Background(bg).Bold(true)
	pad := lipgloss.NewStyle().Background(bg).Render(" ")

	if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
		return pad + plain.Render(tab.Name[:tab.KeyPos]) + key.Render(tab.Name[tab.KeyPos:tab.KeyPos+1]) + plain.Render(tab.Name[tab.KeyPos+1:]) + pad
	}
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(bg)
	return pad + plain.Render(tab.Name) + dim.Render("[") + key.Render(string(tab.Key)) + dim.Render("]") + pad
}

// TabVisualWidth is the rendered width of a tab, used for mouse hit tests.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(tabLabel(tab, active))
}

// RenderTabBar renders a single-row tab bar padded to width.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active
	sep := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface).Render("│")

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		parts[i] = tabLabel(tab, i == activeIdx)
	}
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(strings.Join(parts, sep))
}

// TabIdxByKey returns the tab for a shortcut key, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
