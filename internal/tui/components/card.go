// Package components provides reusable widgets for the fintrack dashboard.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

// LayoutRow splits totalWidth into n widths summing to exactly totalWidth.
// Leading items absorb the remainder.
func LayoutRow(totalWidth, n int) []int {
	if n <= 0 {
		return nil
	}
	widths := make([]int, n)
	for i := range widths {
		widths[i] = totalWidth / n
		if i < totalWidth%n {
			widths[i]++
		}
	}
	return widths
}

func cardStyle(outerWidth int) lipgloss.Style {
	t := theme.Active
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		BorderBackground(t.Background).
		Background(t.Surface).
		Width(max(10, outerWidth-2)).
		Padding(0, 1)
}

// deltaColor tints signed deltas: "+..." green, "-..." red.
func deltaColor(delta string) lipgloss.Color {
	t := theme.Active
	switch {
	case strings.HasPrefix(delta, "+"):
		return t.Green
	case strings.HasPrefix(delta, "-"):
		return t.Red
	default:
		return t.TextDim
	}
}

// MetricCard renders a label, a bold value and an optional delta line.
// outerWidth includes the border.
func MetricCard(label, value, delta string, outerWidth int) string {
	t := theme.Active
	content := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(label) + "\n" +
		lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true).Render(value)
	if delta != "" {
		content += "\n" + lipgloss.NewStyle().Foreground(deltaColor(delta)).Background(t.Surface).Render(delta)
	}
	return cardStyle(outerWidth).Render(content)
}

// MetricCardRow renders cards side by side filling totalWidth.
func MetricCardRow(cards []struct{ Label, Value, Delta string }, totalWidth int) string {
	if len(cards) == 0 {
		return ""
	}
	widths := LayoutRow(totalWidth, len(cards))
	rendered := make([]string, len(cards))
	for i, c := range cards {
		rendered[i] = MetricCard(c.Label, c.Value, c.Delta, widths[i])
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// ContentCard renders body in a bordered card with an optional title.
func ContentCard(title, body string, outerWidth int) string {
	t := theme.Active
	content := body
	if title != "" {
		content = lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true).Render(title) + "\n" + body
	}
	return cardStyle(outerWidth).Render(content)
}

// CardRow joins rendered cards horizontally.
func CardRow(cards []string) string {
	if len(cards) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// CardInnerWidth is the text width inside a card of outerWidth.
func CardInnerWidth(outerWidth int) int {
	return max(10, outerWidth-4)
}
