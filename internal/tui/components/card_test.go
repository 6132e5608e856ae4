package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

func init() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowMatchesTallestCard(t *testing.T) {
	theme.SetActive("flexoki-dark")

	short := ContentCard("Income", "$1,200.00", 24)
	tall := ContentCard("Budgets", "Food\nRent\nFun\nTravel", 24)

	joined := CardRow([]string{tall, short})
	if got, want := lipgloss.Height(joined), lipgloss.Height(tall); got != want {
		t.Fatalf("CardRow height = %d, want %d", got, want)
	}
	for i, line := range strings.Split(joined, "\n") {
		if w := lipgloss.Width(line); w != 48 {
			t.Fatalf("line %d width = %d, want 48", i, w)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("terminal")
	defer theme.SetActive("flexoki-dark")

	row := MetricCardRow([]struct{ Label, Value, Delta string }{
		{"Income", "$3,000.00", "+5.0%"},
		{"Expense", "$1,800.00", ""},
		{"Net", "+$1,200.00", "40.0% saved"},
	}, 90)
	if w := lipgloss.Width(row); w != 90 {
		t.Fatalf("MetricCardRow width = %d, want 90", w)
	}
}
