package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

var eighths = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as block characters scaled to their peak.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 1 + int(math.Max(v, 0)/peak*7)
		out[i] = eighths[min(idx, 8)]
	}
	return lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface).Render(string(out))
}

// BarChart renders vertical bars with a labelled y axis. Negative values
// draw as empty columns. Too many values for the width are sampled.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active
	surface := lipgloss.NewStyle().Background(t.Surface)
	axis := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	bar := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}
	step := chartTickStep(peak)
	for math.Ceil(peak/step) > float64(max(2, height/2)) {
		step *= 2
	}
	ticks := max(1, int(math.Ceil(peak/step)))
	ceiling := float64(ticks) * step
	rowsPerTick := max(2, height/ticks)
	rows := rowsPerTick * ticks

	yW := max(4, len(FormatChartLabel(ceiling))+1)
	plotW := max(5, width-yW-1)

	n := len(values)
	gap := 1
	if n == 1 {
		gap = 0
	}
	barW := (plotW - (n-1)*gap) / n
	if barW < 2 && n > 1 {
		keep := max(2, (plotW+1)/3)
		values, labels = sample(values, labels, keep)
		n = keep
		barW = 2
	}
	barW = max(1, min(barW, 6))
	axisLen := n*barW + (n-1)*gap

	var b strings.Builder
	for row := rows; row >= 1; row-- {
		top := ceiling * float64(row) / float64(rows)
		bottom := ceiling * float64(row-1) / float64(rows)

		label := ""
		if row%rowsPerTick == 0 {
			label = FormatChartLabel(step * float64(row/rowsPerTick))
		}
		b.WriteString(axis.Render(fmt.Sprintf("%*s│", yW, label)))
		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(surface.Render(" "))
			}
			cell := ' '
			switch {
			case v >= top:
				cell = '█'
			case v > bottom:
				cell = eighths[max(1, min(8, int((v-bottom)/(top-bottom)*8)))]
			}
			b.WriteString(bar.Render(strings.Repeat(string(cell), barW)))
		}
		b.WriteString("\n")
	}
	b.WriteString(axis.Render(fmt.Sprintf("%*s└%s", yW, "0", strings.Repeat("─", axisLen))))

	if len(labels) == n {
		line := []rune(strings.Repeat(" ", axisLen))
		next := 0
		for i, lbl := range labels {
			pos := i * (barW + gap)
			if pos < next || pos+len(lbl) > axisLen {
				continue
			}
			copy(line[pos:], []rune(lbl))
			next = pos + len(lbl) + 1
		}
		b.WriteString("\n")
		b.WriteString(surface.Render(strings.Repeat(" ", yW+1)))
		b.WriteString(axis.Render(strings.TrimRight(string(line), " ")))
	}
	return b.String()
}

// PairedBars renders two horizontal bars per label, scaled to a shared
// maximum, for comparing two series such as saved versus invested.
func PairedBars(labels []string, a, b []float64, colorA, colorB lipgloss.Color, width int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	styleA := lipgloss.NewStyle().Foreground(colorA).Background(t.Surface)
	styleB := lipgloss.NewStyle().Foreground(colorB).Background(t.Surface)

	labelW := 0
	for _, l := range labels {
		labelW = max(labelW, lipgloss.Width(l))
	}
	peak := 0.0
	for i := range labels {
		peak = math.Max(peak, math.Max(a[i], b[i]))
	}
	if peak == 0 {
		peak = 1
	}
	barMax := max(5, width-labelW-10)

	length := func(v float64) int {
		return max(0, int(v/peak*float64(barMax)))
	}

	var sb strings.Builder
	for i, l := range labels {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-*s ", labelW, l)))
		sb.WriteString(styleA.Render(strings.Repeat("▆", length(a[i]))))
		sb.WriteString(valStyle.Render(" " + FormatChartLabel(a[i])))
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render(strings.Repeat(" ", labelW+1)))
		sb.WriteString(styleB.Render(strings.Repeat("▆", length(b[i]))))
		sb.WriteString(valStyle.Render(" " + FormatChartLabel(b[i])))
	}
	return sb.String()
}

func sample(values []float64, labels []string, keep int) ([]float64, []string) {
	n := len(values)
	outV := make([]float64, keep)
	var outL []string
	if len(labels) == n {
		outL = make([]string, keep)
	}
	for i := range outV {
		src := i * (n - 1) / (keep - 1)
		outV[i] = values[src]
		if outL != nil {
			outL[i] = labels[src]
		}
	}
	return outV, outL
}

// chartTickStep picks a 1/2/5 interval giving about five ticks.
func chartTickStep(peak float64) float64 {
	if peak <= 0 {
		return 1
	}
	rough := peak / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

// FormatChartLabel abbreviates an axis value, e.g. 12000 -> "12k".
func FormatChartLabel(v float64) string {
	neg := ""
	if v < 0 {
		neg, v = "-", -v
	}
	unit := func(div float64, suffix string) string {
		if v == math.Trunc(v/div)*div {
			return fmt.Sprintf("%s%.0f%s", neg, v/div, suffix)
		}
		return fmt.Sprintf("%s%.1f%s", neg, v/div, suffix)
	}
	switch {
	case v >= 1e9:
		return unit(1e9, "B")
	case v >= 1e6:
		return unit(1e6, "M")
	case v >= 1e3:
		return unit(1e3, "k")
	case v >= 1 || v == 0:
		return fmt.Sprintf("%s%.0f", neg, v)
	default:
		return fmt.Sprintf("%s%.2f", neg, v)
	}
}
