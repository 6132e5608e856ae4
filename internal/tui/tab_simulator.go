package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/config"
	"github.com/theirongolddev/fintrack/internal/projection"
	"github.com/theirongolddev/fintrack/internal/tui/components"
	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

// maxDaily caps the contribution the simulator keys can reach.
const maxDaily = 10_000

// simState is the simulator's editable input. Changes are session-only;
// persistent defaults live in the config.
type simState struct {
	daily   float64
	risk    projection.RiskLevel
	horizon int
}

func newSimState(c config.SimulatorConfig) simState {
	s := simState{daily: max(0, c.DailyContribution), risk: projection.Moderate, horizon: 12}
	if r, err := projection.ParseRiskLevel(c.RiskLevel); err == nil {
		s.risk = r
	}
	if projection.ValidHorizon(c.Horizon) {
		s.horizon = c.Horizon
	}
	return s
}

// step is the increment for the +/- keys at the current amount.
func (s simState) step() float64 {
	switch {
	case s.daily < 10:
		return 1
	case s.daily < 100:
		return 5
	default:
		return 25
	}
}

// handleKey applies a simulator binding and reports whether key was one.
func (s *simState) handleKey(key string) bool {
	switch key {
	case "+", "=":
		s.daily = math.Min(maxDaily, s.daily+s.step())
	case "-", "_":
		// Step down from the band below so + then - round-trips at edges.
		down := simState{daily: s.daily - 1}.step()
		s.daily = math.Max(0, s.daily-down)
	case "r":
		s.risk = s.risk.Next()
	case "h":
		s.horizon = projection.NextHorizon(s.horizon)
	default:
		return false
	}
	return true
}

func (s simState) input() projection.Input {
	return projection.Input{DailyContribution: s.daily, Risk: s.risk, Horizon: s.horizon}
}

func (a App) renderSimulatorTab(cw int) string {
	t := theme.Active
	cur := a.currency()
	eng := a.engine()
	in := a.sim.input()
	in.Start = a.now()
	res := eng.Project(in)

	money := func(v int64) string { return cli.FormatMoney(decimal.NewFromInt(v), cur) }

	var b strings.Builder

	// Controls line.
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	valStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	dim := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	controls := dim.Render("Daily ") + valStyle.Render(cli.FormatMoney(decimal.NewFromFloat(a.sim.daily), cur)) +
		dim.Render(" ") + keyStyle.Render("[+/-]") +
		dim.Render("   Risk ") + valStyle.Render(string(a.sim.risk)) +
		dim.Render(fmt.Sprintf(" (%.1f%%/yr) ", eng.Rates().Annual(a.sim.risk)*100)) + keyStyle.Render("[r]") +
		dim.Render("   Horizon ") + valStyle.Render(horizonLabel(a.sim.horizon)) +
		dim.Render(" ") + keyStyle.Render("[h]")
	b.WriteString(components.ContentCard("Savings Simulator", controls, cw))
	b.WriteString("\n")

	// Totals.
	b.WriteString(components.MetricCardRow([]struct{ Label, Value, Delta string }{
		{"Saved", money(res.FinalPrincipal), fmt.Sprintf("over %s", horizonLabel(a.sim.horizon))},
		{"Invested", money(res.FinalInvested), ""},
		{"Returns", money(res.TotalReturns), fmt.Sprintf("+%s/mo avg", money(res.AvgMonthlyGrowth))},
		{"Best month", fmt.Sprintf("Month %d", res.BestMonth), ""},
	}, cw))
	b.WriteString("\n")

	// Saved vs invested, sampled down to a readable number of rows.
	points := res.Points
	if len(points) > 12 {
		sampled := make([]projection.Point, 0, 12)
		stride := float64(len(points)) / 12
		for i := 1; i <= 12; i++ {
			sampled = append(sampled, points[int(math.Ceil(float64(i)*stride))-1])
		}
		points = sampled
	}
	labels := make([]string, len(points))
	saved := make([]float64, len(points))
	invested := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Label
		saved[i] = float64(p.Principal)
		invested[i] = float64(p.InvestedValue)
	}

	legend := lipgloss.NewStyle().Foreground(t.Saved).Background(t.Surface).Render("▆ saved") +
		dim.Render("  ") +
		lipgloss.NewStyle().Foreground(t.Invested).Background(t.Surface).Render("▆ invested")
	body := legend + "\n" + components.PairedBars(labels, saved, invested, t.Saved, t.Invested, components.CardInnerWidth(cw))
	b.WriteString(components.ContentCard("Saved vs Invested", body, cw))

	return b.String()
}

func horizonLabel(months int) string {
	switch {
	case months == 1:
		return "1 month"
	case months%12 == 0:
		if months == 12 {
			return "1 year"
		}
		return fmt.Sprintf("%d years", months/12)
	default:
		return fmt.Sprintf("%d months", months)
	}
}
