package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/pipeline"
	"github.com/theirongolddev/fintrack/internal/tui/components"
	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	d := a.data
	cur := a.currency()
	var b strings.Builder

	// Row 1: month-to-date metrics against last month.
	b.WriteString(components.MetricCardRow([]struct{ Label, Value, Delta string }{
		{"Income", cli.FormatMoney(d.current.Income, cur), cli.FormatDelta(d.current.Income, d.previous.Income, cur) + " vs last mo"},
		{"Expenses", cli.FormatMoney(d.current.Expense, cur), cli.FormatDelta(d.current.Expense, d.previous.Expense, cur) + " vs last mo"},
		{"Net", cli.FormatSignedMoney(d.current.Net, cur), fmt.Sprintf("%d transactions", d.current.Transactions)},
		{"Savings rate", cli.FormatPercent(d.current.SavingsRate), cli.FormatMoney(d.current.SpendPerDay, cur) + "/day spent"},
	}, cw))
	b.WriteString("\n")

	// Row 2: monthly spend chart.
	values := make([]float64, len(d.months))
	labels := make([]string, len(d.months))
	for i, m := range d.months {
		values[i], _ = m.Expense.Float64()
		labels[i] = m.Month
		if start, _, err := pipeline.MonthRange(m.Month); err == nil {
			labels[i] = start.Format("Jan")
		}
	}
	chartInner := components.CardInnerWidth(cw)
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Monthly Spend (last %d months)", len(d.months)),
		components.BarChart(values, labels, t.Expense, chartInner, 8),
		cw))
	b.WriteString("\n")

	// Row 3: budgets beside top categories, stacked when narrow.
	var budgetBody strings.Builder
	if len(d.budgets) == 0 {
		budgetBody.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("No monthly budgets set"))
	}
	halves := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		halves = []int{cw, cw}
	}
	budgetInner := components.CardInnerWidth(halves[0])
	labelW := min(16, budgetInner/3)
	amountW := 22
	barW := max(6, budgetInner-labelW-amountW-8)
	for i, bs := range d.budgets {
		if i > 0 {
			budgetBody.WriteString("\n")
		}
		amounts := cli.FormatMoney(bs.Spent, cur) + " / " + cli.FormatMoney(bs.Budget, cur)
		budgetBody.WriteString(components.BudgetBar(bs.Category, bs.UsedPercent/100, amounts, labelW, barW))
	}

	var catBody strings.Builder
	catInner := components.CardInnerWidth(halves[1])
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	valStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if len(d.spend) == 0 {
		catBody.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("No expenses this month"))
	}
	for i, cs := range d.spend {
		if i == 6 {
			break
		}
		if i > 0 {
			catBody.WriteString("\n")
		}
		arrow := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("→")
		switch cs.TrendDirection {
		case 1:
			arrow = lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Render("↑")
		case -1:
			arrow = lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Render("↓")
		}
		nameW := max(8, catInner-26)
		catBody.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(cs.Category, nameW))) +
			valStyle.Render(fmt.Sprintf("%12s %5.1f%% ", cli.FormatMoney(cs.Expense, cur), cs.SharePercent)) + arrow)
	}

	budgets := components.ContentCard("Budgets", budgetBody.String(), halves[0])
	cats := components.ContentCard("Top Categories", catBody.String(), halves[1])
	if a.isCompactLayout() {
		b.WriteString(budgets + "\n" + cats)
	} else {
		b.WriteString(components.CardRow([]string{budgets, cats}))
	}

	// Row 4: goals.
	if len(d.goals) > 0 {
		b.WriteString("\n")
		var goalBody strings.Builder
		goalInner := components.CardInnerWidth(cw)
		goalLabelW := min(20, goalInner/4)
		for i, g := range d.goals {
			if i > 0 {
				goalBody.WriteString("\n")
			}
			amounts := cli.FormatMoney(g.Saved, cur) + " of " + cli.FormatMoney(g.Target, cur)
			if !g.Deadline.IsZero() {
				amounts += " by " + cli.FormatDate(g.Deadline)
			}
			goalBody.WriteString(components.BudgetBar(g.Name, g.Progress(), amounts, goalLabelW, max(6, goalInner-goalLabelW-44)))
		}
		b.WriteString(components.ContentCard("Goals", goalBody.String(), cw))
	}

	return b.String()
}
