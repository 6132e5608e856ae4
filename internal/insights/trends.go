package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/fintrack/internal/gateway"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/pipeline"
	"github.com/theirongolddev/fintrack/internal/store"
)

// TrendThreshold is the change versus the prior average, in percent, that
// the rule-based analysis reports.
const TrendThreshold = 15.0

// TrendReport is the budget trend analysis for one user.
type TrendReport struct {
	Months   []model.MonthlySpend  `json:"months"`
	Trends   []model.CategoryTrend `json:"trends"`
	Summary  string                `json:"summary"`
	Insights []string              `json:"insights"`
	Fallback bool                  `json:"fallback"`
	Reason   string                `json:"reason,omitempty"`
}

const trendsSystem = `You are a personal finance assistant. Given monthly category spending,
reply with JSON only: {"summary": "<one sentence>", "insights": ["<short actionable tip>", ...]}.
Use at most 4 insights.`

// BudgetTrends analyses the user's spending per category over the last
// months calendar months (the configured default when months < 2).
func (s *Service) BudgetTrends(ctx context.Context, userID string, months int) (TrendReport, error) {
	if months < 2 {
		months = s.trendMonths
	}
	now := s.now()
	since := pipeline.StartOfMonth(now).AddDate(0, -(months - 1), 0)

	txs, err := s.store.ListTransactions(ctx, store.TxFilter{UserID: userID, Since: since})
	if err != nil {
		return TrendReport{}, fmt.Errorf("insights: loading transactions: %w", err)
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return TrendReport{}, fmt.Errorf("insights: loading categories: %w", err)
	}

	report := TrendReport{
		Months: pipeline.AggregateMonths(txs, months, now),
		Trends: pipeline.CategoryTrends(txs, cats, months, now),
	}

	facts, _ := json.Marshal(struct {
		Months []model.MonthlySpend  `json:"months"`
		Trends []model.CategoryTrend `json:"category_trends"`
	}{report.Months, report.Trends})

	reply, err := s.ask(ctx, "budget-trends", trendsSystem, string(facts))
	if err == nil {
		var parsed struct {
			Summary  string   `json:"summary"`
			Insights []string `json:"insights"`
		}
		if err = gateway.ExtractJSON(reply, &parsed); err == nil && parsed.Summary == "" {
			err = fmt.Errorf("insights: reply has no summary: %w", model.ErrParse)
		}
		if err == nil {
			report.Summary = parsed.Summary
			report.Insights = parsed.Insights
			if report.Insights == nil {
				report.Insights = []string{}
			}
			return report, nil
		}
	}

	report.Fallback = true
	report.Reason = fallback("budget-trends", err)
	report.Summary, report.Insights = RuleTrends(report.Months, report.Trends)
	return report, nil
}

// RuleTrends describes trends without the gateway: categories moving more
// than TrendThreshold percent against their prior average, and categories
// over budget.
func RuleTrends(months []model.MonthlySpend, trends []model.CategoryTrend) (string, []string) {
	insights := []string{}
	for _, t := range trends {
		switch {
		case t.ChangePercent > TrendThreshold:
			insights = append(insights, fmt.Sprintf("%s spending is up %.0f%% versus your prior average.", t.Category, t.ChangePercent))
		case t.ChangePercent < -TrendThreshold:
			insights = append(insights, fmt.Sprintf("%s spending is down %.0f%% versus your prior average.", t.Category, math.Abs(t.ChangePercent)))
		}
		if t.OverBudget {
			insights = append(insights, fmt.Sprintf("%s is over its monthly budget by %s.", t.Category, t.Latest.Sub(t.Budget).StringFixed(2)))
		}
	}

	if len(months) < 2 {
		return "Not enough history to compare months yet.", insights
	}
	latest := months[len(months)-1].Expense
	prev := months[len(months)-2].Expense
	var b strings.Builder
	switch latest.Cmp(prev) {
	case 1:
		fmt.Fprintf(&b, "Spending this month (%s) is above last month (%s).", latest.StringFixed(2), prev.StringFixed(2))
	case -1:
		fmt.Fprintf(&b, "Spending this month (%s) is below last month (%s).", latest.StringFixed(2), prev.StringFixed(2))
	default:
		fmt.Fprintf(&b, "Spending this month matches last month (%s).", latest.StringFixed(2))
	}
	return b.String(), insights
}
