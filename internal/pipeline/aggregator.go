// Package pipeline loads transactions and turns them into the summaries,
// trends, detections and rankings the handlers and dashboard render.
package pipeline

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
)

// Uncategorized labels transactions without a category.
const Uncategorized = "Uncategorized"

// Aggregate computes income and expense totals for transactions within
// [since, until).
func Aggregate(txs []model.Transaction, since, until time.Time) model.Summary {
	filtered := FilterByTime(txs, since, until)

	var stats model.Summary
	activeDays := make(map[string]struct{})

	for _, t := range filtered {
		stats.Transactions++
		switch t.Kind {
		case model.Income:
			stats.Income = stats.Income.Add(t.Amount)
		case model.Expense:
			stats.Expense = stats.Expense.Add(t.Amount)
			activeDays[t.OccurredAt.Local().Format("2006-01-02")] = struct{}{}
		}
	}

	stats.Net = stats.Income.Sub(stats.Expense)
	stats.SavingsRate = SavingsRate(stats.Income, stats.Expense)
	stats.ActiveDays = len(activeDays)
	if stats.ActiveDays > 0 {
		stats.SpendPerDay = stats.Expense.Div(decimal.NewFromInt(int64(stats.ActiveDays))).Round(2)
	}
	return stats
}

// SavingsRate returns (income - expense) / income, or 0 without income.
func SavingsRate(income, expense decimal.Decimal) float64 {
	if !income.IsPositive() {
		return 0
	}
	r, _ := income.Sub(expense).Div(income).Float64()
	return r
}

// AggregateDays computes per-day totals, filling empty days with zeros.
// The result is ordered most recent first.
func AggregateDays(txs []model.Transaction, since, until time.Time) []model.DailySpend {
	filtered := FilterByTime(txs, since, until)

	dayMap := make(map[string]*model.DailySpend)
	for _, t := range filtered {
		key := t.OccurredAt.Local().Format("2006-01-02")
		ds, ok := dayMap[key]
		if !ok {
			d, _ := time.ParseInLocation("2006-01-02", key, time.Local)
			ds = &model.DailySpend{Date: d}
			dayMap[key] = ds
		}
		ds.Count++
		if t.Kind == model.Income {
			ds.Income = ds.Income.Add(t.Amount)
		} else {
			ds.Expense = ds.Expense.Add(t.Amount)
		}
	}

	if !since.IsZero() && !until.IsZero() {
		day := startOfDay(since)
		end := startOfDay(until.Add(-time.Nanosecond))
		for !day.After(end) {
			key := day.Format("2006-01-02")
			if _, ok := dayMap[key]; !ok {
				dayMap[key] = &model.DailySpend{Date: day}
			}
			day = day.AddDate(0, 0, 1)
		}
	}

	days := make([]model.DailySpend, 0, len(dayMap))
	for _, ds := range dayMap {
		days = append(days, *ds)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

// AggregateMonths computes totals for the n calendar months ending with
// the month containing now, oldest first. Months without activity are
// present with zero totals.
func AggregateMonths(txs []model.Transaction, n int, now time.Time) []model.MonthlySpend {
	if n <= 0 {
		return []model.MonthlySpend{}
	}
	first := StartOfMonth(now).AddDate(0, -(n - 1), 0)
	months := make([]model.MonthlySpend, n)
	index := make(map[string]int, n)
	for i := range months {
		key := first.AddDate(0, i, 0).Format("2006-01")
		months[i].Month = key
		index[key] = i
	}

	for _, t := range txs {
		i, ok := index[t.OccurredAt.Local().Format("2006-01")]
		if !ok {
			continue
		}
		if t.Kind == model.Income {
			months[i].Income = months[i].Income.Add(t.Amount)
		} else {
			months[i].Expense = months[i].Expense.Add(t.Amount)
		}
	}
	return months
}

// AggregateCategories computes expense totals per category within
// [since, until), sorted by spend descending.
func AggregateCategories(txs []model.Transaction, cats []model.Category, since, until time.Time) []model.CategorySpend {
	filtered := FilterByTime(txs, since, until)
	names := categoryNames(cats)

	catMap := make(map[string]*model.CategorySpend)
	var total decimal.Decimal
	for _, t := range filtered {
		if t.Kind != model.Expense {
			continue
		}
		cs, ok := catMap[t.CategoryID]
		if !ok {
			cs = &model.CategorySpend{CategoryID: t.CategoryID, Category: nameOf(names, t.CategoryID)}
			catMap[t.CategoryID] = cs
		}
		cs.Count++
		cs.Expense = cs.Expense.Add(t.Amount)
		total = total.Add(t.Amount)
	}

	out := make([]model.CategorySpend, 0, len(catMap))
	for _, cs := range catMap {
		if total.IsPositive() {
			cs.SharePercent, _ = cs.Expense.Div(total).Mul(decimal.NewFromInt(100)).Float64()
		}
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Expense.Cmp(out[j].Expense); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// BudgetStatuses compares each budgeted category's spend in the month
// containing now with its monthly budget.
func BudgetStatuses(txs []model.Transaction, cats []model.Category, now time.Time) []model.BudgetStatus {
	since := StartOfMonth(now)
	spent := make(map[string]decimal.Decimal)
	for _, t := range FilterByTime(txs, since, since.AddDate(0, 1, 0)) {
		if t.Kind == model.Expense && t.CategoryID != "" {
			spent[t.CategoryID] = spent[t.CategoryID].Add(t.Amount)
		}
	}

	var out []model.BudgetStatus
	for _, c := range cats {
		if !c.MonthlyBudget.IsPositive() {
			continue
		}
		bs := model.BudgetStatus{
			CategoryID: c.ID,
			Category:   c.Name,
			Budget:     c.MonthlyBudget,
			Spent:      spent[c.ID],
		}
		bs.UsedPercent, _ = bs.Spent.Div(c.MonthlyBudget).Mul(decimal.NewFromInt(100)).Float64()
		bs.Over = bs.Spent.GreaterThan(c.MonthlyBudget)
		out = append(out, bs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UsedPercent > out[j].UsedPercent })
	return out
}

// CategoryTrends compares each category's expense in the month containing
// now with its average over the previous months-1 months. Categories with
// no spend in the whole window are omitted.
func CategoryTrends(txs []model.Transaction, cats []model.Category, months int, now time.Time) []model.CategoryTrend {
	if months < 2 {
		months = 2
	}
	latestStart := StartOfMonth(now)
	windowStart := latestStart.AddDate(0, -(months - 1), 0)
	names := categoryNames(cats)
	budgets := make(map[string]decimal.Decimal, len(cats))
	for _, c := range cats {
		budgets[c.ID] = c.MonthlyBudget
	}

	type acc struct{ latest, prior decimal.Decimal }
	byCat := make(map[string]*acc)
	for _, t := range FilterByTime(txs, windowStart, latestStart.AddDate(0, 1, 0)) {
		if t.Kind != model.Expense {
			continue
		}
		a, ok := byCat[t.CategoryID]
		if !ok {
			a = &acc{}
			byCat[t.CategoryID] = a
		}
		if t.OccurredAt.Before(latestStart) {
			a.prior = a.prior.Add(t.Amount)
		} else {
			a.latest = a.latest.Add(t.Amount)
		}
	}

	priorMonths := decimal.NewFromInt(int64(months - 1))
	out := make([]model.CategoryTrend, 0, len(byCat))
	for id, a := range byCat {
		tr := model.CategoryTrend{
			Category:     nameOf(names, id),
			Latest:       a.latest,
			PriorAverage: a.prior.Div(priorMonths).Round(2),
			Budget:       budgets[id],
		}
		if tr.PriorAverage.IsPositive() {
			tr.ChangePercent, _ = tr.Latest.Sub(tr.PriorAverage).Div(tr.PriorAverage).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		} else if tr.Latest.IsPositive() {
			tr.ChangePercent = 100
		}
		tr.OverBudget = tr.Budget.IsPositive() && tr.Latest.GreaterThan(tr.Budget)
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Latest.Cmp(out[j].Latest); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// AggregateMerchants groups expenses by normalized merchant, sorted by
// total descending.
func AggregateMerchants(txs []model.Transaction) []model.MerchantStats {
	byName := make(map[string]*model.MerchantStats)
	for _, t := range txs {
		if t.Kind != model.Expense {
			continue
		}
		name := MerchantOf(t)
		if name == "" {
			continue
		}
		ms, ok := byName[name]
		if !ok {
			ms = &model.MerchantStats{Merchant: name, First: t.OccurredAt, Last: t.OccurredAt}
			byName[name] = ms
		}
		ms.Count++
		ms.Total = ms.Total.Add(t.Amount)
		if t.OccurredAt.Before(ms.First) {
			ms.First = t.OccurredAt
		}
		if t.OccurredAt.After(ms.Last) {
			ms.Last = t.OccurredAt
		}
	}

	out := make([]model.MerchantStats, 0, len(byName))
	for _, ms := range byName {
		out = append(out, *ms)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Merchant < out[j].Merchant
	})
	return out
}

// FilterByTime returns transactions that occurred within [since, until).
// Zero bounds are open.
func FilterByTime(txs []model.Transaction, since, until time.Time) []model.Transaction {
	if since.IsZero() && until.IsZero() {
		return txs
	}

	var result []model.Transaction
	for _, t := range txs {
		if !since.IsZero() && t.OccurredAt.Before(since) {
			continue
		}
		if !until.IsZero() && !t.OccurredAt.Before(until) {
			continue
		}
		result = append(result, t)
	}
	return result
}

// FilterByKind returns transactions of one kind.
func FilterByKind(txs []model.Transaction, kind model.TxKind) []model.Transaction {
	var result []model.Transaction
	for _, t := range txs {
		if t.Kind == kind {
			result = append(result, t)
		}
	}
	return result
}

var (
	merchantNoise  = regexp.MustCompile(`(?i)\b(pos|ach|debit|credit|purchase|payment|card|visa|mc|recurring|autopay)\b`)
	merchantDigits = regexp.MustCompile(`[#*]?\d[\d\-/.]*`)
	merchantSpace  = regexp.MustCompile(`\s+`)
)

// NormalizeMerchant reduces a raw bank descriptor to a stable merchant key:
// lowercased, without card-network noise, reference numbers or
// punctuation runs.
func NormalizeMerchant(s string) string {
	s = strings.ToLower(s)
	s = merchantNoise.ReplaceAllString(s, " ")
	s = merchantDigits.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if r == '*' || r == '#' || r == ',' || r == '.' || r == '_' {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(merchantSpace.ReplaceAllString(s, " "))
}

// MerchantOf returns the normalized merchant of t, falling back to its
// description.
func MerchantOf(t model.Transaction) string {
	if t.Merchant != "" {
		return NormalizeMerchant(t.Merchant)
	}
	return NormalizeMerchant(t.Description)
}

// StartOfMonth returns midnight on the first of t's month, in local time.
func StartOfMonth(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.Local)
}

// MonthRange parses a YYYY-MM key into [start, end).
func MonthRange(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01", month, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}

func startOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

func categoryNames(cats []model.Category) map[string]string {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names
}

func nameOf(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return Uncategorized
}
