package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.Local)
}

func tx(kind model.TxKind, amount string, at time.Time) model.Transaction {
	return model.Transaction{Kind: kind, Amount: decimal.RequireFromString(amount), OccurredAt: at}
}

func charge(merchant, amount string, at time.Time) model.Transaction {
	t := tx(model.Expense, amount, at)
	t.Merchant = merchant
	return t
}

func TestAggregate(t *testing.T) {
	txs := []model.Transaction{
		tx(model.Income, "1000", day(2026, 3, 1)),
		tx(model.Expense, "200", day(2026, 3, 2)),
		tx(model.Expense, "100", day(2026, 3, 3)),
		tx(model.Expense, "999", day(2026, 4, 1)),
	}
	s := Aggregate(txs, day(2026, 3, 1).Add(-time.Hour), day(2026, 4, 1).Add(-time.Hour))

	if s.Transactions != 3 {
		t.Fatalf("Transactions = %d, want 3", s.Transactions)
	}
	if !s.Net.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("Net = %s, want 700", s.Net)
	}
	if s.SavingsRate != 0.7 {
		t.Fatalf("SavingsRate = %v, want 0.7", s.SavingsRate)
	}
	if s.ActiveDays != 2 || !s.SpendPerDay.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("ActiveDays = %d, SpendPerDay = %s, want 2, 150", s.ActiveDays, s.SpendPerDay)
	}
}

func TestSavingsRateWithoutIncome(t *testing.T) {
	if r := SavingsRate(decimal.Zero, decimal.NewFromInt(50)); r != 0 {
		t.Fatalf("SavingsRate = %v, want 0", r)
	}
}

func TestAggregateDaysFillsGaps(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
	until := since.AddDate(0, 0, 3)
	days := AggregateDays([]model.Transaction{tx(model.Expense, "5", day(2026, 3, 2))}, since, until)

	if len(days) != 3 {
		t.Fatalf("len(days) = %d, want 3", len(days))
	}
	if days[0].Date.Day() != 3 || days[2].Date.Day() != 1 {
		t.Fatalf("days not most recent first: %v .. %v", days[0].Date, days[2].Date)
	}
	if days[1].Count != 1 || !days[1].Expense.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("day 2 = %+v", days[1])
	}
}

func TestAggregateMonths(t *testing.T) {
	txs := []model.Transaction{
		tx(model.Expense, "40", day(2025, 12, 20)),
		tx(model.Expense, "10", day(2026, 1, 5)),
		tx(model.Income, "500", day(2026, 3, 1)),
	}
	months := AggregateMonths(txs, 3, day(2026, 3, 15))

	want := []string{"2026-01", "2026-02", "2026-03"}
	for i, m := range months {
		if m.Month != want[i] {
			t.Fatalf("months[%d] = %s, want %s", i, m.Month, want[i])
		}
	}
	if !months[0].Expense.Equal(decimal.NewFromInt(10)) || !months[1].Expense.IsZero() {
		t.Fatalf("expenses = %s, %s", months[0].Expense, months[1].Expense)
	}
	if !months[2].Income.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("March income = %s, want 500", months[2].Income)
	}
	if got := AggregateMonths(txs, 0, day(2026, 3, 15)); len(got) != 0 {
		t.Fatalf("AggregateMonths(0) len = %d", len(got))
	}
}

func TestAggregateCategories(t *testing.T) {
	cats := []model.Category{{ID: "g", Name: "Groceries"}, {ID: "d", Name: "Dining"}}
	a := tx(model.Expense, "75", day(2026, 3, 2))
	a.CategoryID = "g"
	b := tx(model.Expense, "25", day(2026, 3, 3))
	b.CategoryID = "d"
	c := tx(model.Expense, "0.50", day(2026, 3, 4))

	out := AggregateCategories([]model.Transaction{a, b, c}, cats, time.Time{}, time.Time{})
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[0].Category != "Groceries" || out[2].Category != Uncategorized {
		t.Fatalf("order = %s, %s, %s", out[0].Category, out[1].Category, out[2].Category)
	}
	if out[0].SharePercent < 74 || out[0].SharePercent > 75 {
		t.Fatalf("Groceries share = %v", out[0].SharePercent)
	}
}

func TestCategoryTrendsAndBudgets(t *testing.T) {
	cats := []model.Category{{ID: "g", Name: "Groceries", MonthlyBudget: decimal.NewFromInt(120)}}
	var txs []model.Transaction
	for _, p := range []struct {
		at     time.Time
		amount string
	}{
		{day(2026, 1, 10), "100"},
		{day(2026, 2, 10), "100"},
		{day(2026, 3, 10), "150"},
	} {
		x := tx(model.Expense, p.amount, p.at)
		x.CategoryID = "g"
		txs = append(txs, x)
	}
	now := day(2026, 3, 20)

	trends := CategoryTrends(txs, cats, 3, now)
	if len(trends) != 1 {
		t.Fatalf("len(trends) = %d, want 1", len(trends))
	}
	tr := trends[0]
	if !tr.PriorAverage.Equal(decimal.NewFromInt(100)) || tr.ChangePercent != 50 || !tr.OverBudget {
		t.Fatalf("trend = %+v", tr)
	}

	status := BudgetStatuses(txs, cats, now)
	if len(status) != 1 || !status[0].Over || status[0].UsedPercent != 125 {
		t.Fatalf("budget status = %+v", status)
	}
}

func TestNormalizeMerchant(t *testing.T) {
	tests := []struct{ in, want string }{
		{"POS PURCHASE STARBUCKS #1234", "starbucks"},
		{"Netflix.com", "netflix com"},
		{"  Uber   Trip  ", "uber trip"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeMerchant(tt.in); got != tt.want {
			t.Errorf("NormalizeMerchant(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectMonthlySubscription(t *testing.T) {
	txs := []model.Transaction{
		charge("Netflix", "15.99", day(2026, 1, 5)),
		charge("Netflix", "15.99", day(2026, 2, 4)),
		charge("Netflix", "16.49", day(2026, 3, 6)),
	}
	det := Detect("u1", txs, day(2026, 3, 20))

	if len(det.Subscriptions) != 1 {
		t.Fatalf("subscriptions = %+v, want 1", det.Subscriptions)
	}
	sub := det.Subscriptions[0]
	if sub.Merchant != "netflix" || sub.Cadence != model.Monthly || sub.UserID != "u1" {
		t.Fatalf("subscription = %+v", sub)
	}
	if !sub.Amount.Equal(decimal.RequireFromString("16.49")) {
		t.Fatalf("Amount = %s, want latest charge 16.49", sub.Amount)
	}
	if want := day(2026, 3, 6).AddDate(0, 0, 30); !sub.NextCharge.Equal(want) {
		t.Fatalf("NextCharge = %v, want %v", sub.NextCharge, want)
	}
	if sub.Confidence <= 0 || sub.Confidence > 1 {
		t.Fatalf("Confidence = %v", sub.Confidence)
	}
}

func TestDetectRejectsIrregular(t *testing.T) {
	now := day(2026, 6, 1)
	tests := []struct {
		name string
		txs  []model.Transaction
	}{
		{"amount drift", []model.Transaction{
			charge("Gym", "30", day(2026, 3, 1)),
			charge("Gym", "45", day(2026, 3, 31)),
			charge("Gym", "30", day(2026, 4, 30)),
		}},
		{"stale", []model.Transaction{
			charge("Gym", "30", day(2025, 12, 1)),
			charge("Gym", "30", day(2025, 12, 31)),
			charge("Gym", "30", day(2026, 1, 30)),
		}},
		{"two weekly charges", []model.Transaction{
			charge("Box", "12", day(2026, 5, 20)),
			charge("Box", "12", day(2026, 5, 27)),
		}},
	}
	for _, tt := range tests {
		if det := Detect("u1", tt.txs, now); len(det.Subscriptions) != 0 {
			t.Errorf("%s: detected %+v", tt.name, det.Subscriptions)
		}
	}
}

func TestDetectDailyExpense(t *testing.T) {
	now := day(2026, 3, 31)
	var txs []model.Transaction
	for i := 0; i < 10; i++ {
		txs = append(txs, charge("Blue Bottle Coffee", "4.50", now.AddDate(0, 0, -i*2)))
	}
	txs = append(txs, charge("Rent", "1200", now.AddDate(0, 0, -3)))

	det := Detect("u1", txs, now)
	if len(det.DailyExpenses) != 1 {
		t.Fatalf("daily expenses = %+v, want 1", det.DailyExpenses)
	}
	de := det.DailyExpenses[0]
	if de.Merchant != "blue bottle coffee" || de.Count != 10 || !de.Total.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("daily expense = %+v", de)
	}
	if !de.Average.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("Average = %s, want 4.5", de.Average)
	}
}

func TestRankDense(t *testing.T) {
	good := []model.Transaction{
		tx(model.Income, "1000", day(2026, 2, 1)),
		tx(model.Expense, "100", day(2026, 2, 2)),
	}
	byUser := map[string][]model.Transaction{
		"b":    good,
		"a":    good,
		"c":    {tx(model.Income, "1000", day(2026, 2, 1)), tx(model.Expense, "900", day(2026, 2, 2))},
		"idle": {tx(model.Income, "1000", day(2026, 1, 1))},
	}

	rows, err := Rank("2026-02", byUser, day(2026, 3, 10))
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	wantUsers := []string{"a", "b", "c"}
	wantRanks := []int{1, 1, 2}
	for i, r := range rows {
		if r.UserID != wantUsers[i] || r.Rank != wantRanks[i] {
			t.Fatalf("rows[%d] = %s rank %d, want %s rank %d", i, r.UserID, r.Rank, wantUsers[i], wantRanks[i])
		}
		if r.Month != "2026-02" {
			t.Fatalf("Month = %q", r.Month)
		}
	}
	if rows[0].SavingsRate != 0.9 || rows[0].Score <= rows[2].Score {
		t.Fatalf("scores = %+v", rows)
	}

	if _, err := Rank("February", byUser, time.Now()); err == nil {
		t.Fatal("Rank accepted a malformed month")
	}
}

func TestDaysInMonthAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	tests := []struct {
		end  time.Time
		want int
	}{
		{time.Date(2026, time.April, 1, 0, 0, 0, 0, ny), 31},    // March, spring forward
		{time.Date(2026, time.December, 1, 0, 0, 0, 0, ny), 30}, // November, fall back
		{time.Date(2028, time.March, 1, 0, 0, 0, 0, time.UTC), 29},
	}
	for _, tt := range tests {
		if got := daysInMonth(tt.end); got != tt.want {
			t.Fatalf("daysInMonth(%s) = %d, want %d", tt.end.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	s := model.Summary{SavingsRate: 1.5}
	if got := Score(s, 30, 30); got != 100 {
		t.Fatalf("Score = %v, want 100", got)
	}
	s.SavingsRate = -2
	if got := Score(s, 0, 30); got != 0 {
		t.Fatalf("Score = %v, want 0", got)
	}
}

type fakeLister struct {
	txs  map[string][]model.Transaction
	fail map[string]bool
}

func (f fakeLister) ListTransactions(_ context.Context, filter store.TxFilter) ([]model.Transaction, error) {
	if f.fail[filter.UserID] {
		return nil, errors.New("boom")
	}
	return f.txs[filter.UserID], nil
}

func TestLoadUsers(t *testing.T) {
	src := fakeLister{
		txs:  map[string][]model.Transaction{"a": {tx(model.Income, "1", day(2026, 1, 1))}, "b": nil},
		fail: map[string]bool{"c": true},
	}
	var calls atomic.Int64
	res, err := LoadUsers(context.Background(), src, []string{"a", "b", "c"}, time.Time{}, time.Time{}, func(_, _ int) { calls.Add(1) })
	if err != nil {
		t.Fatalf("LoadUsers: %v", err)
	}
	if res.Errors != 1 || res.Transactions != 1 || len(res.ByUser) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("progress calls = %d, want 3", n)
	}

	if _, err := LoadUsers(context.Background(), src, []string{"c"}, time.Time{}, time.Time{}, nil); err == nil {
		t.Fatal("LoadUsers succeeded with every user failing")
	}
}
