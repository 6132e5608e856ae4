package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
)

// Score weights. The savings rate dominates; days without any expense
// reward consistency.
const (
	savingsWeight = 70.0
	noSpendWeight = 30.0
)

// Score rates one user's month on a 0-100 scale.
func Score(s model.Summary, noSpendDays, monthDays int) float64 {
	rate := math.Max(0, math.Min(1, s.SavingsRate))
	consistency := 0.0
	if monthDays > 0 {
		consistency = float64(noSpendDays) / float64(monthDays)
	}
	return math.Round((savingsWeight*rate+noSpendWeight*consistency)*100) / 100
}

// Rank computes the monthly leaderboard from each user's transactions.
// Users without any activity in the month are left out. Equal scores
// share a rank and the next distinct score takes the following rank
// (dense ranking); ties are listed by user id.
func Rank(month string, byUser map[string][]model.Transaction, now time.Time) ([]model.Ranking, error) {
	start, end, err := MonthRange(month)
	if err != nil {
		return nil, err
	}
	days := daysInMonth(end)
	// The current month is scored only on the days that have elapsed.
	if now.Before(end) && !now.Before(start) {
		days = now.Local().Day()
	}

	rows := make([]model.Ranking, 0, len(byUser))
	for userID, txs := range byUser {
		inMonth := FilterByTime(txs, start, end)
		if len(inMonth) == 0 {
			continue
		}
		sum := Aggregate(inMonth, time.Time{}, time.Time{})
		spendDays := 0
		for _, d := range AggregateDays(inMonth, time.Time{}, time.Time{}) {
			if d.Expense.IsPositive() {
				spendDays++
			}
		}
		noSpend := days - spendDays
		if noSpend < 0 {
			noSpend = 0
		}
		rows = append(rows, model.Ranking{
			Month:       month,
			UserID:      userID,
			Score:       Score(sum, noSpend, days),
			SavingsRate: math.Round(sum.SavingsRate*10000) / 10000,
			Income:      sum.Income,
			Expense:     sum.Expense,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].UserID < rows[j].UserID
	})
	rank := 0
	for i := range rows {
		if i == 0 || rows[i].Score != rows[i-1].Score {
			rank++
		}
		rows[i].Rank = rank
	}
	return rows, nil
}

// daysInMonth counts calendar days in the month ending at end (exclusive).
// Counting hours would lose a day across a DST change.
func daysInMonth(end time.Time) int {
	return end.AddDate(0, 0, -1).Day()
}
