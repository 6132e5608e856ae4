package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary holds income and expense totals for a period.
type Summary struct {
	Transactions int
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Net          decimal.Decimal
	SavingsRate  float64
	ActiveDays   int
	SpendPerDay  decimal.Decimal
}

// DailySpend holds totals for one calendar day.
type DailySpend struct {
	Date    time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

// MonthlySpend holds totals for one calendar month.
type MonthlySpend struct {
	Month   string // YYYY-MM
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// CategorySpend holds expense totals for one category in a period.
type CategorySpend struct {
	CategoryID     string
	Category       string
	Expense        decimal.Decimal
	Count          int
	SharePercent   float64
	TrendDirection int // -1, 0, +1 vs previous period
}

// CategoryTrend compares the latest month with the average of prior months.
type CategoryTrend struct {
	Category      string          `json:"category"`
	Latest        decimal.Decimal `json:"latest"`
	PriorAverage  decimal.Decimal `json:"prior_average"`
	ChangePercent float64         `json:"change_percent"`
	Budget        decimal.Decimal `json:"budget"`
	OverBudget    bool            `json:"over_budget"`
}

// MerchantStats groups expenses by normalized merchant.
type MerchantStats struct {
	Merchant string
	Count    int
	Total    decimal.Decimal
	First    time.Time
	Last     time.Time
}
