package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target fed by a daily contribution.
type Goal struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Name              string          `json:"name"`
	Target            decimal.Decimal `json:"target"`
	Saved             decimal.Decimal `json:"saved"`
	DailyContribution decimal.Decimal `json:"daily_contribution"`
	RiskLevel         string          `json:"risk_level"`
	Deadline          time.Time       `json:"deadline,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Progress returns saved/target in [0, 1].
func (g Goal) Progress() float64 {
	if !g.Target.IsPositive() {
		return 0
	}
	p, _ := g.Saved.Div(g.Target).Float64()
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// BudgetStatus compares one category's spend against its monthly budget.
type BudgetStatus struct {
	CategoryID  string
	Category    string
	Budget      decimal.Decimal
	Spent       decimal.Decimal
	UsedPercent float64
	Over        bool
}
