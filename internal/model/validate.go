package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxDescriptionLen = 200
	maxNameLen        = 80
)

// MaxAmount caps a single entry to catch fat-fingered input.
var MaxAmount = decimal.NewFromInt(10_000_000)

// Validate checks a transaction before it is written.
func (t Transaction) Validate() error {
	v := &ValidationError{}
	if t.UserID == "" {
		v.Add("user_id", "is required")
	}
	if t.Kind != Income && t.Kind != Expense {
		v.Add("kind", "must be income or expense")
	}
	checkAmount(v, "amount", t.Amount)
	desc := strings.TrimSpace(t.Description)
	switch {
	case desc == "":
		v.Add("description", "is required")
	case utf8.RuneCountInString(desc) > maxDescriptionLen:
		v.Add("description", "must be at most 200 characters")
	}
	if t.OccurredAt.IsZero() {
		v.Add("occurred_at", "is required")
	} else if t.OccurredAt.After(time.Now().Add(24 * time.Hour)) {
		v.Add("occurred_at", "cannot be in the future")
	}
	return v.OrNil()
}

// Validate checks a goal before it is written.
func (g Goal) Validate() error {
	v := &ValidationError{}
	if g.UserID == "" {
		v.Add("user_id", "is required")
	}
	checkName(v, g.Name)
	checkAmount(v, "target", g.Target)
	if g.Saved.IsNegative() {
		v.Add("saved", "cannot be negative")
	}
	if g.DailyContribution.IsNegative() {
		v.Add("daily_contribution", "cannot be negative")
	}
	switch g.RiskLevel {
	case "", "conservative", "moderate", "aggressive":
	default:
		v.Add("risk_level", "must be conservative, moderate or aggressive")
	}
	return v.OrNil()
}

// Validate checks a challenge before it is written.
func (c Challenge) Validate() error {
	v := &ValidationError{}
	if c.CreatorID == "" {
		v.Add("creator_id", "is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		v.Add("title", "is required")
	}
	if c.Kind != ChallengeSavings && c.Kind != ChallengeNoSpend {
		v.Add("kind", "must be savings or no_spend")
	}
	if c.Kind == ChallengeSavings {
		checkAmount(v, "target", c.Target)
	}
	if c.StartsAt.IsZero() || c.EndsAt.IsZero() {
		v.Add("ends_at", "start and end are required")
	} else if !c.EndsAt.After(c.StartsAt) {
		v.Add("ends_at", "must be after the start")
	}
	return v.OrNil()
}

// Validate checks a category before it is written.
func (c Category) Validate() error {
	v := &ValidationError{}
	checkName(v, c.Name)
	if c.Kind != Income && c.Kind != Expense {
		v.Add("kind", "must be income or expense")
	}
	if c.MonthlyBudget.IsNegative() {
		v.Add("monthly_budget", "cannot be negative")
	}
	return v.OrNil()
}

func checkAmount(v *ValidationError, field string, d decimal.Decimal) {
	switch {
	case !d.IsPositive():
		v.Add(field, "must be greater than zero")
	case d.GreaterThan(MaxAmount):
		v.Add(field, "is unrealistically large")
	case d.Exponent() < -2:
		v.Add(field, "must have at most two decimal places")
	}
}

func checkName(v *ValidationError, name string) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		v.Add("name", "is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		v.Add("name", "must be at most 80 characters")
	}
}
