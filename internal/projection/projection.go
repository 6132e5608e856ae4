// Package projection simulates savings versus compounded investment growth.
package projection

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DaysPerMonth is the fixed month length used for the baseline contribution.
const DaysPerMonth = 30

// RiskLevel buckets an assumed annual rate of return.
type RiskLevel string

const (
	Conservative RiskLevel = "conservative"
	Moderate     RiskLevel = "moderate"
	Aggressive   RiskLevel = "aggressive"
)

// RiskLevels lists every level in ascending rate order.
var RiskLevels = []RiskLevel{Conservative, Moderate, Aggressive}

// ParseRiskLevel accepts a level name in any case.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case Conservative:
		return Conservative, nil
	case Moderate:
		return Moderate, nil
	case Aggressive:
		return Aggressive, nil
	}
	return "", fmt.Errorf("unknown risk level %q (want conservative, moderate or aggressive)", s)
}

// Next cycles to the following risk level.
func (r RiskLevel) Next() RiskLevel {
	for i, lvl := range RiskLevels {
		if lvl == r {
			return RiskLevels[(i+1)%len(RiskLevels)]
		}
	}
	return Conservative
}

// Horizons are the supported projection lengths in months.
var Horizons = []int{1, 3, 6, 12, 60}

// ValidHorizon reports whether months is one of Horizons.
func ValidHorizon(months int) bool {
	for _, h := range Horizons {
		if h == months {
			return true
		}
	}
	return false
}

// NextHorizon cycles to the following supported horizon.
func NextHorizon(months int) int {
	for i, h := range Horizons {
		if h == months {
			return Horizons[(i+1)%len(Horizons)]
		}
	}
	return Horizons[0]
}

// Rates holds the average annual rate per risk level. Zero fields fall
// back to DefaultRates.
type Rates struct {
	Conservative float64 `toml:"conservative" json:"conservative"`
	Moderate     float64 `toml:"moderate" json:"moderate"`
	Aggressive   float64 `toml:"aggressive" json:"aggressive"`
}

// DefaultRates are the built-in annual rates.
var DefaultRates = Rates{
	Conservative: 0.05,
	Moderate:     0.085,
	Aggressive:   0.15,
}

// Annual returns the annual rate for a risk level.
func (r Rates) Annual(level RiskLevel) float64 {
	pick := func(v, def float64) float64 {
		if v > 0 {
			return v
		}
		return def
	}
	switch level {
	case Moderate:
		return pick(r.Moderate, DefaultRates.Moderate)
	case Aggressive:
		return pick(r.Aggressive, DefaultRates.Aggressive)
	default:
		return pick(r.Conservative, DefaultRates.Conservative)
	}
}

// Event is a one-time amount scheduled for a 1-based month.
type Event struct {
	Month  int     `json:"month"`
	Amount float64 `json:"amount"`
}

// Input describes one simulation.
type Input struct {
	DailyContribution float64   `json:"dailyContribution"`
	Risk              RiskLevel `json:"riskLevel"`
	Horizon           int       `json:"horizon"`
	Extras            []Event   `json:"extraContributions,omitempty"`
	Withdrawals       []Event   `json:"withdrawalEvents,omitempty"`

	// Start labels points with calendar months when set.
	Start time.Time `json:"start,omitempty"`
}

// Point is the cumulative state at the end of one month.
type Point struct {
	Month         int    `json:"month"`
	Label         string `json:"label"`
	Principal     int64  `json:"principal"`
	InvestedValue int64  `json:"investedValue"`
}

// Growth is the compounding margin at this point.
func (p Point) Growth() int64 { return p.InvestedValue - p.Principal }

// Result is the projected series plus its totals.
type Result struct {
	Points           []Point `json:"points"`
	FinalPrincipal   int64   `json:"finalPrincipal"`
	FinalInvested    int64   `json:"finalInvested"`
	TotalReturns     int64   `json:"totalReturns"`
	AvgMonthlyGrowth int64   `json:"avgMonthlyGrowth"`
	BestMonth        int     `json:"bestMonth"`
}

// Engine projects with a fixed set of rates.
type Engine struct {
	rates Rates
}

// NewEngine returns an engine bound to rates.
func NewEngine(rates Rates) *Engine {
	return &Engine{rates: rates}
}

// Rates returns the engine's rate table.
func (e *Engine) Rates() Rates { return e.rates }

// Project runs a simulation with DefaultRates.
func Project(in Input) Result {
	return NewEngine(DefaultRates).Project(in)
}

// Project runs a simulation. It has no side effects; identical inputs
// always give identical results.
func (e *Engine) Project(in Input) Result {
	if in.Horizon <= 0 {
		return Result{Points: []Point{}}
	}

	monthlyRate := e.rates.Annual(in.Risk) / 12
	extras := byMonth(in.Extras)
	withdrawals := byMonth(in.Withdrawals)

	points := make([]Point, 0, in.Horizon)
	var principal, invested float64
	bestMonth := 0
	bestMargin := math.Inf(-1)

	for m := 1; m <= in.Horizon; m++ {
		net := in.DailyContribution*DaysPerMonth + extras[m] - withdrawals[m]
		principal += net
		invested = (invested + net) * (1 + monthlyRate)

		if margin := invested - principal; margin > bestMargin {
			bestMargin = margin
			bestMonth = m
		}

		points = append(points, Point{
			Month:         m,
			Label:         label(in.Start, m),
			Principal:     round(principal),
			InvestedValue: round(invested),
		})
	}

	returns := invested - principal
	return Result{
		Points:           points,
		FinalPrincipal:   round(principal),
		FinalInvested:    round(invested),
		TotalReturns:     round(returns),
		AvgMonthlyGrowth: round(returns / float64(in.Horizon)),
		BestMonth:        bestMonth,
	}
}

// MonthsToTarget returns the first month whose invested value reaches
// target, searching at most maxMonths. Extras and withdrawals apply as in
// Project.
func (e *Engine) MonthsToTarget(in Input, target float64, maxMonths int) (int, bool) {
	if target <= 0 {
		return 0, true
	}
	in.Horizon = maxMonths
	for _, p := range e.Project(in).Points {
		if float64(p.InvestedValue) >= target {
			return p.Month, true
		}
	}
	return 0, false
}

func byMonth(events []Event) map[int]float64 {
	out := make(map[int]float64, len(events))
	for _, ev := range events {
		out[ev.Month] += ev.Amount
	}
	return out
}

func label(start time.Time, month int) string {
	if start.IsZero() {
		return fmt.Sprintf("Month %d", month)
	}
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	return first.AddDate(0, month-1, 0).Format("Jan 2006")
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
