package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
)

// Detection thresholds.
const (
	DetectionWindowDays = 180
	AmountTolerance     = 0.10
	DailyWindowDays     = 30
	DailyMinCharges     = 8
)

// SmallChargeLimit is the largest median charge counted as a daily expense.
var SmallChargeLimit = decimal.NewFromInt(25)

// cadenceWindow is the accepted gap, in days, between two charges.
type cadenceWindow struct {
	cadence  model.Cadence
	min, max float64
	minCount int
}

var cadenceWindows = []cadenceWindow{
	{model.Weekly, 6, 8, 3},
	{model.Monthly, 26, 35, 2},
	{model.Yearly, 350, 380, 2},
}

// DailyExpense is a merchant charged small amounts most days.
type DailyExpense struct {
	Merchant        string          `json:"merchant"`
	Count           int             `json:"count"`
	Total           decimal.Decimal `json:"total"`
	Average         decimal.Decimal `json:"average"`
	MonthlyEstimate decimal.Decimal `json:"monthly_estimate"`
}

// Detection is the result of scanning a user's history.
type Detection struct {
	Subscriptions []model.Subscription `json:"subscriptions"`
	DailyExpenses []DailyExpense       `json:"daily_expenses"`
}

// Detect finds recurring charges and habitual small expenses in txs as of
// now. A subscription is a merchant whose charges stay within 10% of their
// median and recur on a weekly, monthly or yearly rhythm. Merchants whose
// last charge is more than two periods old are treated as cancelled and
// skipped.
func Detect(userID string, txs []model.Transaction, now time.Time) Detection {
	since := now.AddDate(0, 0, -DetectionWindowDays)
	byMerchant := make(map[string][]model.Transaction)
	for _, t := range FilterByTime(txs, since, now.Add(time.Nanosecond)) {
		if t.Kind != model.Expense {
			continue
		}
		if m := MerchantOf(t); m != "" {
			byMerchant[m] = append(byMerchant[m], t)
		}
	}

	det := Detection{Subscriptions: []model.Subscription{}, DailyExpenses: []DailyExpense{}}
	dailySince := now.AddDate(0, 0, -DailyWindowDays)

	for merchant, charges := range byMerchant {
		sort.Slice(charges, func(i, j int) bool { return charges[i].OccurredAt.Before(charges[j].OccurredAt) })

		if sub, ok := detectRecurring(userID, merchant, charges, now); ok {
			det.Subscriptions = append(det.Subscriptions, sub)
			continue
		}
		if de, ok := detectDaily(merchant, FilterByTime(charges, dailySince, time.Time{})); ok {
			det.DailyExpenses = append(det.DailyExpenses, de)
		}
	}

	sort.Slice(det.Subscriptions, func(i, j int) bool { return det.Subscriptions[i].Merchant < det.Subscriptions[j].Merchant })
	sort.Slice(det.DailyExpenses, func(i, j int) bool {
		if c := det.DailyExpenses[i].Total.Cmp(det.DailyExpenses[j].Total); c != 0 {
			return c > 0
		}
		return det.DailyExpenses[i].Merchant < det.DailyExpenses[j].Merchant
	})
	return det
}

func detectRecurring(userID, merchant string, charges []model.Transaction, now time.Time) (model.Subscription, bool) {
	if len(charges) < 2 {
		return model.Subscription{}, false
	}

	med := median(amounts(charges))
	if !med.IsPositive() {
		return model.Subscription{}, false
	}
	for _, c := range charges {
		dev, _ := c.Amount.Sub(med).Abs().Div(med).Float64()
		if dev > AmountTolerance {
			return model.Subscription{}, false
		}
	}

	gaps := make([]float64, 0, len(charges)-1)
	for i := 1; i < len(charges); i++ {
		gaps = append(gaps, charges[i].OccurredAt.Sub(charges[i-1].OccurredAt).Hours()/24)
	}

	for _, w := range cadenceWindows {
		if len(charges) < w.minCount {
			continue
		}
		matched := 0
		for _, g := range gaps {
			if g >= w.min && g <= w.max {
				matched++
			}
		}
		fit := float64(matched) / float64(len(gaps))
		if fit < 0.75 {
			continue
		}

		last := charges[len(charges)-1]
		period := time.Duration(w.cadence.Days()) * 24 * time.Hour
		if now.Sub(last.OccurredAt) > 2*period {
			return model.Subscription{}, false
		}

		// More observed periods raise confidence, capped at 1.
		confidence := fit * math.Min(1, 0.5+0.125*float64(len(charges)))
		return model.Subscription{
			UserID:     userID,
			Merchant:   merchant,
			Amount:     last.Amount,
			Cadence:    w.cadence,
			NextCharge: last.OccurredAt.AddDate(0, 0, w.cadence.Days()),
			Status:     model.SubscriptionActive,
			Source:     "detected",
			Confidence: math.Round(confidence*100) / 100,
		}, true
	}
	return model.Subscription{}, false
}

func detectDaily(merchant string, recent []model.Transaction) (DailyExpense, bool) {
	if len(recent) < DailyMinCharges {
		return DailyExpense{}, false
	}
	if median(amounts(recent)).GreaterThan(SmallChargeLimit) {
		return DailyExpense{}, false
	}
	var total decimal.Decimal
	for _, t := range recent {
		total = total.Add(t.Amount)
	}
	n := decimal.NewFromInt(int64(len(recent)))
	return DailyExpense{
		Merchant:        merchant,
		Count:           len(recent),
		Total:           total,
		Average:         total.Div(n).Round(2),
		MonthlyEstimate: total.Mul(decimal.NewFromInt(30)).Div(decimal.NewFromInt(DailyWindowDays)).Round(2),
	}, true
}

func amounts(txs []model.Transaction) []decimal.Decimal {
	out := make([]decimal.Decimal, len(txs))
	for i, t := range txs {
		out[i] = t.Amount
	}
	return out
}

func median(vs []decimal.Decimal) decimal.Decimal {
	if len(vs) == 0 {
		return decimal.Zero
	}
	s := append([]decimal.Decimal(nil), vs...)
	sort.Slice(s, func(i, j int) bool { return s[i].LessThan(s[j]) })
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return s[mid-1].Add(s[mid]).Div(decimal.NewFromInt(2))
}
