package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/theirongolddev/fintrack/internal/gateway"
	"github.com/theirongolddev/fintrack/internal/pipeline"
	"github.com/theirongolddev/fintrack/internal/store"
)

// DetectionReport is the subscription and daily-expense scan for one user.
type DetectionReport struct {
	pipeline.Detection
	Refined  bool   `json:"refined"`
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}

const namesSystem = `You clean up bank merchant descriptors. Given a JSON array of raw
merchant keys, reply with JSON only: an object mapping each key to a short human-readable
brand name, e.g. {"netflix com": "Netflix"}.`

// DetectSubscriptions scans the last 180 days for recurring charges and
// habitual small expenses, asks the gateway to prettify merchant names
// and stores each detected subscription.
func (s *Service) DetectSubscriptions(ctx context.Context, userID string) (DetectionReport, error) {
	now := s.now()
	txs, err := s.store.ListTransactions(ctx, store.TxFilter{
		UserID: userID,
		Since:  now.AddDate(0, 0, -pipeline.DetectionWindowDays),
	})
	if err != nil {
		return DetectionReport{}, fmt.Errorf("insights: loading transactions: %w", err)
	}

	report := DetectionReport{Detection: pipeline.Detect(userID, txs, now)}

	if keys := merchantKeys(report.Detection); len(keys) > 0 {
		if names, err := s.refineNames(ctx, keys); err != nil {
			report.Fallback = true
			report.Reason = fallback("detect-subscriptions", err)
		} else {
			applyNames(&report.Detection, names)
			report.Refined = true
		}
	}

	for i := range report.Subscriptions {
		if err := s.store.UpsertSubscription(ctx, &report.Subscriptions[i]); err != nil {
			return DetectionReport{}, fmt.Errorf("insights: saving subscription %s: %w", report.Subscriptions[i].Merchant, err)
		}
	}
	return report, nil
}

func (s *Service) refineNames(ctx context.Context, keys []string) (map[string]string, error) {
	prompt, _ := json.Marshal(keys)
	reply, err := s.ask(ctx, "detect-subscriptions", namesSystem, string(prompt))
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	if err := gateway.ExtractJSON(reply, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func merchantKeys(d pipeline.Detection) []string {
	keys := make([]string, 0, len(d.Subscriptions)+len(d.DailyExpenses))
	for _, sub := range d.Subscriptions {
		keys = append(keys, sub.Merchant)
	}
	for _, de := range d.DailyExpenses {
		keys = append(keys, de.Merchant)
	}
	return keys
}

// applyNames swaps in gateway names, ignoring blank or overlong ones.
func applyNames(d *pipeline.Detection, names map[string]string) {
	pick := func(key string) string {
		n := strings.TrimSpace(names[key])
		if n == "" || len(n) > 80 {
			return key
		}
		return n
	}
	for i := range d.Subscriptions {
		d.Subscriptions[i].Merchant = pick(d.Subscriptions[i].Merchant)
	}
	for i := range d.DailyExpenses {
		d.DailyExpenses[i].Merchant = pick(d.DailyExpenses[i].Merchant)
	}
}
