package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/theirongolddev/fintrack/internal/gateway"
	"github.com/theirongolddev/fintrack/internal/metrics"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/store"
)

// Categorization is the category chosen for one transaction.
type Categorization struct {
	TransactionID string `json:"transaction_id"`
	CategoryID    string `json:"category_id"`
	Category      string `json:"category"`
	Fallback      bool   `json:"fallback"`
}

// categoryRules maps merchant keywords to default category names.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{"Subscriptions", []string{"netflix", "spotify", "hulu", "disney", "youtube", "icloud", "prime video", "patreon"}},
	{"Groceries", []string{"grocery", "market", "whole foods", "trader joe", "aldi", "kroger", "safeway", "costco", "lidl"}},
	{"Dining", []string{"restaurant", "cafe", "coffee", "starbucks", "pizza", "burger", "doordash", "ubereats", "grubhub", "bar "}},
	{"Transport", []string{"uber", "lyft", "taxi", "metro", "transit", "shell", "chevron", "fuel", "parking", "airline"}},
	{"Housing", []string{"rent", "mortgage", "hoa", "landlord"}},
	{"Utilities", []string{"electric", "water", "gas bill", "internet", "comcast", "verizon", "at&t", "t-mobile"}},
	{"Entertainment", []string{"cinema", "movie", "theater", "steam", "playstation", "xbox", "concert", "ticket"}},
	{"Shopping", []string{"amazon", "target", "walmart", "ebay", "etsy", "ikea", "best buy"}},
	{"Health", []string{"pharmacy", "cvs", "walgreens", "doctor", "dental", "clinic", "gym", "fitness"}},
	{"Salary", []string{"payroll", "salary", "direct dep"}},
}

// RuleCategory picks a category by keyword. Unmatched expenses land in
// "Other" and unmatched income in "Other Income".
func RuleCategory(t model.Transaction, cats []model.Category) (model.Category, bool) {
	text := strings.ToLower(t.Merchant + " " + t.Description)
	for _, r := range categoryRules {
		for _, kw := range r.keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			if c, ok := findCategory(cats, r.category, t.Kind); ok {
				return c, true
			}
		}
	}
	if t.Kind == model.Income {
		return findCategory(cats, "Other Income", t.Kind)
	}
	return findCategory(cats, "Other", t.Kind)
}

func findCategory(cats []model.Category, name string, kind model.TxKind) (model.Category, bool) {
	name = strings.TrimSpace(strings.Trim(name, `"'.`))
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) && (c.Kind == "" || c.Kind == kind) {
			return c, true
		}
	}
	return model.Category{}, false
}

const categorizeSystem = `You categorize personal finance transactions. Reply with JSON only:
{"category": "<one name from the provided list>"}.`

// Categorize assigns a category to one transaction. Gateway failures are
// returned to the caller; an unusable reply, or no gateway at all, falls
// back to keyword rules.
func (s *Service) Categorize(ctx context.Context, userID, txID string) (Categorization, error) {
	t, err := s.store.GetTransaction(ctx, userID, txID)
	if err != nil {
		return Categorization{}, err
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return Categorization{}, fmt.Errorf("insights: loading categories: %w", err)
	}
	return s.categorizeOne(ctx, t, cats)
}

func (s *Service) categorizeOne(ctx context.Context, t model.Transaction, cats []model.Category) (Categorization, error) {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		if c.Kind == t.Kind {
			names = append(names, c.Name)
		}
	}
	prompt, _ := json.Marshal(map[string]any{
		"categories":  names,
		"kind":        t.Kind,
		"amount":      t.Amount.StringFixed(2),
		"merchant":    t.Merchant,
		"description": t.Description,
	})

	reply, err := s.ask(ctx, "categorize", categorizeSystem, string(prompt))
	if err != nil && !errors.Is(err, gateway.ErrNotConfigured) {
		return Categorization{}, fmt.Errorf("insights: categorizing %s: %w", t.ID, err)
	}

	out := Categorization{TransactionID: t.ID}
	var parsed struct {
		Category string `json:"category"`
	}
	cat, ok := model.Category{}, false
	switch {
	case err != nil:
	case gateway.ExtractJSON(reply, &parsed) == nil:
		cat, ok = findCategory(cats, parsed.Category, t.Kind)
	default:
		// Some models answer with the bare name.
		cat, ok = findCategory(cats, gateway.Clean(reply), t.Kind)
	}
	if !ok {
		if err == nil {
			err = fmt.Errorf("insights: unusable category reply %q: %w", reply, model.ErrParse)
		}
		fallback("categorize", err)
		cat, ok = RuleCategory(t, cats)
		out.Fallback = true
	}
	if !ok {
		return Categorization{}, fmt.Errorf("insights: no category fits %s: %w", t.ID, model.ErrNotFound)
	}

	if err := s.store.SetTransactionCategory(ctx, t.ID, cat.ID); err != nil {
		return Categorization{}, fmt.Errorf("insights: saving category: %w", err)
	}
	out.CategoryID = cat.ID
	out.Category = cat.Name
	return out, nil
}

// BackfillResult counts the outcome of a backfill run.
type BackfillResult struct {
	Total       int  `json:"total"`
	Categorized int  `json:"categorized"`
	Fallbacks   int  `json:"fallbacks"`
	Failed      int  `json:"failed"`
	Batches     int  `json:"batches"`
	Stopped     bool `json:"stopped,omitempty"`
}

// BackfillProgress is called after each batch.
type BackfillProgress func(done, total int)

// Backfill categorizes every uncategorized transaction of the user. Each
// batch runs concurrently and batches are separated by the configured
// pause. A rate-limit or payment error stops the run after the current
// batch and is returned with the partial result.
func (s *Service) Backfill(ctx context.Context, userID string, progress BackfillProgress) (BackfillResult, error) {
	txs, err := s.store.ListTransactions(ctx, store.TxFilter{UserID: userID, Uncategorized: true})
	if err != nil {
		return BackfillResult{}, fmt.Errorf("insights: loading transactions: %w", err)
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("insights: loading categories: %w", err)
	}

	res := BackfillResult{Total: len(txs)}
	var stopErr error

	for start := 0; start < len(txs); start += s.batchSize {
		if start > 0 && s.batchPause > 0 {
			select {
			case <-ctx.Done():
				res.Stopped = true
				return res, ctx.Err()
			case <-time.After(s.batchPause):
			}
		}
		end := start + s.batchSize
		if end > len(txs) {
			end = len(txs)
		}

		batch := txs[start:end]
		results := make([]Categorization, len(batch))
		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		wg.Add(len(batch))
		for i := range batch {
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = s.categorizeOne(ctx, batch[i], cats)
			}(i)
		}
		wg.Wait()
		res.Batches++

		for i, err := range errs {
			switch {
			case err != nil:
				res.Failed++
				metrics.BackfillProcessed.WithLabelValues("failed").Inc()
				log.Printf("backfill: %s: %v", batch[i].ID, err)
				if stopErr == nil && (errors.Is(err, gateway.ErrRateLimited) || errors.Is(err, gateway.ErrPaymentRequired)) {
					stopErr = err
				}
			case results[i].Fallback:
				res.Categorized++
				res.Fallbacks++
				metrics.BackfillProcessed.WithLabelValues("fallback").Inc()
			default:
				res.Categorized++
				metrics.BackfillProcessed.WithLabelValues("ok").Inc()
			}
		}
		if progress != nil {
			progress(end, len(txs))
		}
		if stopErr != nil || ctx.Err() != nil {
			res.Stopped = end < len(txs)
			if stopErr == nil {
				stopErr = ctx.Err()
			}
			return res, stopErr
		}
	}
	return res, nil
}
