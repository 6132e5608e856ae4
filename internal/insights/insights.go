// Package insights implements the AI-assisted finance functions. Each one
// computes a rule-based answer from the store, asks the LLM gateway to
// improve on it, and falls back to the rule-based answer when the gateway
// is unavailable or its reply cannot be parsed.
package insights

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/theirongolddev/fintrack/internal/gateway"
	"github.com/theirongolddev/fintrack/internal/metrics"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/projection"
	"github.com/theirongolddev/fintrack/internal/store"
)

// Store is the data access the insight functions need.
type Store interface {
	ListTransactions(ctx context.Context, f store.TxFilter) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (model.Transaction, error)
	SetTransactionCategory(ctx context.Context, id, categoryID string) error
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	ListGoals(ctx context.Context, userID string) ([]model.Goal, error)
	UpsertSubscription(ctx context.Context, sub *model.Subscription) error
}

// Options tunes a Service. Zero fields take defaults, except BatchPause
// where zero means no pause between backfill batches.
type Options struct {
	TrendMonths int
	BatchSize   int
	BatchPause  time.Duration
	Now         func() time.Time
}

// Service runs the insight functions for any user.
type Service struct {
	store  Store
	llm    gateway.Completer
	engine *projection.Engine

	trendMonths int
	batchSize   int
	batchPause  time.Duration
	now         func() time.Time
}

// New returns a Service. llm may be nil, in which case every function
// answers with its rule-based fallback.
func New(st Store, llm gateway.Completer, engine *projection.Engine, opts Options) *Service {
	s := &Service{
		store:       st,
		llm:         llm,
		engine:      engine,
		trendMonths: opts.TrendMonths,
		batchSize:   opts.BatchSize,
		batchPause:  opts.BatchPause,
		now:         opts.Now,
	}
	if s.engine == nil {
		s.engine = projection.NewEngine(projection.DefaultRates)
	}
	if s.trendMonths < 2 {
		s.trendMonths = 3
	}
	if s.batchSize <= 0 {
		s.batchSize = 10
	}
	if s.batchPause < 0 {
		s.batchPause = 0
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Engine returns the projection engine the service uses.
func (s *Service) Engine() *projection.Engine { return s.engine }

// ask sends one prompt to the gateway and records the outcome.
func (s *Service) ask(ctx context.Context, function, system, prompt string) (string, error) {
	if s.llm == nil {
		metrics.GatewayCalls.WithLabelValues(function, "not_configured").Inc()
		return "", gateway.ErrNotConfigured
	}
	reply, err := s.llm.Complete(ctx, system, prompt)
	metrics.GatewayCalls.WithLabelValues(function, outcome(err)).Inc()
	return reply, err
}

// fallback logs why a function degraded and returns the reason label.
func fallback(function string, err error) string {
	reason := outcome(err)
	if errors.Is(err, model.ErrParse) {
		reason = "parse"
	}
	log.Printf("%s: using fallback (%s): %v", function, reason, err)
	metrics.Fallbacks.WithLabelValues(function, reason).Inc()
	return reason
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gateway.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, gateway.ErrPaymentRequired):
		return "payment_required"
	case errors.Is(err, gateway.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, model.ErrParse):
		return "parse"
	default:
		return "error"
	}
}
