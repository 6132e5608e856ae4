package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/pipeline"
	"github.com/theirongolddev/fintrack/internal/store"
)

// historyMonths is how much ledger the dashboard loads.
const historyMonths = 6

// Source is the read side of the store the dashboard renders.
type Source interface {
	ListTransactions(ctx context.Context, f store.TxFilter) ([]model.Transaction, error)
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	ListGoals(ctx context.Context, userID string) ([]model.Goal, error)
	ListRankings(ctx context.Context, month string) ([]model.Ranking, error)
	ListBadges(ctx context.Context, userID string) ([]model.Badge, error)
	ListFriendships(ctx context.Context, userID, status string) ([]model.Friendship, error)
}

// dashboard is everything the tabs render, computed once per load.
type dashboard struct {
	month     string
	txs       []model.Transaction // newest first
	catNames  map[string]string
	current   model.Summary // month to date
	previous  model.Summary // whole previous month
	months    []model.MonthlySpend
	spend     []model.CategorySpend
	budgets   []model.BudgetStatus
	goals     []model.Goal
	rankings  []model.Ranking
	myRank    *model.Ranking
	badges    []model.Badge
	incoming  []model.Friendship
	outgoing  int
	loadedAt  time.Time
	loadTaken time.Duration
}

// loadDashboard reads one user's ledger and social state as of now.
func loadDashboard(ctx context.Context, src Source, userID string, now time.Time) (dashboard, error) {
	start := time.Now()
	monthStart := pipeline.StartOfMonth(now)
	since := monthStart.AddDate(0, -(historyMonths - 1), 0)

	txs, err := src.ListTransactions(ctx, store.TxFilter{UserID: userID, Since: since})
	if err != nil {
		return dashboard{}, fmt.Errorf("loading transactions: %w", err)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].OccurredAt.After(txs[j].OccurredAt) })

	cats, err := src.ListCategories(ctx, userID)
	if err != nil {
		return dashboard{}, fmt.Errorf("loading categories: %w", err)
	}
	goals, err := src.ListGoals(ctx, userID)
	if err != nil {
		return dashboard{}, fmt.Errorf("loading goals: %w", err)
	}

	d := dashboard{
		month:    monthStart.Format("2006-01"),
		txs:      txs,
		catNames: make(map[string]string, len(cats)),
		current:  pipeline.Aggregate(txs, monthStart, now),
		previous: pipeline.Aggregate(txs, monthStart.AddDate(0, -1, 0), monthStart),
		months:   pipeline.AggregateMonths(txs, historyMonths, now),
		spend:    pipeline.AggregateCategories(txs, cats, monthStart, now),
		budgets:  pipeline.BudgetStatuses(txs, cats, now),
		goals:    goals,
		loadedAt: now,
	}
	for _, c := range cats {
		d.catNames[c.ID] = c.Name
	}

	if d.rankings, err = src.ListRankings(ctx, d.month); err != nil {
		return dashboard{}, fmt.Errorf("loading rankings: %w", err)
	}
	for i := range d.rankings {
		if d.rankings[i].UserID == userID {
			d.myRank = &d.rankings[i]
			break
		}
	}
	if d.badges, err = src.ListBadges(ctx, userID); err != nil {
		return dashboard{}, fmt.Errorf("loading badges: %w", err)
	}
	pending, err := src.ListFriendships(ctx, userID, model.FriendPending)
	if err != nil {
		return dashboard{}, fmt.Errorf("loading friend requests: %w", err)
	}
	for _, f := range pending {
		if f.AddresseeID == userID {
			d.incoming = append(d.incoming, f)
		} else {
			d.outgoing++
		}
	}

	d.loadTaken = time.Since(start)
	return d, nil
}

func (d dashboard) category(id string) string {
	if name, ok := d.catNames[id]; ok {
		return name
	}
	return "Uncategorized"
}
