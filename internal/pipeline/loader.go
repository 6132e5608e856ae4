package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/store"
)

// TxLister is the slice of the store the loader needs.
type TxLister interface {
	ListTransactions(ctx context.Context, f store.TxFilter) ([]model.Transaction, error)
}

// ProgressFunc is called during loading to report progress.
// current is the number of users processed so far, total is the total count.
type ProgressFunc func(current, total int)

// LoadResult holds every user's transactions for a window.
type LoadResult struct {
	ByUser       map[string][]model.Transaction
	Transactions int
	Errors       int
}

// LoadUsers fetches each user's transactions within [since, until) using a
// bounded worker pool. Per-user failures are counted, not fatal; the
// first one is returned alongside the partial result when every user
// failed.
func LoadUsers(ctx context.Context, src TxLister, userIDs []string, since, until time.Time, progressFn ProgressFunc) (*LoadResult, error) {
	result := &LoadResult{ByUser: make(map[string][]model.Transaction, len(userIDs))}
	if len(userIDs) == 0 {
		return result, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(userIDs) {
		numWorkers = len(userIDs)
	}

	type loaded struct {
		txs []model.Transaction
		err error
	}
	work := make(chan int, len(userIDs))
	results := make([]loaded, len(userIDs))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range userIDs {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				if err := ctx.Err(); err != nil {
					results[idx].err = err
					continue
				}
				txs, err := src.ListTransactions(ctx, store.TxFilter{
					UserID: userIDs[idx],
					Since:  since,
					Until:  until,
				})
				results[idx] = loaded{txs: txs, err: err}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(userIDs))
				}
			}
		}()
	}
	wg.Wait()

	var firstErr error
	for i, r := range results {
		if r.err != nil {
			result.Errors++
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		result.ByUser[userIDs[i]] = r.txs
		result.Transactions += len(r.txs)
	}
	if result.Errors == len(userIDs) {
		return result, fmt.Errorf("loading transactions: %w", firstErr)
	}
	return result, nil
}
