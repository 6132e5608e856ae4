// Package market polls quote providers on behalf of subscribers. Each
// symbol has at most one polling loop no matter how many subscribers
// share it.
package market

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/theirongolddev/fintrack/internal/metrics"
)

// DefaultInterval is the poll period when none is configured.
const DefaultInterval = 15 * time.Second

type feed struct {
	subs   map[int]func(Quote)
	cancel context.CancelFunc
	last   *Quote
}

// Registry maps symbol to subscribers to one polling loop. It is safe for
// concurrent use.
type Registry struct {
	provider Provider
	interval time.Duration

	mu     sync.Mutex
	feeds  map[string]*feed
	nextID int
	wg     sync.WaitGroup
}

// NewRegistry returns a registry polling provider every interval.
func NewRegistry(provider Provider, interval time.Duration) *Registry {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Registry{
		provider: provider,
		interval: interval,
		feeds:    make(map[string]*feed),
	}
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Subscribe registers fn for quotes of symbol. The first subscriber starts
// the symbol's polling loop, which polls immediately and then every
// interval; the last unsubscribe stops it. fn runs on the polling
// goroutine and must not block for long. The returned func is idempotent.
func (r *Registry) Subscribe(symbol string, fn func(Quote)) func() {
	symbol = NormalizeSymbol(symbol)

	r.mu.Lock()
	f, ok := r.feeds[symbol]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = &feed{subs: make(map[int]func(Quote)), cancel: cancel}
		r.feeds[symbol] = f
		r.wg.Add(1)
		go r.poll(ctx, symbol, f)
		metrics.MarketSymbols.Inc()
	}
	r.nextID++
	id := r.nextID
	f.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.unsubscribe(symbol, f, id) })
	}
}

func (r *Registry) unsubscribe(symbol string, f *feed, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(f.subs, id)
	if len(f.subs) == 0 && r.feeds[symbol] == f {
		delete(r.feeds, symbol)
		f.cancel()
		metrics.MarketSymbols.Dec()
	}
}

func (r *Registry) poll(ctx context.Context, symbol string, f *feed) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.pollOnce(ctx, symbol, f)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Registry) pollOnce(ctx context.Context, symbol string, f *feed) {
	q, err := r.provider.Quote(ctx, symbol)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		metrics.MarketPolls.WithLabelValues("error").Inc()
		log.Printf("market: polling %s: %v", symbol, err)
		return
	}
	metrics.MarketPolls.WithLabelValues("ok").Inc()

	r.mu.Lock()
	f.last = &q
	fns := make([]func(Quote), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(q)
	}
}

// Last returns the most recent quote polled for symbol, if its loop is
// running and has succeeded at least once.
func (r *Registry) Last(symbol string) (Quote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[NormalizeSymbol(symbol)]
	if !ok || f.last == nil {
		return Quote{}, false
	}
	return *f.last, true
}

// Quote returns symbol's latest polled quote, or asks the provider
// directly when no loop is running for it.
func (r *Registry) Quote(ctx context.Context, symbol string) (Quote, error) {
	if q, ok := r.Last(symbol); ok {
		return q, nil
	}
	return r.provider.Quote(ctx, NormalizeSymbol(symbol))
}

// ActiveSymbols lists symbols with a running loop, sorted.
func (r *Registry) ActiveSymbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.feeds))
	for s := range r.feeds {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SubscriberCount returns how many subscribers share symbol's loop.
func (r *Registry) SubscriberCount(symbol string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.feeds[NormalizeSymbol(symbol)]; ok {
		return len(f.subs)
	}
	return 0
}

// Close stops every loop and waits for them to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	for symbol, f := range r.feeds {
		f.cancel()
		delete(r.feeds, symbol)
		metrics.MarketSymbols.Dec()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
