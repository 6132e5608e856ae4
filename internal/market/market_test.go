package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
)

type countingProvider struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (p *countingProvider) Quote(_ context.Context, symbol string) (Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[symbol]++
	if p.err != nil {
		return Quote{}, p.err
	}
	return Quote{Symbol: symbol, Price: 100 + float64(p.calls[symbol])}, nil
}

func (p *countingProvider) count(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[symbol]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRegistrySharesOneLoop(t *testing.T) {
	p := &countingProvider{}
	r := NewRegistry(p, time.Hour)
	defer r.Close()

	var a, b atomic.Int64
	unsubA := r.Subscribe("aapl", func(Quote) { a.Add(1) })
	waitFor(t, "first poll", func() bool { return a.Load() == 1 })

	unsubB := r.Subscribe(" AAPL ", func(Quote) { b.Add(1) })
	if got := r.SubscriberCount("AAPL"); got != 2 {
		t.Fatalf("SubscriberCount = %d, want 2", got)
	}
	if got := r.ActiveSymbols(); len(got) != 1 || got[0] != "AAPL" {
		t.Fatalf("ActiveSymbols = %v, want [AAPL]", got)
	}
	// The second subscriber joins the running loop instead of polling again.
	if got := p.count("AAPL"); got != 1 {
		t.Fatalf("polls = %d, want 1", got)
	}
	if q, ok := r.Last("aapl"); !ok || q.Price != 101 {
		t.Fatalf("Last = %+v, %v", q, ok)
	}

	unsubA()
	unsubA()
	if got := r.SubscriberCount("AAPL"); got != 1 {
		t.Fatalf("SubscriberCount after unsubscribe = %d, want 1", got)
	}
	unsubB()
	if got := r.ActiveSymbols(); len(got) != 0 {
		t.Fatalf("ActiveSymbols after last unsubscribe = %v", got)
	}
	if _, ok := r.Last("AAPL"); ok {
		t.Fatal("Last reported a quote for a stopped symbol")
	}
}

func TestRegistryPollsOnInterval(t *testing.T) {
	p := &countingProvider{}
	r := NewRegistry(p, 10*time.Millisecond)
	defer r.Close()

	var got atomic.Int64
	unsub := r.Subscribe("MSFT", func(Quote) { got.Add(1) })
	waitFor(t, "three polls", func() bool { return got.Load() >= 3 })
	unsub()

	stopped := p.count("MSFT")
	time.Sleep(50 * time.Millisecond)
	if after := p.count("MSFT"); after > stopped+1 {
		t.Fatalf("polling continued after unsubscribe: %d -> %d", stopped, after)
	}
}

func TestRegistryKeepsPollingAfterErrors(t *testing.T) {
	p := &countingProvider{err: errors.New("boom")}
	r := NewRegistry(p, 10*time.Millisecond)
	defer r.Close()

	called := make(chan struct{}, 1)
	unsub := r.Subscribe("TSLA", func(Quote) {
		select {
		case called <- struct{}{}:
		default:
		}
	})
	defer unsub()

	waitFor(t, "repeated polls", func() bool { return p.count("TSLA") >= 3 })
	select {
	case <-called:
		t.Fatal("subscriber called despite poll errors")
	default:
	}
}

func TestRegistryQuoteWithoutLoop(t *testing.T) {
	p := &countingProvider{}
	r := NewRegistry(p, time.Hour)
	defer r.Close()

	q, err := r.Quote(context.Background(), " msft ")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Symbol != "MSFT" || p.count("MSFT") != 1 {
		t.Fatalf("Quote = %+v after %d calls, want one direct MSFT call", q, p.count("MSFT"))
	}
	if got := r.ActiveSymbols(); len(got) != 0 {
		t.Fatalf("ActiveSymbols = %v, want none", got)
	}
}

func TestRegistryClose(t *testing.T) {
	p := &countingProvider{}
	r := NewRegistry(p, time.Hour)
	unsub := r.Subscribe("A", func(Quote) {})
	r.Subscribe("B", func(Quote) {})
	r.Close()
	if got := r.ActiveSymbols(); len(got) != 0 {
		t.Fatalf("ActiveSymbols after Close = %v", got)
	}
	unsub()
}

func TestHTTPProviderQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" || r.URL.Query().Get("token") != "k" {
			t.Errorf("request = %s", r.URL)
		}
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			_, _ = w.Write([]byte(`{"c":187.5,"d":1.5,"dp":0.81,"h":188,"l":185,"o":186,"pc":186,"t":1767225600}`))
		case "LIMIT":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "k")
	q, err := p.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Price != 187.5 || q.ChangePercent != 0.81 || q.At.Unix() != 1767225600 {
		t.Fatalf("quote = %+v", q)
	}

	if _, err := p.Quote(context.Background(), "LIMIT"); !errors.Is(err, ErrRateLimited) || !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if _, err := p.Quote(context.Background(), "NOPE"); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("err = %v, want ErrUnknownSymbol", err)
	}
	if _, err := NewHTTPProvider(srv.URL, "").Quote(context.Background(), "AAPL"); !errors.Is(err, ErrNoKey) {
		t.Fatalf("err = %v, want ErrNoKey", err)
	}
}
