package daemon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/realtime"
	"github.com/theirongolddev/fintrack/internal/store"
)

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		Users:        3,
		Transactions: 10,
		Income:       decimal.RequireFromString("1000"),
		Expense:      decimal.RequireFromString("250.50"),
	}
	curr := Snapshot{
		Users:        4,
		Transactions: 13,
		Income:       decimal.RequireFromString("1000"),
		Expense:      decimal.RequireFromString("310.25"),
	}

	delta := diffSnapshots(prev, curr)
	if delta.Users != 1 {
		t.Fatalf("Users delta = %d, want 1", delta.Users)
	}
	if delta.Transactions != 3 {
		t.Fatalf("Transactions delta = %d, want 3", delta.Transactions)
	}
	if !delta.Income.IsZero() {
		t.Fatalf("Income delta = %s, want 0", delta.Income)
	}
	if !delta.Expense.Equal(decimal.RequireFromString("59.75")) {
		t.Fatalf("Expense delta = %s, want 59.75", delta.Expense)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a non-zero delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{Interval: 10 * time.Second, EventsBuffer: 2}, nil, nil, nil)

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func newLedger(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "daemon.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func addTx(t *testing.T, st *store.Store, user string, kind model.TxKind, amount string, at time.Time) {
	t.Helper()
	tx := model.Transaction{
		UserID: user, Kind: kind, Amount: decimal.RequireFromString(amount),
		Description: "entry", OccurredAt: at,
	}
	if err := st.InsertTransaction(context.Background(), &tx); err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}
}

func TestPollOnceEmitsSnapshotThenDelta(t *testing.T) {
	st := newLedger(t)
	now := time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)
	addTx(t, st, "u1", model.Income, "2000", now.AddDate(0, 0, -10))
	addTx(t, st, "u1", model.Expense, "500", now.AddDate(0, 0, -3))
	addTx(t, st, "u2", model.Expense, "99", now.AddDate(0, -1, 0)) // previous month

	s := New(Config{}, st, nil, nil)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.pollOnce(ctx)
	st1 := s.Status()
	if st1.PollCount != 1 || st1.EventCount != 1 {
		t.Fatalf("after first poll: polls=%d events=%d, want 1/1", st1.PollCount, st1.EventCount)
	}
	sum := st1.Summary
	if sum.Month != "2026-03" || sum.Transactions != 2 || sum.Users != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if !sum.Net.Equal(decimal.NewFromInt(1500)) || sum.SavingsRate != 0.75 {
		t.Fatalf("net = %s rate = %v, want 1500 and 0.75", sum.Net, sum.SavingsRate)
	}

	s.pollOnce(ctx)
	if got := s.Status().EventCount; got != 1 {
		t.Fatalf("unchanged poll emitted an event (events = %d)", got)
	}

	addTx(t, st, "u2", model.Expense, "40", now.AddDate(0, 0, -1))
	s.pollOnce(ctx)
	s.mu.RLock()
	last := s.events[len(s.events)-1]
	s.mu.RUnlock()
	if last.Type != EventLedgerDelta || last.Delta.Transactions != 1 || !last.Delta.Expense.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("last event = %+v, want ledger_delta of one 40 expense", last)
	}

	s.now = func() time.Time { return now.AddDate(0, 1, 0) }
	s.pollOnce(ctx)
	s.mu.RLock()
	last = s.events[len(s.events)-1]
	s.mu.RUnlock()
	if last.Type != EventMonthRolled || last.Snapshot.Month != "2026-04" {
		t.Fatalf("last event = %+v, want month_rolled into 2026-04", last)
	}
}

type failingLedger struct{}

func (failingLedger) ListTransactions(context.Context, store.TxFilter) ([]model.Transaction, error) {
	return nil, errors.New("db down")
}
func (failingLedger) UserIDs(context.Context) ([]string, error) { return nil, nil }

func TestPollOnceRecordsError(t *testing.T) {
	s := New(Config{}, failingLedger{}, nil, nil)
	s.pollOnce(context.Background())
	st := s.Status()
	if st.LastError != "db down" || st.PollCount != 1 || st.EventCount != 0 {
		t.Fatalf("status = %+v, want recorded error and no events", st)
	}
}

func TestStatusIncludesHub(t *testing.T) {
	hub := realtime.NewHub(8)
	hub.Publish(store.TableTransactions, realtime.Insert, "t1")
	_, cancel := hub.Subscribe(realtime.AllTables)
	defer cancel()

	s := New(Config{Driver: store.DriverSQLite}, newLedger(t), hub, nil)
	st := s.Status()
	if st.HubSubscribers != 1 || len(st.RecentChanges) != 1 || st.Driver != "sqlite" {
		t.Fatalf("status = %+v", st)
	}
	if st.MarketSymbols == nil {
		t.Fatal("MarketSymbols is nil, want empty slice")
	}
}

func TestHandlerRoutesToAPI(t *testing.T) {
	s := New(Config{}, newLedger(t), nil, nil)
	api := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := s.Handler(api)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/transactions", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("API route = %d, want passthrough", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("/v1/events = %d %q", rec.Code, rec.Body.String())
	}
}
