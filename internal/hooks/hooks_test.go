package hooks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/realtime"
	"github.com/theirongolddev/fintrack/internal/store"
)

func setup(t *testing.T) (*store.Store, *realtime.Hub) {
	t.Helper()
	st, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "hooks.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	hub := realtime.NewHub(16)
	st.SetNotifier(hub)
	return st, hub
}

func insert(t *testing.T, st *store.Store, user string) {
	t.Helper()
	tx := model.Transaction{
		UserID:      user,
		Kind:        model.Expense,
		Amount:      decimal.NewFromInt(5),
		Description: "coffee",
		OccurredAt:  time.Now().Add(-time.Hour),
	}
	if err := st.InsertTransaction(context.Background(), &tx); err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}
}

func TestFetchDegradesToEmpty(t *testing.T) {
	h := New[int](realtime.NewHub(1), "broken", "t",
		func(context.Context) ([]int, error) { return nil, errors.New("db down") }, nil)
	got := h.Fetch(context.Background())
	if got == nil || len(got) != 0 {
		t.Fatalf("Fetch = %#v, want empty non-nil slice", got)
	}
}

func TestFetchAppliesFilter(t *testing.T) {
	h := New(realtime.NewHub(1), "evens", "t",
		func(context.Context) ([]int, error) { return []int{1, 2, 3, 4}, nil },
		func(n int) bool { return n%2 == 0 })
	got := h.Fetch(context.Background())
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Fatalf("Fetch = %v, want [2 4]", got)
	}
}

func TestSubscribeRefetchesOnChange(t *testing.T) {
	st, hub := setup(t)
	h := Transactions(st, hub, "u1", 50)

	if got := h.Fetch(context.Background()); len(got) != 0 {
		t.Fatalf("initial Fetch = %d rows, want 0", len(got))
	}

	snapshots := make(chan []model.Transaction, 8)
	unsub := h.Subscribe(context.Background(), func(rows []model.Transaction) { snapshots <- rows })
	defer unsub()

	insert(t, st, "u1")
	select {
	case rows := <-snapshots:
		if len(rows) != 1 {
			t.Fatalf("snapshot = %d rows, want 1", len(rows))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after insert")
	}

	// Another user's write still triggers a refetch of this user's rows.
	insert(t, st, "u2")
	select {
	case rows := <-snapshots:
		if len(rows) != 1 || rows[0].UserID != "u1" {
			t.Fatalf("snapshot = %+v", rows)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after unrelated insert")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	st, hub := setup(t)
	h := Transactions(st, hub, "u1", 0)

	calls := make(chan struct{}, 8)
	unsub := h.Subscribe(context.Background(), func([]model.Transaction) { calls <- struct{}{} })
	unsub()
	unsub()

	insert(t, st, "u1")
	select {
	case <-calls:
		t.Fatal("onChange called after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
	if n := hub.SubscriberCount(); n != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", n)
	}
}

func TestContextCancelStopsDelivery(t *testing.T) {
	st, hub := setup(t)
	h := SubscriptionStatus(st, hub, "u1")

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 8)
	unsub := h.Subscribe(ctx, func([]model.Subscription) { calls <- struct{}{} })
	defer unsub()
	cancel()
	time.Sleep(10 * time.Millisecond)

	sub := model.Subscription{UserID: "u1", Merchant: "netflix", Amount: decimal.NewFromInt(15), Cadence: model.Monthly}
	if err := st.UpsertSubscription(context.Background(), &sub); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}
	select {
	case <-calls:
		t.Fatal("onChange called after ctx cancel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestContextCancelReleasesSubscription(t *testing.T) {
	st, hub := setup(t)
	h := SubscriptionStatus(st, hub, "u1")

	ctx, cancel := context.WithCancel(context.Background())
	for range 5 {
		h.Subscribe(ctx, func([]model.Subscription) {})
	}
	if n := hub.SubscriberCount(); n != 5 {
		t.Fatalf("SubscriberCount = %d, want 5", n)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for hub.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("SubscriberCount after cancel = %d, want 0", hub.SubscriberCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFriendRequestsKeepsIncoming(t *testing.T) {
	st, hub := setup(t)
	ctx := context.Background()
	if _, err := st.CreateFriendRequest(ctx, "ana", "u1"); err != nil {
		t.Fatalf("CreateFriendRequest: %v", err)
	}
	if _, err := st.CreateFriendRequest(ctx, "u1", "ben"); err != nil {
		t.Fatalf("CreateFriendRequest: %v", err)
	}
	got := FriendRequests(st, hub, "u1").Fetch(ctx)
	if len(got) != 1 || got[0].RequesterID != "ana" {
		t.Fatalf("FriendRequests = %+v", got)
	}
}

func TestChallengesHidesEnded(t *testing.T) {
	st, hub := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, c := range []model.Challenge{
		{CreatorID: "u1", Title: "Old", Kind: model.ChallengeSavings, Target: decimal.NewFromInt(50),
			StartsAt: now.AddDate(0, -2, 0), EndsAt: now.AddDate(0, -1, 0)},
		{CreatorID: "u1", Title: "Current", Kind: model.ChallengeSavings, Target: decimal.NewFromInt(50),
			StartsAt: now.AddDate(0, 0, -5), EndsAt: now.AddDate(0, 0, 10)},
	} {
		c := c
		if err := st.CreateChallenge(ctx, &c); err != nil {
			t.Fatalf("CreateChallenge: %v", err)
		}
	}
	got := Challenges(st, hub, "u1", func() time.Time { return now }).Fetch(ctx)
	if len(got) != 1 || got[0].Title != "Current" {
		t.Fatalf("Challenges = %+v", got)
	}
}
