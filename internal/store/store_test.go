package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/realtime"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func expense(user, desc, amount string, at time.Time) *model.Transaction {
	return &model.Transaction{
		UserID:      user,
		Kind:        model.Expense,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Merchant:    desc,
		OccurredAt:  at,
	}
}

func TestRebind(t *testing.T) {
	s := &Store{driver: DriverPostgres}
	got := s.rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)")
	want := "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)"
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	s.driver = DriverSQLite
	if got := s.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatal("Open(mysql) succeeded, want error")
	}
}

func TestTransactionsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hub := realtime.NewHub(10)
	s.SetNotifier(hub)
	changes, cancel := hub.Subscribe(TableTransactions)
	defer cancel()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, amt := range []string{"4.50", "12.00", "60.25"} {
		if err := s.InsertTransaction(ctx, expense("u1", "Cafe", amt, base.AddDate(0, 0, i))); err != nil {
			t.Fatalf("InsertTransaction: %v", err)
		}
	}
	if err := s.InsertTransaction(ctx, expense("u2", "Other", "1.00", base)); err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}

	select {
	case c := <-changes:
		if c.Op != realtime.Insert {
			t.Fatalf("change op = %s, want insert", c.Op)
		}
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}

	got, err := s.ListTransactions(ctx, TxFilter{UserID: "u1", Since: base.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("60.25")) {
		t.Fatalf("first amount = %s, want 60.25 (most recent first)", got[0].Amount)
	}
	if !got[0].OccurredAt.Equal(base.AddDate(0, 0, 2)) {
		t.Fatalf("OccurredAt = %v, want %v", got[0].OccurredAt, base.AddDate(0, 0, 2))
	}

	uncategorized, err := s.ListTransactions(ctx, TxFilter{UserID: "u1", Uncategorized: true, Limit: 1})
	if err != nil {
		t.Fatalf("ListTransactions uncategorized: %v", err)
	}
	if len(uncategorized) != 1 {
		t.Fatalf("uncategorized len = %d, want 1", len(uncategorized))
	}
	if err := s.SetTransactionCategory(ctx, uncategorized[0].ID, "cat-1"); err != nil {
		t.Fatalf("SetTransactionCategory: %v", err)
	}
	tx, err := s.GetTransaction(ctx, "u1", uncategorized[0].ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx.CategoryID != "cat-1" {
		t.Fatalf("CategoryID = %q, want cat-1", tx.CategoryID)
	}
	if _, err := s.GetTransaction(ctx, "u2", tx.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetTransaction other user err = %v, want ErrNotFound", err)
	}
}

func TestInsertTransactionValidates(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertTransaction(context.Background(), expense("u1", "", "0", time.Now()))
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestUpsertBankTransactionsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	batch := func(amount string) []model.Transaction {
		tx := expense("u1", "Streamly", amount, at)
		tx.ExternalID = "ext-1"
		return []model.Transaction{*tx}
	}
	if _, err := s.UpsertBankTransactions(ctx, batch("9.99")); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := s.UpsertBankTransactions(ctx, batch("10.99")); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.ListTransactions(ctx, TxFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("10.99")) || got[0].Source != model.SourceBank {
		t.Fatalf("row = %+v, want updated bank row", got[0])
	}

	n, err := s.DeleteBankTransactions(ctx, "u1", []string{"ext-1", "missing"})
	if err != nil || n != 1 {
		t.Fatalf("DeleteBankTransactions = %d, %v, want 1, nil", n, err)
	}
}

func TestFriendRequestConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f, err := s.CreateFriendRequest(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateFriendRequest: %v", err)
	}
	if _, err := s.CreateFriendRequest(ctx, "alice", "bob"); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("duplicate request err = %v, want ErrConflict", err)
	}

	found, err := s.FindFriendship(ctx, "bob", "alice")
	if err != nil || found.ID != f.ID {
		t.Fatalf("FindFriendship reversed = %+v, %v", found, err)
	}

	accepted, err := s.SetFriendshipStatus(ctx, f.ID, model.FriendAccepted)
	if err != nil {
		t.Fatalf("SetFriendshipStatus: %v", err)
	}
	if accepted.Status != model.FriendAccepted || accepted.RespondedAt.IsZero() {
		t.Fatalf("accepted = %+v", accepted)
	}
	pending, err := s.ListFriendships(ctx, "bob", model.FriendPending)
	if err != nil || len(pending) != 0 {
		t.Fatalf("pending = %v, %v, want none", pending, err)
	}
}

func TestChallengesAndBadges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	c := &model.Challenge{
		CreatorID: "alice",
		Title:     "Save 500",
		Kind:      model.ChallengeSavings,
		Target:    decimal.NewFromInt(500),
		StartsAt:  now,
		EndsAt:    now.AddDate(0, 1, 0),
	}
	if err := s.CreateChallenge(ctx, c); err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if err := s.JoinChallenge(ctx, c.ID, "bob"); err != nil {
		t.Fatalf("JoinChallenge: %v", err)
	}
	if err := s.JoinChallenge(ctx, c.ID, "bob"); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("second join err = %v, want ErrConflict", err)
	}
	if err := s.SetChallengeProgress(ctx, c.ID, "bob", decimal.NewFromInt(120)); err != nil {
		t.Fatalf("SetChallengeProgress: %v", err)
	}

	list, err := s.ListChallenges(ctx, "bob")
	if err != nil {
		t.Fatalf("ListChallenges: %v", err)
	}
	if len(list) != 1 || len(list[0].Participants) != 2 {
		t.Fatalf("challenges = %+v, want one with two participants", list)
	}

	fresh, err := s.AwardBadge(ctx, "bob", model.BadgeChallenger, "Challenger")
	if err != nil || !fresh {
		t.Fatalf("AwardBadge first = %v, %v", fresh, err)
	}
	fresh, err = s.AwardBadge(ctx, "bob", model.BadgeChallenger, "Challenger")
	if err != nil || fresh {
		t.Fatalf("AwardBadge second = %v, %v, want false, nil", fresh, err)
	}
	badges, _ := s.ListBadges(ctx, "bob")
	if len(badges) != 1 {
		t.Fatalf("badges = %d, want 1", len(badges))
	}
}

func TestReplaceRankings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.UpsertProfile(ctx, &model.Profile{ID: "u1", DisplayName: "Ana"})

	first := []model.Ranking{
		{UserID: "u1", Rank: 1, Score: 80, Income: decimal.NewFromInt(100), Expense: decimal.NewFromInt(20)},
		{UserID: "u2", Rank: 2, Score: 40, Income: decimal.NewFromInt(100), Expense: decimal.NewFromInt(60)},
	}
	if err := s.ReplaceRankings(ctx, "2026-03", first); err != nil {
		t.Fatalf("ReplaceRankings: %v", err)
	}
	if err := s.ReplaceRankings(ctx, "2026-03", first[:1]); err != nil {
		t.Fatalf("ReplaceRankings again: %v", err)
	}
	got, err := s.ListRankings(ctx, "2026-03")
	if err != nil {
		t.Fatalf("ListRankings: %v", err)
	}
	if len(got) != 1 || got[0].DisplayName != "Ana" {
		t.Fatalf("rankings = %+v, want only Ana", got)
	}
}

func TestSubscriptionUpsertKeepsStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sub := &model.Subscription{
		UserID: "u1", Merchant: "streamly", Amount: decimal.RequireFromString("9.99"),
		Cadence: model.Monthly, Source: "detected", Confidence: 0.8,
	}
	if err := s.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("UpsertSubscription: %v", err)
	}
	if err := s.SetSubscriptionStatus(ctx, "u1", sub.ID, model.SubscriptionCancelled); err != nil {
		t.Fatalf("SetSubscriptionStatus: %v", err)
	}
	again := *sub
	again.ID = ""
	again.Status = ""
	again.Amount = decimal.RequireFromString("10.99")
	if err := s.UpsertSubscription(ctx, &again); err != nil {
		t.Fatalf("UpsertSubscription again: %v", err)
	}

	active, _ := s.ListSubscriptions(ctx, "u1", true)
	if len(active) != 0 {
		t.Fatalf("active = %+v, want none", active)
	}
	all, _ := s.ListSubscriptions(ctx, "u1", false)
	if len(all) != 1 || !all[0].Amount.Equal(decimal.RequireFromString("10.99")) {
		t.Fatalf("all = %+v, want one updated row", all)
	}
}

func TestBankConnectionSyncAndAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := &model.BankConnection{UserID: "u1", Institution: "First Bank", ItemID: "item-9", AccessTokenEnc: "enc"}
	if err := s.InsertBankConnection(ctx, c); err != nil {
		t.Fatalf("InsertBankConnection: %v", err)
	}
	synced := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	if err := s.UpdateConnectionSync(ctx, "item-9", model.ConnectionActive, synced); err != nil {
		t.Fatalf("UpdateConnectionSync: %v", err)
	}
	got, err := s.BankConnectionByItem(ctx, "item-9")
	if err != nil {
		t.Fatalf("BankConnectionByItem: %v", err)
	}
	if !got.LastSyncedAt.Equal(synced) {
		t.Fatalf("LastSyncedAt = %v, want %v", got.LastSyncedAt, synced)
	}
	if err := s.UpdateConnectionSync(ctx, "nope", model.ConnectionErrored, time.Time{}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown item err = %v, want ErrNotFound", err)
	}

	if err := s.Audit(ctx, "u1", "token.decrypt", "item-9", "127.0.0.1"); err != nil {
		t.Fatalf("Audit: %v", err)
	}
	logs, err := s.ListAudit(ctx, "u1", 10)
	if err != nil || len(logs) != 1 || logs[0].Action != "token.decrypt" {
		t.Fatalf("ListAudit = %+v, %v", logs, err)
	}
}

func TestSeedCategoriesIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := s.SeedCategories(ctx); err != nil {
			t.Fatalf("SeedCategories: %v", err)
		}
	}
	cats, err := s.ListCategories(ctx, "u1")
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != len(DefaultCategories) {
		t.Fatalf("categories = %d, want %d", len(cats), len(DefaultCategories))
	}
}
