package banks

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/store"
	"github.com/theirongolddev/fintrack/internal/vault"
)

var fixedNow = time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "banks.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	v, err := vault.New("test-secret")
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	svc := New(st, v)
	svc.now = func() time.Time { return fixedNow }
	return svc, st
}

func connect(t *testing.T, svc *Service) model.BankConnection {
	t.Helper()
	c, err := svc.Connect(context.Background(), "u1", ConnectRequest{
		Institution: "First Bank",
		ItemID:      "item-1",
		AccessToken: "access-sandbox-123",
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c
}

func TestConnectSealsToken(t *testing.T) {
	svc, st := newService(t)
	c := connect(t, svc)

	if c.AccessTokenEnc == "" || strings.Contains(c.AccessTokenEnc, "access-sandbox") {
		t.Fatalf("AccessTokenEnc = %q, want ciphertext", c.AccessTokenEnc)
	}
	if c.Status != model.ConnectionActive {
		t.Fatalf("Status = %q, want active", c.Status)
	}
	plain, err := svc.DecryptToken(context.Background(), "u1", c.AccessTokenEnc, "10.0.0.1")
	if err != nil || plain != "access-sandbox-123" {
		t.Fatalf("DecryptToken = %q, %v", plain, err)
	}

	logs, err := st.ListAudit(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	actions := map[string]bool{}
	for _, l := range logs {
		actions[l.Action] = true
	}
	if !actions[ActionConnect] || !actions[ActionTokenDecrypt] {
		t.Fatalf("audit actions = %v, want connect and decrypt", actions)
	}
}

func TestConnectValidation(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Connect(context.Background(), "u1", ConnectRequest{}, "")
	var v *model.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, f := range []string{"institution", "item_id", "access_token"} {
		if _, ok := v.Fields[f]; !ok {
			t.Fatalf("missing field error for %s: %v", f, v.Fields)
		}
	}
}

func TestTokenWithoutKey(t *testing.T) {
	_, st := newService(t)
	svc := New(st, nil)
	if _, err := svc.EncryptToken(context.Background(), "u1", "tok", ""); !errors.Is(err, vault.ErrNoKey) {
		t.Fatalf("EncryptToken err = %v, want ErrNoKey", err)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.DecryptToken(context.Background(), "u1", "not-a-token", "")
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestWebhookTransactions(t *testing.T) {
	svc, st := newService(t)
	connect(t, svc)
	ctx := context.Background()

	res, err := svc.ApplyWebhook(ctx, Webhook{
		Type:   TypeTransactions,
		Code:   "DEFAULT_UPDATE",
		ItemID: "item-1",
		Transactions: []WebhookTransaction{
			{TransactionID: "ext-1", Amount: decimal.RequireFromString("12.50"), Name: "NETFLIX.COM", MerchantName: "Netflix", Date: "2026-03-18"},
			{TransactionID: "ext-2", Amount: decimal.RequireFromString("-2000"), Name: "PAYROLL", Date: "2026-03-15"},
			{TransactionID: "ext-3", Amount: decimal.RequireFromString("4"), Name: "Coffee", Date: "2026-03-19", Pending: true},
		},
	}, "")
	if err != nil {
		t.Fatalf("ApplyWebhook: %v", err)
	}
	if res.Upserted != 2 || res.Status != model.ConnectionActive {
		t.Fatalf("result = %+v, want 2 upserted and active", res)
	}

	txs, err := st.ListTransactions(ctx, store.TxFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len(txs) = %d, want 2", len(txs))
	}
	kinds := map[string]model.TxKind{}
	for _, tx := range txs {
		kinds[tx.ExternalID] = tx.Kind
		if tx.Source != model.SourceBank {
			t.Fatalf("Source = %q, want bank", tx.Source)
		}
	}
	if kinds["ext-1"] != model.Expense || kinds["ext-2"] != model.Income {
		t.Fatalf("kinds = %v", kinds)
	}

	conn, err := st.BankConnectionByItem(ctx, "item-1")
	if err != nil {
		t.Fatalf("BankConnectionByItem: %v", err)
	}
	if !conn.LastSyncedAt.Equal(fixedNow) {
		t.Fatalf("LastSyncedAt = %v, want %v", conn.LastSyncedAt, fixedNow)
	}

	res, err = svc.ApplyWebhook(ctx, Webhook{
		Type:                TypeTransactions,
		Code:                CodeTransactionsRemoved,
		ItemID:              "item-1",
		RemovedTransactions: []string{"ext-1"},
	}, "")
	if err != nil {
		t.Fatalf("ApplyWebhook(removed): %v", err)
	}
	if res.Removed != 1 {
		t.Fatalf("Removed = %d, want 1", res.Removed)
	}
}

func TestWebhookItemStatus(t *testing.T) {
	tests := []struct {
		name string
		wh   Webhook
		want string
	}{
		{"login required", Webhook{Type: TypeItem, Code: CodeItemError, Error: &WebhookError{Code: "ITEM_LOGIN_REQUIRED"}}, model.ConnectionLoginNeeded},
		{"expiring", Webhook{Type: TypeItem, Code: CodePendingExpiration}, model.ConnectionLoginNeeded},
		{"revoked", Webhook{Type: TypeItem, Code: CodePermissionRevoked}, model.ConnectionDisconnected},
		{"repaired", Webhook{Type: TypeItem, Code: CodeLoginRepaired}, model.ConnectionActive},
		{"other error", Webhook{Type: TypeError, Code: "INTERNAL"}, model.ConnectionErrored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newService(t)
			connect(t, svc)
			tt.wh.ItemID = "item-1"
			res, err := svc.ApplyWebhook(context.Background(), tt.wh, "")
			if err != nil {
				t.Fatalf("ApplyWebhook: %v", err)
			}
			if res.Status != tt.want {
				t.Fatalf("Status = %q, want %q", res.Status, tt.want)
			}
			conn, _ := st.BankConnectionByItem(context.Background(), "item-1")
			if conn.Status != tt.want {
				t.Fatalf("stored status = %q, want %q", conn.Status, tt.want)
			}
		})
	}
}

func TestWebhookUnknownItem(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.ApplyWebhook(context.Background(), Webhook{Type: TypeTransactions, ItemID: "missing"}, "")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWebhookIgnoresUnknownType(t *testing.T) {
	svc, _ := newService(t)
	connect(t, svc)
	res, err := svc.ApplyWebhook(context.Background(), Webhook{Type: "AUTH", ItemID: "item-1"}, "")
	if err != nil || !res.Ignored {
		t.Fatalf("res = %+v, err = %v; want ignored", res, err)
	}
}
