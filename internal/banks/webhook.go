package banks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
)

// Webhook types and codes sent by the aggregator.
const (
	TypeTransactions = "TRANSACTIONS"
	TypeItem         = "ITEM"
	TypeError        = "ERROR"

	CodeTransactionsRemoved = "TRANSACTIONS_REMOVED"
	CodeItemError           = "ERROR"
	CodePendingExpiration   = "PENDING_EXPIRATION"
	CodePermissionRevoked   = "USER_PERMISSION_REVOKED"
	CodeLoginRepaired       = "LOGIN_REPAIRED"

	errLoginRequired = "ITEM_LOGIN_REQUIRED"
)

// WebhookTransaction is one transaction carried inline by a webhook.
// Positive amounts are money leaving the account.
type WebhookTransaction struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Name          string          `json:"name"`
	MerchantName  string          `json:"merchant_name"`
	Date          string          `json:"date"`
	Pending       bool            `json:"pending"`
}

// WebhookError is the aggregator's error object.
type WebhookError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

// Webhook is the aggregator notification body.
type Webhook struct {
	Type                string               `json:"webhook_type"`
	Code                string               `json:"webhook_code"`
	ItemID              string               `json:"item_id"`
	NewTransactions     int                  `json:"new_transactions"`
	RemovedTransactions []string             `json:"removed_transactions"`
	Transactions        []WebhookTransaction `json:"transactions"`
	Error               *WebhookError        `json:"error"`
}

// WebhookResult reports what a webhook changed.
type WebhookResult struct {
	ItemID   string `json:"item_id"`
	Status   string `json:"status"`
	Upserted int    `json:"upserted"`
	Removed  int    `json:"removed"`
	Ignored  bool   `json:"ignored,omitempty"`
}

// ApplyWebhook updates the connection, its transactions and the audit log
// from one notification. Unknown webhook types are acknowledged and
// ignored.
func (s *Service) ApplyWebhook(ctx context.Context, wh Webhook, remoteIP string) (WebhookResult, error) {
	if strings.TrimSpace(wh.ItemID) == "" {
		return WebhookResult{}, fieldError("item_id", "is required")
	}
	conn, err := s.store.BankConnectionByItem(ctx, wh.ItemID)
	if err != nil {
		return WebhookResult{}, err
	}
	res := WebhookResult{ItemID: wh.ItemID, Status: conn.Status}

	switch strings.ToUpper(wh.Type) {
	case TypeTransactions:
		if err := s.applyTransactions(ctx, conn, wh, &res); err != nil {
			return WebhookResult{}, err
		}
	case TypeItem, TypeError:
		res.Status = itemStatus(wh)
		if err := s.store.UpdateConnectionSync(ctx, wh.ItemID, res.Status, time.Time{}); err != nil {
			return WebhookResult{}, err
		}
	default:
		res.Ignored = true
	}

	detail := fmt.Sprintf("%s/%s upserted=%d removed=%d status=%s", wh.Type, wh.Code, res.Upserted, res.Removed, res.Status)
	if err := s.store.Audit(ctx, conn.UserID, ActionWebhook, detail, remoteIP); err != nil {
		return WebhookResult{}, err
	}
	return res, nil
}

func (s *Service) applyTransactions(ctx context.Context, conn model.BankConnection, wh Webhook, res *WebhookResult) error {
	if strings.EqualFold(wh.Code, CodeTransactionsRemoved) || len(wh.RemovedTransactions) > 0 {
		n, err := s.store.DeleteBankTransactions(ctx, conn.UserID, wh.RemovedTransactions)
		if err != nil {
			return err
		}
		res.Removed = n
	}

	txs := make([]model.Transaction, 0, len(wh.Transactions))
	for _, wt := range wh.Transactions {
		if wt.Pending || wt.Amount.IsZero() {
			continue
		}
		t, err := toTransaction(conn.UserID, wt)
		if err != nil {
			return err
		}
		txs = append(txs, t)
	}
	n, err := s.store.UpsertBankTransactions(ctx, txs)
	if err != nil {
		return err
	}
	res.Upserted = n

	res.Status = model.ConnectionActive
	return s.store.UpdateConnectionSync(ctx, wh.ItemID, res.Status, s.now())
}

func toTransaction(userID string, wt WebhookTransaction) (model.Transaction, error) {
	at, err := time.Parse("2006-01-02", wt.Date)
	if err != nil {
		return model.Transaction{}, fieldError("transactions.date", fmt.Sprintf("%q is not YYYY-MM-DD", wt.Date))
	}
	kind := model.Expense
	amount := wt.Amount
	if amount.IsNegative() {
		kind = model.Income
		amount = amount.Neg()
	}
	desc := strings.TrimSpace(wt.Name)
	if desc == "" {
		desc = wt.MerchantName
	}
	return model.Transaction{
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Description: desc,
		Merchant:    wt.MerchantName,
		ExternalID:  wt.TransactionID,
		OccurredAt:  at.Add(12 * time.Hour),
	}, nil
}

func itemStatus(wh Webhook) string {
	code := strings.ToUpper(wh.Code)
	switch {
	case code == CodeLoginRepaired:
		return model.ConnectionActive
	case code == CodePermissionRevoked:
		return model.ConnectionDisconnected
	case code == CodePendingExpiration:
		return model.ConnectionLoginNeeded
	case wh.Error != nil && wh.Error.Code == errLoginRequired:
		return model.ConnectionLoginNeeded
	default:
		return model.ConnectionErrored
	}
}
