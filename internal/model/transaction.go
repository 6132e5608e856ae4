// Package model defines the persisted finance records and their aggregates.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxKind separates money in from money out.
type TxKind string

const (
	Income  TxKind = "income"
	Expense TxKind = "expense"
)

// TxSource records where a transaction came from.
type TxSource string

const (
	SourceManual TxSource = "manual"
	SourceBank   TxSource = "bank"
)

// Transaction is one income or expense entry. Amount is always positive;
// Kind carries the direction.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Kind        TxKind          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	Source      TxSource        `json:"source"`
	ExternalID  string          `json:"external_id,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Signed returns the amount with expenses negative.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Category groups transactions. An empty UserID marks a global category.
type Category struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id,omitempty"`
	Name          string          `json:"name"`
	Kind          TxKind          `json:"kind"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
}

// Cadence is how often a subscription charges.
type Cadence string

const (
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
	Yearly  Cadence = "yearly"
)

// Days returns the nominal length of one cadence period.
func (c Cadence) Days() int {
	switch c {
	case Weekly:
		return 7
	case Yearly:
		return 365
	default:
		return 30
	}
}

// Subscription is a recurring charge, detected or entered by hand.
type Subscription struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Merchant   string          `json:"merchant"`
	Amount     decimal.Decimal `json:"amount"`
	Cadence    Cadence         `json:"cadence"`
	NextCharge time.Time       `json:"next_charge"`
	Status     string          `json:"status"`
	Source     string          `json:"source"`
	Confidence float64         `json:"confidence"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

// BankConnection links a user to an aggregator item. The access token is
// stored encrypted.
type BankConnection struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Institution    string    `json:"institution"`
	ItemID         string    `json:"item_id"`
	AccessTokenEnc string    `json:"-"`
	Status         string    `json:"status"`
	LastSyncedAt   time.Time `json:"last_synced_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// Bank connection statuses.
const (
	ConnectionActive       = "active"
	ConnectionLoginNeeded  = "login_required"
	ConnectionErrored      = "error"
	ConnectionDisconnected = "disconnected"
)

// AuditLog is one security-relevant event.
type AuditLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
