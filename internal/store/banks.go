package store

import (
	"context"
	"fmt"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/realtime"
)

// UpsertSubscription inserts or refreshes a subscription keyed by
// (user, merchant, cadence). A cancelled subscription stays cancelled.
func (s *Store) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	if sub.ID == "" {
		sub.ID = newID()
	}
	if sub.Status == "" {
		sub.Status = model.SubscriptionActive
	}
	sub.UpdatedAt = s.now().UTC()
	_, err := s.exec(ctx, s.db, `INSERT INTO subscriptions
		(id, user_id, merchant, amount, cadence, next_charge, status, source, confidence, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, merchant, cadence) DO UPDATE SET
			amount = excluded.amount,
			next_charge = excluded.next_charge,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`,
		sub.ID, sub.UserID, sub.Merchant, sub.Amount.String(), string(sub.Cadence),
		formatTime(sub.NextCharge), sub.Status, sub.Source, sub.Confidence, formatTime(sub.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving subscription: %w", err)
	}
	s.notify(TableSubscriptions, realtime.Update, sub.ID)
	return nil
}

// SetSubscriptionStatus marks a subscription active or cancelled.
func (s *Store) SetSubscriptionStatus(ctx context.Context, userID, id, status string) error {
	res, err := s.exec(ctx, s.db, `UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		status, formatTime(s.now()), id, userID)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subscription %s: %w", id, model.ErrNotFound)
	}
	s.notify(TableSubscriptions, realtime.Update, id)
	return nil
}

// ListSubscriptions returns a user's subscriptions, optionally only active.
func (s *Store) ListSubscriptions(ctx context.Context, userID string, activeOnly bool) ([]model.Subscription, error) {
	q := `SELECT id, user_id, merchant, amount, cadence, next_charge, status, source, confidence, updated_at
		FROM subscriptions WHERE user_id = ?`
	args := []any{userID}
	if activeOnly {
		q += " AND status = ?"
		args = append(args, model.SubscriptionActive)
	}
	rows, err := s.query(ctx, q+" ORDER BY merchant", args...)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Subscription{}
	for rows.Next() {
		var sub model.Subscription
		var cadence, next, updated string
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Merchant, &sub.Amount, &cadence, &next,
			&sub.Status, &sub.Source, &sub.Confidence, &updated); err != nil {
			return nil, err
		}
		sub.Cadence = model.Cadence(cadence)
		sub.NextCharge = parseTime(next)
		sub.UpdatedAt = parseTime(updated)
		out = append(out, sub)
	}
	return out, rows.Err()
}

const connColumns = `id, user_id, institution, item_id, access_token_enc, status, last_synced_at, created_at`

// InsertBankConnection stores a connection. The token must already be
// encrypted.
func (s *Store) InsertBankConnection(ctx context.Context, c *model.BankConnection) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = model.ConnectionActive
	}
	c.CreatedAt = s.now().UTC()
	_, err := s.exec(ctx, s.db, `INSERT INTO bank_connections (`+connColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Institution, c.ItemID, c.AccessTokenEnc, c.Status,
		formatTime(c.LastSyncedAt), formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting bank connection: %w", err)
	}
	s.notify(TableBankConnections, realtime.Insert, c.ID)
	return nil
}

// BankConnectionByItem looks a connection up by aggregator item id.
func (s *Store) BankConnectionByItem(ctx context.Context, itemID string) (model.BankConnection, error) {
	var c model.BankConnection
	var synced, created string
	err := s.queryRow(ctx, `SELECT `+connColumns+` FROM bank_connections WHERE item_id = ?`, itemID).
		Scan(&c.ID, &c.UserID, &c.Institution, &c.ItemID, &c.AccessTokenEnc, &c.Status, &synced, &created)
	if err != nil {
		return model.BankConnection{}, notFound(err, "bank item "+itemID)
	}
	c.LastSyncedAt = parseTime(synced)
	c.CreatedAt = parseTime(created)
	return c, nil
}

// ListBankConnections returns a user's connections.
func (s *Store) ListBankConnections(ctx context.Context, userID string) ([]model.BankConnection, error) {
	rows, err := s.query(ctx, `SELECT `+connColumns+` FROM bank_connections WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing bank connections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.BankConnection{}
	for rows.Next() {
		var c model.BankConnection
		var synced, created string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Institution, &c.ItemID, &c.AccessTokenEnc, &c.Status,
			&synced, &created); err != nil {
			return nil, err
		}
		c.LastSyncedAt = parseTime(synced)
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConnectionSync sets a connection's status and, when syncedAt is
// non-zero, its last sync time.
func (s *Store) UpdateConnectionSync(ctx context.Context, itemID, status string, syncedAt time.Time) error {
	q := `UPDATE bank_connections SET status = ? WHERE item_id = ?`
	args := []any{status, itemID}
	if !syncedAt.IsZero() {
		q = `UPDATE bank_connections SET status = ?, last_synced_at = ? WHERE item_id = ?`
		args = []any{status, formatTime(syncedAt), itemID}
	}
	res, err := s.exec(ctx, s.db, q, args...)
	if err != nil {
		return fmt.Errorf("updating bank connection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bank item %s: %w", itemID, model.ErrNotFound)
	}
	s.notify(TableBankConnections, realtime.Update, itemID)
	return nil
}

// Audit appends a security audit log row.
func (s *Store) Audit(ctx context.Context, userID, action, detail, remoteIP string) error {
	id := newID()
	_, err := s.exec(ctx, s.db, `INSERT INTO security_audit_log (id, user_id, action, detail, remote_ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, id, userID, action, detail, remoteIP, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	s.notify(TableAuditLog, realtime.Insert, id)
	return nil
}

// ListAudit returns a user's latest audit rows.
func (s *Store) ListAudit(ctx context.Context, userID string, limit int) ([]model.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.query(ctx, fmt.Sprintf(`SELECT id, user_id, action, detail, remote_ip, created_at
		FROM security_audit_log WHERE user_id = ? ORDER BY created_at DESC LIMIT %d`, limit), userID)
	if err != nil {
		return nil, fmt.Errorf("listing audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.AuditLog{}
	for rows.Next() {
		var a model.AuditLog
		var created string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Detail, &a.RemoteIP, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}
