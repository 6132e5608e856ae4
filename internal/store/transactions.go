package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/realtime"
)

// TxFilter narrows ListTransactions. Zero fields do not filter.
type TxFilter struct {
	UserID        string
	Since         time.Time
	Until         time.Time
	Kind          model.TxKind
	CategoryID    string
	Uncategorized bool
	Limit         int
}

const txColumns = `id, user_id, kind, amount, description, merchant, category_id,
	source, external_id, occurred_at, created_at`

// InsertTransaction validates and stores a new transaction, assigning its
// ID and creation time.
func (s *Store) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	if tx.Source == "" {
		tx.Source = model.SourceManual
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.ID == "" {
		tx.ID = newID()
	}
	tx.CreatedAt = s.now().UTC()

	_, err := s.exec(ctx, s.db, `INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.Kind), tx.Amount.String(), tx.Description, tx.Merchant,
		tx.CategoryID, string(tx.Source), nullString(tx.ExternalID),
		formatTime(tx.OccurredAt), formatTime(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	s.notify(TableTransactions, realtime.Insert, tx.ID)
	return nil
}

// UpsertBankTransactions writes aggregator transactions keyed by
// (user, external id) in one database transaction. It returns how many
// rows were written.
func (s *Store) UpsertBankTransactions(ctx context.Context, txs []model.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = dbtx.Rollback() }()

	now := formatTime(s.now())
	for i := range txs {
		t := &txs[i]
		t.Source = model.SourceBank
		if t.ExternalID == "" {
			return 0, fmt.Errorf("bank transaction %d: %w", i, &model.ValidationError{
				Fields: map[string]string{"external_id": "is required"},
			})
		}
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("bank transaction %s: %w", t.ExternalID, err)
		}
		if t.ID == "" {
			t.ID = newID()
		}
		_, err := s.exec(ctx, dbtx, `INSERT INTO transactions (`+txColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, external_id) DO UPDATE SET
				kind = excluded.kind,
				amount = excluded.amount,
				description = excluded.description,
				merchant = excluded.merchant,
				occurred_at = excluded.occurred_at`,
			t.ID, t.UserID, string(t.Kind), t.Amount.String(), t.Description, t.Merchant,
			t.CategoryID, string(t.Source), t.ExternalID, formatTime(t.OccurredAt), now,
		)
		if err != nil {
			return 0, fmt.Errorf("upserting bank transaction %s: %w", t.ExternalID, err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return 0, err
	}
	s.notify(TableTransactions, realtime.Update, "")
	return len(txs), nil
}

// DeleteBankTransactions removes aggregator transactions by external id.
func (s *Store) DeleteBankTransactions(ctx context.Context, userID string, externalIDs []string) (int, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(externalIDs)+1)
	args = append(args, userID)
	for _, id := range externalIDs {
		args = append(args, id)
	}
	res, err := s.exec(ctx, s.db, `DELETE FROM transactions WHERE user_id = ? AND external_id IN (`+
		placeholders(len(externalIDs))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting bank transactions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.notify(TableTransactions, realtime.Delete, "")
	}
	return int(n), nil
}

// ListTransactions returns matching transactions, most recent first.
func (s *Store) ListTransactions(ctx context.Context, f TxFilter) ([]model.Transaction, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if !f.Since.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, formatTime(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, "occurred_at < ?")
		args = append(args, formatTime(f.Until))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Uncategorized {
		where = append(where, "category_id = ''")
	}

	q := `SELECT ` + txColumns + ` FROM transactions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY occurred_at DESC, id"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTransaction returns one transaction owned by userID.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (model.Transaction, error) {
	row := s.queryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return model.Transaction{}, notFound(err, "transaction "+id)
	}
	return t, nil
}

// SetTransactionCategory assigns a category to a transaction.
func (s *Store) SetTransactionCategory(ctx context.Context, id, categoryID string) error {
	res, err := s.exec(ctx, s.db, `UPDATE transactions SET category_id = ? WHERE id = ?`, categoryID, id)
	if err != nil {
		return fmt.Errorf("categorizing transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
	}
	s.notify(TableTransactions, realtime.Update, id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r scanner) (model.Transaction, error) {
	var t model.Transaction
	var kind, source, occurred, created string
	var external sql.NullString
	var amount decimal.Decimal
	err := r.Scan(&t.ID, &t.UserID, &kind, &amount, &t.Description, &t.Merchant, &t.CategoryID,
		&source, &external, &occurred, &created)
	if err != nil {
		return t, err
	}
	t.Kind = model.TxKind(kind)
	t.Amount = amount
	t.Source = model.TxSource(source)
	t.ExternalID = external.String
	t.OccurredAt = parseTime(occurred)
	t.CreatedAt = parseTime(created)
	return t, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
