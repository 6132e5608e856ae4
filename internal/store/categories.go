package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/realtime"
)

// DefaultCategories are seeded as global categories.
var DefaultCategories = []model.Category{
	{Name: "Groceries", Kind: model.Expense},
	{Name: "Dining", Kind: model.Expense},
	{Name: "Transport", Kind: model.Expense},
	{Name: "Housing", Kind: model.Expense},
	{Name: "Utilities", Kind: model.Expense},
	{Name: "Entertainment", Kind: model.Expense},
	{Name: "Subscriptions", Kind: model.Expense},
	{Name: "Shopping", Kind: model.Expense},
	{Name: "Health", Kind: model.Expense},
	{Name: "Other", Kind: model.Expense},
	{Name: "Salary", Kind: model.Income},
	{Name: "Other Income", Kind: model.Income},
}

// SeedCategories inserts DefaultCategories that are missing.
func (s *Store) SeedCategories(ctx context.Context) error {
	for _, c := range DefaultCategories {
		_, err := s.exec(ctx, s.db, `INSERT INTO categories (id, user_id, name, kind, monthly_budget)
			VALUES (?, '', ?, ?, '0') ON CONFLICT (user_id, name) DO NOTHING`,
			newID(), c.Name, string(c.Kind))
		if err != nil {
			return fmt.Errorf("seeding category %s: %w", c.Name, err)
		}
	}
	return nil
}

// InsertCategory stores a user category.
func (s *Store) InsertCategory(ctx context.Context, c *model.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = newID()
	}
	_, err := s.exec(ctx, s.db, `INSERT INTO categories (id, user_id, name, kind, monthly_budget)
		VALUES (?, ?, ?, ?, ?)`, c.ID, c.UserID, c.Name, string(c.Kind), c.MonthlyBudget.String())
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	s.notify(TableCategories, realtime.Insert, c.ID)
	return nil
}

// SetCategoryBudget updates a category's monthly budget.
func (s *Store) SetCategoryBudget(ctx context.Context, id string, budget decimal.Decimal) error {
	res, err := s.exec(ctx, s.db, `UPDATE categories SET monthly_budget = ? WHERE id = ?`, budget.String(), id)
	if err != nil {
		return fmt.Errorf("updating budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %s: %w", id, model.ErrNotFound)
	}
	s.notify(TableCategories, realtime.Update, id)
	return nil
}

// ListCategories returns global categories plus those owned by userID.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	rows, err := s.query(ctx, `SELECT id, user_id, name, kind, monthly_budget FROM categories
		WHERE user_id = '' OR user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &kind, &c.MonthlyBudget); err != nil {
			return nil, err
		}
		c.Kind = model.TxKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertGoal validates and stores a goal.
func (s *Store) InsertGoal(ctx context.Context, g *model.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.ID == "" {
		g.ID = newID()
	}
	g.CreatedAt = s.now().UTC()
	_, err := s.exec(ctx, s.db, `INSERT INTO goals
		(id, user_id, name, target, saved, daily_contribution, risk_level, deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Target.String(), g.Saved.String(), g.DailyContribution.String(),
		g.RiskLevel, formatTime(g.Deadline), formatTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting goal: %w", err)
	}
	s.notify(TableGoals, realtime.Insert, g.ID)
	return nil
}

// ListGoals returns a user's goals, oldest first.
func (s *Store) ListGoals(ctx context.Context, userID string) ([]model.Goal, error) {
	rows, err := s.query(ctx, `SELECT id, user_id, name, target, saved, daily_contribution,
		risk_level, deadline, created_at FROM goals WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Goal{}
	for rows.Next() {
		var g model.Goal
		var deadline, created string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Target, &g.Saved, &g.DailyContribution,
			&g.RiskLevel, &deadline, &created); err != nil {
			return nil, err
		}
		g.Deadline = parseTime(deadline)
		g.CreatedAt = parseTime(created)
		out = append(out, g)
	}
	return out, rows.Err()
}

// AddToGoal adds amount to a goal's saved total.
func (s *Store) AddToGoal(ctx context.Context, userID, id string, amount decimal.Decimal) (model.Goal, error) {
	goals, err := s.ListGoals(ctx, userID)
	if err != nil {
		return model.Goal{}, err
	}
	for _, g := range goals {
		if g.ID != id {
			continue
		}
		g.Saved = g.Saved.Add(amount)
		if _, err := s.exec(ctx, s.db, `UPDATE goals SET saved = ? WHERE id = ?`, g.Saved.String(), id); err != nil {
			return model.Goal{}, fmt.Errorf("updating goal: %w", err)
		}
		s.notify(TableGoals, realtime.Update, id)
		return g, nil
	}
	return model.Goal{}, fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
}

// UserIDs returns every user that has a profile or a transaction.
func (s *Store) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, `SELECT id FROM profiles UNION SELECT DISTINCT user_id FROM transactions ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

