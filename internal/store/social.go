package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/realtime"
)

// UpsertProfile creates or renames a profile.
func (s *Store) UpsertProfile(ctx context.Context, p *model.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	_, err := s.exec(ctx, s.db, `INSERT INTO profiles (id, display_name, phone, score, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name,
			phone = excluded.phone, score = excluded.score`,
		p.ID, p.DisplayName, p.Phone, p.Score, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	s.notify(TableProfiles, realtime.Update, p.ID)
	return nil
}

// GetProfile returns one profile.
func (s *Store) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	var p model.Profile
	var created string
	err := s.queryRow(ctx, `SELECT id, display_name, phone, score, created_at FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.DisplayName, &p.Phone, &p.Score, &created)
	if err != nil {
		return model.Profile{}, notFound(err, "profile "+id)
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

const friendshipColumns = `id, requester_id, addressee_id, status, created_at, responded_at`

// CreateFriendRequest stores a pending request. A second request between
// the same pair fails with model.ErrConflict.
func (s *Store) CreateFriendRequest(ctx context.Context, requesterID, addresseeID string) (model.Friendship, error) {
	f := model.Friendship{
		ID:          newID(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      model.FriendPending,
		CreatedAt:   s.now().UTC(),
	}
	_, err := s.exec(ctx, s.db, `INSERT INTO friendships (`+friendshipColumns+`) VALUES (?, ?, ?, ?, ?, '')`,
		f.ID, f.RequesterID, f.AddresseeID, f.Status, formatTime(f.CreatedAt))
	if err != nil {
		return model.Friendship{}, fmt.Errorf("creating friend request: %w", err)
	}
	s.notify(TableFriendships, realtime.Insert, f.ID)
	return f, nil
}

// GetFriendship returns one friendship row.
func (s *Store) GetFriendship(ctx context.Context, id string) (model.Friendship, error) {
	f, err := scanFriendship(s.queryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships WHERE id = ?`, id))
	if err != nil {
		return model.Friendship{}, notFound(err, "friend request "+id)
	}
	return f, nil
}

// FindFriendship returns the row linking a and b in either direction.
func (s *Store) FindFriendship(ctx context.Context, a, b string) (model.Friendship, error) {
	f, err := scanFriendship(s.queryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships
		WHERE (requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)`,
		a, b, b, a))
	if err != nil {
		return model.Friendship{}, notFound(err, "friendship")
	}
	return f, nil
}

// SetFriendshipStatus records a response to a request.
func (s *Store) SetFriendshipStatus(ctx context.Context, id, status string) (model.Friendship, error) {
	_, err := s.exec(ctx, s.db, `UPDATE friendships SET status = ?, responded_at = ? WHERE id = ?`,
		status, formatTime(s.now()), id)
	if err != nil {
		return model.Friendship{}, fmt.Errorf("updating friend request: %w", err)
	}
	s.notify(TableFriendships, realtime.Update, id)
	return s.GetFriendship(ctx, id)
}

// ReopenFriendship turns a declined row back into a pending request from
// requesterID.
func (s *Store) ReopenFriendship(ctx context.Context, id, requesterID, addresseeID string) (model.Friendship, error) {
	_, err := s.exec(ctx, s.db, `UPDATE friendships SET requester_id = ?, addressee_id = ?, status = ?,
		created_at = ?, responded_at = '' WHERE id = ?`,
		requesterID, addresseeID, model.FriendPending, formatTime(s.now()), id)
	if err != nil {
		return model.Friendship{}, fmt.Errorf("reopening friend request: %w", err)
	}
	s.notify(TableFriendships, realtime.Update, id)
	return s.GetFriendship(ctx, id)
}

// ListFriendships returns rows involving userID with the given status.
// An empty status returns all.
func (s *Store) ListFriendships(ctx context.Context, userID, status string) ([]model.Friendship, error) {
	q := `SELECT ` + friendshipColumns + ` FROM friendships WHERE (requester_id = ? OR addressee_id = ?)`
	args := []any{userID, userID}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	rows, err := s.query(ctx, q+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("listing friendships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Friendship{}
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFriendship(r scanner) (model.Friendship, error) {
	var f model.Friendship
	var created, responded string
	if err := r.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &created, &responded); err != nil {
		return f, err
	}
	f.CreatedAt = parseTime(created)
	f.RespondedAt = parseTime(responded)
	return f, nil
}

// CreateChallenge stores a challenge with its creator as first participant.
func (s *Store) CreateChallenge(ctx context.Context, c *model.Challenge) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = newID()
	}
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = dbtx.Rollback() }()

	_, err = s.exec(ctx, dbtx, `INSERT INTO challenges (id, creator_id, title, kind, target, starts_at, ends_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CreatorID, c.Title, c.Kind, c.Target.String(), formatTime(c.StartsAt), formatTime(c.EndsAt))
	if err != nil {
		return fmt.Errorf("inserting challenge: %w", err)
	}
	joined := s.now().UTC()
	_, err = s.exec(ctx, dbtx, `INSERT INTO challenge_participants (challenge_id, user_id, progress, joined_at)
		VALUES (?, ?, '0', ?)`, c.ID, c.CreatorID, formatTime(joined))
	if err != nil {
		return fmt.Errorf("adding creator to challenge: %w", err)
	}
	if err := dbtx.Commit(); err != nil {
		return err
	}
	c.Participants = []model.Participant{{UserID: c.CreatorID, Progress: decimal.Zero, JoinedAt: joined}}
	s.notify(TableChallenges, realtime.Insert, c.ID)
	return nil
}

// JoinChallenge adds userID to a challenge.
func (s *Store) JoinChallenge(ctx context.Context, challengeID, userID string) error {
	_, err := s.exec(ctx, s.db, `INSERT INTO challenge_participants (challenge_id, user_id, progress, joined_at)
		VALUES (?, ?, '0', ?)`, challengeID, userID, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("joining challenge: %w", err)
	}
	s.notify(TableChallenges, realtime.Update, challengeID)
	return nil
}

// SetChallengeProgress records a participant's progress.
func (s *Store) SetChallengeProgress(ctx context.Context, challengeID, userID string, progress decimal.Decimal) error {
	res, err := s.exec(ctx, s.db, `UPDATE challenge_participants SET progress = ?
		WHERE challenge_id = ? AND user_id = ?`, progress.String(), challengeID, userID)
	if err != nil {
		return fmt.Errorf("updating challenge progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("participant %s in %s: %w", userID, challengeID, model.ErrNotFound)
	}
	s.notify(TableChallenges, realtime.Update, challengeID)
	return nil
}

// ListChallenges returns challenges userID takes part in, with all
// participants loaded.
func (s *Store) ListChallenges(ctx context.Context, userID string) ([]model.Challenge, error) {
	rows, err := s.query(ctx, `SELECT c.id, c.creator_id, c.title, c.kind, c.target, c.starts_at, c.ends_at
		FROM challenges c JOIN challenge_participants p ON p.challenge_id = c.id
		WHERE p.user_id = ? ORDER BY c.ends_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing challenges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Challenge{}
	idx := make(map[string]int)
	for rows.Next() {
		var c model.Challenge
		var starts, ends string
		if err := rows.Scan(&c.ID, &c.CreatorID, &c.Title, &c.Kind, &c.Target, &starts, &ends); err != nil {
			return nil, err
		}
		c.StartsAt = parseTime(starts)
		c.EndsAt = parseTime(ends)
		idx[c.ID] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(out))
	for _, c := range out {
		args = append(args, c.ID)
	}
	prows, err := s.query(ctx, `SELECT challenge_id, user_id, progress, joined_at FROM challenge_participants
		WHERE challenge_id IN (`+placeholders(len(args))+`) ORDER BY joined_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("loading participants: %w", err)
	}
	defer func() { _ = prows.Close() }()

	for prows.Next() {
		var cid, joined string
		var p model.Participant
		if err := prows.Scan(&cid, &p.UserID, &p.Progress, &joined); err != nil {
			return nil, err
		}
		p.JoinedAt = parseTime(joined)
		if i, ok := idx[cid]; ok {
			out[i].Participants = append(out[i].Participants, p)
		}
	}
	return out, prows.Err()
}

// AwardBadge grants a badge once. It reports whether the badge is new.
func (s *Store) AwardBadge(ctx context.Context, userID, code, name string) (bool, error) {
	res, err := s.exec(ctx, s.db, `INSERT INTO badges (id, user_id, code, name, awarded_at)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT (user_id, code) DO NOTHING`,
		newID(), userID, code, name, formatTime(s.now()))
	if err != nil {
		return false, fmt.Errorf("awarding badge: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.notify(TableBadges, realtime.Insert, userID)
	}
	return n > 0, nil
}

// ListBadges returns a user's badges, newest first.
func (s *Store) ListBadges(ctx context.Context, userID string) ([]model.Badge, error) {
	rows, err := s.query(ctx, `SELECT id, user_id, code, name, awarded_at FROM badges
		WHERE user_id = ? ORDER BY awarded_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing badges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Badge{}
	for rows.Next() {
		var b model.Badge
		var awarded string
		if err := rows.Scan(&b.ID, &b.UserID, &b.Code, &b.Name, &awarded); err != nil {
			return nil, err
		}
		b.AwardedAt = parseTime(awarded)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ReplaceRankings swaps a month's leaderboard for rows atomically.
func (s *Store) ReplaceRankings(ctx context.Context, month string, rows []model.Ranking) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = dbtx.Rollback() }()

	if _, err := s.exec(ctx, dbtx, `DELETE FROM monthly_rankings WHERE month = ?`, month); err != nil {
		return fmt.Errorf("clearing rankings: %w", err)
	}
	for _, r := range rows {
		_, err := s.exec(ctx, dbtx, `INSERT INTO monthly_rankings
			(month, user_id, rank, score, savings_rate, income, expense) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			month, r.UserID, r.Rank, r.Score, r.SavingsRate, r.Income.String(), r.Expense.String())
		if err != nil {
			return fmt.Errorf("inserting ranking for %s: %w", r.UserID, err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return err
	}
	s.notify(TableRankings, realtime.Update, month)
	return nil
}

// ListRankings returns a month's leaderboard in rank order.
func (s *Store) ListRankings(ctx context.Context, month string) ([]model.Ranking, error) {
	rows, err := s.query(ctx, `SELECT r.month, r.user_id, COALESCE(p.display_name, ''), r.rank, r.score,
		r.savings_rate, r.income, r.expense
		FROM monthly_rankings r LEFT JOIN profiles p ON p.id = r.user_id
		WHERE r.month = ? ORDER BY r.rank, r.user_id`, month)
	if err != nil {
		return nil, fmt.Errorf("listing rankings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Ranking{}
	for rows.Next() {
		var r model.Ranking
		if err := rows.Scan(&r.Month, &r.UserID, &r.DisplayName, &r.Rank, &r.Score, &r.SavingsRate,
			&r.Income, &r.Expense); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
