package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the public face of a user.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Phone       string    `json:"phone,omitempty"`
	Score       int       `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
}

// Friendship states.
const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
	FriendDeclined = "declined"
)

// Friendship is a directed request that becomes mutual once accepted.
type Friendship struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	AddresseeID string    `json:"addressee_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	RespondedAt time.Time `json:"responded_at,omitempty"`
}

// Challenge kinds.
const (
	ChallengeSavings = "savings"
	ChallengeNoSpend = "no_spend"
)

// Challenge is a time-boxed goal shared among friends.
type Challenge struct {
	ID           string          `json:"id"`
	CreatorID    string          `json:"creator_id"`
	Title        string          `json:"title"`
	Kind         string          `json:"kind"`
	Target       decimal.Decimal `json:"target"`
	StartsAt     time.Time       `json:"starts_at"`
	EndsAt       time.Time       `json:"ends_at"`
	Participants []Participant   `json:"participants,omitempty"`
}

// Active reports whether the challenge runs at t.
func (c Challenge) Active(t time.Time) bool {
	return !t.Before(c.StartsAt) && t.Before(c.EndsAt)
}

// Participant is one user's standing in a challenge.
type Participant struct {
	UserID   string          `json:"user_id"`
	Progress decimal.Decimal `json:"progress"`
	JoinedAt time.Time       `json:"joined_at"`
}

// Badge is an awarded achievement. Code is unique per user.
type Badge struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	AwardedAt time.Time `json:"awarded_at"`
}

// Badge codes.
const (
	BadgeFirstFriend = "first_friend"
	BadgeTopSaver    = "top_saver"
	BadgeChallenger  = "challenger"
)

// Ranking is one user's monthly leaderboard row.
type Ranking struct {
	Month       string          `json:"month"`
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Rank        int             `json:"rank"`
	Score       float64         `json:"score"`
	SavingsRate float64         `json:"savings_rate"`
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
}
