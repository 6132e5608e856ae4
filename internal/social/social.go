// Package social implements friend requests, challenges, badges and the
// monthly savings leaderboard.
package social

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/notify"
	"github.com/theirongolddev/fintrack/internal/pipeline"
	"github.com/theirongolddev/fintrack/internal/store"
)

// Store is the data access the social features need.
type Store interface {
	pipeline.TxLister
	GetProfile(ctx context.Context, id string) (model.Profile, error)
	CreateFriendRequest(ctx context.Context, requesterID, addresseeID string) (model.Friendship, error)
	GetFriendship(ctx context.Context, id string) (model.Friendship, error)
	FindFriendship(ctx context.Context, a, b string) (model.Friendship, error)
	SetFriendshipStatus(ctx context.Context, id, status string) (model.Friendship, error)
	ReopenFriendship(ctx context.Context, id, requesterID, addresseeID string) (model.Friendship, error)
	ListFriendships(ctx context.Context, userID, status string) ([]model.Friendship, error)
	JoinChallenge(ctx context.Context, challengeID, userID string) error
	AwardBadge(ctx context.Context, userID, code, name string) (bool, error)
	UserIDs(ctx context.Context) ([]string, error)
	ReplaceRankings(ctx context.Context, month string, rows []model.Ranking) error
	ListRankings(ctx context.Context, month string) ([]model.Ranking, error)
}

// Badge display names.
var badgeNames = map[string]string{
	model.BadgeFirstFriend: "First Friend",
	model.BadgeTopSaver:    "Top Saver",
	model.BadgeChallenger:  "Challenger",
}

// Service runs the social features.
type Service struct {
	store  Store
	sender notify.Sender
	now    func() time.Time
}

// New returns a Service. A nil sender disables notifications.
func New(st Store, sender notify.Sender) *Service {
	if sender == nil {
		sender = notify.Nop{}
	}
	return &Service{store: st, sender: sender, now: time.Now}
}

// SendRequest asks addresseeID to become requesterID's friend. A
// previously declined pair is reopened; a pending or accepted one
// conflicts.
func (s *Service) SendRequest(ctx context.Context, requesterID, addresseeID string) (model.Friendship, error) {
	addresseeID = strings.TrimSpace(addresseeID)
	v := &model.ValidationError{}
	switch {
	case addresseeID == "":
		v.Add("addressee_id", "is required")
	case addresseeID == requesterID:
		v.Add("addressee_id", "cannot be yourself")
	}
	if err := v.OrNil(); err != nil {
		return model.Friendship{}, err
	}

	addressee, err := s.store.GetProfile(ctx, addresseeID)
	if err != nil {
		return model.Friendship{}, err
	}

	var f model.Friendship
	existing, err := s.store.FindFriendship(ctx, requesterID, addresseeID)
	switch {
	case err == nil && existing.Status == model.FriendDeclined:
		f, err = s.store.ReopenFriendship(ctx, existing.ID, requesterID, addresseeID)
	case err == nil:
		return model.Friendship{}, fmt.Errorf("friendship already %s: %w", existing.Status, model.ErrConflict)
	case errors.Is(err, model.ErrNotFound):
		f, err = s.store.CreateFriendRequest(ctx, requesterID, addresseeID)
	}
	if err != nil {
		return model.Friendship{}, err
	}

	s.notifyRequest(ctx, requesterID, addressee)
	return f, nil
}

func (s *Service) notifyRequest(ctx context.Context, requesterID string, to model.Profile) {
	if to.Phone == "" {
		return
	}
	name := requesterID
	if p, err := s.store.GetProfile(ctx, requesterID); err == nil && p.DisplayName != "" {
		name = p.DisplayName
	}
	msg := fmt.Sprintf("%s sent you a friend request on fintrack.", name)
	if err := s.sender.Send(ctx, to.Phone, msg); err != nil {
		log.Printf("social: notifying %s: %v", to.ID, err)
	}
}

// Response is the outcome of answering a friend request.
type Response struct {
	Friendship model.Friendship `json:"friendship"`
	Awarded    []string         `json:"badges_awarded"`
}

// Respond accepts or declines a pending request. Only its addressee may
// answer. Accepting awards the first-friend badge to both sides when
// they do not have it yet.
func (s *Service) Respond(ctx context.Context, userID, requestID string, accept bool) (Response, error) {
	f, err := s.store.GetFriendship(ctx, requestID)
	if err != nil {
		return Response{}, err
	}
	if f.AddresseeID != userID {
		return Response{}, fmt.Errorf("only the addressee can respond: %w", model.ErrForbidden)
	}
	if f.Status != model.FriendPending {
		return Response{}, fmt.Errorf("request already %s: %w", f.Status, model.ErrConflict)
	}

	status := model.FriendDeclined
	if accept {
		status = model.FriendAccepted
	}
	f, err = s.store.SetFriendshipStatus(ctx, requestID, status)
	if err != nil {
		return Response{}, err
	}

	resp := Response{Friendship: f, Awarded: []string{}}
	if accept {
		for _, uid := range []string{f.RequesterID, f.AddresseeID} {
			isNew, err := s.award(ctx, uid, model.BadgeFirstFriend)
			if err != nil {
				return Response{}, err
			}
			if isNew {
				resp.Awarded = append(resp.Awarded, uid)
			}
		}
	}
	return resp, nil
}

// PendingRequests returns requests waiting for userID's answer.
func (s *Service) PendingRequests(ctx context.Context, userID string) ([]model.Friendship, error) {
	all, err := s.store.ListFriendships(ctx, userID, model.FriendPending)
	if err != nil {
		return nil, err
	}
	out := []model.Friendship{}
	for _, f := range all {
		if f.AddresseeID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

// JoinChallenge adds userID to a challenge and awards the challenger
// badge on a first join.
func (s *Service) JoinChallenge(ctx context.Context, challengeID, userID string) error {
	if err := s.store.JoinChallenge(ctx, challengeID, userID); err != nil {
		return err
	}
	_, err := s.award(ctx, userID, model.BadgeChallenger)
	return err
}

func (s *Service) award(ctx context.Context, userID, code string) (bool, error) {
	return s.store.AwardBadge(ctx, userID, code, badgeNames[code])
}

// ComputeRankings recomputes and stores the leaderboard for month
// (YYYY-MM). The leader receives the top-saver badge.
func (s *Service) ComputeRankings(ctx context.Context, month string, progress pipeline.ProgressFunc) ([]model.Ranking, error) {
	start, end, err := pipeline.MonthRange(month)
	if err != nil {
		v := &model.ValidationError{}
		v.Add("month", "must be YYYY-MM")
		return nil, v
	}
	users, err := s.store.UserIDs(ctx)
	if err != nil {
		return nil, err
	}
	loaded, err := pipeline.LoadUsers(ctx, s.store, users, start, end, progress)
	if err != nil {
		return nil, err
	}
	if loaded.Errors > 0 {
		log.Printf("social: rankings for %s skipped %d users that failed to load", month, loaded.Errors)
	}

	rows, err := pipeline.Rank(month, loaded.ByUser, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceRankings(ctx, month, rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.Rank != 1 {
			break
		}
		if _, err := s.award(ctx, r.UserID, model.BadgeTopSaver); err != nil {
			return nil, err
		}
	}
	return s.store.ListRankings(ctx, month)
}

// Rankings returns the stored leaderboard for month.
func (s *Service) Rankings(ctx context.Context, month string) ([]model.Ranking, error) {
	if _, _, err := pipeline.MonthRange(month); err != nil {
		v := &model.ValidationError{}
		v.Add("month", "must be YYYY-MM")
		return nil, v
	}
	return s.store.ListRankings(ctx, month)
}

var _ Store = (*store.Store)(nil)
