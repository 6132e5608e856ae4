package hooks

import (
	"context"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/store"
)

// Collection names accepted by the live endpoint.
const (
	CollectionTransactions   = "transactions"
	CollectionFriendRequests = "friend-requests"
	CollectionChallenges     = "challenges"
	CollectionSubscriptions  = "subscriptions"
)

// Collections lists every named collection.
var Collections = []string{
	CollectionTransactions,
	CollectionFriendRequests,
	CollectionChallenges,
	CollectionSubscriptions,
}

// Transactions watches the user's most recent transactions.
func Transactions(st *store.Store, src Source, userID string, limit int) *Hook[model.Transaction] {
	return New(src, CollectionTransactions, store.TableTransactions,
		func(ctx context.Context) ([]model.Transaction, error) {
			return st.ListTransactions(ctx, store.TxFilter{UserID: userID, Limit: limit})
		}, nil)
}

// FriendRequests watches pending requests addressed to the user. The
// query returns both directions; the filter keeps incoming ones.
func FriendRequests(st *store.Store, src Source, userID string) *Hook[model.Friendship] {
	return New(src, CollectionFriendRequests, store.TableFriendships,
		func(ctx context.Context) ([]model.Friendship, error) {
			return st.ListFriendships(ctx, userID, model.FriendPending)
		},
		func(f model.Friendship) bool { return f.AddresseeID == userID })
}

// Challenges watches challenges the user takes part in that have not
// ended.
func Challenges(st *store.Store, src Source, userID string, now func() time.Time) *Hook[model.Challenge] {
	return New(src, CollectionChallenges, store.TableChallenges,
		func(ctx context.Context) ([]model.Challenge, error) {
			return st.ListChallenges(ctx, userID)
		},
		func(c model.Challenge) bool { return now().Before(c.EndsAt) })
}

// SubscriptionStatus watches the user's active subscriptions.
func SubscriptionStatus(st *store.Store, src Source, userID string) *Hook[model.Subscription] {
	return New(src, CollectionSubscriptions, store.TableSubscriptions,
		func(ctx context.Context) ([]model.Subscription, error) {
			return st.ListSubscriptions(ctx, userID, true)
		}, nil)
}
