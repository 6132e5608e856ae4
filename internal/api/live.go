package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/theirongolddev/fintrack/internal/hooks"
	"github.com/theirongolddev/fintrack/internal/market"
	"github.com/theirongolddev/fintrack/internal/metrics"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/realtime"
)

const liveTransactionLimit = 200

// handleLive streams a collection: one snapshot event on connect and a
// fresh snapshot after every change to the underlying table.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	switch name := chi.URLParam(r, "collection"); name {
	case hooks.CollectionTransactions:
		streamHook(w, r, hooks.Transactions(s.d.Store, s.d.Hub, uid, liveTransactionLimit))
	case hooks.CollectionFriendRequests:
		streamHook(w, r, hooks.FriendRequests(s.d.Store, s.d.Hub, uid))
	case hooks.CollectionChallenges:
		streamHook(w, r, hooks.Challenges(s.d.Store, s.d.Hub, uid, s.d.Now))
	case hooks.CollectionSubscriptions:
		streamHook(w, r, hooks.SubscriptionStatus(s.d.Store, s.d.Hub, uid))
	default:
		writeError(w, fmt.Errorf("collection %q: %w (want one of %v)", name, model.ErrNotFound, hooks.Collections))
	}
}

type snapshot[T any] struct {
	Collection string `json:"collection"`
	Items      []T    `json:"items"`
}

func streamHook[T any](w http.ResponseWriter, r *http.Request, h *hooks.Hook[T]) {
	if !realtime.PrepareSSE(w) {
		return
	}
	metrics.ActiveStreams.WithLabelValues("live").Inc()
	defer metrics.ActiveStreams.WithLabelValues("live").Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Only the newest snapshot matters; older pending ones are dropped.
	updates := make(chan []T, 1)
	unsubscribe := h.Subscribe(ctx, func(items []T) {
		select {
		case <-updates:
		default:
		}
		updates <- items
	})
	defer unsubscribe()

	if err := realtime.WriteSSE(w, "snapshot", snapshot[T]{Collection: h.Name, Items: h.Fetch(ctx)}); err != nil {
		return
	}

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case items := <-updates:
			if err := realtime.WriteSSE(w, "snapshot", snapshot[T]{Collection: h.Name, Items: items}); err != nil {
				return
			}
		case <-ticker.C:
			if err := ping(w); err != nil {
				return
			}
		}
	}
}

// ping writes an SSE comment so idle proxies keep the stream open.
func ping(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (s *Server) handleMarketQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.d.Market.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleMarketStream shares the symbol's polling loop with every other
// subscriber and forwards each quote as a "quote" event.
func (s *Server) handleMarketStream(w http.ResponseWriter, r *http.Request) {
	symbol := market.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if symbol == "" {
		v := &model.ValidationError{}
		v.Add("symbol", "is required")
		writeError(w, v)
		return
	}
	if !realtime.PrepareSSE(w) {
		return
	}
	metrics.ActiveStreams.WithLabelValues("market").Inc()
	defer metrics.ActiveStreams.WithLabelValues("market").Dec()

	quotes := make(chan market.Quote, 1)
	unsubscribe := s.d.Market.Subscribe(symbol, func(q market.Quote) {
		select {
		case <-quotes:
		default:
		}
		select {
		case quotes <- q:
		default:
		}
	})
	defer unsubscribe()

	if q, ok := s.d.Market.Last(symbol); ok {
		if err := realtime.WriteSSE(w, "quote", q); err != nil {
			return
		}
	}

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case q := <-quotes:
			if err := realtime.WriteSSE(w, "quote", q); err != nil {
				log.Printf("api: market stream %s: %v", symbol, err)
				return
			}
		case <-ticker.C:
			if err := ping(w); err != nil {
				return
			}
		}
	}
}
