package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/banks"
	"github.com/theirongolddev/fintrack/internal/export"
	"github.com/theirongolddev/fintrack/internal/insights"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/projection"
	"github.com/theirongolddev/fintrack/internal/store"
)

const defaultListLimit = 200

func (s *Server) mountREST(r chi.Router) {
	r.Get("/transactions", s.handleListTransactions)
	r.Post("/transactions", s.handleCreateTransaction)
	r.Get("/categories", s.handleListCategories)
	r.Get("/goals", s.handleListGoals)
	r.Post("/goals", s.handleCreateGoal)
	r.Post("/goals/{id}/contributions", s.handleGoalContribution)
	r.Get("/challenges", s.handleListChallenges)
	r.Post("/challenges", s.handleCreateChallenge)
	r.Post("/challenges/{id}/join", s.handleJoinChallenge)
	r.Get("/badges", s.handleListBadges)
	r.Get("/friends/requests", s.handlePendingRequests)
	r.Get("/subscriptions", s.handleListSubscriptions)
	r.Post("/subscriptions/{id}/cancel", s.handleCancelSubscription)
	r.Get("/bank-connections", s.handleListConnections)
	r.Post("/bank-connections", s.handleConnectBank)
	r.Get("/export", s.handleExport)
}

// handleProjection runs the engine alone. It needs no user.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	var in projection.Input
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	req := insights.SavingsRequest{Input: in}
	if in.Horizon <= 0 {
		// The engine answers an empty projection for these.
		req.Horizon = projection.Horizons[0]
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	risk, _ := projection.ParseRiskLevel(string(in.Risk))
	in.Risk = risk
	writeJSON(w, http.StatusOK, s.d.Insights.Engine().Project(in))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TxFilter{
		UserID:        userID(r),
		Kind:          model.TxKind(q.Get("kind")),
		CategoryID:    q.Get("category"),
		Uncategorized: q.Get("uncategorized") == "true",
		Limit:         defaultListLimit,
	}
	v := &model.ValidationError{}
	if f.Kind != "" && f.Kind != model.Income && f.Kind != model.Expense {
		v.Add("kind", "must be income or expense")
	}
	f.Since = parseDateParam(v, "since", q.Get("since"))
	f.Until = parseDateParam(v, "until", q.Get("until"))
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			v.Add("limit", "must be a positive integer")
		}
		f.Limit = n
	}
	if err := v.OrNil(); err != nil {
		writeError(w, err)
		return
	}

	txs, err := s.d.Store.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// parseDateParam accepts YYYY-MM-DD or RFC 3339.
func parseDateParam(v *model.ValidationError, field, raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		v.Add(field, "must be YYYY-MM-DD or RFC 3339")
	}
	return t
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx model.Transaction
	if err := decode(r, &tx); err != nil {
		writeError(w, err)
		return
	}
	tx.ID = ""
	tx.UserID = userID(r)
	tx.Source = model.SourceManual
	tx.ExternalID = ""
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = s.d.Now().UTC()
	}
	if err := s.d.Store.InsertTransaction(r.Context(), &tx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.d.Store.ListCategories(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.d.Store.ListGoals(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var g model.Goal
	if err := decode(r, &g); err != nil {
		writeError(w, err)
		return
	}
	g.ID = ""
	g.UserID = userID(r)
	if err := s.d.Store.InsertGoal(r.Context(), &g); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGoalContribution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.Amount.IsPositive() {
		v := &model.ValidationError{}
		v.Add("amount", "must be positive")
		writeError(w, v)
		return
	}
	g, err := s.d.Store.AddToGoal(r.Context(), userID(r), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	cs, err := s.d.Store.ListChallenges(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": cs})
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	var c model.Challenge
	if err := decode(r, &c); err != nil {
		writeError(w, err)
		return
	}
	c.ID = ""
	c.CreatorID = userID(r)
	c.Participants = nil
	if err := s.d.Store.CreateChallenge(r.Context(), &c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleJoinChallenge(w http.ResponseWriter, r *http.Request) {
	if err := s.d.Social.JoinChallenge(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (s *Server) handleListBadges(w http.ResponseWriter, r *http.Request) {
	bs, err := s.d.Store.ListBadges(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"badges": bs})
}

func (s *Server) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	fs, err := s.d.Social.PendingRequests(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": fs})
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	active := r.URL.Query().Get("active") == "true"
	subs, err := s.d.Store.ListSubscriptions(r.Context(), userID(r), active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	err := s.d.Store.SetSubscriptionStatus(r.Context(), userID(r), chi.URLParam(r, "id"), model.SubscriptionCancelled)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": model.SubscriptionCancelled})
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	cs, err := s.d.Banks.Connections(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": cs})
}

func (s *Server) handleConnectBank(w http.ResponseWriter, r *http.Request) {
	var req banks.ConnectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.d.Banks.Connect(r.Context(), userID(r), req, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}


// handleExport streams the caller's ledger as an xlsx workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	months := 12
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 120 {
			v := &model.ValidationError{}
			v.Add("months", "must be between 1 and 120")
			writeError(w, v)
			return
		}
		months = n
	}
	uid := userID(r)
	txs, err := s.d.Store.ListTransactions(r.Context(), store.TxFilter{UserID: uid})
	if err != nil {
		writeError(w, err)
		return
	}
	cats, err := s.d.Store.ListCategories(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}

	now := s.d.Now()
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"fintrack_%s.xlsx\"", now.Format("20060102")))
	if err := export.Write(w, export.Ledger{Transactions: txs, Categories: cats, Months: months, Now: now}); err != nil {
		log.Printf("api: export for %s: %v", uid, err)
	}
}
