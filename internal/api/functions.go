package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/theirongolddev/fintrack/internal/insights"
	"github.com/theirongolddev/fintrack/internal/model"
)

func (s *Server) mountFunctions(r chi.Router) {
	r.Post("/budget-trends", s.handleBudgetTrends)
	r.Post("/score-explanation", s.handleScoreExplanation)
	r.Post("/detect-subscriptions", s.handleDetectSubscriptions)
	r.Post("/savings-projection", s.handleSavingsProjection)

	r.Post("/bank-tokens/encrypt", s.handleTokenEncrypt)
	r.Post("/bank-tokens/decrypt", s.handleTokenDecrypt)

	r.Post("/friends/requests", s.handleFriendRequest)
	r.Post("/friends/requests/{id}/respond", s.handleFriendRespond)

	r.Post("/rankings/{month}", s.handleComputeRankings)
	r.Get("/rankings/{month}", s.handleRankings)

	r.Post("/categorize", s.handleCategorize)
	r.Post("/categorize/backfill", s.handleBackfill)
}

func (s *Server) handleBudgetTrends(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Months int `json:"months"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rep, err := s.d.Insights.BudgetTrends(r.Context(), userID(r), req.Months)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleScoreExplanation(w http.ResponseWriter, r *http.Request) {
	var in insights.ScoreInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	exp, err := s.d.Insights.ExplainScore(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleDetectSubscriptions(w http.ResponseWriter, r *http.Request) {
	rep, err := s.d.Insights.DetectSubscriptions(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleSavingsProjection(w http.ResponseWriter, r *http.Request) {
	var req insights.SavingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rep, err := s.d.Insights.SavingsNarrative(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleTokenEncrypt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	enc, err := s.d.Banks.EncryptToken(r.Context(), userID(r), req.Token, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"encrypted": enc})
}

func (s *Server) handleTokenDecrypt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Encrypted string `json:"encrypted"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	plain, err := s.d.Banks.DecryptToken(r.Context(), userID(r), req.Encrypted, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": plain})
}

func (s *Server) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AddresseeID string `json:"addressee_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	f, err := s.d.Social.SendRequest(r.Context(), userID(r), req.AddresseeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleFriendRespond(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accept *bool `json:"accept"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Accept == nil {
		v := &model.ValidationError{}
		v.Add("accept", "is required")
		writeError(w, v)
		return
	}
	res, err := s.d.Social.Respond(r.Context(), userID(r), chi.URLParam(r, "id"), *req.Accept)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleComputeRankings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.d.Social.ComputeRankings(r.Context(), chi.URLParam(r, "month"), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": chi.URLParam(r, "month"), "rankings": rows})
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.d.Social.Rankings(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": chi.URLParam(r, "month"), "rankings": rows})
}

// handleCategorize propagates gateway failures instead of falling back.
func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TransactionID == "" {
		v := &model.ValidationError{}
		v.Add("transaction_id", "is required")
		writeError(w, v)
		return
	}
	c, err := s.d.Insights.Categorize(r.Context(), userID(r), req.TransactionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	res, err := s.d.Insights.Backfill(r.Context(), userID(r), nil)
	if err != nil {
		if res.Stopped || errors.Is(err, model.ErrUpstream) {
			writeErrorWith(w, err, map[string]any{"result": res})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
