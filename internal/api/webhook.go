package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/theirongolddev/fintrack/internal/banks"
	"github.com/theirongolddev/fintrack/internal/model"
)

// WebhookSecretHeader carries the shared secret on bank webhooks.
const WebhookSecretHeader = "X-Webhook-Secret"

var errWebhookNotConfigured = errors.New("bank webhook secret not configured")

// handleBankWebhook applies an aggregator notification. Failures other
// than bad input surface as 500 so the aggregator retries.
func (s *Server) handleBankWebhook(w http.ResponseWriter, r *http.Request) {
	if s.d.WebhookSecret == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": errorBody{Message: errWebhookNotConfigured.Error(), Type: "not_configured"},
		})
		return
	}
	got := r.Header.Get(WebhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.d.WebhookSecret)) != 1 {
		writeError(w, fmt.Errorf("%w: bad webhook secret", model.ErrUnauthorized))
		return
	}

	var wh banks.Webhook
	if err := decode(r, &wh); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.d.Banks.ApplyWebhook(r.Context(), wh, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
