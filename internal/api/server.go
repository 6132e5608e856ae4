// Package api serves fintrack's HTTP surface: the finance functions, plain
// REST around the store, live collection streams, market quotes and the
// bank webhook.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/fintrack/internal/auth"
	"github.com/theirongolddev/fintrack/internal/banks"
	"github.com/theirongolddev/fintrack/internal/insights"
	"github.com/theirongolddev/fintrack/internal/market"
	"github.com/theirongolddev/fintrack/internal/metrics"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/realtime"
	"github.com/theirongolddev/fintrack/internal/social"
	"github.com/theirongolddev/fintrack/internal/store"
	"github.com/theirongolddev/fintrack/internal/vault"
)

const (
	maxBodySize     = 1 << 20
	requestTimeout  = 5 * time.Minute
	streamKeepAlive = 25 * time.Second
)

// Deps are the services the server routes to. Auth may be nil, in which
// case every authenticated route answers 401.
type Deps struct {
	Store    *store.Store
	Hub      *realtime.Hub
	Insights *insights.Service
	Social   *social.Service
	Banks    *banks.Service
	Market   *market.Registry
	Auth     *auth.Authenticator

	WebhookSecret string
	Metrics       bool
	AccessLog     bool

	// Status, when set, supplies the body of GET /v1/status.
	Status func() any
	Now    func() time.Time
}

// Server is the fintrack HTTP API server.
type Server struct {
	d Deps
}

// NewServer creates a new API server.
func NewServer(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Server{d: d}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.d.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	if s.d.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		// Streams run without the request timeout.
		r.Get("/market/{symbol}/stream", s.handleMarketStream)
		r.With(s.requireUser).Get("/live/{collection}", s.handleLive)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Post("/projection", s.handleProjection)
			r.Get("/market/{symbol}", s.handleMarketQuote)
			r.Post("/webhooks/bank", s.handleBankWebhook)

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				s.mountREST(r)
				r.Route("/functions", s.mountFunctions)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.d.Store != nil {
		if err := s.d.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.d.Status != nil {
		writeJSON(w, http.StatusOK, s.d.Status())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "fintrack is running"})
}

// requireUser authenticates the bearer token.
func (s *Server) requireUser(next http.Handler) http.Handler {
	if s.d.Auth == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, fmt.Errorf("%w: authentication is not configured", model.ErrUnauthorized))
		})
	}
	return s.d.Auth.Middleware(writeError)(next)
}

func userID(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

// instrument records request counts and latency by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// corsMiddleware adds CORS headers for browser-based clients and answers
// preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Webhook-Secret")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		verr := &model.ValidationError{}
		verr.Add("body", "is not valid JSON: "+err.Error())
		return verr
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Message string            `json:"message"`
	Type    string            `json:"type"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorWith(w, err, nil)
}

// writeErrorWith writes err and merges extra top-level keys into the body.
func writeErrorWith(w http.ResponseWriter, err error, extra map[string]any) {
	status, typ := classify(err)
	body := errorBody{Message: err.Error(), Type: typ}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		log.Printf("api: %v", err)
		if status == http.StatusInternalServerError {
			body.Message = "internal error"
		}
	}
	out := map[string]any{"error": body}
	for k, v := range extra {
		out[k] = v
	}
	writeJSON(w, status, out)
}

// classify maps the error taxonomy onto HTTP status codes.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrNotFound), errors.Is(err, market.ErrUnknownSymbol):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, vault.ErrNoKey), errors.Is(err, market.ErrNoKey):
		return http.StatusServiceUnavailable, "not_configured"
	case errors.Is(err, model.ErrUpstream), errors.Is(err, model.ErrParse):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
