// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── HTTP ───────────────────────────────────────────────────────

// HTTPRequests counts handled requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route and status.",
}, []string{"route", "method", "status"})

// HTTPDuration observes request latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "fintrack",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// ActiveStreams tracks open server-sent event streams by kind.
var ActiveStreams = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "fintrack",
	Subsystem: "http",
	Name:      "active_streams",
	Help:      "Open SSE streams.",
}, []string{"kind"})

// ─── Functions ──────────────────────────────────────────────────

// GatewayCalls counts LLM gateway calls by function and outcome
// (ok, rate_limited, payment_required, error).
var GatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "gateway",
	Name:      "calls_total",
	Help:      "LLM gateway calls by function and outcome.",
}, []string{"function", "outcome"})

// Fallbacks counts responses served from rule-based fallbacks.
var Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "functions",
	Name:      "fallbacks_total",
	Help:      "Responses served by a fallback, by function and reason.",
}, []string{"function", "reason"})

// BackfillProcessed counts transactions handled by the categorization backfill.
var BackfillProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "functions",
	Name:      "backfill_processed_total",
	Help:      "Transactions processed by the categorization backfill.",
}, []string{"result"})

// ─── Realtime & market ──────────────────────────────────────────

// Changes counts row change notifications by table.
var Changes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "realtime",
	Name:      "changes_total",
	Help:      "Row change notifications by table.",
}, []string{"table"})

// MarketPolls counts quote polls by outcome.
var MarketPolls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fintrack",
	Subsystem: "market",
	Name:      "polls_total",
	Help:      "Quote polls by outcome.",
}, []string{"outcome"})

// MarketSymbols tracks symbols with a running poller.
var MarketSymbols = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "fintrack",
	Subsystem: "market",
	Name:      "active_symbols",
	Help:      "Symbols with at least one subscriber.",
})
