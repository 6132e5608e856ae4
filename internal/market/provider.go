package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

// Sentinel errors for quote fetches.
var (
	ErrNoKey         = errors.New("market: no api key configured")
	ErrUnknownSymbol = errors.New("market: unknown symbol")
	ErrRateLimited   = fmt.Errorf("market: rate limited: %w", model.ErrUpstream)
	ErrUnauthorized  = fmt.Errorf("market: api key rejected: %w", model.ErrUpstream)
)

// Quote is the latest price for a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PrevClose     float64   `json:"prev_close"`
	At            time.Time `json:"at"`
}

// Provider fetches quotes.
type Provider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// HTTPProvider reads quotes from a Finnhub-compatible REST API.
type HTTPProvider struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPProvider returns a provider for baseURL authenticated with token.
func NewHTTPProvider(baseURL, token string) *HTTPProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// Quote implements Provider.
func (p *HTTPProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	if p.token == "" {
		return Quote{}, ErrNoKey
	}
	q := url.Values{"symbol": {symbol}, "token": {p.token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("market: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("market: request failed: %v: %w", err, model.ErrUpstream)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Quote{}, fmt.Errorf("market: reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return Quote{}, ErrUnauthorized
	case http.StatusTooManyRequests:
		return Quote{}, ErrRateLimited
	default:
		return Quote{}, fmt.Errorf("market: unexpected status %d: %w", resp.StatusCode, model.ErrUpstream)
	}

	var qr quoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return Quote{}, fmt.Errorf("market: parsing quote: %v: %w", err, model.ErrParse)
	}
	// Finnhub answers unknown symbols with an all-zero quote.
	if qr.Current == 0 && qr.Timestamp == 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return Quote{
		Symbol:        symbol,
		Price:         qr.Current,
		Change:        qr.Change,
		ChangePercent: qr.ChangePercent,
		High:          qr.High,
		Low:           qr.Low,
		Open:          qr.Open,
		PrevClose:     qr.PrevClose,
		At:            time.Unix(qr.Timestamp, 0).UTC(),
	}, nil
}
