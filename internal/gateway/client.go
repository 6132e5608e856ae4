// Package gateway is a client for the hosted LLM gateway
// (OpenAI-compatible chat completions) plus helpers to pull structured
// data out of free-text replies.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/theirongolddev/fintrack/internal/model"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

var (
	// ErrRateLimited indicates the gateway returned 429.
	ErrRateLimited = fmt.Errorf("gateway: rate limited: %w", model.ErrUpstream)
	// ErrPaymentRequired indicates the workspace is out of credits (402).
	ErrPaymentRequired = fmt.Errorf("gateway: payment required: %w", model.ErrUpstream)
	// ErrUnauthorized indicates the API key was rejected.
	ErrUnauthorized = fmt.Errorf("gateway: api key rejected: %w", model.ErrUpstream)
	// ErrNotConfigured is returned by a nil or keyless client.
	ErrNotConfigured = fmt.Errorf("gateway: no api key configured: %w", model.ErrUpstream)
	// ErrEmptyReply indicates the gateway answered without content.
	ErrEmptyReply = fmt.Errorf("gateway: empty reply: %w", model.ErrUpstream)
)

// Completer is what handlers need from the gateway.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Client calls the gateway's chat completion endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	HTTP    *http.Client
}

// NewClient returns a client, or nil when no API key is set. A nil
// *Client is safe to call and always fails with ErrNotConfigured.
func NewClient(opts Options) *Client {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  key,
		model:   opts.Model,
		timeout: opts.Timeout,
		http:    opts.HTTP,
	}
}

// Complete sends one system + user prompt and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}

	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: prompt})

	body, err := c.post(ctx, "/chat/completions", chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("gateway: parsing completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	text, ok := parseContent(resp.Choices[0].Message.Content)
	if !ok || strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// post sends a JSON body and returns the response body.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("gateway: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "github.com/theirongolddev/fintrack/1.0")

	//nolint:gosec // URL is operator configuration
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("gateway: timed out after %s: %w", c.timeout, model.ErrUpstream)
		}
		return nil, fmt.Errorf("gateway: request failed: %v: %w", err, model.ErrUpstream)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("gateway: reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusPaymentRequired:
		return nil, ErrPaymentRequired
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Error.Message != "" {
			return nil, fmt.Errorf("gateway: status %d: %s: %w", resp.StatusCode, er.Error.Message, model.ErrUpstream)
		}
		return nil, fmt.Errorf("gateway: unexpected status %d: %w", resp.StatusCode, model.ErrUpstream)
	}
	return body, nil
}
