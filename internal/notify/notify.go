// Package notify sends short text messages through the messaging
// platform's Cloud API.
package notify

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
	requestTimeout = 10 * time.Second
	maxBodySize    = 64 << 10
)

// ErrNoRecipient is returned when a message has no phone number.
var ErrNoRecipient = errors.New("notify: recipient has no phone number")

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// Nop discards messages. It is used when no access token is configured.
type Nop struct{}

// Send implements Sender.
func (Nop) Send(context.Context, string, string) error { return nil }

// Client posts to {baseURL}/{phoneID}/messages with a bearer token.
type Client struct {
	baseURL string
	phoneID string
	token   string
	http    *http.Client
}

// New returns a Client, or Nop when token or phoneID is empty.
func New(baseURL, phoneID, token string) Sender {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(phoneID) == "" {
		return Nop{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		phoneID: phoneID,
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type textMessage struct {
	Product string `json:"messaging_product"`
	To      string `json:"to"`
	Type    string `json:"type"`
	Text    struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Send implements Sender.
func (c *Client) Send(ctx context.Context, phone, text string) error {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if phone == "" {
		return ErrNoRecipient
	}
	msg := textMessage{Product: "whatsapp", To: phone, Type: "text"}
	msg.Text.Body = text
	buf, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID), bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("notify: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: request failed: %v: %w", err, model.ErrUpstream)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: unexpected status %d: %w", resp.StatusCode, model.ErrUpstream)
	}
	return nil
}
