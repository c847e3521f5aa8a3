// Package transfer provides concrete transfer collaborators: an HTTP
// client for a remote token-transfer service and an in-memory mock for
// tests.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openvest/vestd/auth"
)

// Config defines the HTTP transfer endpoint.
type Config struct {
	// URL receives POSTed transfer requests.
	URL string `json:"url"`
	// TimeoutMS bounds each request; the engine never retries.
	TimeoutMS int `json:"timeout_ms"`
	// Authenticated attaches an OAuth2 bearer token to each request.
	Authenticated bool `json:"authenticated"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 10000
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("transfer url is required")
	}
	return nil
}

type request struct {
	TokenType string `json:"token_type"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
}

// HTTPClient invokes the transfer service once per claim. Any non-200
// response or transport error is a transfer failure; the engine rolls the
// claim back and the caller may retry later.
type HTTPClient struct {
	url   string
	http  *http.Client
	creds *auth.ClientCred
}

// NewHTTPClient builds a client; creds may be nil for unauthenticated
// endpoints.
func NewHTTPClient(cfg Config, creds *auth.ClientCred) *HTTPClient {
	cfg.SetDefaults()
	if !cfg.Authenticated {
		creds = nil
	}
	return &HTTPClient{
		url:   cfg.URL,
		http:  &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		creds: creds,
	}
}

// Transfer POSTs the transfer request and treats any non-200 status as
// failure.
func (c *HTTPClient) Transfer(ctx context.Context, tokenType, to string, amount uint64) error {
	body, err := json.Marshal(request{TokenType: tokenType, To: to, Amount: amount})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.creds != nil {
		if err := c.creds.SetAuthHeader(req); err != nil {
			return fmt.Errorf("failed to set auth header: %w", err)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, msg)
	}
	return nil
}
