// Package rpc is the thin client for the Fullnode RPC endpoint. It submits
// signed transaction blobs and reports the node's accept/reject verdict; it
// never retries, since a transaction is not safe to blindly resubmit.
package rpc

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

	"github.com/parallelchain-io/pchain-client-cli/internal/tx"
)

// Errors.
var (
	ErrTimeout = errors.New("rpc request timed out")
	ErrNoURL   = errors.New("rpc url not configured, run `pchain-client config setup --url <URL>`")
)

// DefaultTimeout bounds every RPC call so a dead endpoint surfaces as
// ErrTimeout instead of hanging the invocation.
const DefaultTimeout = 30 * time.Second

// Client talks to one Fullnode RPC endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient sets a custom HTTP client (used by tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client for the given endpoint URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrNoURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SubmitResult is the node's verdict on a submitted transaction, surfaced to
// the user verbatim. Receipt bytes are opaque to this client.
type SubmitResult struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
	Receipt  []byte `json:"receipt,omitempty"`
}

// SubmitTransaction posts the signed transaction to the node. A remote
// rejection is not an error: it comes back in SubmitResult. Errors are
// transport-level only, with timeouts reported distinctly as ErrTimeout.
func (c *Client) SubmitTransaction(ctx context.Context, signed *tx.SignedTransaction) (*SubmitResult, error) {
	body, err := json.Marshal(signed)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/submit", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, c.baseURL)
		}
		return nil, fmt.Errorf("submitting transaction to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", c.baseURL, err)
	}

	var result SubmitResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unexpected response from %s (status %d): %.200s", c.baseURL, resp.StatusCode, data)
	}
	return &result, nil
}

// Ping checks endpoint reachability within the configured timeout. Used by
// `config show` to report endpoint status.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %s", ErrTimeout, c.baseURL)
		}
		return 0, err
	}
	resp.Body.Close()
	return time.Since(start), nil
}
