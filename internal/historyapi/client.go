// Package historyapi is a client for the swap and position history
// endpoints of the RetroSwap API.
package historyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"retroswap/internal/model"
)

const (
	// DefaultBaseURL is the local API server.
	DefaultBaseURL = "http://localhost:5000"
	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 10 * time.Second
)

// Client talks to the history endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientConfig contains configuration for the history client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("history api error (status %d): %s", e.StatusCode, e.Message)
}

// NewClient creates a history API client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// RecordSwap stores a swap and returns it with id and timestamp set.
func (c *Client) RecordSwap(ctx context.Context, rec model.SwapRecord) (model.SwapRecord, error) {
	var out model.SwapRecord
	if err := c.do(ctx, http.MethodPost, "/api/swaps", rec, &out); err != nil {
		return model.SwapRecord{}, err
	}
	return out, nil
}

// Swaps lists the swaps recorded for user.
func (c *Client) Swaps(ctx context.Context, user string) ([]model.SwapRecord, error) {
	var out []model.SwapRecord
	if err := c.do(ctx, http.MethodGet, "/api/swaps/"+url.PathEscape(user), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordPosition stores a liquidity position.
func (c *Client) RecordPosition(ctx context.Context, rec model.PositionRecord) (model.PositionRecord, error) {
	var out model.PositionRecord
	if err := c.do(ctx, http.MethodPost, "/api/positions", rec, &out); err != nil {
		return model.PositionRecord{}, err
	}
	return out, nil
}

// Positions lists the positions recorded for user.
func (c *Client) Positions(ctx context.Context, user string) ([]model.PositionRecord, error) {
	var out []model.PositionRecord
	if err := c.do(ctx, http.MethodGet, "/api/positions/"+url.PathEscape(user), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
