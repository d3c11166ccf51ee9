package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"retroswap/internal/metrics"
	"retroswap/internal/model"
)

const (
	// DefaultBaseURL is the public CoinGecko v3 API.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	// DefaultTimeout bounds each upstream request.
	DefaultTimeout = 15 * time.Second

	DefaultUserAgent = "RetroSwap/1.0"
)

// ClientConfig contains configuration for the CoinGecko client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	// Limiter throttles outgoing requests; nil means unlimited.
	Limiter *rate.Limiter
	Metrics *metrics.Metrics
}

// Client talks to the CoinGecko API, or to any server exposing the same
// paths such as the RetroSwap proxy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

// NewClient creates a CoinGecko client.
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
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		limiter:    config.Limiter,
		metrics:    config.Metrics,
	}
}

// SimplePrice fetches prices and 24h change for ids in currency.
func (c *Client) SimplePrice(ctx context.Context, ids []string, currency string) (model.PriceTable, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("ids are required")
	}
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", currency)
	query.Set("include_24hr_change", "true")

	body, err := c.get(ctx, "simple_price", "/simple/price", query)
	if err != nil {
		return nil, err
	}

	var table model.PriceTable
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, fmt.Errorf("%w: parse simple price: %v", ErrUpstreamUnavailable, err)
	}
	return table, nil
}

// MarketsQuery selects a page of the coins/markets listing.
type MarketsQuery struct {
	VsCurrency string
	Order      string
	PerPage    int
	Page       int
}

// WithDefaults fills unset fields.
func (q MarketsQuery) WithDefaults() MarketsQuery {
	if q.VsCurrency == "" {
		q.VsCurrency = "usd"
	}
	if q.Order == "" {
		q.Order = "market_cap_desc"
	}
	if q.PerPage <= 0 {
		q.PerPage = 100
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

// Markets fetches a raw page of the coins/markets listing. The body is
// checked to be a JSON array and returned as is.
func (c *Client) Markets(ctx context.Context, q MarketsQuery) (json.RawMessage, error) {
	q = q.WithDefaults()
	query := url.Values{}
	query.Set("vs_currency", q.VsCurrency)
	query.Set("order", q.Order)
	query.Set("per_page", strconv.Itoa(q.PerPage))
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("sparkline", "false")

	body, err := c.get(ctx, "markets", "/coins/markets", query)
	if err != nil {
		return nil, err
	}
	var probe []json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse markets: %v", ErrUpstreamUnavailable, err)
	}
	return json.RawMessage(body), nil
}

// TopMarkets fetches and decodes a page of market entries.
func (c *Client) TopMarkets(ctx context.Context, q MarketsQuery) ([]model.MarketEntry, error) {
	raw, err := c.Markets(ctx, q)
	if err != nil {
		return nil, err
	}
	var entries []model.MarketEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", ErrUpstreamUnavailable, err)
		}
	}

	start := time.Now()
	body, err := c.do(ctx, path, query)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if se, ok := err.(*StatusError); ok && se.StatusCode == http.StatusTooManyRequests {
			outcome = "rate_limited"
		}
	}
	c.metrics.Upstream(endpoint, outcome, time.Since(start))
	return body, err
}

func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
