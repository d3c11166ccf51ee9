package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketsDefaults(t *testing.T) {
	queries := make(chan map[string]string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		query := map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		queries <- query
		_, _ = w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":118000,"market_cap":1,"total_volume":2,"price_change_percentage_24h":null,"ath":1}]`))
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL})
	raw, err := client.Markets(context.Background(), MarketsQuery{PerPage: 10})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"ath":1`)
	query := <-queries
	assert.Equal(t, map[string]string{
		"vs_currency": "usd",
		"order":       "market_cap_desc",
		"per_page":    "10",
		"page":        "1",
		"sparkline":   "false",
	}, query)

	entries, err := client.TopMarkets(context.Background(), MarketsQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bitcoin", entries[0].ID)
	assert.Nil(t, entries[0].PriceChangePercentage24h)
	assert.Equal(t, "100", (<-queries)["per_page"])
}

func TestClientStatusErrors(t *testing.T) {
	var code atomic.Int32
	code.Store(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(code.Load()))
	}))
	defer srv.Close()
	client := NewClient(&ClientConfig{BaseURL: srv.URL})

	_, err := client.SimplePrice(context.Background(), []string{"ethereum"}, "usd")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.NotErrorIs(t, err, ErrUpstreamUnavailable)

	code.Store(http.StatusServiceUnavailable)
	_, err = client.Markets(context.Background(), MarketsQuery{})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	_, err = client.SimplePrice(context.Background(), nil, "usd")
	assert.Error(t, err)
}

func TestMarketsRejectsNonArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	defer srv.Close()

	_, err := NewClient(&ClientConfig{BaseURL: srv.URL}).Markets(context.Background(), MarketsQuery{})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
