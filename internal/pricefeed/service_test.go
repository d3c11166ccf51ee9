package pricefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retroswap/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// upstreamStub serves /simple/price with a switchable status.
type upstreamStub struct {
	calls  atomic.Int32
	status atomic.Int32
	price  atomic.Int64
	last   atomic.Value
}

func newUpstreamStub(t *testing.T) (*upstreamStub, *httptest.Server) {
	stub := &upstreamStub{}
	stub.status.Store(http.StatusOK)
	stub.price.Store(3500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		stub.last.Store(r.Clone(context.Background()))
		if code := int(stub.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"status":{"error_message":"nope"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]map[string]float64{
			"ethereum": {"usd": float64(stub.price.Load()), "usd_24h_change": 1.5},
		})
	}))
	t.Cleanup(srv.Close)
	return stub, srv
}

func newTestService(t *testing.T, baseURL string, clock *fakeClock) *Service {
	t.Helper()
	cache, err := NewCache(8, time.Minute, clock.Now)
	require.NoError(t, err)
	svc, err := NewService(ServiceConfig{
		Upstream: NewClient(&ClientConfig{BaseURL: baseURL, Timeout: time.Second}),
		Cache:    cache,
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	return svc
}

func TestFetchPricesCachesWithinTTL(t *testing.T) {
	stub, srv := newUpstreamStub(t)
	clock := newFakeClock()
	svc := newTestService(t, srv.URL, clock)
	ctx := context.Background()

	res, err := svc.FetchPrices(ctx, []string{"ethereum"}, "usd")
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, res.Source)
	assert.Equal(t, 3500.0, res.Prices["ethereum"]["usd"])

	clock.Advance(30 * time.Second)
	res, err = svc.FetchPrices(ctx, []string{"ethereum"}, "usd")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, int32(1), stub.calls.Load())

	clock.Advance(31 * time.Second)
	stub.price.Store(3600)
	res, err = svc.FetchPrices(ctx, []string{"ethereum"}, "usd")
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, res.Source)
	assert.Equal(t, 3600.0, res.Prices["ethereum"]["usd"])
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestFetchPricesCanonicalKey(t *testing.T) {
	stub, srv := newUpstreamStub(t)
	svc := newTestService(t, srv.URL, newFakeClock())
	ctx := context.Background()

	_, err := svc.FetchPrices(ctx, []string{"ethereum", "bitcoin"}, "usd")
	require.NoError(t, err)
	_, err = svc.FetchPrices(ctx, []string{" Bitcoin", "ethereum", "ethereum"}, "USD")
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.calls.Load())

	req := stub.last.Load().(*http.Request)
	assert.Equal(t, "bitcoin,ethereum", req.URL.Query().Get("ids"))
	assert.Equal(t, "true", req.URL.Query().Get("include_24hr_change"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))
}

func TestFetchPricesServesStaleOnFailure(t *testing.T) {
	stub, srv := newUpstreamStub(t)
	clock := newFakeClock()
	svc := newTestService(t, srv.URL, clock)
	ctx := context.Background()

	_, err := svc.FetchPrices(ctx, []string{"ethereum"}, "usd")
	require.NoError(t, err)

	stub.status.Store(http.StatusInternalServerError)
	clock.Advance(24 * time.Hour)
	res, err := svc.FetchPrices(ctx, []string{"ethereum"}, "usd")
	require.NoError(t, err)
	assert.Equal(t, SourceStale, res.Source)
	assert.True(t, res.Degraded())
	assert.Equal(t, 3500.0, res.Prices["ethereum"]["usd"])
	assert.Equal(t, 24*time.Hour, res.Age)

	// rate limiting with a cached entry still serves the stale copy
	stub.status.Store(http.StatusTooManyRequests)
	res, err = svc.FetchPrices(ctx, []string{"ethereum"}, "usd")
	require.NoError(t, err)
	assert.Equal(t, SourceStale, res.Source)
}

func TestFetchPricesRateLimitedWithoutCache(t *testing.T) {
	stub, srv := newUpstreamStub(t)
	stub.status.Store(http.StatusTooManyRequests)
	svc := newTestService(t, srv.URL, newFakeClock())

	_, err := svc.FetchPrices(context.Background(), []string{"ethereum"}, "usd")
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestFetchPricesFallbackTable(t *testing.T) {
	stub, srv := newUpstreamStub(t)
	stub.status.Store(http.StatusBadGateway)
	svc := newTestService(t, srv.URL, newFakeClock())

	res, err := svc.FetchPrices(context.Background(), []string{"ethereum", "bitcoin", "dogecoin"}, "usd")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, model.PriceTable{
		"bitcoin":  {"usd": 118000, "usd_24h_change": 1.8},
		"dogecoin": {"usd": 0, "usd_24h_change": 0},
		"ethereum": {"usd": 3800, "usd_24h_change": 2.5},
	}, res.Prices)
}

func TestFetchPricesUnreachableUpstream(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", newFakeClock())

	res, err := svc.FetchPrices(context.Background(), []string{"usd-coin"}, "usd")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, 1.0, res.Prices["usd-coin"]["usd"])
}

type blockingUpstream struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingUpstream) SimplePrice(ctx context.Context, ids []string, currency string) (model.PriceTable, error) {
	b.calls.Add(1)
	<-b.release
	return model.PriceTable{"ethereum": {"usd": 1}}, nil
}

func TestFetchPricesCollapsesConcurrentMisses(t *testing.T) {
	up := &blockingUpstream{release: make(chan struct{})}
	cache, err := NewCache(8, time.Minute, nil)
	require.NoError(t, err)
	svc, err := NewService(ServiceConfig{Upstream: up, Cache: cache})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.FetchPrices(context.Background(), []string{"ethereum"}, "usd")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(up.release)
	wg.Wait()

	assert.Equal(t, int32(1), up.calls.Load())
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewCache(2, time.Minute, nil)
	require.NoError(t, err)

	cache.Put("a-usd", model.PriceTable{})
	cache.Put("b-usd", model.PriceTable{})
	_, _, ok := cache.Get("a-usd")
	require.True(t, ok)
	cache.Put("c-usd", model.PriceTable{})

	_, _, ok = cache.Get("b-usd")
	assert.False(t, ok)
	_, fresh, ok := cache.Get("a-usd")
	assert.True(t, ok)
	assert.True(t, fresh)
	assert.Equal(t, 2, cache.Len())
}

func TestSymbolPrices(t *testing.T) {
	prices := SymbolPrices(model.PriceTable{
		"ethereum": {"usd": 3900, "usd_24h_change": -2},
	})
	assert.Equal(t, model.TokenPrice{Price: 3900, Change24h: -2}, prices["WETH"])
	assert.Equal(t, model.TokenPrice{Price: 3900, Change24h: -2}, prices["ETH"])
	assert.Equal(t, model.TokenPrice{}, prices["WBTC"])
	assert.Equal(t, 1.0, prices["USDC"].Price)
	assert.Equal(t, 1.0, prices["DAI"].Price)
	assert.Len(t, prices, 7)
	assert.Equal(t, 118088.0, ClientFallbackPrices()["WBTC"].Price)
}
