package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"retroswap/internal/metrics"
	"retroswap/internal/model"
)

// Source names the layer that answered a lookup.
type Source string

const (
	SourceCache    Source = "cache"
	SourceUpstream Source = "upstream"
	SourceStale    Source = "stale"
	SourceFallback Source = "fallback"
)

// Upstream fetches prices from the remote feed.
type Upstream interface {
	SimplePrice(ctx context.Context, ids []string, currency string) (model.PriceTable, error)
}

// Result is a price table with its provenance.
type Result struct {
	Prices model.PriceTable
	Source Source
	// Age is the time since capture for cache and stale results.
	Age time.Duration
}

// Degraded reports whether the data is not a fresh upstream answer.
func (r Result) Degraded() bool {
	return r.Source == SourceStale || r.Source == SourceFallback
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Upstream Upstream
	Cache    *Cache
	// Timeout bounds each upstream fetch.
	Timeout time.Duration
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Service answers price lookups through fresh cache, upstream, stale cache
// and the fallback table, in that order.
type Service struct {
	upstream Upstream
	cache    *Cache
	timeout  time.Duration
	group    singleflight.Group
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a price service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Upstream == nil {
		return nil, fmt.Errorf("price upstream is nil")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("price cache is nil")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		upstream: cfg.Upstream,
		cache:    cfg.Cache,
		timeout:  timeout,
		metrics:  cfg.Metrics,
		logger:   logger,
	}, nil
}

// FetchPrices returns prices for ids in currency. The only error it
// returns is ErrRateLimited, when the upstream throttled and no cached
// entry exists; other failures degrade to stale or fallback data.
func (s *Service) FetchPrices(ctx context.Context, ids []string, currency string) (Result, error) {
	ids = NormalizeIDs(ids)
	if len(ids) == 0 {
		return Result{}, fmt.Errorf("ids are required")
	}
	key := CacheKey(ids, currency)

	if res, ok := s.fromCache(key, true); ok {
		return s.done(res), nil
	}

	data, err := s.fetch(ctx, key, ids, currency)
	if err == nil {
		s.cache.Put(key, data)
		s.metrics.CacheSize(s.cache.Len())
		return s.done(Result{Prices: data, Source: SourceUpstream}), nil
	}

	if res, ok := s.fromCache(key, false); ok {
		s.logger.Warn("serving stale prices",
			zap.String("key", key),
			zap.Duration("age", res.Age),
			zap.Error(err),
		)
		return s.done(res), nil
	}

	if errors.Is(err, ErrRateLimited) {
		s.logger.Warn("price feed rate limited", zap.String("key", key))
		s.metrics.PriceLookup("rate_limited")
		return Result{}, ErrRateLimited
	}

	s.logger.Warn("serving fallback prices", zap.String("key", key), zap.Error(err))
	return s.done(Result{Prices: FallbackTable(ids), Source: SourceFallback}), nil
}

// fromCache returns a hit when an entry exists and, if wantFresh, is fresh.
func (s *Service) fromCache(key string, wantFresh bool) (Result, bool) {
	entry, fresh, ok := s.cache.Get(key)
	if !ok || (wantFresh && !fresh) {
		return Result{}, false
	}
	source := SourceCache
	if !fresh {
		source = SourceStale
	}
	return Result{Prices: entry.Data, Source: source, Age: s.cache.now().Sub(entry.Timestamp)}, true
}

// fetch collapses concurrent upstream requests for the same key. The
// shared request is detached from any single caller's cancellation.
func (s *Service) fetch(ctx context.Context, key string, ids []string, currency string) (model.PriceTable, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.upstream.SimplePrice(fetchCtx, ids, currency)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(model.PriceTable), nil
	}
}

func (s *Service) done(res Result) Result {
	s.metrics.PriceLookup(string(res.Source))
	return res
}
