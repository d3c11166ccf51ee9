package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"retroswap/internal/model"
	"retroswap/internal/pricefeed"
	"retroswap/internal/retry"
)

// PriceSource fetches a simple-price table.
type PriceSource interface {
	SimplePrice(ctx context.Context, ids []string, currency string) (model.PriceTable, error)
}

// PriceBoardConfig configures a PriceBoard.
type PriceBoardConfig struct {
	Source PriceSource
	// StaleAfter is how long fetched prices count as fresh.
	StaleAfter time.Duration
	Retry      retry.Policy
	Now        func() time.Time
	Logger     *zap.Logger
}

// PriceBoard is the display-side price layer. It keeps its own freshness
// window, independent of any server cache behind Source.
type PriceBoard struct {
	source     PriceSource
	staleAfter time.Duration
	policy     retry.Policy
	now        func() time.Time
	logger     *zap.Logger

	mu       sync.RWMutex
	prices   map[string]model.TokenPrice
	updated  time.Time
	fallback bool
}

// NewPriceBoard creates a price board.
func NewPriceBoard(cfg PriceBoardConfig) *PriceBoard {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceBoard{
		source:     cfg.Source,
		staleAfter: cfg.StaleAfter,
		policy:     cfg.Retry,
		now:        now,
		logger:     logger,
	}
}

// Refresh fetches prices with retries. When every attempt fails the last
// good prices are kept, or the fallback table is installed if there are
// none.
func (b *PriceBoard) Refresh(ctx context.Context) error {
	var table model.PriceTable
	err := retry.Do(ctx, b.policy, func(ctx context.Context) error {
		var err error
		table, err = b.source.SimplePrice(ctx, pricefeed.SupportedIDs, "usd")
		return err
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		if b.prices == nil || b.fallback {
			b.logger.Warn("price refresh failed, using fallback prices", zap.Error(err))
			b.prices = pricefeed.ClientFallbackPrices()
			b.fallback = true
		} else {
			b.logger.Warn("price refresh failed, keeping last prices", zap.Error(err))
		}
		return err
	}
	b.prices = pricefeed.SymbolPrices(table)
	b.updated = b.now()
	b.fallback = false
	return nil
}

// Get returns prices, refreshing first when they are not fresh.
func (b *PriceBoard) Get(ctx context.Context) map[string]model.TokenPrice {
	if !b.Fresh() {
		_ = b.Refresh(ctx)
	}
	prices, _, _ := b.Snapshot()
	return prices
}

// Fresh reports whether the last successful fetch is within StaleAfter.
func (b *PriceBoard) Fresh() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.fallback && !b.updated.IsZero() && b.now().Sub(b.updated) < b.staleAfter
}

// Snapshot returns a copy of the current prices, the time of the last
// successful fetch and whether the fallback table is in use.
func (b *PriceBoard) Snapshot() (map[string]model.TokenPrice, time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]model.TokenPrice, len(b.prices))
	for k, v := range b.prices {
		out[k] = v
	}
	return out, b.updated, b.fallback
}

// Price returns the price of symbol.
func (b *PriceBoard) Price(symbol string) (model.TokenPrice, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[symbol]
	return p, ok
}
