package route

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"retroswap/internal/model"
)

var (
	// ErrInvalidRoute is returned when input and output token are equal.
	ErrInvalidRoute = errors.New("invalid route: input and output token are the same")
	// ErrNoRouteFound is returned when no direct or two-hop path exists.
	ErrNoRouteFound = errors.New("no route found")
)

// DirectFeeTiers is the order in which direct pools are probed.
var DirectFeeTiers = []uint32{model.FeeLow, model.FeeMedium, model.FeeHigh}

// HopFee is the only tier considered for each leg of a two-hop route.
const HopFee = model.FeeMedium

// PoolChecker reports pool existence for a pair at a fee tier.
type PoolChecker interface {
	PoolExists(ctx context.Context, token0, token1 common.Address, fee uint32) (bool, error)
}

// Finder discovers swap routes against the exchange pools.
type Finder struct {
	pools         PoolChecker
	intermediates []common.Address
	logger        *zap.Logger
}

// NewFinder creates a route finder. intermediates are tried in order for
// two-hop routes, typically the wrapped native token then the stablecoin.
func NewFinder(pools PoolChecker, intermediates []common.Address, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	mids := make([]common.Address, len(intermediates))
	copy(mids, intermediates)
	return &Finder{pools: pools, intermediates: mids, logger: logger}
}

// FindRoute returns the first direct route by fee tier priority, else the
// first two-hop route by intermediate priority. Failed existence checks are
// logged and treated as absent.
func (f *Finder) FindRoute(ctx context.Context, tokenIn, tokenOut common.Address) (model.SwapRoute, error) {
	if tokenIn == tokenOut {
		return model.SwapRoute{}, ErrInvalidRoute
	}

	for _, fee := range DirectFeeTiers {
		ok, err := f.exists(ctx, tokenIn, tokenOut, fee)
		if err != nil {
			return model.SwapRoute{}, err
		}
		if ok {
			f.logger.Debug("direct route found",
				zap.String("token_in", tokenIn.Hex()),
				zap.String("token_out", tokenOut.Hex()),
				zap.Uint32("fee", fee),
			)
			return model.SwapRoute{
				Path: []common.Address{tokenIn, tokenOut},
				Fees: []uint32{fee},
			}, nil
		}
	}

	for _, mid := range f.intermediates {
		if mid == tokenIn || mid == tokenOut {
			continue
		}
		ok, err := f.exists(ctx, tokenIn, mid, HopFee)
		if err != nil {
			return model.SwapRoute{}, err
		}
		if !ok {
			continue
		}
		ok, err = f.exists(ctx, mid, tokenOut, HopFee)
		if err != nil {
			return model.SwapRoute{}, err
		}
		if ok {
			f.logger.Debug("multi-hop route found",
				zap.String("token_in", tokenIn.Hex()),
				zap.String("via", mid.Hex()),
				zap.String("token_out", tokenOut.Hex()),
			)
			return model.SwapRoute{
				Path:       []common.Address{tokenIn, mid, tokenOut},
				Fees:       []uint32{HopFee, HopFee},
				IsMultiHop: true,
			}, nil
		}
	}

	return model.SwapRoute{}, fmt.Errorf("%w: %s -> %s", ErrNoRouteFound, tokenIn.Hex(), tokenOut.Hex())
}

// exists only returns an error when ctx is done; check failures count as
// a missing pool.
func (f *Finder) exists(ctx context.Context, a, b common.Address, fee uint32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := f.pools.PoolExists(ctx, a, b, fee)
	if err != nil {
		f.logger.Warn("pool existence check failed",
			zap.String("token0", a.Hex()),
			zap.String("token1", b.Hex()),
			zap.Uint32("fee", fee),
			zap.Error(err),
		)
		return false, nil
	}
	return ok, nil
}
