package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"retroswap/internal/dex"
	"retroswap/internal/model"
)

// AddLiquidityParams describe a new position. Amounts are decimal strings.
// Nil price bounds select the full tick range.
type AddLiquidityParams struct {
	Token0     common.Address
	Token1     common.Address
	Fee        uint32
	Amount0    string
	Amount1    string
	PriceLower *float64
	PriceUpper *float64
}

// LiquidityResult describes a confirmed liquidity transaction.
type LiquidityResult struct {
	TxHash  common.Hash
	Receipt *types.Receipt
	// TokenID is the position id; nil when a new id could not be identified.
	TokenID   *big.Int
	TickLower int32
	TickUpper int32
	Approved  []common.Address
}

// AddLiquidity approves both tokens as needed and mints a position. The mint
// is only submitted after both allowances are confirmed sufficient.
func (o *Orchestrator) AddLiquidity(ctx context.Context, p AddLiquidityParams) (LiquidityResult, error) {
	s, err := o.connect(ctx)
	if err != nil {
		return LiquidityResult{}, err
	}
	if p.Token0 == p.Token1 {
		return LiquidityResult{}, fmt.Errorf("token0 and token1 must differ")
	}
	amount0, _, err := o.toUnits(p.Token0, p.Amount0)
	if err != nil {
		return LiquidityResult{}, err
	}
	amount1, _, err := o.toUnits(p.Token1, p.Amount1)
	if err != nil {
		return LiquidityResult{}, err
	}
	tickLower, tickUpper, err := TickRange(p.PriceLower, p.PriceUpper)
	if err != nil {
		return LiquidityResult{}, err
	}

	approved, err := o.approvePair(ctx, s, p.Token0, amount0, p.Token1, amount1)
	if err != nil {
		return LiquidityResult{}, err
	}

	before := o.positionSet(ctx, s.owner)
	params := dex.MintParams{
		Token0:         p.Token0,
		Token1:         p.Token1,
		Fee:            p.Fee,
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		Amount0Desired: amount0,
		Amount1Desired: amount1,
		Amount0Min:     PercentOf(amount0, LiquidityMinPercent),
		Amount1Min:     PercentOf(amount1, LiquidityMinPercent),
	}
	receipt, err := o.submit(ctx, "mint", "", func() (*types.Transaction, error) {
		return o.exchange.AddLiquidity(s.opts, params)
	})
	if err != nil {
		return LiquidityResult{}, err
	}

	result := LiquidityResult{
		TxHash:    receipt.TxHash,
		Receipt:   receipt,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Approved:  approved,
	}
	if before != nil {
		result.TokenID = o.newPosition(ctx, s.owner, before)
	}
	o.logger.Info("position minted",
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Int32("tick_lower", tickLower),
		zap.Int32("tick_upper", tickUpper),
	)
	return result, nil
}

// IncreaseLiquidity adds amounts to an existing position with the same
// dual approval gating as AddLiquidity.
func (o *Orchestrator) IncreaseLiquidity(ctx context.Context, tokenID *big.Int, amount0, amount1 string) (LiquidityResult, error) {
	s, err := o.connect(ctx)
	if err != nil {
		return LiquidityResult{}, err
	}
	pos, err := o.exchange.PositionInfo(ctx, tokenID)
	if err != nil {
		return LiquidityResult{}, &ContractCallError{Step: "position", Token: tokenID.String(), Err: err}
	}
	units0, _, err := o.toUnits(pos.Token0, amount0)
	if err != nil {
		return LiquidityResult{}, err
	}
	units1, _, err := o.toUnits(pos.Token1, amount1)
	if err != nil {
		return LiquidityResult{}, err
	}

	approved, err := o.approvePair(ctx, s, pos.Token0, units0, pos.Token1, units1)
	if err != nil {
		return LiquidityResult{}, err
	}

	receipt, err := o.submit(ctx, "increase", "", func() (*types.Transaction, error) {
		return o.exchange.IncreaseLiquidity(s.opts, tokenID, units0, units1,
			PercentOf(units0, LiquidityMinPercent), PercentOf(units1, LiquidityMinPercent))
	})
	if err != nil {
		return LiquidityResult{}, err
	}
	return LiquidityResult{
		TxHash:    receipt.TxHash,
		Receipt:   receipt,
		TokenID:   new(big.Int).Set(tokenID),
		TickLower: pos.TickLower,
		TickUpper: pos.TickUpper,
		Approved:  approved,
	}, nil
}

// RemoveLiquidity burns liquidity from a position. No approval is needed.
func (o *Orchestrator) RemoveLiquidity(ctx context.Context, tokenID, liquidity, minAmount0, minAmount1 *big.Int) (LiquidityResult, error) {
	s, err := o.connect(ctx)
	if err != nil {
		return LiquidityResult{}, err
	}
	if liquidity == nil || liquidity.Sign() <= 0 {
		return LiquidityResult{}, fmt.Errorf("liquidity must be positive")
	}
	if minAmount0 == nil {
		minAmount0 = new(big.Int)
	}
	if minAmount1 == nil {
		minAmount1 = new(big.Int)
	}

	receipt, err := o.submit(ctx, "remove", "", func() (*types.Transaction, error) {
		return o.exchange.RemoveLiquidity(s.opts, tokenID, liquidity, minAmount0, minAmount1)
	})
	if err != nil {
		return LiquidityResult{}, err
	}
	return LiquidityResult{TxHash: receipt.TxHash, Receipt: receipt, TokenID: new(big.Int).Set(tokenID)}, nil
}

// RemovePosition removes the full liquidity of a position with zero minimums.
func (o *Orchestrator) RemovePosition(ctx context.Context, tokenID *big.Int) (LiquidityResult, error) {
	if _, err := o.connect(ctx); err != nil {
		return LiquidityResult{}, err
	}
	pos, err := o.exchange.PositionInfo(ctx, tokenID)
	if err != nil {
		return LiquidityResult{}, &ContractCallError{Step: "position", Token: tokenID.String(), Err: err}
	}
	result, err := o.RemoveLiquidity(ctx, tokenID, pos.Liquidity, nil, nil)
	if err != nil {
		return LiquidityResult{}, err
	}
	result.TickLower, result.TickUpper = pos.TickLower, pos.TickUpper
	return result, nil
}

// Positions lists the positions owned by owner. Lookups that fail are
// logged and skipped.
func (o *Orchestrator) Positions(ctx context.Context, owner common.Address) ([]model.Position, error) {
	ids, err := o.exchange.UserPositions(ctx, owner)
	if err != nil {
		return nil, &ContractCallError{Step: "positions", Err: err}
	}
	out := make([]model.Position, 0, len(ids))
	for _, id := range ids {
		pos, err := o.exchange.PositionInfo(ctx, id)
		if err != nil {
			o.logger.Warn("position lookup failed", zap.String("token_id", id.String()), zap.Error(err))
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}

// approvePair gates both tokens concurrently. Either approval may be sent
// first; both must be confirmed before this returns nil.
func (o *Orchestrator) approvePair(ctx context.Context, s session, token0 common.Address, amount0 *big.Int, token1 common.Address, amount1 *big.Int) ([]common.Address, error) {
	var approved [2]bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ok, err := o.ensureAllowance(gctx, s, token0, amount0)
		approved[0] = ok
		return err
	})
	g.Go(func() error {
		ok, err := o.ensureAllowance(gctx, s, token1, amount1)
		approved[1] = ok
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []common.Address
	if approved[0] {
		out = append(out, token0)
	}
	if approved[1] {
		out = append(out, token1)
	}
	return out, nil
}

func (o *Orchestrator) positionSet(ctx context.Context, owner common.Address) map[string]struct{} {
	ids, err := o.exchange.UserPositions(ctx, owner)
	if err != nil {
		o.logger.Debug("position snapshot failed", zap.Error(err))
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id.String()] = struct{}{}
	}
	return set
}

// newPosition returns the single id present now but absent from before.
func (o *Orchestrator) newPosition(ctx context.Context, owner common.Address, before map[string]struct{}) *big.Int {
	ids, err := o.exchange.UserPositions(ctx, owner)
	if err != nil {
		o.logger.Debug("position snapshot failed", zap.Error(err))
		return nil
	}
	var found *big.Int
	for _, id := range ids {
		if _, ok := before[id.String()]; ok {
			continue
		}
		if found != nil {
			return nil
		}
		found = new(big.Int).Set(id)
	}
	return found
}
