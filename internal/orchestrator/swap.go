package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"retroswap/internal/model"
	"retroswap/internal/route"
)

// SwapResult describes a confirmed swap.
type SwapResult struct {
	TxHash   common.Hash
	Receipt  *types.Receipt
	Approved bool
	// AmountIn and AmountOut are the exact or bounding amounts sent, in base units.
	AmountIn  *big.Int
	AmountOut *big.Int
}

// ExecuteSwap swaps an exact amountIn of tokenIn for at least minAmountOut
// of tokenOut along rt. Amounts are decimal strings in each token's units.
func (o *Orchestrator) ExecuteSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut string, rt model.SwapRoute) (SwapResult, error) {
	s, err := o.connect(ctx)
	if err != nil {
		return SwapResult{}, err
	}
	if err := checkRoute(rt, tokenIn, tokenOut); err != nil {
		return SwapResult{}, err
	}
	in, _, err := o.toUnits(tokenIn, amountIn)
	if err != nil {
		return SwapResult{}, err
	}
	minOut, _, err := o.toUnits(tokenOut, minAmountOut)
	if err != nil {
		return SwapResult{}, err
	}
	if in.Sign() == 0 {
		return SwapResult{}, fmt.Errorf("amount in must be positive")
	}

	approved, err := o.ensureAllowance(ctx, s, tokenIn, in)
	if err != nil {
		return SwapResult{}, err
	}

	receipt, err := o.submit(ctx, "swap", "", func() (*types.Transaction, error) {
		if rt.IsMultiHop {
			return o.exchange.SwapExactInput(s.opts, rt.Path[0], rt.Path[1], rt.Path[2], rt.Fees[0], rt.Fees[1], in, minOut)
		}
		return o.exchange.SwapExactInputSingle(s.opts, tokenIn, tokenOut, rt.Fees[0], in, minOut)
	})
	if err != nil {
		return SwapResult{}, err
	}

	o.logger.Info("swap confirmed",
		zap.String("tx", receipt.TxHash.Hex()),
		zap.String("token_in", o.label(tokenIn)),
		zap.String("token_out", o.label(tokenOut)),
		zap.Bool("multi_hop", rt.IsMultiHop),
	)
	return SwapResult{TxHash: receipt.TxHash, Receipt: receipt, Approved: approved, AmountIn: in, AmountOut: minOut}, nil
}

// ExecuteSwapExactOutput buys exactly amountOut of tokenOut spending at most
// amountInMax of tokenIn. The allowance is gated on amountInMax.
func (o *Orchestrator) ExecuteSwapExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, amountOut, amountInMax string, rt model.SwapRoute) (SwapResult, error) {
	s, err := o.connect(ctx)
	if err != nil {
		return SwapResult{}, err
	}
	if err := checkRoute(rt, tokenIn, tokenOut); err != nil {
		return SwapResult{}, err
	}
	out, _, err := o.toUnits(tokenOut, amountOut)
	if err != nil {
		return SwapResult{}, err
	}
	maxIn, _, err := o.toUnits(tokenIn, amountInMax)
	if err != nil {
		return SwapResult{}, err
	}
	if out.Sign() == 0 || maxIn.Sign() == 0 {
		return SwapResult{}, fmt.Errorf("amounts must be positive")
	}

	approved, err := o.ensureAllowance(ctx, s, tokenIn, maxIn)
	if err != nil {
		return SwapResult{}, err
	}

	receipt, err := o.submit(ctx, "swap", "", func() (*types.Transaction, error) {
		if rt.IsMultiHop {
			return o.exchange.SwapExactOutput(s.opts, rt.Path[0], rt.Path[1], rt.Path[2], rt.Fees[0], rt.Fees[1], out, maxIn)
		}
		return o.exchange.SwapExactOutputSingle(s.opts, tokenIn, tokenOut, rt.Fees[0], out, maxIn)
	})
	if err != nil {
		return SwapResult{}, err
	}
	return SwapResult{TxHash: receipt.TxHash, Receipt: receipt, Approved: approved, AmountIn: maxIn, AmountOut: out}, nil
}

func checkRoute(rt model.SwapRoute, tokenIn, tokenOut common.Address) error {
	if tokenIn == tokenOut {
		return route.ErrInvalidRoute
	}
	if err := rt.Validate(); err != nil {
		return fmt.Errorf("%w: %v", route.ErrInvalidRoute, err)
	}
	if rt.TokenIn() != tokenIn || rt.TokenOut() != tokenOut {
		return fmt.Errorf("%w: route endpoints do not match tokens", route.ErrInvalidRoute)
	}
	return nil
}
