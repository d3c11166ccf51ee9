package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"retroswap/internal/model"
)

// ErrReadOnly is returned when a transaction is requested from a binding
// constructed without a transacting backend.
var ErrReadOnly = errors.New("contract binding is read-only")

// MintParams are the arguments of the exchange addLiquidity call.
type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            uint32
	TickLower      int32
	TickUpper      int32
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
}

// Exchange binds the RetroSwap exchange contract.
type Exchange struct {
	address common.Address
	caller  ContractCaller
	abi     abi.ABI
	bound   *bind.BoundContract
}

// NewExchange creates an exchange binding. backend may be nil for a
// read-only binding.
func NewExchange(address common.Address, caller ContractCaller, backend bind.ContractBackend) (*Exchange, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	parsed, err := ExchangeABI()
	if err != nil {
		return nil, fmt.Errorf("parse exchange abi: %w", err)
	}
	ex := &Exchange{address: address, caller: caller, abi: parsed}
	if backend != nil {
		ex.bound = bind.NewBoundContract(address, parsed, backend, backend, backend)
	}
	return ex, nil
}

// Address returns the exchange contract address.
func (e *Exchange) Address() common.Address {
	return e.address
}

// PoolExists reports whether a pool exists for the pair at the fee tier.
func (e *Exchange) PoolExists(ctx context.Context, token0, token1 common.Address, fee uint32) (bool, error) {
	values, err := callMethod(ctx, e.caller, e.address, e.abi, "poolExists", token0, token1, feeArg(fee))
	if err != nil {
		return false, err
	}
	exists, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("poolExists: unsupported type %T", values[0])
	}
	return exists, nil
}

// SpotPrice returns the raw 18-decimal spot price of token0 in token1.
func (e *Exchange) SpotPrice(ctx context.Context, token0, token1 common.Address, fee uint32) (*big.Int, error) {
	values, err := callMethod(ctx, e.caller, e.address, e.abi, "getSpotPrice", token0, token1, feeArg(fee))
	if err != nil {
		return nil, err
	}
	price, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("spot price: %w", err)
	}
	return price, nil
}

// UserPositions returns the position token ids held by user.
func (e *Exchange) UserPositions(ctx context.Context, user common.Address) ([]*big.Int, error) {
	values, err := callMethod(ctx, e.caller, e.address, e.abi, "getUserPositions", user)
	if err != nil {
		return nil, err
	}
	ids, err := asBigInts(values[0])
	if err != nil {
		return nil, fmt.Errorf("user positions: %w", err)
	}
	return ids, nil
}

// PositionInfo loads a single position by token id.
func (e *Exchange) PositionInfo(ctx context.Context, tokenID *big.Int) (model.Position, error) {
	values, err := callMethod(ctx, e.caller, e.address, e.abi, "getPositionInfo", tokenID)
	if err != nil {
		return model.Position{}, err
	}
	if len(values) < 6 {
		return model.Position{}, fmt.Errorf("getPositionInfo: expected 6 values, got %d", len(values))
	}

	pos := model.Position{TokenID: new(big.Int).Set(tokenID)}
	if pos.Token0, err = asAddress(values[0]); err != nil {
		return model.Position{}, fmt.Errorf("token0: %w", err)
	}
	if pos.Token1, err = asAddress(values[1]); err != nil {
		return model.Position{}, fmt.Errorf("token1: %w", err)
	}
	fee, err := asBigInt(values[2])
	if err != nil {
		return model.Position{}, fmt.Errorf("fee: %w", err)
	}
	if pos.Fee, err = uint24FromBig(fee); err != nil {
		return model.Position{}, fmt.Errorf("fee: %w", err)
	}
	lower, err := asBigInt(values[3])
	if err != nil {
		return model.Position{}, fmt.Errorf("tick lower: %w", err)
	}
	if pos.TickLower, err = int24FromBig(lower); err != nil {
		return model.Position{}, fmt.Errorf("tick lower: %w", err)
	}
	upper, err := asBigInt(values[4])
	if err != nil {
		return model.Position{}, fmt.Errorf("tick upper: %w", err)
	}
	if pos.TickUpper, err = int24FromBig(upper); err != nil {
		return model.Position{}, fmt.Errorf("tick upper: %w", err)
	}
	if pos.Liquidity, err = asBigInt(values[5]); err != nil {
		return model.Position{}, fmt.Errorf("liquidity: %w", err)
	}
	return pos, nil
}

// SwapExactInputSingle swaps amountIn of tokenIn through one pool.
func (e *Exchange) SwapExactInputSingle(opts *bind.TransactOpts, tokenIn, tokenOut common.Address, fee uint32, amountIn, amountOutMin *big.Int) (*types.Transaction, error) {
	return e.transact(opts, "swapExactInputSingle", tokenIn, tokenOut, feeArg(fee), amountIn, amountOutMin)
}

// SwapExactInput swaps amountIn of tokenIn through tokenMid.
func (e *Exchange) SwapExactInput(opts *bind.TransactOpts, tokenIn, tokenMid, tokenOut common.Address, fee1, fee2 uint32, amountIn, amountOutMin *big.Int) (*types.Transaction, error) {
	return e.transact(opts, "swapExactInput", tokenIn, tokenMid, tokenOut, feeArg(fee1), feeArg(fee2), amountIn, amountOutMin)
}

// SwapExactOutputSingle buys amountOut of tokenOut through one pool.
func (e *Exchange) SwapExactOutputSingle(opts *bind.TransactOpts, tokenIn, tokenOut common.Address, fee uint32, amountOut, amountInMax *big.Int) (*types.Transaction, error) {
	return e.transact(opts, "swapExactOutputSingle", tokenIn, tokenOut, feeArg(fee), amountOut, amountInMax)
}

// SwapExactOutput buys amountOut of tokenOut through tokenMid.
func (e *Exchange) SwapExactOutput(opts *bind.TransactOpts, tokenIn, tokenMid, tokenOut common.Address, fee1, fee2 uint32, amountOut, amountInMax *big.Int) (*types.Transaction, error) {
	return e.transact(opts, "swapExactOutput", tokenIn, tokenMid, tokenOut, feeArg(fee1), feeArg(fee2), amountOut, amountInMax)
}

// AddLiquidity mints a new position.
func (e *Exchange) AddLiquidity(opts *bind.TransactOpts, p MintParams) (*types.Transaction, error) {
	return e.transact(opts, "addLiquidity",
		p.Token0, p.Token1, feeArg(p.Fee),
		big.NewInt(int64(p.TickLower)), big.NewInt(int64(p.TickUpper)),
		p.Amount0Desired, p.Amount1Desired, p.Amount0Min, p.Amount1Min,
	)
}

// IncreaseLiquidity adds to an existing position.
func (e *Exchange) IncreaseLiquidity(opts *bind.TransactOpts, tokenID, amount0Desired, amount1Desired, amount0Min, amount1Min *big.Int) (*types.Transaction, error) {
	return e.transact(opts, "increaseLiquidity", tokenID, amount0Desired, amount1Desired, amount0Min, amount1Min)
}

// RemoveLiquidity burns liquidity from a position.
func (e *Exchange) RemoveLiquidity(opts *bind.TransactOpts, tokenID, liquidity, amount0Min, amount1Min *big.Int) (*types.Transaction, error) {
	return e.transact(opts, "removeLiquidity", tokenID, liquidity, amount0Min, amount1Min)
}

func (e *Exchange) transact(opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	if e.bound == nil {
		return nil, ErrReadOnly
	}
	tx, err := e.bound.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return tx, nil
}

func feeArg(fee uint32) *big.Int {
	return new(big.Int).SetUint64(uint64(fee))
}
