package orchestrator

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"retroswap/internal/dex"
	"retroswap/internal/model"
)

// Signer is the active signing capability.
type Signer interface {
	Account() (common.Address, bool)
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// TokenContract is the ERC20 surface needed for spend authorization.
type TokenContract interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Approve(opts *bind.TransactOpts, token, spender common.Address, amount *big.Int) (*types.Transaction, error)
}

// ExchangeContract is the exchange surface driven by the orchestrator.
type ExchangeContract interface {
	Address() common.Address
	SwapExactInputSingle(opts *bind.TransactOpts, tokenIn, tokenOut common.Address, fee uint32, amountIn, amountOutMin *big.Int) (*types.Transaction, error)
	SwapExactInput(opts *bind.TransactOpts, tokenIn, tokenMid, tokenOut common.Address, fee1, fee2 uint32, amountIn, amountOutMin *big.Int) (*types.Transaction, error)
	SwapExactOutputSingle(opts *bind.TransactOpts, tokenIn, tokenOut common.Address, fee uint32, amountOut, amountInMax *big.Int) (*types.Transaction, error)
	SwapExactOutput(opts *bind.TransactOpts, tokenIn, tokenMid, tokenOut common.Address, fee1, fee2 uint32, amountOut, amountInMax *big.Int) (*types.Transaction, error)
	AddLiquidity(opts *bind.TransactOpts, p dex.MintParams) (*types.Transaction, error)
	IncreaseLiquidity(opts *bind.TransactOpts, tokenID, amount0Desired, amount1Desired, amount0Min, amount1Min *big.Int) (*types.Transaction, error)
	RemoveLiquidity(opts *bind.TransactOpts, tokenID, liquidity, amount0Min, amount1Min *big.Int) (*types.Transaction, error)
	UserPositions(ctx context.Context, user common.Address) ([]*big.Int, error)
	PositionInfo(ctx context.Context, tokenID *big.Int) (model.Position, error)
}

// Confirmer waits for a transaction to be mined successfully.
type Confirmer interface {
	Confirm(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// TokenLookup resolves registered token metadata.
type TokenLookup interface {
	ByAddress(addr common.Address) (model.TokenInfo, bool)
}
