package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ERC20 binds the token methods used for balances and spend authorization.
type ERC20 struct {
	caller  ContractCaller
	backend bind.ContractBackend
	abi     abi.ABI
}

// NewERC20 creates an ERC20 binding. backend may be nil for read-only use.
func NewERC20(caller ContractCaller, backend bind.ContractBackend) (*ERC20, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &ERC20{caller: caller, backend: backend, abi: parsed}, nil
}

// BalanceOf returns the token balance of owner in base units.
func (t *ERC20) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	values, err := callMethod(ctx, t.caller, token, t.abi, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Allowance returns the amount spender may pull from owner.
func (t *ERC20) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	values, err := callMethod(ctx, t.caller, token, t.abi, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Approve submits an approval of exactly amount for spender.
func (t *ERC20) Approve(opts *bind.TransactOpts, token, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	if t.backend == nil {
		return nil, ErrReadOnly
	}
	bound := bind.NewBoundContract(token, t.abi, t.backend, t.backend, t.backend)
	tx, err := bound.Transact(opts, "approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("approve: %w", err)
	}
	return tx, nil
}
