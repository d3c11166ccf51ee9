package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"retroswap/internal/metrics"
	"retroswap/internal/model"
	"retroswap/internal/token"
)

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Exchange  ExchangeContract
	Tokens    TokenContract
	Confirmer Confirmer
	Registry  TokenLookup
	Signer    Signer
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Orchestrator sequences allowance checks, approvals and exchange calls.
// Steps of a single operation run strictly in order.
type Orchestrator struct {
	exchange  ExchangeContract
	tokens    TokenContract
	confirmer Confirmer
	registry  TokenLookup
	signer    Signer
	metrics   *metrics.Metrics
	logger    *zap.Logger

	// sendMu serializes submissions so each one sees the previous pending nonce.
	sendMu sync.Mutex
}

// New creates an orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Exchange == nil || deps.Tokens == nil || deps.Confirmer == nil || deps.Registry == nil {
		return nil, fmt.Errorf("orchestrator: exchange, tokens, confirmer and registry are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		exchange:  deps.Exchange,
		tokens:    deps.Tokens,
		confirmer: deps.Confirmer,
		registry:  deps.Registry,
		signer:    deps.Signer,
		metrics:   deps.Metrics,
		logger:    logger,
	}, nil
}

// session is the connected account captured at the start of an operation.
type session struct {
	owner common.Address
	opts  *bind.TransactOpts
}

func (o *Orchestrator) connect(ctx context.Context) (session, error) {
	if o.signer == nil {
		return session{}, ErrNotConnected
	}
	owner, ok := o.signer.Account()
	if !ok {
		return session{}, ErrNotConnected
	}
	opts, err := o.signer.TransactOpts(ctx)
	if err != nil {
		return session{}, err
	}
	return session{owner: owner, opts: opts}, nil
}

// toUnits converts a decimal amount using the token's registered decimals.
func (o *Orchestrator) toUnits(tok common.Address, amount string) (*big.Int, model.TokenInfo, error) {
	info, ok := o.registry.ByAddress(tok)
	if !ok {
		return nil, model.TokenInfo{}, fmt.Errorf("%w: %s", ErrUnknownToken, tok.Hex())
	}
	units, err := token.ParseUnits(amount, info.Decimals)
	if err != nil {
		return nil, info, fmt.Errorf("%s amount: %w", info.Symbol, err)
	}
	return units, info, nil
}

func (o *Orchestrator) label(tok common.Address) string {
	if info, ok := o.registry.ByAddress(tok); ok {
		return info.Symbol
	}
	return tok.Hex()
}

// submit sends a transaction and waits for its confirmation.
func (o *Orchestrator) submit(ctx context.Context, step, tokenLabel string, send func() (*types.Transaction, error)) (*types.Receipt, error) {
	o.sendMu.Lock()
	tx, err := send()
	o.sendMu.Unlock()
	if err != nil {
		o.metrics.ContractStep(step, err)
		return nil, &ContractCallError{Step: step, Token: tokenLabel, Err: err}
	}
	o.logger.Info("transaction submitted", zap.String("step", step), zap.String("tx", tx.Hash().Hex()))

	receipt, err := o.confirmer.Confirm(ctx, tx)
	o.metrics.ContractStep(step, err)
	if err != nil {
		return nil, &ContractCallError{Step: step, Token: tokenLabel, Err: err}
	}
	return receipt, nil
}
