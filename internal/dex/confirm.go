package dex

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ErrTransactionReverted is returned when a mined receipt has failed status.
var ErrTransactionReverted = errors.New("transaction reverted")

// Confirmer waits for transactions to be mined.
type Confirmer struct {
	backend bind.DeployBackend
	logger  *zap.Logger
}

// NewConfirmer creates a confirmer polling backend for receipts.
func NewConfirmer(backend bind.DeployBackend, logger *zap.Logger) *Confirmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Confirmer{backend: backend, logger: logger}
}

// Confirm blocks until tx is mined and returns its receipt. A reverted
// transaction yields ErrTransactionReverted.
func (c *Confirmer) Confirm(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, tx.Hash().Hex())
	}
	c.logger.Debug("transaction confirmed",
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}
