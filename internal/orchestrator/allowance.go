package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// checkAllowance re-reads the allowance and reports ErrInsufficientAllowance
// when it is below amount. Allowances are never cached.
func (o *Orchestrator) checkAllowance(ctx context.Context, tok, owner common.Address, amount *big.Int) error {
	current, err := o.tokens.Allowance(ctx, tok, owner, o.exchange.Address())
	if err != nil {
		return &ContractCallError{Step: "allowance", Token: o.label(tok), Err: err}
	}
	if current.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientAllowance, current, amount)
	}
	return nil
}

// ensureAllowance approves exactly amount when the current allowance is
// short, and returns only after the approval is confirmed. It reports
// whether an approval was sent.
func (o *Orchestrator) ensureAllowance(ctx context.Context, s session, tok common.Address, amount *big.Int) (bool, error) {
	err := o.checkAllowance(ctx, tok, s.owner, amount)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrInsufficientAllowance) {
		return false, err
	}

	label := o.label(tok)
	spender := o.exchange.Address()
	o.logger.Info("approving token",
		zap.String("token", label),
		zap.String("spender", spender.Hex()),
		zap.String("amount", amount.String()),
	)
	_, err = o.submit(ctx, "approve", label, func() (*types.Transaction, error) {
		return o.tokens.Approve(s.opts, tok, spender, new(big.Int).Set(amount))
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
