package poller

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"retroswap/internal/model"
	"retroswap/internal/token"
)

// BalanceReader reads an ERC20 balance.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// AccountSource reports the active account.
type AccountSource interface {
	Account() (common.Address, bool)
}

// Balances tracks formatted balances of the registered tokens for the
// active account.
type Balances struct {
	reader  BalanceReader
	account AccountSource
	tokens  []model.TokenInfo
	logger  *zap.Logger

	mu       sync.RWMutex
	owner    common.Address
	balances map[string]string
}

// NewBalances creates a balance tracker.
func NewBalances(reader BalanceReader, account AccountSource, tokens []model.TokenInfo, logger *zap.Logger) *Balances {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Balances{
		reader:   reader,
		account:  account,
		tokens:   tokens,
		logger:   logger,
		balances: map[string]string{},
	}
}

// Refresh reloads every balance. A token whose read fails shows "0".
func (b *Balances) Refresh(ctx context.Context) error {
	owner, ok := b.account.Account()
	if !ok {
		b.mu.Lock()
		b.owner = common.Address{}
		b.balances = map[string]string{}
		b.mu.Unlock()
		return nil
	}

	next := make(map[string]string, len(b.tokens))
	for _, info := range b.tokens {
		raw, err := b.reader.BalanceOf(ctx, info.Address, owner)
		if err != nil {
			b.logger.Warn("balance read failed", zap.String("symbol", info.Symbol), zap.Error(err))
			next[info.Symbol] = "0"
			continue
		}
		next[info.Symbol] = token.FormatUnits(raw, info.Decimals)
	}

	b.mu.Lock()
	b.owner = owner
	b.balances = next
	b.mu.Unlock()
	return ctx.Err()
}

// Snapshot returns the account and a copy of its balances.
func (b *Balances) Snapshot() (common.Address, map[string]string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.balances))
	for k, v := range b.balances {
		out[k] = v
	}
	return b.owner, out
}
