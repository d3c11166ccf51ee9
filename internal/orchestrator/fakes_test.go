package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"retroswap/internal/dex"
	"retroswap/internal/model"
	"retroswap/internal/token"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	exchange = common.HexToAddress("0x04d21AB7ED0B2F3d1f5Db4235Af692AA24185668")
	usdc     = common.HexToAddress(token.DefaultUSDCAddress)
	weth     = common.HexToAddress(token.DefaultWETHAddress)
	wbtc     = common.HexToAddress(token.DefaultWBTCAddress)
	dai      = common.HexToAddress(token.DefaultDAIAddress)
)

// chainLog is a shared, ordered record of every call the fakes observe.
// Allowances only change when an approval is confirmed.
type chainLog struct {
	mu         sync.Mutex
	events     []string
	allowances map[common.Address]*big.Int
	pending    map[common.Hash]pendingTx
	failing    map[string]error
	nonce      uint64
}

func newChainLog() *chainLog {
	return &chainLog{
		allowances: map[common.Address]*big.Int{},
		pending:    map[common.Hash]pendingTx{},
		failing:    map[string]error{},
	}
}

func (c *chainLog) record(format string, args ...interface{}) {
	c.mu.Lock()
	c.events = append(c.events, fmt.Sprintf(format, args...))
	c.mu.Unlock()
}

func (c *chainLog) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	copy(out, c.events)
	return out
}

func (c *chainLog) allowance(tok common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.allowances[tok]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func (c *chainLog) newTx(name string, onConfirm func()) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failing["send:"+name]; err != nil {
		return nil, err
	}
	c.nonce++
	tx := types.NewTx(&types.LegacyTx{Nonce: c.nonce, GasPrice: big.NewInt(1), Gas: 21000, Value: new(big.Int)})
	c.pending[tx.Hash()] = pendingTx{name: name, onConfirm: onConfirm}
	return tx, nil
}

type pendingTx struct {
	name      string
	onConfirm func()
}

type fakeSigner struct {
	connected bool
}

func (s *fakeSigner) Account() (common.Address, bool) {
	return owner, s.connected
}

func (s *fakeSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	return &bind.TransactOpts{From: owner, Context: ctx}, nil
}

type fakeTokens struct{ log *chainLog }

func (f *fakeTokens) Allowance(_ context.Context, tok, own, spender common.Address) (*big.Int, error) {
	f.log.record("allowance %s", symbolOf(tok))
	if own != owner || spender != exchange {
		return nil, errors.New("unexpected owner or spender")
	}
	if err := f.log.failing["allowance:"+symbolOf(tok)]; err != nil {
		return nil, err
	}
	return f.log.allowance(tok), nil
}

func (f *fakeTokens) Approve(_ *bind.TransactOpts, tok, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	f.log.record("approve %s %s", symbolOf(tok), amount)
	name := "approve " + symbolOf(tok)
	return f.log.newTx(name, func() {
		f.log.allowances[tok] = new(big.Int).Set(amount)
	})
}

type fakeConfirmer struct{ log *chainLog }

func (f *fakeConfirmer) Confirm(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	f.log.mu.Lock()
	defer f.log.mu.Unlock()
	p, ok := f.log.pending[tx.Hash()]
	if !ok {
		return nil, errors.New("unknown transaction")
	}
	delete(f.log.pending, tx.Hash())
	if err := f.log.failing["confirm:"+p.name]; err != nil {
		f.log.events = append(f.log.events, "revert "+p.name)
		return nil, err
	}
	f.log.events = append(f.log.events, "confirm "+p.name)
	if p.onConfirm != nil {
		p.onConfirm()
	}
	return &types.Receipt{TxHash: tx.Hash(), Status: types.ReceiptStatusSuccessful}, nil
}

type fakeExchange struct {
	log       *chainLog
	positions map[string]model.Position
	owned     []*big.Int
	mintID    *big.Int
	lastMint  dex.MintParams
	lastArgs  []*big.Int
}

func (f *fakeExchange) Address() common.Address { return exchange }

// spend records a spend call and checks the allowance is already confirmed.
func (f *fakeExchange) spend(name string, tok common.Address, amount *big.Int) (*types.Transaction, error) {
	have := f.log.allowance(tok)
	f.log.record("%s allowance=%s", name, have)
	if have.Cmp(amount) < 0 {
		return nil, errors.New("execution reverted: insufficient allowance")
	}
	return f.log.newTx(name, nil)
}

func (f *fakeExchange) SwapExactInputSingle(_ *bind.TransactOpts, tokenIn, tokenOut common.Address, fee uint32, amountIn, amountOutMin *big.Int) (*types.Transaction, error) {
	f.lastArgs = []*big.Int{big.NewInt(int64(fee)), amountIn, amountOutMin}
	return f.spend(fmt.Sprintf("swapSingle %s->%s", symbolOf(tokenIn), symbolOf(tokenOut)), tokenIn, amountIn)
}

func (f *fakeExchange) SwapExactInput(_ *bind.TransactOpts, tokenIn, tokenMid, tokenOut common.Address, fee1, fee2 uint32, amountIn, amountOutMin *big.Int) (*types.Transaction, error) {
	f.lastArgs = []*big.Int{big.NewInt(int64(fee1)), big.NewInt(int64(fee2)), amountIn, amountOutMin}
	return f.spend(fmt.Sprintf("swapMulti %s->%s->%s", symbolOf(tokenIn), symbolOf(tokenMid), symbolOf(tokenOut)), tokenIn, amountIn)
}

func (f *fakeExchange) SwapExactOutputSingle(_ *bind.TransactOpts, tokenIn, tokenOut common.Address, fee uint32, amountOut, amountInMax *big.Int) (*types.Transaction, error) {
	f.lastArgs = []*big.Int{big.NewInt(int64(fee)), amountOut, amountInMax}
	return f.spend(fmt.Sprintf("swapOutSingle %s->%s", symbolOf(tokenIn), symbolOf(tokenOut)), tokenIn, amountInMax)
}

func (f *fakeExchange) SwapExactOutput(_ *bind.TransactOpts, tokenIn, tokenMid, tokenOut common.Address, fee1, fee2 uint32, amountOut, amountInMax *big.Int) (*types.Transaction, error) {
	f.lastArgs = []*big.Int{big.NewInt(int64(fee1)), big.NewInt(int64(fee2)), amountOut, amountInMax}
	return f.spend(fmt.Sprintf("swapOutMulti %s->%s->%s", symbolOf(tokenIn), symbolOf(tokenMid), symbolOf(tokenOut)), tokenIn, amountInMax)
}

func (f *fakeExchange) AddLiquidity(_ *bind.TransactOpts, p dex.MintParams) (*types.Transaction, error) {
	f.lastMint = p
	a0, a1 := f.log.allowance(p.Token0), f.log.allowance(p.Token1)
	f.log.record("mint allowance0=%s allowance1=%s", a0, a1)
	if a0.Cmp(p.Amount0Desired) < 0 || a1.Cmp(p.Amount1Desired) < 0 {
		return nil, errors.New("execution reverted: insufficient allowance")
	}
	return f.log.newTx("mint", func() {
		if f.mintID != nil {
			f.owned = append(f.owned, f.mintID)
		}
	})
}

func (f *fakeExchange) IncreaseLiquidity(_ *bind.TransactOpts, tokenID, amount0Desired, amount1Desired, amount0Min, amount1Min *big.Int) (*types.Transaction, error) {
	f.lastArgs = []*big.Int{tokenID, amount0Desired, amount1Desired, amount0Min, amount1Min}
	f.log.record("increase %s", tokenID)
	return f.log.newTx("increase", nil)
}

func (f *fakeExchange) RemoveLiquidity(_ *bind.TransactOpts, tokenID, liquidity, amount0Min, amount1Min *big.Int) (*types.Transaction, error) {
	f.lastArgs = []*big.Int{tokenID, liquidity, amount0Min, amount1Min}
	f.log.record("remove %s %s", tokenID, liquidity)
	return f.log.newTx("remove", nil)
}

func (f *fakeExchange) UserPositions(_ context.Context, user common.Address) ([]*big.Int, error) {
	f.log.mu.Lock()
	defer f.log.mu.Unlock()
	out := make([]*big.Int, len(f.owned))
	copy(out, f.owned)
	return out, nil
}

func (f *fakeExchange) PositionInfo(_ context.Context, tokenID *big.Int) (model.Position, error) {
	pos, ok := f.positions[tokenID.String()]
	if !ok {
		return model.Position{}, errors.New("execution reverted: invalid token id")
	}
	return pos, nil
}

func symbolOf(addr common.Address) string {
	switch addr {
	case usdc:
		return "USDC"
	case weth:
		return "WETH"
	case wbtc:
		return "WBTC"
	case dai:
		return "DAI"
	}
	return addr.Hex()
}

type harness struct {
	log      *chainLog
	exchange *fakeExchange
	signer   *fakeSigner
	orch     *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens, err := token.DefaultTokens(token.Addresses{})
	require.NoError(t, err)
	registry, err := token.NewRegistry(tokens)
	require.NoError(t, err)

	log := newChainLog()
	h := &harness{
		log:      log,
		exchange: &fakeExchange{log: log, positions: map[string]model.Position{}},
		signer:   &fakeSigner{connected: true},
	}
	h.orch, err = New(Deps{
		Exchange:  h.exchange,
		Tokens:    &fakeTokens{log: log},
		Confirmer: &fakeConfirmer{log: log},
		Registry:  registry,
		Signer:    h.signer,
	})
	require.NoError(t, err)
	return h
}
