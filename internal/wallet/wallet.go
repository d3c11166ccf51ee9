package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

var (
	// ErrNotConnected is returned when no signing account is active.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrWrongNetwork is returned when the RPC serves a different chain.
	ErrWrongNetwork = errors.New("wallet connected to wrong network")
)

// ChainIDReader reports the chain id served by an RPC endpoint.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// AccountEvent describes an account change. Address is zero on disconnect.
type AccountEvent struct {
	Address   common.Address
	Connected bool
}

// Wallet is a private-key signing capability bound to one chain.
type Wallet struct {
	chainID *big.Int
	logger  *zap.Logger

	mu        sync.RWMutex
	key       *ecdsa.PrivateKey
	address   common.Address
	listeners map[int]func(AccountEvent)
	nextID    int
}

// New creates a disconnected wallet for chainID.
func New(chainID *big.Int, logger *zap.Logger) *Wallet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wallet{
		chainID:   new(big.Int).Set(chainID),
		logger:    logger,
		listeners: make(map[int]func(AccountEvent)),
	}
}

// Connect activates the account for a hex-encoded private key and
// returns its address.
func (w *Wallet) Connect(hexKey string) (common.Address, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return common.Address{}, fmt.Errorf("private key is empty")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey)

	w.mu.Lock()
	changed := w.key == nil || w.address != address
	w.key = key
	w.address = address
	w.mu.Unlock()

	if changed {
		w.logger.Info("wallet connected", zap.String("account", address.Hex()))
		w.notify(AccountEvent{Address: address, Connected: true})
	}
	return address, nil
}

// Disconnect clears the active account. Transactions already submitted
// are unaffected.
func (w *Wallet) Disconnect() {
	w.mu.Lock()
	wasConnected := w.key != nil
	w.key = nil
	w.address = common.Address{}
	w.mu.Unlock()

	if wasConnected {
		w.logger.Info("wallet disconnected")
		w.notify(AccountEvent{})
	}
}

// Account returns the active account, if any.
func (w *Wallet) Account() (common.Address, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.address, w.key != nil
}

// ChainID returns the chain the wallet signs for.
func (w *Wallet) ChainID() *big.Int {
	return new(big.Int).Set(w.chainID)
}

// TransactOpts returns signing options for the active account.
func (w *Wallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	w.mu.RLock()
	key := w.key
	w.mu.RUnlock()
	if key == nil {
		return nil, ErrNotConnected
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, w.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// EnsureNetwork checks that rpc serves the wallet's chain.
func (w *Wallet) EnsureNetwork(ctx context.Context, rpc ChainIDReader) error {
	got, err := rpc.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	if got.Cmp(w.chainID) != 0 {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongNetwork, w.chainID, got)
	}
	return nil
}

// OnAccountChange registers fn for connect and disconnect events and
// returns a function that removes it.
func (w *Wallet) OnAccountChange(fn func(AccountEvent)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

func (w *Wallet) notify(ev AccountEvent) {
	w.mu.RLock()
	fns := make([]func(AccountEvent), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
