package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key (hardhat account #0).
const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

type staticChain struct{ id int64 }

func (s staticChain) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(s.id), nil
}

func TestWalletConnectAndSign(t *testing.T) {
	w := New(big.NewInt(11155111), nil)

	_, err := w.TransactOpts(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)

	addr, err := w.Connect(testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), addr)

	opts, err := w.TransactOpts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, addr, opts.From)
	assert.NotNil(t, opts.Signer)
}

func TestWalletRejectsBadKey(t *testing.T) {
	w := New(big.NewInt(1), nil)
	_, err := w.Connect("not-a-key")
	require.Error(t, err)
	_, ok := w.Account()
	assert.False(t, ok)
}

func TestWalletAccountChangeListeners(t *testing.T) {
	w := New(big.NewInt(1), nil)
	var events []AccountEvent
	unsubscribe := w.OnAccountChange(func(ev AccountEvent) {
		events = append(events, ev)
	})

	_, err := w.Connect(testKey)
	require.NoError(t, err)
	// Reconnecting the same account is not a change.
	_, err = w.Connect(testKey)
	require.NoError(t, err)
	w.Disconnect()
	w.Disconnect()

	require.Len(t, events, 2)
	assert.True(t, events[0].Connected)
	assert.Equal(t, common.HexToAddress(testAddress), events[0].Address)
	assert.False(t, events[1].Connected)

	unsubscribe()
	_, err = w.Connect(testKey)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	_, err = w.TransactOpts(context.Background())
	assert.NoError(t, err)
}

func TestWalletEnsureNetwork(t *testing.T) {
	w := New(big.NewInt(11155111), nil)
	require.NoError(t, w.EnsureNetwork(context.Background(), staticChain{id: 11155111}))

	err := w.EnsureNetwork(context.Background(), staticChain{id: 1})
	assert.ErrorIs(t, err, ErrWrongNetwork)
}
