package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retroswap/internal/config"
	"retroswap/internal/model"
	"retroswap/internal/storage"
	"retroswap/internal/token"
)

func testApp(t *testing.T) *app {
	t.Helper()
	tokens, err := token.DefaultTokens(token.Addresses{})
	require.NoError(t, err)
	reg, err := token.NewRegistry(tokens)
	require.NoError(t, err)
	return &app{cfg: config.Config{HistoryBackend: config.HistoryMemory}, logger: zap.NewNop(), registry: reg}
}

func TestDescribeRoute(t *testing.T) {
	a := testApp(t)
	usdc, _ := a.registry.BySymbol("USDC")
	weth, _ := a.registry.BySymbol("WETH")
	wbtc, _ := a.registry.BySymbol("WBTC")

	got := a.describeRoute(model.SwapRoute{
		Path:       []common.Address{usdc.Address, weth.Address, wbtc.Address},
		Fees:       []uint32{3000, 3000},
		IsMultiHop: true,
	})
	assert.Equal(t, "USDC -> WETH -> WBTC (multi-hop) fees 0.30%, 0.30%", got)

	got = a.describeRoute(model.SwapRoute{Path: []common.Address{usdc.Address, weth.Address}, Fees: []uint32{500}})
	assert.Equal(t, "USDC -> WETH (direct) fees 0.05%", got)
}

func TestIntermediatesOrder(t *testing.T) {
	a := testApp(t)
	weth, _ := a.registry.BySymbol("WETH")
	usdc, _ := a.registry.BySymbol("USDC")
	assert.Equal(t, []common.Address{weth.Address, usdc.Address}, a.intermediates())
}

func TestOpenHistoryBackends(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()

	store, err := a.openHistory(ctx)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, store)
	require.NoError(t, store.Close())

	a.cfg.HistoryBackend = config.HistoryJsonl
	a.cfg.HistoryPath = filepath.Join(t.TempDir(), "history.jsonl")
	store, err = a.openHistory(ctx)
	require.NoError(t, err)
	assert.IsType(t, &storage.JsonlStore{}, store)
	require.NoError(t, store.Close())
}
