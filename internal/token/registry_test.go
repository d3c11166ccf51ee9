package token

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retroswap/internal/model"
)

func newDefaultRegistry(t *testing.T) *Registry {
	t.Helper()
	tokens, err := DefaultTokens(Addresses{})
	require.NoError(t, err)
	reg, err := NewRegistry(tokens)
	require.NoError(t, err)
	return reg
}

func TestRegistryLookups(t *testing.T) {
	reg := newDefaultRegistry(t)

	t.Run("by symbol ignores case", func(t *testing.T) {
		info, ok := reg.BySymbol("usdc")
		require.True(t, ok)
		assert.Equal(t, uint8(6), info.Decimals)
		assert.Equal(t, common.HexToAddress(DefaultUSDCAddress), info.Address)
	})

	t.Run("by hex ignores case", func(t *testing.T) {
		info, ok := reg.ByHex(strings.ToLower(DefaultWBTCAddress))
		require.True(t, ok)
		assert.Equal(t, "WBTC", info.Symbol)

		info, ok = reg.ByHex("0x" + strings.ToUpper(DefaultWBTCAddress[2:]))
		require.True(t, ok)
		assert.Equal(t, uint8(8), info.Decimals)
	})

	t.Run("resolve accepts symbol or address", func(t *testing.T) {
		bySym, ok := reg.Resolve("weth")
		require.True(t, ok)
		byAddr, ok := reg.Resolve(DefaultWETHAddress)
		require.True(t, ok)
		assert.Equal(t, bySym, byAddr)
	})

	t.Run("unknown is not found", func(t *testing.T) {
		_, ok := reg.BySymbol("DOGE")
		assert.False(t, ok)
		_, ok = reg.ByHex("0x0000000000000000000000000000000000000001")
		assert.False(t, ok)
		_, ok = reg.ByHex("not-an-address")
		assert.False(t, ok)
	})

	t.Run("all keeps registration order", func(t *testing.T) {
		all := reg.All()
		require.Len(t, all, 4)
		assert.Equal(t, []string{"USDC", "WETH", "WBTC", "DAI"}, []string{all[0].Symbol, all[1].Symbol, all[2].Symbol, all[3].Symbol})
		all[0].Symbol = "MUTATED"
		first, _ := reg.BySymbol("USDC")
		assert.Equal(t, "USDC", first.Symbol)
	})
}

func TestDefaultTokensOverride(t *testing.T) {
	override := "0x00000000000000000000000000000000000000aa"
	tokens, err := DefaultTokens(Addresses{DAI: override})
	require.NoError(t, err)
	reg, err := NewRegistry(tokens)
	require.NoError(t, err)

	dai, ok := reg.BySymbol("DAI")
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(override), dai.Address)

	_, err = DefaultTokens(Addresses{USDC: "0x123"})
	assert.Error(t, err)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	_, err := NewRegistry([]model.TokenInfo{
		{Address: addr, Symbol: "AAA", Decimals: 18},
		{Address: addr, Symbol: "BBB", Decimals: 18},
	})
	assert.Error(t, err)

	_, err = NewRegistry([]model.TokenInfo{
		{Address: addr, Symbol: "AAA", Decimals: 18},
		{Address: common.HexToAddress("0x2222222222222222222222222222222222222222"), Symbol: "aaa", Decimals: 18},
	})
	assert.Error(t, err)

	_, err = NewRegistry([]model.TokenInfo{{Address: addr, Symbol: "AAA", Decimals: 19}})
	assert.Error(t, err)
}

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{" 0x1111111111111111111111111111111111111111", "", "0x2222222222222222222222222222222222222222"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = ParseAddresses([]string{"0xzz"})
	assert.Error(t, err)
}
