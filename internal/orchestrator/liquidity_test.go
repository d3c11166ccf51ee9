package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retroswap/internal/model"
)

func indexOf(events []string, want string) int {
	for i, ev := range events {
		if ev == want {
			return i
		}
	}
	return -1
}

func TestAddLiquidityConfirmsBothApprovalsBeforeMint(t *testing.T) {
	h := newHarness(t)
	h.exchange.mintID = big.NewInt(42)
	h.exchange.owned = []*big.Int{big.NewInt(7)}

	res, err := h.orch.AddLiquidity(context.Background(), AddLiquidityParams{
		Token0:  usdc,
		Token1:  weth,
		Fee:     3000,
		Amount0: "1000",
		Amount1: "0.5",
	})
	require.NoError(t, err)

	events := h.log.snapshot()
	mint := indexOf(events, "mint allowance0=1000000000 allowance1=500000000000000000")
	require.NotEqual(t, -1, mint, events)
	c0 := indexOf(events, "confirm approve USDC")
	c1 := indexOf(events, "confirm approve WETH")
	require.NotEqual(t, -1, c0)
	require.NotEqual(t, -1, c1)
	assert.Less(t, c0, mint)
	assert.Less(t, c1, mint)

	assert.ElementsMatch(t, []interface{}{usdc, weth}, []interface{}{res.Approved[0], res.Approved[1]})
	assert.Equal(t, MinTick, res.TickLower)
	assert.Equal(t, MaxTick, res.TickUpper)
	assert.Equal(t, "42", res.TokenID.String())

	assert.Equal(t, "950000000", h.exchange.lastMint.Amount0Min.String())
	assert.Equal(t, "475000000000000000", h.exchange.lastMint.Amount1Min.String())
}

func TestAddLiquidityOneApprovalFailureBlocksMint(t *testing.T) {
	h := newHarness(t)
	h.log.allowances[usdc] = big.NewInt(1_000_000_000)
	h.log.failing["confirm:approve WETH"] = errors.New("transaction reverted")

	_, err := h.orch.AddLiquidity(context.Background(), AddLiquidityParams{
		Token0:  usdc,
		Token1:  weth,
		Fee:     3000,
		Amount0: "1000",
		Amount1: "0.5",
	})
	require.ErrorIs(t, err, ErrContractCallFailed)
	for _, ev := range h.log.snapshot() {
		assert.False(t, strings.HasPrefix(ev, "mint"), ev)
	}
}

func TestAddLiquidityPriceBoundsToTicks(t *testing.T) {
	h := newHarness(t)
	h.log.allowances[usdc] = big.NewInt(1_000_000_000)
	h.log.allowances[dai] = new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18))
	lower, upper := 0.5, 2.0

	res, err := h.orch.AddLiquidity(context.Background(), AddLiquidityParams{
		Token0:     usdc,
		Token1:     dai,
		Fee:        500,
		Amount0:    "10",
		Amount1:    "10",
		PriceLower: &lower,
		PriceUpper: &upper,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(-6932), res.TickLower)
	assert.Equal(t, int32(6931), res.TickUpper)
	assert.Nil(t, res.Approved)
	assert.Nil(t, res.TokenID)
}

func TestIncreaseLiquidityUsesPositionTokens(t *testing.T) {
	h := newHarness(t)
	h.exchange.positions["9"] = model.Position{
		TokenID: big.NewInt(9), Token0: wbtc, Token1: weth, Fee: 3000,
		TickLower: -600, TickUpper: 600, Liquidity: big.NewInt(1000),
	}

	res, err := h.orch.IncreaseLiquidity(context.Background(), big.NewInt(9), "0.1", "1")
	require.NoError(t, err)
	assert.Len(t, res.Approved, 2)

	events := h.log.snapshot()
	inc := indexOf(events, "increase 9")
	assert.Greater(t, inc, indexOf(events, "confirm approve WBTC"))
	assert.Greater(t, inc, indexOf(events, "confirm approve WETH"))
	assert.Equal(t, "10000000", h.exchange.lastArgs[1].String())
	assert.Equal(t, "9500000", h.exchange.lastArgs[3].String())
}

func TestRemovePositionTakesFullLiquidity(t *testing.T) {
	h := newHarness(t)
	h.exchange.positions["9"] = model.Position{
		TokenID: big.NewInt(9), Token0: usdc, Token1: weth, Fee: 3000,
		TickLower: -600, TickUpper: 600, Liquidity: big.NewInt(123456),
	}

	res, err := h.orch.RemovePosition(context.Background(), big.NewInt(9))
	require.NoError(t, err)
	assert.Equal(t, []string{"remove 9 123456", "confirm remove"}, h.log.snapshot())
	assert.Equal(t, []*big.Int{big.NewInt(9), big.NewInt(123456), new(big.Int), new(big.Int)}, h.exchange.lastArgs)
	assert.Equal(t, int32(-600), res.TickLower)
}

func TestRemoveLiquidityNotConnected(t *testing.T) {
	h := newHarness(t)
	h.signer.connected = false
	_, err := h.orch.RemoveLiquidity(context.Background(), big.NewInt(1), big.NewInt(1), nil, nil)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestPositionsSkipsFailedLookups(t *testing.T) {
	h := newHarness(t)
	h.exchange.owned = []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	h.exchange.positions["1"] = model.Position{TokenID: big.NewInt(1), Token0: usdc, Token1: weth}
	h.exchange.positions["3"] = model.Position{TokenID: big.NewInt(3), Token0: wbtc, Token1: weth}

	positions, err := h.orch.Positions(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "1", positions[0].TokenID.String())
	assert.Equal(t, "3", positions[1].TokenID.String())
}
