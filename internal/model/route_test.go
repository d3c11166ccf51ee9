package model

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	tokC = common.HexToAddress("0x000000000000000000000000000000000000000c")
)

func TestSwapRouteValidate(t *testing.T) {
	direct := SwapRoute{Path: []common.Address{tokA, tokB}, Fees: []uint32{FeeLow}}
	require.NoError(t, direct.Validate())
	assert.Equal(t, tokA, direct.TokenIn())
	assert.Equal(t, tokB, direct.TokenOut())

	hop := SwapRoute{Path: []common.Address{tokA, tokC, tokB}, Fees: []uint32{FeeMedium, FeeMedium}, IsMultiHop: true}
	require.NoError(t, hop.Validate())
	assert.Equal(t, tokB, hop.TokenOut())

	for name, bad := range map[string]SwapRoute{
		"single token":   {Path: []common.Address{tokA}},
		"fee count":      {Path: []common.Address{tokA, tokB}, Fees: []uint32{FeeLow, FeeLow}},
		"repeated token": {Path: []common.Address{tokA, tokA}, Fees: []uint32{FeeLow}},
		"flag mismatch":  {Path: []common.Address{tokA, tokB}, Fees: []uint32{FeeLow}, IsMultiHop: true},
		"four tokens":    {Path: []common.Address{tokA, tokB, tokC, tokA}, Fees: []uint32{1, 2, 3}, IsMultiHop: true},
	} {
		assert.Error(t, bad.Validate(), name)
	}
}

func TestRecordValidate(t *testing.T) {
	swap := SwapRecord{UserAddress: "0x1", TokenIn: "USDC", TokenOut: "WETH", AmountIn: "1", AmountOut: "2", TxHash: "0xab"}
	require.NoError(t, swap.Validate())

	swap.AmountOut = " "
	swap.TxHash = ""
	err := swap.Validate()
	require.Error(t, err)
	assert.Equal(t, "missing fields: amountOut, txHash", err.Error())

	err = PositionRecord{UserAddress: "0x1"}.Validate()
	require.Error(t, err)
	assert.Equal(t, "missing fields: fee, liquidity, token0, token1, tokenId, txHash", err.Error())
}
