package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Position is a liquidity position as reported by the exchange contract.
type Position struct {
	TokenID   *big.Int       `json:"tokenId"`
	Token0    common.Address `json:"token0"`
	Token1    common.Address `json:"token1"`
	Fee       uint32         `json:"fee"`
	TickLower int32          `json:"tickLower"`
	TickUpper int32          `json:"tickUpper"`
	Liquidity *big.Int       `json:"liquidity"`
}
