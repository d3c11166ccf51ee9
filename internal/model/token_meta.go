package model

import "github.com/ethereum/go-ethereum/common"

// TokenInfo captures ERC20 metadata for a registered token.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals uint8          `json:"decimals"`
}
