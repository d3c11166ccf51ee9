package model

import "time"

// SwapRecord is a recorded swap transaction.
type SwapRecord struct {
	ID          string    `json:"id"`
	UserAddress string    `json:"userAddress"`
	TokenIn     string    `json:"tokenIn"`
	TokenOut    string    `json:"tokenOut"`
	AmountIn    string    `json:"amountIn"`
	AmountOut   string    `json:"amountOut"`
	TxHash      string    `json:"txHash"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PositionRecord is a recorded liquidity position.
type PositionRecord struct {
	ID          string    `json:"id"`
	UserAddress string    `json:"userAddress"`
	TokenID     string    `json:"tokenId"`
	Token0      string    `json:"token0"`
	Token1      string    `json:"token1"`
	Fee         string    `json:"fee"`
	Liquidity   string    `json:"liquidity"`
	TxHash      string    `json:"txHash"`
	CreatedAt   time.Time `json:"createdAt"`
}
