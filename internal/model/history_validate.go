package model

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks that every required swap field is present.
func (r SwapRecord) Validate() error {
	return requireFields(map[string]string{
		"userAddress": r.UserAddress,
		"tokenIn":     r.TokenIn,
		"tokenOut":    r.TokenOut,
		"amountIn":    r.AmountIn,
		"amountOut":   r.AmountOut,
		"txHash":      r.TxHash,
	})
}

// Validate checks that every required position field is present.
func (r PositionRecord) Validate() error {
	return requireFields(map[string]string{
		"userAddress": r.UserAddress,
		"tokenId":     r.TokenID,
		"token0":      r.Token0,
		"token1":      r.Token1,
		"fee":         r.Fee,
		"liquidity":   r.Liquidity,
		"txHash":      r.TxHash,
	})
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
}
