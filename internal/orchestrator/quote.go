package orchestrator

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultSlippage is the default slippage tolerance in percent.
const DefaultSlippage = 0.5

// LiquidityMinPercent is the share of each desired amount required on mint.
const LiquidityMinPercent = 95

// EstimateOutput estimates the output of a swap from USD prices, rounded
// to six decimal places.
func EstimateOutput(amountIn string, priceIn, priceOut float64) (string, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(amountIn))
	if err != nil {
		return "", fmt.Errorf("parse amount %q: %w", amountIn, err)
	}
	if priceIn <= 0 || priceOut <= 0 {
		return "", fmt.Errorf("prices must be positive")
	}
	out := amount.Mul(decimal.NewFromFloat(priceIn)).Div(decimal.NewFromFloat(priceOut))
	return out.Round(6).String(), nil
}

// MinAmountOut applies a slippage tolerance in percent to amountOut and
// truncates to decimals places.
func MinAmountOut(amountOut string, slippagePct float64, decimals uint8) (string, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(amountOut))
	if err != nil {
		return "", fmt.Errorf("parse amount %q: %w", amountOut, err)
	}
	if slippagePct < 0 || slippagePct >= 100 {
		return "", fmt.Errorf("slippage %v%% out of range", slippagePct)
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippagePct).Div(decimal.NewFromInt(100)))
	return amount.Mul(factor).Truncate(int32(decimals)).String(), nil
}

// MaxAmountIn raises amountIn by a slippage tolerance in percent and
// rounds up to decimals places.
func MaxAmountIn(amountIn string, slippagePct float64, decimals uint8) (string, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(amountIn))
	if err != nil {
		return "", fmt.Errorf("parse amount %q: %w", amountIn, err)
	}
	if slippagePct < 0 || slippagePct >= 100 {
		return "", fmt.Errorf("slippage %v%% out of range", slippagePct)
	}
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(slippagePct).Div(decimal.NewFromInt(100)))
	return amount.Mul(factor).RoundUp(int32(decimals)).String(), nil
}

// PercentOf returns amount*pct/100, rounded down.
func PercentOf(amount *big.Int, pct int64) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amount, big.NewInt(pct))
	return out.Quo(out, big.NewInt(100))
}
