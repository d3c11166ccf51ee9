package token

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// FormatAmount renders a token amount for display.
func FormatAmount(amount string) string {
	num, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil || num == 0 {
		return "0"
	}
	switch {
	case num < 0.001:
		return "< 0.001"
	case num < 1:
		return strconv.FormatFloat(num, 'f', 6, 64)
	case num < 1000:
		return strconv.FormatFloat(num, 'f', 4, 64)
	case num < 1_000_000:
		return fmt.Sprintf("%.2fK", num/1000)
	default:
		return fmt.Sprintf("%.2fM", num/1_000_000)
	}
}

// FormatPrice renders a fiat price for display.
func FormatPrice(price float64) string {
	switch {
	case price == 0:
		return "$0.00"
	case price < 0.01:
		return fmt.Sprintf("$%.6f", price)
	case price < 1:
		return fmt.Sprintf("$%.4f", price)
	case price < 1000:
		return fmt.Sprintf("$%.2f", price)
	case price < 1_000_000:
		return fmt.Sprintf("$%.2fK", price/1000)
	default:
		return fmt.Sprintf("$%.2fM", price/1_000_000)
	}
}

// FormatPercentage renders a signed percentage with two decimals.
func FormatPercentage(pct float64) string {
	sign := ""
	if pct >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, pct)
}

// IsValidAddress reports whether input is a 0x-prefixed 20-byte hex string.
func IsValidAddress(input string) bool {
	return addressPattern.MatchString(input)
}

// IsValidAmount reports whether input parses as a positive number.
func IsValidAmount(input string) bool {
	num, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	return err == nil && num > 0
}
