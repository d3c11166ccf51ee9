package token

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	got, err := ParseUnits("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), got)

	got, err = ParseUnits("100", 8)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000_000_000), got)

	want, _ := new(big.Int).SetString("2500000000000000000", 10)
	got, err = ParseUnits("2.5", 18)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseUnits("0.0000001", 6)
	assert.Error(t, err, "more decimals than the token supports")
	_, err = ParseUnits("-1", 6)
	assert.Error(t, err)
	_, err = ParseUnits("abc", 6)
	assert.Error(t, err)
	_, err = ParseUnits("", 6)
	assert.Error(t, err)
}

func TestUnitsRoundTrip(t *testing.T) {
	amounts := []string{"0", "1", "0.000001", "123.456", "98765.4321"}
	for _, decimals := range []uint8{6, 8, 18} {
		for _, amount := range amounts {
			base, err := ParseUnits(amount, decimals)
			require.NoError(t, err, "decimals %d amount %s", decimals, amount)

			back := decimal.RequireFromString(FormatUnits(base, decimals))
			assert.True(t, back.Equal(decimal.RequireFromString(amount)), "decimals %d: %s != %s", decimals, back, amount)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.5", FormatUnits(big.NewInt(1_500_000), 6))
	assert.Equal(t, "0.00000001", FormatUnits(big.NewInt(1), 8))
	assert.Equal(t, "0", FormatUnits(nil, 18))
	assert.Equal(t, "42", FormatUnits(big.NewInt(42), 0))
}
