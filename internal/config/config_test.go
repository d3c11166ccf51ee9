package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultChainID, cfg.ChainID)
	assert.Equal(t, common.HexToAddress(DefaultExchangeAddress), cfg.Contracts.Exchange)
	assert.Equal(t, common.HexToAddress(DefaultFactoryAddress), cfg.Contracts.Factory)
	assert.Equal(t, 60*time.Second, cfg.PriceTTL)
	assert.Equal(t, 15*time.Second, cfg.PriceTimeout)
	assert.Equal(t, 120*time.Second, cfg.PriceInterval)
	assert.Equal(t, 2, cfg.PriceRetries)
	assert.Equal(t, 5*time.Second, cfg.PriceRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.BalanceInterval)
	assert.Equal(t, 0.5, cfg.Slippage)
	assert.Equal(t, HistoryMemory, cfg.HistoryBackend)
	assert.Empty(t, cfg.Tokens.USDC)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RETROSWAP_USDC_ADDRESS", "0x0000000000000000000000000000000000000abc")
	t.Setenv("RETROSWAP_PRICE_TTL", "2m")
	t.Setenv("RETROSWAP_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000abc", cfg.Tokens.USDC)
	assert.Equal(t, 2*time.Minute, cfg.PriceTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "retroswap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":7000\"\nslippage: 1\nhistory-backend: jsonl\n"), 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("slippage", 0.5, "")
	require.NoError(t, flags.Parse([]string{"--slippage=2"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, 2.0, cfg.Slippage)
	assert.Equal(t, HistoryJsonl, cfg.HistoryBackend)
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RETROSWAP_HISTORY_BACKEND", "postgres")
	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pg-dsn")

	t.Setenv("RETROSWAP_HISTORY_BACKEND", "mongo")
	_, err = Load("", nil)
	require.Error(t, err)

	t.Setenv("RETROSWAP_HISTORY_BACKEND", "memory")
	t.Setenv("RETROSWAP_EXCHANGE_ADDRESS", "not-an-address")
	_, err = Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange-address")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdirTemp(t)
	_, err := Load("does-not-exist.yaml", nil)
	require.Error(t, err)
}
