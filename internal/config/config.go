package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"retroswap/internal/token"
)

// Sepolia deployment defaults.
const (
	DefaultChainID                uint64 = 11155111
	DefaultExchangeAddress               = "0x04d21AB7ED0B2F3d1f5Db4235Af692AA24185668"
	DefaultRouterAddress                 = "0x3bFA4769FB09eefC5a80d6E87c3B9C650f7Ae48E"
	DefaultPositionManagerAddress        = "0x1238536071E1c677A632429e3655c799b22cDA52"
	DefaultFactoryAddress                = "0x0227628f3F023bb0B980b67D528571c95c6DaC1c"
)

// History backends.
const (
	HistoryMemory   = "memory"
	HistoryJsonl    = "jsonl"
	HistoryPostgres = "postgres"
)

// Contracts holds the deployed contract addresses.
type Contracts struct {
	Exchange        common.Address
	Router          common.Address
	PositionManager common.Address
	Factory         common.Address
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL    string
	ChainID   uint64
	Contracts Contracts
	Tokens    token.Addresses
	WalletKey string
	LogLevel  string

	Listen      string
	CORSOrigins []string
	APIURL      string

	CoinGeckoURL   string
	PriceTTL       time.Duration
	PriceTimeout   time.Duration
	PriceCacheSize int
	UpstreamRPS    float64
	UpstreamBurst  int

	HistoryBackend string
	HistoryPath    string
	PGDSN          string

	PriceInterval   time.Duration
	PriceStale      time.Duration
	PriceRetries    int
	PriceRetryDelay time.Duration
	BalanceInterval time.Duration
	Slippage        float64
}

// Load merges config file, environment variables, and flags into Config.
// Environment variables use the RETROSWAP_ prefix, e.g. RETROSWAP_PG_DSN.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RETROSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", DefaultChainID)
	v.SetDefault("exchange-address", DefaultExchangeAddress)
	v.SetDefault("router-address", DefaultRouterAddress)
	v.SetDefault("position-manager-address", DefaultPositionManagerAddress)
	v.SetDefault("factory-address", DefaultFactoryAddress)
	v.SetDefault("log-level", "info")
	v.SetDefault("listen", ":5000")
	v.SetDefault("api-url", "http://localhost:5000")
	v.SetDefault("coingecko-url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price-ttl", 60*time.Second)
	v.SetDefault("price-timeout", 15*time.Second)
	v.SetDefault("price-cache-size", 256)
	v.SetDefault("upstream-rps", 0.5)
	v.SetDefault("upstream-burst", 5)
	v.SetDefault("history-backend", HistoryMemory)
	v.SetDefault("history-path", "./data/history.jsonl")
	v.SetDefault("price-interval", 120*time.Second)
	v.SetDefault("price-stale", 60*time.Second)
	v.SetDefault("price-retries", 2)
	v.SetDefault("price-retry-delay", 5*time.Second)
	v.SetDefault("balance-interval", 30*time.Second)
	v.SetDefault("slippage", 0.5)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	contracts, err := loadContracts(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:    v.GetString("rpc"),
		ChainID:   v.GetUint64("chain-id"),
		Contracts: contracts,
		Tokens: token.Addresses{
			USDC: v.GetString("usdc-address"),
			WETH: v.GetString("weth-address"),
			WBTC: v.GetString("wbtc-address"),
			DAI:  v.GetString("dai-address"),
		},
		WalletKey: v.GetString("wallet-key"),
		LogLevel:  v.GetString("log-level"),

		Listen:      v.GetString("listen"),
		CORSOrigins: getStringSlice(v, "cors-origins"),
		APIURL:      strings.TrimRight(v.GetString("api-url"), "/"),

		CoinGeckoURL:   v.GetString("coingecko-url"),
		PriceTTL:       v.GetDuration("price-ttl"),
		PriceTimeout:   v.GetDuration("price-timeout"),
		PriceCacheSize: v.GetInt("price-cache-size"),
		UpstreamRPS:    v.GetFloat64("upstream-rps"),
		UpstreamBurst:  v.GetInt("upstream-burst"),

		HistoryBackend: strings.ToLower(strings.TrimSpace(v.GetString("history-backend"))),
		HistoryPath:    v.GetString("history-path"),
		PGDSN:          v.GetString("pg-dsn"),

		PriceInterval:   v.GetDuration("price-interval"),
		PriceStale:      v.GetDuration("price-stale"),
		PriceRetries:    v.GetInt("price-retries"),
		PriceRetryDelay: v.GetDuration("price-retry-delay"),
		BalanceInterval: v.GetDuration("balance-interval"),
		Slippage:        v.GetFloat64("slippage"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.HistoryBackend {
	case HistoryMemory, HistoryJsonl:
	case HistoryPostgres:
		if c.PGDSN == "" {
			return errors.New("pg-dsn is required for the postgres history backend")
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.HistoryBackend)
	}
	if c.PriceTTL <= 0 {
		return errors.New("price-ttl must be positive")
	}
	if c.Slippage < 0 || c.Slippage >= 100 {
		return fmt.Errorf("slippage %v out of range", c.Slippage)
	}
	if c.PriceRetries < 0 {
		return errors.New("price-retries must not be negative")
	}
	return nil
}

func loadContracts(v *viper.Viper) (Contracts, error) {
	var out Contracts
	fields := []struct {
		key string
		dst *common.Address
	}{
		{"exchange-address", &out.Exchange},
		{"router-address", &out.Router},
		{"position-manager-address", &out.PositionManager},
		{"factory-address", &out.Factory},
	}
	for _, f := range fields {
		addr, err := token.ParseAddress(v.GetString(f.key))
		if err != nil {
			return Contracts{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = addr
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
