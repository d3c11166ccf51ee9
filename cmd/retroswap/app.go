package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"retroswap/internal/chain"
	"retroswap/internal/config"
	"retroswap/internal/dex"
	"retroswap/internal/historyapi"
	"retroswap/internal/metrics"
	"retroswap/internal/orchestrator"
	"retroswap/internal/pricefeed"
	"retroswap/internal/retry"
	"retroswap/internal/route"
	"retroswap/internal/storage"
	"retroswap/internal/storage/postgres"
	"retroswap/internal/token"
	"retroswap/internal/wallet"
)

// app carries what every command needs: config, logger, token registry
// and metrics.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *token.Registry
	promReg  *prometheus.Registry
	metrics  *metrics.Metrics
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	tokens, err := token.DefaultTokens(cfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("token registry: %w", err)
	}
	registry, err := token.NewRegistry(tokens)
	if err != nil {
		return nil, fmt.Errorf("token registry: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		promReg:  promReg,
		metrics:  metrics.New(promReg, "retroswap"),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) resolveToken(input string) (common.Address, error) {
	info, ok := a.registry.Resolve(input)
	if !ok {
		return common.Address{}, fmt.Errorf("unknown token %q", input)
	}
	return info.Address, nil
}

// intermediates are the hop tokens for two-hop routes, in priority order.
func (a *app) intermediates() []common.Address {
	var out []common.Address
	for _, sym := range []string{"WETH", "USDC"} {
		if info, ok := a.registry.BySymbol(sym); ok {
			out = append(out, info.Address)
		}
	}
	return out
}

// coinGecko builds the upstream client used by the API server.
func (a *app) coinGecko() *pricefeed.Client {
	var limiter *rate.Limiter
	if a.cfg.UpstreamRPS > 0 {
		burst := a.cfg.UpstreamBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(a.cfg.UpstreamRPS), burst)
	}
	return pricefeed.NewClient(&pricefeed.ClientConfig{
		BaseURL: a.cfg.CoinGeckoURL,
		Timeout: a.cfg.PriceTimeout,
		Limiter: limiter,
		Metrics: a.metrics,
	})
}

// apiPrices reads simple prices through the RetroSwap API proxy.
func (a *app) apiPrices() *pricefeed.Client {
	return pricefeed.NewClient(&pricefeed.ClientConfig{
		BaseURL: a.cfg.APIURL + "/api/coingecko",
		Timeout: a.cfg.PriceTimeout,
	})
}

func (a *app) historyAPI() *historyapi.Client {
	return historyapi.NewClient(&historyapi.ClientConfig{BaseURL: a.cfg.APIURL})
}

// record writes a history entry, retrying transport and 5xx failures.
// A failed write is logged; the on-chain result stands regardless.
func (a *app) record(ctx context.Context, kind string, write func(context.Context) error) {
	err := retry.Do(ctx, retry.Exponential(3, 500*time.Millisecond), func(ctx context.Context) error {
		err := write(ctx)
		var apiErr *historyapi.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		a.logger.Warn("record history failed", zap.String("kind", kind), zap.Error(err))
	}
}

func (a *app) openHistory(ctx context.Context) (storage.HistoryStore, error) {
	switch a.cfg.HistoryBackend {
	case config.HistoryJsonl:
		store, err := storage.OpenJsonlStore(a.cfg.HistoryPath, a.logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.HistoryPostgres:
		store, err := postgres.NewStore(ctx, a.cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

// chainStack holds the on-chain bindings for one command run.
type chainStack struct {
	client   *chain.Client
	exchange *dex.Exchange
	erc20    *dex.ERC20
	wallet   *wallet.Wallet
	finder   *route.Finder
	orch     *orchestrator.Orchestrator
}

func (s *chainStack) close() {
	s.client.Close()
}

// dialChain connects to the RPC endpoint and checks the network. With
// signing set the wallet is connected and token metadata is verified;
// otherwise the bindings are read-only.
func (a *app) dialChain(ctx context.Context, signing bool) (*chainStack, error) {
	if a.cfg.RPCURL == "" {
		return nil, errors.New("rpc url is required")
	}

	client, err := chain.NewClient(ctx, a.cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	stack, err := a.bind(ctx, client, signing)
	if err != nil {
		client.Close()
		return nil, err
	}
	if block, err := client.LatestBlockNumber(ctx); err == nil {
		a.logger.Info("chain connected", zap.Uint64("chain_id", a.cfg.ChainID), zap.Uint64("block", block))
	}
	return stack, nil
}

func (a *app) bind(ctx context.Context, client *chain.Client, signing bool) (*chainStack, error) {
	w := wallet.New(new(big.Int).SetUint64(a.cfg.ChainID), a.logger)
	if err := w.EnsureNetwork(ctx, client); err != nil {
		return nil, err
	}

	var backend = client.Backend()
	if !signing {
		backend = nil
	}

	exchange, err := dex.NewExchange(a.cfg.Contracts.Exchange, client, backend)
	if err != nil {
		return nil, err
	}
	erc20, err := dex.NewERC20(client, backend)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Exchange:  exchange,
		Tokens:    erc20,
		Confirmer: dex.NewConfirmer(client, a.logger),
		Registry:  a.registry,
		Signer:    w,
		Metrics:   a.metrics,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}

	stack := &chainStack{
		client:   client,
		exchange: exchange,
		erc20:    erc20,
		wallet:   w,
		finder:   route.NewFinder(exchange, a.intermediates(), a.logger),
		orch:     orch,
	}
	if !signing {
		return stack, nil
	}

	if a.cfg.WalletKey == "" {
		return nil, fmt.Errorf("%w: set wallet-key or RETROSWAP_WALLET_KEY", wallet.ErrNotConnected)
	}
	if _, err := w.Connect(a.cfg.WalletKey); err != nil {
		return nil, err
	}

	if n := dex.VerifyTokens(ctx, client, a.registry.All(), a.logger); n > 0 {
		a.logger.Warn("registered token metadata differs from chain", zap.Int("mismatches", n))
	}
	return stack, nil
}
