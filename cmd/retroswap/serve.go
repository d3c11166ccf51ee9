package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"retroswap/internal/pricefeed"
	"retroswap/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (price proxy, history, routes)",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":5000", "listen address")
	cmd.Flags().String("coingecko-url", pricefeed.DefaultBaseURL, "CoinGecko API base URL")
	cmd.Flags().Duration("price-ttl", 60*time.Second, "price cache freshness window")
	cmd.Flags().Duration("price-timeout", 15*time.Second, "upstream price request timeout")
	cmd.Flags().Int("price-cache-size", pricefeed.DefaultCacheSize, "maximum cached price keys")
	cmd.Flags().Float64("upstream-rps", 0.5, "upstream requests per second, 0 for unlimited")
	cmd.Flags().String("history-backend", "memory", "history store (memory, jsonl, postgres)")
	cmd.Flags().String("history-path", "./data/history.jsonl", "history file for the jsonl backend")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres backend")
	cmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins (default any)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	ctx, stop := signalContext()
	defer stop()

	cache, err := pricefeed.NewCache(cfg.PriceCacheSize, cfg.PriceTTL, nil)
	if err != nil {
		return err
	}
	upstream := a.coinGecko()
	prices, err := pricefeed.NewService(pricefeed.ServiceConfig{
		Upstream: upstream,
		Cache:    cache,
		Timeout:  cfg.PriceTimeout,
		Metrics:  a.metrics,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	history, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer history.Close()

	srvCfg := server.Config{
		Prices:      prices,
		Markets:     upstream,
		History:     history,
		Registry:    a.registry,
		Metrics:     a.metrics,
		Gatherer:    a.promReg,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      a.logger,
	}

	if cfg.RPCURL != "" {
		stack, err := a.dialChain(ctx, false)
		if err != nil {
			return err
		}
		defer stack.close()
		srvCfg.Routes = stack.finder
	} else {
		a.logger.Warn("no rpc configured, route discovery disabled")
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	a.logger.Info("retroswap api start",
		zap.String("listen", cfg.Listen),
		zap.String("history_backend", cfg.HistoryBackend),
		zap.Duration("price_ttl", cfg.PriceTTL),
		zap.String("exchange", cfg.Contracts.Exchange.Hex()),
	)
	return srv.ListenAndServe(ctx, cfg.Listen)
}
