package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"retroswap/internal/orchestrator"
)

func main() {
	root := &cobra.Command{
		Use:          "retroswap",
		Short:        "RetroSwap DEX backend and trading CLI",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("rpc", "", "Ethereum JSON-RPC URL")
	flags.Uint64("chain-id", 11155111, "expected chain id")
	flags.String("exchange-address", "", "exchange contract address")
	flags.String("usdc-address", "", "USDC token address override")
	flags.String("weth-address", "", "WETH token address override")
	flags.String("wbtc-address", "", "WBTC token address override")
	flags.String("dai-address", "", "DAI token address override")
	flags.String("api-url", "http://localhost:5000", "RetroSwap API base URL")

	root.AddCommand(
		newServeCmd(),
		newTokensCmd(),
		newRouteCmd(),
		newSpotCmd(),
		newSwapCmd(),
		newLiquidityCmd(),
		newPricesCmd(),
		newHistoryCmd(),
	)

	if err := root.Execute(); err != nil {
		var callErr *orchestrator.ContractCallError
		if errors.As(err, &callErr) {
			fmt.Fprintf(os.Stderr, "%s of %s did not go through: %s\n", callErr.Step, callErr.Token, callErr.Reason())
		}
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
