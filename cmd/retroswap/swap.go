package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"retroswap/internal/model"
	"retroswap/internal/orchestrator"
	"retroswap/internal/pricefeed"
	"retroswap/internal/token"
)

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap <tokenIn> <tokenOut> <amount>",
		Short: "Swap tokens through the exchange",
		Long: "Swap an exact input amount, or with --exact-out receive an exact output amount.\n" +
			"Without --min-out/--max-in the bound is estimated from USD prices and --slippage.",
		Args: cobra.ExactArgs(3),
		RunE: runSwap,
	}
	cmd.Flags().Bool("exact-out", false, "amount is the exact output to receive")
	cmd.Flags().String("min-out", "", "minimum output for exact-input swaps")
	cmd.Flags().String("max-in", "", "maximum input for exact-output swaps")
	cmd.Flags().Float64("slippage", orchestrator.DefaultSlippage, "slippage tolerance in percent")
	cmd.Flags().String("wallet-key", "", "hex private key of the trading account")
	cmd.Flags().Bool("record", true, "record the swap through the API")
	return cmd
}

func runSwap(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenIn, ok := a.registry.Resolve(args[0])
	if !ok {
		return fmt.Errorf("unknown token %q", args[0])
	}
	tokenOut, ok := a.registry.Resolve(args[1])
	if !ok {
		return fmt.Errorf("unknown token %q", args[1])
	}
	amount := args[2]
	if !token.IsValidAmount(amount) {
		return fmt.Errorf("invalid amount %q", amount)
	}

	ctx, stop := signalContext()
	defer stop()

	stack, err := a.dialChain(ctx, true)
	if err != nil {
		return err
	}
	defer stack.close()

	rt, err := stack.finder.FindRoute(ctx, tokenIn.Address, tokenOut.Address)
	if err != nil {
		return err
	}
	a.logger.Info("route found", zap.String("route", a.describeRoute(rt)))

	exactOut, _ := cmd.Flags().GetBool("exact-out")
	var res orchestrator.SwapResult
	var amountIn, amountOut string
	if exactOut {
		maxIn, _ := cmd.Flags().GetString("max-in")
		if maxIn == "" {
			est, err := a.estimate(ctx, tokenOut, tokenIn, amount)
			if err != nil {
				return fmt.Errorf("estimate input (pass --max-in to skip): %w", err)
			}
			if maxIn, err = orchestrator.MaxAmountIn(est, a.cfg.Slippage, tokenIn.Decimals); err != nil {
				return err
			}
		}
		amountIn, amountOut = maxIn, amount
		res, err = stack.orch.ExecuteSwapExactOutput(ctx, tokenIn.Address, tokenOut.Address, amount, maxIn, rt)
	} else {
		minOut, _ := cmd.Flags().GetString("min-out")
		if minOut == "" {
			est, err := a.estimate(ctx, tokenIn, tokenOut, amount)
			if err != nil {
				return fmt.Errorf("estimate output (pass --min-out to skip): %w", err)
			}
			if minOut, err = orchestrator.MinAmountOut(est, a.cfg.Slippage, tokenOut.Decimals); err != nil {
				return err
			}
		}
		amountIn, amountOut = amount, minOut
		res, err = stack.orch.ExecuteSwap(ctx, tokenIn.Address, tokenOut.Address, amount, minOut, rt)
	}
	if err != nil {
		return err
	}

	fmt.Printf("swap confirmed: %s %s -> %s %s (tx %s)\n",
		amountIn, tokenIn.Symbol, amountOut, tokenOut.Symbol, res.TxHash.Hex())

	if record, _ := cmd.Flags().GetBool("record"); record {
		owner, _ := stack.wallet.Account()
		a.recordSwap(ctx, owner, tokenIn, tokenOut, amountIn, amountOut, res.TxHash)
	}
	return nil
}

// estimate converts amount of from into to using USD prices served by the API.
func (a *app) estimate(ctx context.Context, from, to model.TokenInfo, amount string) (string, error) {
	table, err := a.apiPrices().SimplePrice(ctx, pricefeed.SupportedIDs, "usd")
	if err != nil {
		return "", err
	}
	prices := pricefeed.SymbolPrices(table)
	pFrom, ok := prices[from.Symbol]
	if !ok {
		return "", fmt.Errorf("no price for %s", from.Symbol)
	}
	pTo, ok := prices[to.Symbol]
	if !ok {
		return "", fmt.Errorf("no price for %s", to.Symbol)
	}
	return orchestrator.EstimateOutput(amount, pFrom.Price, pTo.Price)
}

func (a *app) recordSwap(ctx context.Context, owner common.Address, in, out model.TokenInfo, amountIn, amountOut string, tx common.Hash) {
	rec := model.SwapRecord{
		UserAddress: owner.Hex(),
		TokenIn:     in.Symbol,
		TokenOut:    out.Symbol,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		TxHash:      tx.Hex(),
	}
	api := a.historyAPI()
	a.record(ctx, "swap", func(ctx context.Context) error {
		_, err := api.RecordSwap(ctx, rec)
		return err
	})
}
