package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"retroswap/internal/model"
	"retroswap/internal/token"
)

// spotPriceDecimals is the fixed-point precision of getSpotPrice.
const spotPriceDecimals = 18

func newRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <tokenIn> <tokenOut>",
		Short: "Find a swap route between two tokens",
		Args:  cobra.ExactArgs(2),
		RunE:  runRoute,
	}
}

func newSpotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spot <token0> <token1>",
		Short: "Read the pool spot price of token0 in token1",
		Args:  cobra.ExactArgs(2),
		RunE:  runSpot,
	}
	cmd.Flags().Uint32("fee", model.FeeMedium, "fee tier (500, 3000, 10000)")
	return cmd
}

func runSpot(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	token0, err := a.resolveToken(args[0])
	if err != nil {
		return err
	}
	token1, err := a.resolveToken(args[1])
	if err != nil {
		return err
	}
	fee, _ := cmd.Flags().GetUint32("fee")

	ctx, stop := signalContext()
	defer stop()
	stack, err := a.dialChain(ctx, false)
	if err != nil {
		return err
	}
	defer stack.close()

	price, err := stack.exchange.SpotPrice(ctx, token0, token1, fee)
	if err != nil {
		return err
	}
	fmt.Printf("1 %s = %s %s (fee %d)\n", a.symbol(token0), token.FormatUnits(price, spotPriceDecimals), a.symbol(token1), fee)
	return nil
}

func runRoute(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	in, err := a.resolveToken(args[0])
	if err != nil {
		return err
	}
	out, err := a.resolveToken(args[1])
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	stack, err := a.dialChain(ctx, false)
	if err != nil {
		return err
	}
	defer stack.close()

	rt, err := stack.finder.FindRoute(ctx, in, out)
	if err != nil {
		return err
	}
	fmt.Println(a.describeRoute(rt))
	return nil
}

func (a *app) describeRoute(rt model.SwapRoute) string {
	hops := make([]string, len(rt.Path))
	for i, addr := range rt.Path {
		hops[i] = addr.Hex()
		if info, ok := a.registry.ByAddress(addr); ok {
			hops[i] = info.Symbol
		}
	}
	fees := make([]string, len(rt.Fees))
	for i, fee := range rt.Fees {
		fees[i] = fmt.Sprintf("%.2f%%", float64(fee)/10000)
	}
	kind := "direct"
	if rt.IsMultiHop {
		kind = "multi-hop"
	}
	return fmt.Sprintf("%s (%s) fees %s", strings.Join(hops, " -> "), kind, strings.Join(fees, ", "))
}
