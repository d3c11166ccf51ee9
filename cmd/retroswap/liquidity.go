package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"retroswap/internal/model"
	"retroswap/internal/orchestrator"
	"retroswap/internal/token"
)

func newLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidity",
		Short: "Manage liquidity positions",
	}
	cmd.PersistentFlags().String("wallet-key", "", "hex private key of the liquidity provider")

	add := &cobra.Command{
		Use:   "add <token0> <token1> <amount0> <amount1>",
		Short: "Open a new position",
		Args:  cobra.ExactArgs(4),
		RunE:  runLiquidityAdd,
	}
	add.Flags().Uint32("fee", model.FeeMedium, "fee tier (500, 3000, 10000)")
	add.Flags().Float64("price-lower", 0, "lower price bound (default full range)")
	add.Flags().Float64("price-upper", 0, "upper price bound (default full range)")
	add.Flags().Bool("record", true, "record the position through the API")

	increase := &cobra.Command{
		Use:   "increase <tokenId> <amount0> <amount1>",
		Short: "Add liquidity to an existing position",
		Args:  cobra.ExactArgs(3),
		RunE:  runLiquidityIncrease,
	}

	remove := &cobra.Command{
		Use:   "remove <tokenId>",
		Short: "Remove liquidity from a position (all of it by default)",
		Args:  cobra.ExactArgs(1),
		RunE:  runLiquidityRemove,
	}
	remove.Flags().String("liquidity", "", "liquidity units to remove (default all)")
	remove.Flags().String("min0", "0", "minimum token0 returned, in base units")
	remove.Flags().String("min1", "0", "minimum token1 returned, in base units")

	list := &cobra.Command{
		Use:   "list [owner]",
		Short: "List positions of an owner (default the wallet account)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLiquidityList,
	}

	cmd.AddCommand(add, increase, remove, list)
	return cmd
}

func runLiquidityAdd(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	token0, ok := a.registry.Resolve(args[0])
	if !ok {
		return fmt.Errorf("unknown token %q", args[0])
	}
	token1, ok := a.registry.Resolve(args[1])
	if !ok {
		return fmt.Errorf("unknown token %q", args[1])
	}
	fee, _ := cmd.Flags().GetUint32("fee")

	params := orchestrator.AddLiquidityParams{
		Token0:  token0.Address,
		Token1:  token1.Address,
		Fee:     fee,
		Amount0: args[2],
		Amount1: args[3],
	}
	if cmd.Flags().Changed("price-lower") {
		v, _ := cmd.Flags().GetFloat64("price-lower")
		params.PriceLower = &v
	}
	if cmd.Flags().Changed("price-upper") {
		v, _ := cmd.Flags().GetFloat64("price-upper")
		params.PriceUpper = &v
	}

	ctx, stop := signalContext()
	defer stop()
	stack, err := a.dialChain(ctx, true)
	if err != nil {
		return err
	}
	defer stack.close()

	res, err := stack.orch.AddLiquidity(ctx, params)
	if err != nil {
		return err
	}

	id := "unknown"
	if res.TokenID != nil {
		id = res.TokenID.String()
	}
	fmt.Printf("position %s minted %s/%s fee %d ticks [%d, %d] (tx %s)\n",
		id, token0.Symbol, token1.Symbol, fee, res.TickLower, res.TickUpper, res.TxHash.Hex())

	if record, _ := cmd.Flags().GetBool("record"); record && res.TokenID != nil {
		a.recordPosition(ctx, stack, res.TokenID, res.TxHash)
	}
	return nil
}

func runLiquidityIncrease(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenID, err := parseTokenID(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	stack, err := a.dialChain(ctx, true)
	if err != nil {
		return err
	}
	defer stack.close()

	res, err := stack.orch.IncreaseLiquidity(ctx, tokenID, args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Printf("position %s increased (tx %s)\n", tokenID, res.TxHash.Hex())
	return nil
}

func runLiquidityRemove(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tokenID, err := parseTokenID(args[0])
	if err != nil {
		return err
	}
	liquidityRaw, _ := cmd.Flags().GetString("liquidity")
	min0Raw, _ := cmd.Flags().GetString("min0")
	min1Raw, _ := cmd.Flags().GetString("min1")

	ctx, stop := signalContext()
	defer stop()
	stack, err := a.dialChain(ctx, true)
	if err != nil {
		return err
	}
	defer stack.close()

	var res orchestrator.LiquidityResult
	if liquidityRaw == "" {
		res, err = stack.orch.RemovePosition(ctx, tokenID)
	} else {
		liquidity, perr := parseBaseUnits("liquidity", liquidityRaw)
		if perr != nil {
			return perr
		}
		min0, perr := parseBaseUnits("min0", min0Raw)
		if perr != nil {
			return perr
		}
		min1, perr := parseBaseUnits("min1", min1Raw)
		if perr != nil {
			return perr
		}
		res, err = stack.orch.RemoveLiquidity(ctx, tokenID, liquidity, min0, min1)
	}
	if err != nil {
		return err
	}
	fmt.Printf("position %s liquidity removed (tx %s)\n", tokenID, res.TxHash.Hex())
	return nil
}

func runLiquidityList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()

	var owner common.Address
	signing := len(args) == 0
	if !signing {
		if owner, err = token.ParseAddress(args[0]); err != nil {
			return err
		}
	}
	stack, err := a.dialChain(ctx, signing)
	if err != nil {
		return err
	}
	defer stack.close()
	if signing {
		owner, _ = stack.wallet.Account()
	}

	positions, err := stack.orch.Positions(ctx, owner)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		fmt.Printf("no positions for %s\n", owner.Hex())
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPAIR\tFEE\tTICKS\tLIQUIDITY")
	for _, p := range positions {
		fmt.Fprintf(tw, "%s\t%s/%s\t%d\t[%d, %d]\t%s\n",
			p.TokenID, a.symbol(p.Token0), a.symbol(p.Token1), p.Fee, p.TickLower, p.TickUpper, p.Liquidity)
	}
	return tw.Flush()
}

func (a *app) symbol(addr common.Address) string {
	if info, ok := a.registry.ByAddress(addr); ok {
		return info.Symbol
	}
	return addr.Hex()
}

func (a *app) recordPosition(ctx context.Context, stack *chainStack, tokenID *big.Int, tx common.Hash) {
	pos, err := stack.exchange.PositionInfo(ctx, tokenID)
	if err != nil {
		a.logger.Warn("read new position failed", zap.String("token_id", tokenID.String()), zap.Error(err))
		return
	}
	owner, _ := stack.wallet.Account()
	rec := model.PositionRecord{
		UserAddress: owner.Hex(),
		TokenID:     tokenID.String(),
		Token0:      a.symbol(pos.Token0),
		Token1:      a.symbol(pos.Token1),
		Fee:         strconv.FormatUint(uint64(pos.Fee), 10),
		Liquidity:   pos.Liquidity.String(),
		TxHash:      tx.Hex(),
	}
	api := a.historyAPI()
	a.record(ctx, "position", func(ctx context.Context) error {
		_, err := api.RecordPosition(ctx, rec)
		return err
	})
}

func parseTokenID(raw string) (*big.Int, error) {
	return parseBaseUnits("token id", raw)
}

func parseBaseUnits(name, raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
