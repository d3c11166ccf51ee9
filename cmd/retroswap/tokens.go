package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"retroswap/internal/dex"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "List supported tokens and contract addresses",
		RunE:  runTokens,
	}
	cmd.Flags().Bool("verify", false, "check token metadata on chain")
	return cmd
}

func runTokens(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tDECIMALS\tADDRESS")
	for _, t := range a.registry.All() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.Symbol, t.Name, t.Decimals, t.Address.Hex())
	}
	fmt.Fprintln(tw)
	c := a.cfg.Contracts
	fmt.Fprintf(tw, "exchange\t%s\n", c.Exchange.Hex())
	fmt.Fprintf(tw, "router\t%s\n", c.Router.Hex())
	fmt.Fprintf(tw, "position manager\t%s\n", c.PositionManager.Hex())
	fmt.Fprintf(tw, "factory\t%s\n", c.Factory.Hex())
	if err := tw.Flush(); err != nil {
		return err
	}

	verify, _ := cmd.Flags().GetBool("verify")
	if !verify {
		return nil
	}

	ctx, stop := signalContext()
	defer stop()
	stack, err := a.dialChain(ctx, false)
	if err != nil {
		return err
	}
	defer stack.close()

	n := dex.VerifyTokens(ctx, stack.client, a.registry.All(), a.logger)
	fmt.Printf("verified %d tokens, %d mismatches\n", len(a.registry.All()), n)
	return nil
}
