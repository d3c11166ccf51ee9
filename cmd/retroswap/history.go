package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"retroswap/internal/token"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <swaps|positions> <userAddress>",
		Short: "Show recorded swaps or positions of a user",
		Args:  cobra.ExactArgs(2),
		RunE:  runHistory,
	}
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()
	api := a.historyAPI()
	user := args[1]

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	switch args[0] {
	case "swaps":
		swaps, err := api.Swaps(ctx, user)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "TIME\tIN\tOUT\tTX")
		for _, s := range swaps {
			fmt.Fprintf(tw, "%s\t%s %s\t%s %s\t%s\n",
				s.CreatedAt.Format("2006-01-02 15:04"),
				token.FormatAmount(s.AmountIn), s.TokenIn,
				token.FormatAmount(s.AmountOut), s.TokenOut, s.TxHash)
		}
	case "positions":
		positions, err := api.Positions(ctx, user)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "TIME\tID\tPAIR\tFEE\tLIQUIDITY\tTX")
		for _, p := range positions {
			fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%s\n",
				p.CreatedAt.Format("2006-01-02 15:04"), p.TokenID, p.Token0, p.Token1, p.Fee, p.Liquidity, p.TxHash)
		}
	default:
		return fmt.Errorf("unknown history kind %q (want swaps or positions)", args[0])
	}
	return tw.Flush()
}
