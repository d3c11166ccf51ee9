package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"retroswap/internal/poller"
	"retroswap/internal/pricefeed"
	"retroswap/internal/retry"
	"retroswap/internal/token"
	"retroswap/internal/wallet"
)

func newPricesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Show token prices served by the API",
		RunE:  runPrices,
	}
	cmd.Flags().Bool("watch", false, "keep refreshing prices (and balances with a wallet)")
	cmd.Flags().Int("top", 0, "also list the top N markets by market cap")
	cmd.Flags().Duration("price-interval", 120*time.Second, "price refresh interval in watch mode")
	cmd.Flags().Duration("price-stale", 60*time.Second, "age after which prices are refetched")
	cmd.Flags().Int("price-retries", 2, "retries per price refresh")
	cmd.Flags().Duration("price-retry-delay", 5*time.Second, "delay between price retries")
	cmd.Flags().Duration("balance-interval", 30*time.Second, "balance refresh interval in watch mode")
	cmd.Flags().String("wallet-key", "", "hex private key whose balances are shown")
	return cmd
}

func runPrices(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	ctx, stop := signalContext()
	defer stop()

	board := poller.NewPriceBoard(poller.PriceBoardConfig{
		Source:     a.apiPrices(),
		StaleAfter: cfg.PriceStale,
		Retry:      retry.Fixed(cfg.PriceRetries, cfg.PriceRetryDelay),
		Logger:     a.logger,
	})

	if top, _ := cmd.Flags().GetInt("top"); top > 0 {
		if err := a.printMarkets(ctx, top); err != nil {
			return err
		}
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		board.Get(ctx)
		printBoard(board, nil)
		return nil
	}
	return a.watch(ctx, board)
}

// watch refreshes prices and, when a wallet is configured, balances until
// ctx is done. Account changes trigger an immediate balance refresh.
func (a *app) watch(ctx context.Context, board *poller.PriceBoard) error {
	var out sync.Mutex
	var balances *poller.Balances

	pollers := []*poller.Poller{
		poller.New(poller.Task{
			Name:     "prices",
			Interval: a.cfg.PriceInterval,
			Run: func(ctx context.Context) error {
				err := board.Refresh(ctx)
				out.Lock()
				printBoard(board, balances)
				out.Unlock()
				return err
			},
		}, a.metrics, a.logger),
	}

	if a.cfg.WalletKey != "" && a.cfg.RPCURL != "" {
		stack, err := a.dialChain(ctx, true)
		if err != nil {
			return err
		}
		defer stack.close()

		balances = poller.NewBalances(stack.erc20, stack.wallet, a.registry.All(), a.logger)
		balancePoller := poller.New(poller.Task{
			Name:     "balances",
			Interval: a.cfg.BalanceInterval,
			Run:      balances.Refresh,
		}, a.metrics, a.logger)
		pollers = append(pollers, balancePoller)

		unsubscribe := stack.wallet.OnAccountChange(func(ev wallet.AccountEvent) {
			a.logger.Info("account changed", zap.String("account", ev.Address.Hex()), zap.Bool("connected", ev.Connected))
			balancePoller.Trigger(ctx)
		})
		defer unsubscribe()
	}

	var wg sync.WaitGroup
	for _, p := range pollers {
		wg.Add(1)
		go func(p *poller.Poller) {
			defer wg.Done()
			p.Start(ctx)
		}(p)
	}
	wg.Wait()
	return nil
}

func printBoard(board *poller.PriceBoard, balances *poller.Balances) {
	prices, updated, fallback := board.Snapshot()
	symbols := make([]string, 0, len(prices))
	for sym := range prices {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var owner string
	var held map[string]string
	if balances != nil {
		addr, snapshot := balances.Snapshot()
		owner, held = addr.Hex(), snapshot
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	switch {
	case fallback:
		fmt.Fprintln(tw, "prices: fallback table (API unavailable)")
	case !updated.IsZero():
		fmt.Fprintf(tw, "prices: updated %s\n", updated.Format(time.RFC3339))
	}
	if held != nil {
		fmt.Fprintf(tw, "account: %s\n", owner)
		fmt.Fprintln(tw, "SYMBOL\tPRICE\t24H\tBALANCE")
	} else {
		fmt.Fprintln(tw, "SYMBOL\tPRICE\t24H")
	}
	for _, sym := range symbols {
		p := prices[sym]
		if held != nil {
			bal, ok := held[sym]
			if !ok {
				bal = "-"
			} else {
				bal = token.FormatAmount(bal)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sym, token.FormatPrice(p.Price), token.FormatPercentage(p.Change24h), bal)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", sym, token.FormatPrice(p.Price), token.FormatPercentage(p.Change24h))
	}
	_ = tw.Flush()
}

func (a *app) printMarkets(ctx context.Context, n int) error {
	markets, err := a.apiPrices().TopMarkets(ctx, pricefeed.MarketsQuery{PerPage: n})
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSYMBOL\tNAME\tPRICE\t24H")
	for i, m := range markets {
		change := "-"
		if m.PriceChangePercentage24h != nil {
			change = token.FormatPercentage(*m.PriceChangePercentage24h)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, m.Symbol, m.Name, token.FormatPrice(m.CurrentPrice), change)
	}
	return tw.Flush()
}
