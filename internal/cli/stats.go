package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show account statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stats := a.Service.Statistics(ctx)

			fmt.Println("Account")
			fmt.Printf("  %-16s %.2f\n", "Balance:", stats.Balance)
			fmt.Printf("  %-16s %.2f\n", "Equity:", stats.Equity)
			fmt.Printf("  %-16s %+.2f\n", "Total PnL:", stats.TotalPnL)
			fmt.Printf("  %-16s %.1f%% (%dW / %dL)\n", "Win rate:", stats.WinRate*100, stats.WinningCount, stats.LosingCount)

			fmt.Println("Trades")
			fmt.Printf("  %-16s %d\n", "Total:", stats.TotalTrades)
			fmt.Printf("  %-16s %d\n", "Active:", stats.ActiveTrades)
			fmt.Printf("  %-16s %d\n", "Closed:", stats.ClosedTrades)
			fmt.Printf("  %-16s %d long / %d short\n", "By direction:", stats.LongCount, stats.ShortCount)

			// Lifetime figure from the database, covering earlier runs too.
			lifetime, err := a.Repo.TotalRealizedPnL(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("  %-16s %+.2f\n", "Lifetime PnL:", lifetime)

			for _, t := range a.Service.ActiveTrades(ctx) {
				fmt.Printf("  %s %s %s entry %.4f sl %.4f target %.4f unrealized %+.2f\n",
					t.ID, t.Direction, t.Symbol, t.EntryPrice, t.SLPrice, t.TargetPrice, t.UnrealizedPnL)
			}
			return nil
		},
	}
	return cmd
}
