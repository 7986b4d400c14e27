package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"riskbot/internal/monitor"
)

func newRunCmd(a *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trade monitor until interrupted",
		Long: `Poll current prices for every active trade on a fixed interval and
apply stop-loss and target transitions. Restored trades from earlier
runs are monitored too. Stops cleanly on SIGINT/SIGTERM; the tick in
flight completes before exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			mon := a.Monitor
			if interval > 0 {
				override, err := monitor.New(monitor.Config{
					Logger:           a.Logger,
					Registry:         a.Registry,
					Market:           a.Market,
					Executor:         a.Executor,
					Interval:         interval,
					FailureThreshold: a.Config.PriceFailureThreshold,
				})
				if err != nil {
					return err
				}
				mon = override
			}

			active := a.Service.ActiveTrades(ctx)
			fmt.Printf("Monitoring %d active trade(s)\n", len(active))
			return mon.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "polling interval override (e.g. 2s)")
	return cmd
}
