package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"riskbot/internal/app"
	"riskbot/internal/domain"
	"riskbot/internal/ports"
	"riskbot/internal/trade"
)

func newSetupCmd(a *App) *cobra.Command {
	var (
		symbol    string
		direction string
		entry     float64
		sl        float64
		target    float64
		quantity  float64
		risk      float64
		broker    string
		execute   bool
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create a risk-bounded trade",
		Long: `Create a trade from an entry, stop-loss and target price.

When --quantity is omitted the position is sized so that hitting the
stop-loss loses exactly the configured risk percentage of the balance.
With --execute a market order is placed at the gateway; without it the
trade is tracked on paper. --monitor keeps polling prices until the trade
closes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			dir, err := parseDirection(direction)
			if err != nil {
				return err
			}

			created, err := a.Service.CreateTrade(ctx, app.CreateParams{
				Symbol:      strings.ToUpper(symbol),
				Direction:   dir,
				EntryPrice:  entry,
				SLPrice:     sl,
				TargetPrice: target,
				Quantity:    quantity,
				RiskPercent: risk,
				Broker:      broker,
				Execute:     execute,
			})
			if err != nil {
				if created != nil {
					// Admitted but not executed; leave it for retry or abandonment.
					fmt.Printf("Trade %s admitted but not executed: %v\n", created.ID, err)
				}
				return err
			}

			printTrade(created)

			if watch {
				return a.watchUntilClosed(ctx, created.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "trading symbol (e.g. BTCUSDT)")
	cmd.Flags().StringVar(&direction, "direction", "", "trade direction: long or short")
	cmd.Flags().Float64Var(&entry, "entry", 0, "entry price")
	cmd.Flags().Float64Var(&sl, "sl", 0, "stop-loss price")
	cmd.Flags().Float64Var(&target, "target", 0, "target price")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "position size (sized from risk when omitted)")
	cmd.Flags().Float64Var(&risk, "risk", 0, "risk percent of balance (configured default when omitted)")
	cmd.Flags().StringVar(&broker, "broker", trade.DefaultBroker, "execution venue label recorded on the trade")
	cmd.Flags().BoolVar(&execute, "execute", false, "place a real order at the gateway")
	cmd.Flags().BoolVar(&watch, "monitor", false, "poll prices until the trade closes")

	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("direction")
	cmd.MarkFlagRequired("entry")
	cmd.MarkFlagRequired("sl")
	cmd.MarkFlagRequired("target")

	return cmd
}

// watchUntilClosed runs the monitor until the given trade reaches a
// terminal state or the user interrupts.
func (a *App) watchUntilClosed(ctx context.Context, tradeID string) error {
	monCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Monitor.Run(monCtx) }()

	ticker := time.NewTicker(a.Config.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case err := <-done:
			return err
		case <-ticker.C:
			t, err := a.Service.GetTrade(ctx, tradeID)
			if err != nil {
				return err
			}
			if t.IsClosed() {
				cancel()
				<-done
				fmt.Printf("\nTrade closed: %s at %.4f (PnL %+.2f)\n", t.Status, t.ExitPrice, t.RealizedPnL)
				return nil
			}
		}
	}
}

func parseDirection(s string) (domain.Direction, error) {
	switch strings.ToUpper(s) {
	case "LONG", "L", "BUY":
		return domain.Long, nil
	case "SHORT", "S", "SELL":
		return domain.Short, nil
	default:
		return "", fmt.Errorf("%w: direction must be long or short, got %q", ports.ErrValidation, s)
	}
}

func printTrade(t *domain.Trade) {
	fmt.Printf("Trade %s\n", t.ID)
	fmt.Printf("  %-12s %s %s\n", "Position:", t.Direction, t.Symbol)
	fmt.Printf("  %-12s %.4f\n", "Entry:", t.EntryPrice)
	fmt.Printf("  %-12s %.4f\n", "Stop loss:", t.SLPrice)
	fmt.Printf("  %-12s %.4f\n", "Target:", t.TargetPrice)
	fmt.Printf("  %-12s %.6f\n", "Quantity:", t.Quantity)
	fmt.Printf("  %-12s %.2f\n", "Risk:", t.RiskAmount)
	fmt.Printf("  %-12s %.2f\n", "Reward:", t.RewardAmount)
	fmt.Printf("  %-12s %.2f\n", "R/R ratio:", t.RiskRewardRatio)
	fmt.Printf("  %-12s %s\n", "Broker:", t.Broker)
	fmt.Printf("  %-12s %s\n", "Status:", t.Status)
	if t.OrderID != nil {
		fmt.Printf("  %-12s %s\n", "Order:", *t.OrderID)
	}
}
