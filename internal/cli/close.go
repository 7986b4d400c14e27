package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCloseCmd(a *App) *cobra.Command {
	var (
		id    string
		price float64
	)

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Manually close a trade at a given price",
		RunE: func(cmd *cobra.Command, args []string) error {
			closed, err := a.Service.CloseTrade(cmd.Context(), id, price)
			if err != nil {
				return err
			}
			if closed.IsAbandoned() {
				fmt.Printf("Trade %s abandoned (never activated, no PnL realized)\n", closed.ID)
				return nil
			}
			fmt.Printf("Trade %s closed: %s at %.4f (PnL %+.2f)\n", closed.ID, closed.Status, closed.ExitPrice, closed.RealizedPnL)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "trade id")
	cmd.Flags().Float64Var(&price, "price", 0, "exit price")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("price")

	return cmd
}
