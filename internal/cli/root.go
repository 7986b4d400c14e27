// Package cli provides the command-line interface for the risk engine.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"riskbot/config"
	"riskbot/internal/adapters/binanceclient"
	"riskbot/internal/adapters/logger"
	"riskbot/internal/adapters/sqlite"
	"riskbot/internal/app"
	"riskbot/internal/monitor"
	"riskbot/internal/ports"
	"riskbot/internal/registry"
	"riskbot/internal/trade"
)

// App holds the wired application dependencies shared by the commands.
type App struct {
	Config   *config.Config
	Logger   ports.Logger
	Repo     *sqlite.Repository
	Registry *registry.Registry
	Service  *app.Service
	Monitor  *monitor.Monitor
	Market   ports.MarketDataClient
	Executor ports.OrderExecutor
}

// NewRootCmd creates the root command and wires the application.
func NewRootCmd() *cobra.Command {
	a := &App{}

	rootCmd := &cobra.Command{
		Use:   "riskbot",
		Short: "Risk-bounded trade lifecycle engine",
		Long: `riskbot sizes, tracks and monitors risk-bounded trades.

Every trade carries an entry, a stop-loss and a target fixed at creation.
Position size is derived from the account balance and the risk percentage,
and active trades are polled until either threshold is hit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.bootstrap(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.shutdown()
		},
	}

	rootCmd.AddCommand(
		newSetupCmd(a),
		newCloseCmd(a),
		newStatsCmd(a),
		newRunCmd(a),
	)
	return rootCmd
}

// bootstrap builds the full dependency graph: config, logger, persistence,
// exchange client, registry, factory, service and monitor.
func (a *App) bootstrap(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a.Config = cfg

	a.Logger = logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Console:  true,
		FilePath: cfg.LogFile,
	})

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: a.Logger})
	if err != nil {
		return err
	}
	a.Repo = repo

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     a.Logger,
	})
	if err != nil {
		return err
	}

	a.Market = client

	var executor ports.OrderExecutor
	if cfg.APIKey != "" && cfg.SecretKey != "" {
		executor = client
	}
	a.Executor = executor

	reg, err := registry.New(registry.Config{
		Logger:         a.Logger,
		Recorder:       repo,
		InitialBalance: app.ResolveInitialBalance(ctx, cfg, a.Logger, executor),
	})
	if err != nil {
		return err
	}
	a.Registry = reg

	factory, err := trade.NewFactory(a.Logger)
	if err != nil {
		return err
	}

	svc, err := app.NewService(app.Deps{
		Config:   cfg,
		Logger:   a.Logger,
		Registry: reg,
		Factory:  factory,
		Executor: executor,
	})
	if err != nil {
		return err
	}
	a.Service = svc

	mon, err := monitor.New(monitor.Config{
		Logger:           a.Logger,
		Registry:         reg,
		Market:           client,
		Executor:         executor,
		Interval:         cfg.MonitorInterval,
		FailureThreshold: cfg.PriceFailureThreshold,
	})
	if err != nil {
		return err
	}
	a.Monitor = mon

	return a.restoreOpenTrades(ctx)
}

// restoreOpenTrades readmits persisted trades that never reached a
// terminal state, so a restarted process keeps monitoring them.
func (a *App) restoreOpenTrades(ctx context.Context) error {
	persisted, err := a.Repo.FindAll(ctx)
	if err != nil {
		return err
	}
	restored := 0
	for _, t := range persisted {
		if t.IsClosed() {
			continue
		}
		if err := a.Registry.Add(ctx, t); err != nil {
			a.Logger.Warn(ctx, "Could not restore persisted trade", map[string]interface{}{
				"tradeID": t.ID,
				"error":   err.Error(),
			})
			continue
		}
		restored++
	}
	if restored > 0 {
		a.Logger.Info(ctx, "Restored open trades from database", map[string]interface{}{"count": restored})
	}
	return nil
}

func (a *App) shutdown() {
	if a.Repo != nil {
		a.Repo.Close()
	}
}

// Execute runs the CLI.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
