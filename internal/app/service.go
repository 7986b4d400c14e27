// Package app wires the trade factory, registry and execution gateway
// into the high-level trading operations the CLI exposes.
package app

import (
	"context"
	"fmt"
	"time"

	"riskbot/config"
	"riskbot/internal/domain"
	"riskbot/internal/ports"
	"riskbot/internal/registry"
	"riskbot/internal/trade"
)

// Service coordinates trade creation, execution and closure. It owns no
// trade state itself; the registry is the single source of truth.
type Service struct {
	cfg      *config.Config
	logger   ports.Logger
	registry *registry.Registry
	factory  *trade.Factory
	executor ports.OrderExecutor // optional; nil means paper trading only
}

// Deps holds the service dependencies.
type Deps struct {
	Config   *config.Config
	Logger   ports.Logger
	Registry *registry.Registry
	Factory  *trade.Factory
	Executor ports.OrderExecutor
}

// NewService creates the trading service.
func NewService(deps Deps) (*Service, error) {
	if deps.Config == nil || deps.Logger == nil || deps.Registry == nil || deps.Factory == nil {
		return nil, fmt.Errorf("missing required dependencies for trading service")
	}
	return &Service{
		cfg:      deps.Config,
		logger:   deps.Logger,
		registry: deps.Registry,
		factory:  deps.Factory,
		executor: deps.Executor,
	}, nil
}

// ResolveInitialBalance fetches the account balance from the execution
// gateway, falling back to the configured default when the gateway is
// unreachable or not wired. Startup never fails on a balance lookup.
func ResolveInitialBalance(ctx context.Context, cfg *config.Config, logger ports.Logger, executor ports.OrderExecutor) float64 {
	if executor == nil {
		return cfg.DefaultBalance
	}
	balance, err := executor.GetAccountBalance(ctx, cfg.QuoteAsset)
	if err != nil {
		logger.Warn(ctx, "Could not fetch account balance, using configured default", map[string]interface{}{
			"asset":   cfg.QuoteAsset,
			"default": cfg.DefaultBalance,
			"error":   err.Error(),
		})
		return cfg.DefaultBalance
	}
	logger.Info(ctx, "Account balance fetched from gateway", map[string]interface{}{
		"asset":   cfg.QuoteAsset,
		"balance": balance,
	})
	return balance
}

// CreateParams describes a trade setup request.
type CreateParams struct {
	Symbol      string
	Direction   domain.Direction
	EntryPrice  float64
	SLPrice     float64
	TargetPrice float64
	Quantity    float64 // Optional; sized from the risk parameters when zero
	RiskPercent float64 // Optional; falls back to the configured default
	Broker      string  // Optional; execution venue label recorded on the trade
	Execute     bool    // Place a real order at the gateway
}

// CreateTrade validates, sizes and admits a new trade, executing it at
// the gateway when requested. Paper trades activate immediately; executed trades activate
// only after the gateway confirms the entry order. On execution failure
// the trade stays CREATED and is returned alongside the error so the
// caller can retry or abandon it.
func (s *Service) CreateTrade(ctx context.Context, params CreateParams) (*domain.Trade, error) {
	riskPercent := params.RiskPercent
	if riskPercent == 0 {
		riskPercent = s.cfg.DefaultRiskPercent
	}

	newTrade, err := s.factory.FromManual(ctx, trade.ManualParams{
		Symbol:      params.Symbol,
		Direction:   params.Direction,
		EntryPrice:  params.EntryPrice,
		SLPrice:     params.SLPrice,
		TargetPrice: params.TargetPrice,
		Quantity:    params.Quantity,
		RiskPercent: riskPercent,
		Balance:     s.registry.Balance(ctx),
		Broker:      params.Broker,
	})
	if err != nil {
		return nil, err
	}
	if err := s.registry.Add(ctx, newTrade); err != nil {
		return nil, err
	}
	return s.admit(ctx, newTrade.ID, params.Execute)
}

// CreateTradeFromProposal admits a trade produced by a strategy signal.
// Proposals follow the same execution path as manual setups.
func (s *Service) CreateTradeFromProposal(ctx context.Context, symbol string, proposal domain.Proposal, execute bool) (*domain.Trade, error) {
	newTrade, err := s.factory.FromProposal(ctx, symbol, proposal, s.registry.Balance(ctx), s.cfg.DefaultRiskPercent)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Add(ctx, newTrade); err != nil {
		return nil, err
	}
	return s.admit(ctx, newTrade.ID, execute)
}

// admit runs the post-admission path shared by manual and proposal
// trades: optionally place the entry order, then activate.
func (s *Service) admit(ctx context.Context, id string, execute bool) (*domain.Trade, error) {
	if execute {
		if s.executor == nil {
			stale, _ := s.registry.Get(ctx, id)
			return stale, fmt.Errorf("%w: no execution gateway configured", ports.ErrBrokerExecution)
		}
		stale, err := s.registry.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		confirmation, err := s.executor.PlaceOrder(ctx, stale.Symbol, stale.Direction, stale.Quantity)
		if err != nil {
			// The trade stays CREATED; the caller decides whether to
			// retry or abandon it.
			s.logger.Error(ctx, err, "Entry order rejected", map[string]interface{}{
				"tradeID": id,
				"symbol":  stale.Symbol,
			})
			return stale, fmt.Errorf("%w: entry order for trade %s: %v", ports.ErrBrokerExecution, id, err)
		}
		if err := s.registry.AttachOrder(ctx, id, confirmation.OrderID); err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "Entry order filled", map[string]interface{}{
			"tradeID": id,
			"orderID": confirmation.OrderID,
			"status":  confirmation.Status,
		})
	}

	activated, _, err := s.registry.ApplyTransition(ctx, id, domain.StatusActive, 0, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return activated, nil
}

// CloseTrade manually closes a trade at the given price. Closing an
// already closed trade is a no-op returning the settled snapshot. For
// executed trades an offsetting exit order is placed best-effort after
// the transition; an order failure is logged, never propagated.
func (s *Service) CloseTrade(ctx context.Context, id string, exitPrice float64) (*domain.Trade, error) {
	closed, transitioned, err := s.registry.ApplyTransition(ctx, id, domain.StatusManuallyClosed, exitPrice, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return closed, nil
	}

	s.logger.Info(ctx, "Trade closed manually", map[string]interface{}{
		"tradeID":   closed.ID,
		"exitPrice": exitPrice,
		"pnl":       closed.RealizedPnL,
	})

	if s.executor != nil && closed.OrderID != nil {
		if _, err := s.executor.CloseOrder(ctx, closed.Symbol, closed.Direction, closed.Quantity); err != nil {
			s.logger.Error(ctx, err, "Failed to place offsetting exit order", map[string]interface{}{
				"tradeID": closed.ID,
				"symbol":  closed.Symbol,
			})
		}
	}
	return closed, nil
}

// AbandonTrade closes a CREATED trade that will never execute. No PnL is
// realized and the trade never counts toward win/loss statistics.
func (s *Service) AbandonTrade(ctx context.Context, id string) (*domain.Trade, error) {
	abandoned, _, err := s.registry.ApplyTransition(ctx, id, domain.StatusManuallyClosed, 0, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return abandoned, nil
}

// GetTrade returns a snapshot of a single trade.
func (s *Service) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	return s.registry.Get(ctx, id)
}

// ActiveTrades returns a snapshot of all trades currently monitored.
func (s *Service) ActiveTrades(ctx context.Context) []*domain.Trade {
	return s.registry.ListActive(ctx)
}

// ClosedTrades returns a snapshot of all settled trades.
func (s *Service) ClosedTrades(ctx context.Context) []*domain.Trade {
	return s.registry.ListClosed(ctx)
}

// Statistics returns the current account statistics.
func (s *Service) Statistics(ctx context.Context) domain.Statistics {
	return s.registry.Statistics(ctx)
}
