// Package monitor implements the recurring price-polling loop that
// drives active trades through their exit transitions.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"riskbot/internal/domain"
	"riskbot/internal/ports"
	"riskbot/internal/registry"
)

const (
	defaultInterval         = 5 * time.Second
	defaultFailureThreshold = 5
)

// Config holds the monitor dependencies.
type Config struct {
	Logger   ports.Logger
	Registry *registry.Registry
	Market   ports.MarketDataClient
	Executor ports.OrderExecutor // optional; offsets executed trades on exit

	Interval         time.Duration // polling interval, default 5s
	FailureThreshold int           // consecutive price failures per symbol before degraded health
}

// Monitor polls current prices for every active trade on a fixed
// interval and applies SL/target transitions through the registry. It is
// the only writer of price-triggered transitions.
type Monitor struct {
	logger   ports.Logger
	registry *registry.Registry
	market   ports.MarketDataClient
	executor ports.OrderExecutor

	interval         time.Duration
	failureThreshold int

	mu       sync.Mutex
	failures map[string]int
	degraded bool
}

// New creates a monitor.
func New(cfg Config) (*Monitor, error) {
	if cfg.Logger == nil || cfg.Registry == nil || cfg.Market == nil {
		return nil, fmt.Errorf("missing required dependencies for monitor")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	return &Monitor{
		logger:           cfg.Logger,
		registry:         cfg.Registry,
		market:           cfg.Market,
		executor:         cfg.Executor,
		interval:         interval,
		failureThreshold: threshold,
		failures:         make(map[string]int),
	}, nil
}

// Run executes the polling loop until the context is canceled.
// Cancellation is cooperative: the tick in flight completes before the
// loop exits, so per-trade checks are drained rather than aborted.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info(ctx, "Trade monitor started", map[string]interface{}{"interval": m.interval.String()})

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info(ctx, "Trade monitor stopped")
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// Degraded reports whether any symbol's price feed has failed for at
// least the configured number of consecutive ticks. It is a health
// signal, never a crash.
func (m *Monitor) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// tick runs one evaluation pass over the active-trade snapshot.
// A failure on one trade never prevents the others from being checked.
func (m *Monitor) tick(ctx context.Context) {
	for _, active := range m.registry.ListActive(ctx) {
		m.checkTrade(ctx, active)
	}
}

func (m *Monitor) checkTrade(ctx context.Context, t *domain.Trade) {
	price, err := m.market.GetCurrentPrice(ctx, t.Symbol)
	if err != nil {
		m.recordFailure(ctx, t.Symbol, err)
		return
	}
	m.recordSuccess(t.Symbol)

	status, hit := t.CheckExit(price)
	if !hit {
		if err := m.registry.MarkToMarket(ctx, t.ID, price); err != nil {
			m.logger.Warn(ctx, "Failed to mark trade to market", map[string]interface{}{"tradeID": t.ID, "error": err.Error()})
		}
		m.logger.Debug(ctx, "Trade still within thresholds", map[string]interface{}{
			"tradeID": t.ID,
			"price":   price,
			"pnl":     t.UnrealizedAt(price),
		})
		return
	}

	closed, transitioned, err := m.registry.ApplyTransition(ctx, t.ID, status, price, time.Now().UTC())
	if err != nil {
		m.logger.Error(ctx, err, "Failed to apply price-triggered transition", map[string]interface{}{"tradeID": t.ID, "status": status})
		return
	}
	if !transitioned {
		// Lost the race against a manual close; the earlier outcome stands.
		return
	}

	fields := map[string]interface{}{
		"tradeID":   closed.ID,
		"symbol":    closed.Symbol,
		"exitPrice": price,
		"pnl":       closed.RealizedPnL,
	}
	if status == domain.StatusSLHit {
		m.logger.Warn(ctx, "Stop loss hit", fields)
	} else {
		m.logger.Info(ctx, "Target hit", fields)
	}

	m.offsetPosition(closed, price)
}

// offsetPosition places a best-effort market order closing the broker
// position of an executed trade. The state transition already happened;
// an order failure here is logged, never propagated. A background
// context is used so shutdown does not abort the order mid-flight.
func (m *Monitor) offsetPosition(t *domain.Trade, price float64) {
	if m.executor == nil || t.OrderID == nil {
		return
	}
	ctx := context.Background()
	if _, err := m.executor.CloseOrder(ctx, t.Symbol, t.Direction, t.Quantity); err != nil {
		m.logger.Error(ctx, err, "Failed to place offsetting exit order", map[string]interface{}{
			"tradeID":   t.ID,
			"symbol":    t.Symbol,
			"exitPrice": price,
		})
		return
	}
	m.logger.Info(ctx, "Offsetting exit order placed", map[string]interface{}{"tradeID": t.ID, "symbol": t.Symbol})
}

func (m *Monitor) recordFailure(ctx context.Context, symbol string, err error) {
	m.mu.Lock()
	m.failures[symbol]++
	count := m.failures[symbol]
	crossed := count == m.failureThreshold
	if crossed {
		m.degraded = true
	}
	m.mu.Unlock()

	m.logger.Warn(ctx, "Price fetch failed, skipping trade for this tick", map[string]interface{}{
		"symbol":              symbol,
		"consecutiveFailures": count,
		"error":               err.Error(),
	})
	if crossed {
		m.logger.Error(ctx, err, "Price feed degraded", map[string]interface{}{
			"symbol":    symbol,
			"threshold": m.failureThreshold,
		})
	}
}

func (m *Monitor) recordSuccess(symbol string) {
	m.mu.Lock()
	delete(m.failures, symbol)
	if m.degraded {
		healthy := true
		for _, count := range m.failures {
			if count >= m.failureThreshold {
				healthy = false
				break
			}
		}
		m.degraded = !healthy
	}
	m.mu.Unlock()
}
