// Package registry holds the in-memory trade store. The registry owns
// every Trade instance and is the only component allowed to mutate
// account state or move trades between index buckets; all status changes
// funnel through ApplyTransition, which serializes concurrent writers.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"riskbot/internal/domain"
	"riskbot/internal/ports"
)

// Config holds the registry dependencies.
type Config struct {
	Logger         ports.Logger
	Recorder       ports.TradeRecorder // optional; receives a record on every admission and transition
	InitialBalance float64
}

// Registry is a concurrency-safe store of all trades, indexed by id,
// direction and status. The index sets are caches derived from the
// trades map, never sources of truth.
type Registry struct {
	logger   ports.Logger
	recorder ports.TradeRecorder

	mu      sync.RWMutex
	trades  map[string]*domain.Trade
	active  map[string]struct{}
	closed  map[string]struct{}
	longs   map[string]struct{}
	shorts  map[string]struct{}
	account domain.AccountState
}

// New creates a registry seeded with the initial account balance.
func New(cfg Config) (*Registry, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for trade registry")
	}
	if cfg.InitialBalance < 0 {
		return nil, fmt.Errorf("initial balance cannot be negative")
	}
	return &Registry{
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
		trades:   make(map[string]*domain.Trade),
		active:   make(map[string]struct{}),
		closed:   make(map[string]struct{}),
		longs:    make(map[string]struct{}),
		shorts:   make(map[string]struct{}),
		account:  domain.AccountState{Balance: cfg.InitialBalance},
	}, nil
}

// Add admits a new trade into the registry. The registry takes ownership
// of the instance; callers must not mutate it afterwards.
func (r *Registry) Add(ctx context.Context, trade *domain.Trade) error {
	if trade == nil || trade.ID == "" {
		return fmt.Errorf("%w: trade must have an id", ports.ErrValidation)
	}

	r.mu.Lock()
	if _, exists := r.trades[trade.ID]; exists {
		r.mu.Unlock()
		// A duplicate id is both a validation failure and a duplicate,
		// so callers can match on either sentinel.
		return fmt.Errorf("%w: %w: trade %s", ports.ErrValidation, ports.ErrDuplicateEntry, trade.ID)
	}
	r.trades[trade.ID] = trade
	r.reindexLocked(trade)
	snapshot := *trade
	r.mu.Unlock()

	r.logger.Info(ctx, "Trade admitted to registry", map[string]interface{}{
		"tradeID":   trade.ID,
		"symbol":    trade.Symbol,
		"direction": trade.Direction,
	})
	r.record(ctx, &snapshot)
	return nil
}

// Get returns a snapshot copy of the trade with the given id.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trade, ok := r.trades[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	snapshot := *trade
	return &snapshot, nil
}

// ListActive returns a snapshot of all ACTIVE trades. The slice does not
// reflect later mutations.
func (r *Registry) ListActive(ctx context.Context) []*domain.Trade {
	return r.snapshotSet(r.active)
}

// ListClosed returns a snapshot of all trades with a terminal outcome.
func (r *Registry) ListClosed(ctx context.Context) []*domain.Trade {
	return r.snapshotSet(r.closed)
}

// ListByDirection returns a snapshot of all trades on the given side.
func (r *Registry) ListByDirection(ctx context.Context, direction domain.Direction) []*domain.Trade {
	if direction == domain.Short {
		return r.snapshotSet(r.shorts)
	}
	return r.snapshotSet(r.longs)
}

// MarkToMarket refreshes the unrealized PnL of an active trade at the
// given price. Trades that are no longer active are left untouched, so a
// monitor tick racing a close request degrades to a no-op.
func (r *Registry) MarkToMarket(ctx context.Context, id string, price float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trade, ok := r.trades[id]
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	if trade.IsActive() {
		trade.UnrealizedPnL = trade.UnrealizedAt(price)
	}
	return nil
}

// AttachOrder records the gateway order reference on a trade. The
// reference is audit metadata set at most once; a second attach is
// rejected.
func (r *Registry) AttachOrder(ctx context.Context, id, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trade, ok := r.trades[id]
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	if trade.OrderID != nil {
		return fmt.Errorf("%w: trade %s already has order %s", ports.ErrValidation, id, *trade.OrderID)
	}
	trade.OrderID = &orderID
	return nil
}

// ApplyTransition is the single authorized mutation path for status
// changes. It atomically updates the trade, moves it between index
// buckets, and settles the account when the new status is terminal.
// Concurrent callers racing to close the same trade are resolved by the
// idempotent terminal-state rule: the loser observes transitioned=false
// and the already-terminal snapshot, never an error.
func (r *Registry) ApplyTransition(ctx context.Context, id string, status domain.TradeStatus, exitPrice float64, at time.Time) (*domain.Trade, bool, error) {
	r.mu.Lock()
	trade, ok := r.trades[id]
	if !ok {
		r.mu.Unlock()
		return nil, false, fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}

	var (
		transitioned bool
		err          error
	)
	switch {
	case status == domain.StatusActive:
		wasActive := trade.IsActive()
		err = trade.Activate(at)
		transitioned = err == nil && !wasActive
	case status.IsTerminal():
		wasActivated := !trade.ActivatedAt.IsZero()
		transitioned, err = trade.Close(status, exitPrice, at)
		if transitioned && wasActivated {
			r.settleLocked(trade)
		}
	default:
		err = fmt.Errorf("status %s is not a valid transition target", status)
	}
	if err != nil {
		r.mu.Unlock()
		return nil, false, fmt.Errorf("%w: %v", ports.ErrValidation, err)
	}

	r.reindexLocked(trade)
	snapshot := *trade
	r.mu.Unlock()

	if transitioned {
		r.logger.Info(ctx, "Trade transitioned", map[string]interface{}{
			"tradeID":   snapshot.ID,
			"status":    snapshot.Status,
			"exitPrice": exitPrice,
			"pnl":       snapshot.RealizedPnL,
		})
		r.record(ctx, &snapshot)
	}
	return &snapshot, transitioned, nil
}

// Statistics returns a snapshot of the account state plus derived
// registry metrics. Equity is computed at read time from the unrealized
// PnL of active trades.
func (r *Registry) Statistics(ctx context.Context) domain.Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.Statistics{
		AccountState: r.account,
		TotalTrades:  len(r.trades),
		ActiveTrades: len(r.active),
		ClosedTrades: len(r.closed),
		LongCount:    len(r.longs),
		ShortCount:   len(r.shorts),
	}

	stats.Equity = r.account.Balance
	for id := range r.active {
		stats.Equity += r.trades[id].UnrealizedPnL
	}
	if decided := r.account.WinningCount + r.account.LosingCount; decided > 0 {
		stats.WinRate = float64(r.account.WinningCount) / float64(decided)
	}
	return stats
}

// Balance returns the current account balance.
func (r *Registry) Balance(ctx context.Context) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.account.Balance
}

// settleLocked folds a closed trade's realized PnL into the account.
// Trades closing flat count in neither the winning nor the losing bucket.
// Caller must hold the write lock.
func (r *Registry) settleLocked(trade *domain.Trade) {
	r.account.Balance += trade.RealizedPnL
	r.account.TotalPnL += trade.RealizedPnL
	switch {
	case trade.RealizedPnL > 0:
		r.account.WinningCount++
	case trade.RealizedPnL < 0:
		r.account.LosingCount++
	}
}

// reindexLocked places the trade in the index buckets matching its
// current state. Caller must hold the write lock.
func (r *Registry) reindexLocked(trade *domain.Trade) {
	if trade.Direction == domain.Short {
		r.shorts[trade.ID] = struct{}{}
	} else {
		r.longs[trade.ID] = struct{}{}
	}

	if trade.IsActive() {
		r.active[trade.ID] = struct{}{}
	} else {
		delete(r.active, trade.ID)
	}
	if trade.IsClosed() {
		r.closed[trade.ID] = struct{}{}
	} else {
		delete(r.closed, trade.ID)
	}
}

// snapshotSet copies the trades referenced by an index set under the
// read lock.
func (r *Registry) snapshotSet(set map[string]struct{}) []*domain.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trades := make([]*domain.Trade, 0, len(set))
	for id := range set {
		snapshot := *r.trades[id]
		trades = append(trades, &snapshot)
	}
	return trades
}

// record hands a trade snapshot to the persistence collaborator.
// Persistence failure never blocks or fails the in-memory transition.
func (r *Registry) record(ctx context.Context, trade *domain.Trade) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(ctx, trade); err != nil {
		r.logger.Error(ctx, err, "Failed to persist trade record", map[string]interface{}{"tradeID": trade.ID})
	}
}
