package domain

import (
	"fmt"
	"time"
)

// Trade represents a single risk-bounded trade through its lifecycle.
// Entry, stop-loss, target, quantity and the derived risk figures are
// fixed at creation; only status, timestamps and PnL fields change
// afterwards, and only through the transition methods below.
type Trade struct {
	ID              string      // Unique identifier, assigned at creation
	Symbol          string      // Trading symbol (e.g., "BTCUSDT")
	Direction       Direction   // LONG or SHORT, immutable
	EntryPrice      float64     // Planned/filled entry price
	SLPrice         float64     // Stop-loss price
	TargetPrice     float64     // Target price
	Quantity        float64     // Position size in units
	RiskAmount      float64     // Capital at risk if SL is hit
	RewardAmount    float64     // Capital gained if target is hit
	RiskRewardRatio float64     // RewardAmount / RiskAmount
	Status          TradeStatus // Current lifecycle state
	StrategyName    string      // Informational label ("Manual" or strategy name)
	Broker          string      // Execution venue label, informational like StrategyName
	OrderID         *string     // Gateway order reference, set when executed
	CreatedAt       time.Time   // Timestamp of creation
	ActivatedAt     time.Time   // Timestamp of activation (zero if never activated)
	ClosedAt        time.Time   // Timestamp of closure (zero while open)
	ExitPrice       float64     // Price at closure (0 while open)
	RealizedPnL     float64     // Set exactly once, at closure
	UnrealizedPnL   float64     // Mark-to-market PnL while ACTIVE, 0 otherwise
}

// IsActive reports whether the trade is being monitored.
func (t *Trade) IsActive() bool {
	return t.Status == StatusActive
}

// IsClosed reports whether the trade reached a terminal outcome.
func (t *Trade) IsClosed() bool {
	return t.Status.IsTerminal()
}

// IsAbandoned reports whether the trade ended without ever activating
// (execution rejected or never requested). Abandoned trades are queryable
// but excluded from win/loss statistics.
func (t *Trade) IsAbandoned() bool {
	return t.IsClosed() && t.ActivatedAt.IsZero()
}

// Activate moves the trade from CREATED to ACTIVE, recording the
// activation time. Activating an already active trade is a no-op.
func (t *Trade) Activate(at time.Time) error {
	switch t.Status {
	case StatusActive:
		return nil
	case StatusCreated:
		t.Status = StatusActive
		t.ActivatedAt = at
		return nil
	default:
		return fmt.Errorf("trade %s cannot activate from status %s", t.ID, t.Status)
	}
}

// Close moves the trade to the given terminal status, recording exit
// price, closure time and realized PnL. Closing an already closed trade
// is an idempotent no-op: the first outcome stands and transitioned is
// false. A CREATED trade may only be closed manually (abandonment); it
// realizes no PnL.
func (t *Trade) Close(status TradeStatus, exitPrice float64, at time.Time) (transitioned bool, err error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("status %s is not a terminal outcome", status)
	}
	if t.IsClosed() {
		return false, nil
	}
	if t.Status == StatusCreated && status != StatusManuallyClosed {
		return false, fmt.Errorf("trade %s is not active (status %s)", t.ID, t.Status)
	}

	if t.Status == StatusActive {
		t.RealizedPnL = t.Quantity * (exitPrice - t.EntryPrice) * t.Direction.Sign()
	}
	t.Status = status
	t.ExitPrice = exitPrice
	t.ClosedAt = at
	t.UnrealizedPnL = 0
	return true, nil
}

// CheckExit evaluates the current price against the stop-loss and target
// thresholds. When a gapped or stale tick satisfies both at once the
// stop-loss wins: capital preservation takes precedence over profit
// capture.
func (t *Trade) CheckExit(price float64) (TradeStatus, bool) {
	var slHit, targetHit bool
	if t.Direction == Long {
		slHit = price <= t.SLPrice
		targetHit = price >= t.TargetPrice
	} else {
		slHit = price >= t.SLPrice
		targetHit = price <= t.TargetPrice
	}

	if slHit {
		return StatusSLHit, true
	}
	if targetHit {
		return StatusTargetHit, true
	}
	return t.Status, false
}

// UnrealizedAt returns the mark-to-market PnL at the given price.
func (t *Trade) UnrealizedAt(price float64) float64 {
	return t.Quantity * (price - t.EntryPrice) * t.Direction.Sign()
}
