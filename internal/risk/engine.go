// Package risk provides the pure position-sizing and trade-validation
// functions. Everything here is stateless and deterministic, so the
// functions are safe to call concurrently without synchronization.
package risk

import (
	"fmt"
	"math"

	"riskbot/internal/domain"
	"riskbot/internal/ports"
)

// PositionSize computes the quantity that risks riskPercent of the
// balance between entry and stop-loss:
//
//	quantity = (balance × riskPercent / 100) / |entry − sl|
func PositionSize(balance, riskPercent, entry, sl float64) (float64, error) {
	if balance <= 0 {
		return 0, fmt.Errorf("%w: balance must be positive, got %v", ports.ErrValidation, balance)
	}
	if riskPercent <= 0 {
		return 0, fmt.Errorf("%w: risk percent must be positive, got %v", ports.ErrValidation, riskPercent)
	}
	if entry <= 0 || sl <= 0 {
		return 0, fmt.Errorf("%w: entry and stop-loss prices must be positive", ports.ErrValidation)
	}
	riskPerUnit := math.Abs(entry - sl)
	if riskPerUnit == 0 {
		return 0, fmt.Errorf("%w: entry price equals stop-loss price", ports.ErrValidation)
	}

	riskAmount := balance * riskPercent / 100
	return riskAmount / riskPerUnit, nil
}

// RiskReward computes the capital at risk, the capital targeted and
// their ratio for a sized trade.
func RiskReward(entry, sl, target, quantity float64) (riskAmount, rewardAmount, ratio float64, err error) {
	if quantity <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: quantity must be positive, got %v", ports.ErrValidation, quantity)
	}
	riskAmount = quantity * math.Abs(entry-sl)
	if riskAmount == 0 {
		return 0, 0, 0, fmt.Errorf("%w: risk amount is zero (entry equals stop-loss)", ports.ErrValidation)
	}
	rewardAmount = quantity * math.Abs(target-entry)
	ratio = rewardAmount / riskAmount
	return riskAmount, rewardAmount, ratio, nil
}

// ValidateDirection enforces the price-ordering invariant:
// LONG requires sl < entry < target, SHORT requires sl > entry > target.
func ValidateDirection(direction domain.Direction, entry, sl, target float64) error {
	if !direction.IsValid() {
		return fmt.Errorf("%w: unknown direction %q", ports.ErrValidation, direction)
	}
	if entry <= 0 || sl <= 0 || target <= 0 {
		return fmt.Errorf("%w: prices must be positive", ports.ErrValidation)
	}

	switch direction {
	case domain.Long:
		if sl >= entry {
			return fmt.Errorf("%w: stop-loss %v must be below entry %v for LONG", ports.ErrValidation, sl, entry)
		}
		if target <= entry {
			return fmt.Errorf("%w: target %v must be above entry %v for LONG", ports.ErrValidation, target, entry)
		}
	case domain.Short:
		if sl <= entry {
			return fmt.Errorf("%w: stop-loss %v must be above entry %v for SHORT", ports.ErrValidation, sl, entry)
		}
		if target >= entry {
			return fmt.Errorf("%w: target %v must be below entry %v for SHORT", ports.ErrValidation, target, entry)
		}
	}
	return nil
}
