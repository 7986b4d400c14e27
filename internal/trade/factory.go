// Package trade builds validated Trade entities from manual parameters
// or strategy proposals, delegating sizing to the risk package.
package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"riskbot/internal/domain"
	"riskbot/internal/ports"
	"riskbot/internal/risk"
)

// DefaultBroker is the venue recorded on trades that do not name one.
const DefaultBroker = "binance"

// ManualParams are the explicit inputs for a manually specified trade.
type ManualParams struct {
	Symbol      string
	Direction   domain.Direction
	EntryPrice  float64
	SLPrice     float64
	TargetPrice float64
	Quantity    float64 // Optional; sized from risk parameters when zero
	RiskPercent float64
	Balance     float64
	Broker      string // Optional; DefaultBroker when empty
}

// Factory constructs CREATED trades with their derived risk figures
// computed exactly once.
type Factory struct {
	logger ports.Logger
}

// NewFactory creates a trade factory.
func NewFactory(logger ports.Logger) (*Factory, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for trade factory")
	}
	return &Factory{logger: logger}, nil
}

// FromManual validates the explicit parameters and returns a CREATED trade.
func (f *Factory) FromManual(ctx context.Context, params ManualParams) (*domain.Trade, error) {
	return f.build(ctx, params, "Manual")
}

// FromProposal extracts direction/entry/stop/target from a strategy
// proposal and delegates to the manual path. The proposal is only the
// *output* of signal generation; no indicator math happens here.
func (f *Factory) FromProposal(ctx context.Context, symbol string, proposal domain.Proposal, balance, riskPercent float64) (*domain.Trade, error) {
	if !proposal.Direction.IsValid() {
		return nil, fmt.Errorf("%w: proposal has no valid direction", ports.ErrValidation)
	}
	if proposal.EntryPrice <= 0 || proposal.SLPrice <= 0 || proposal.TargetPrice <= 0 {
		return nil, fmt.Errorf("%w: proposal is missing entry, stop-loss or target price", ports.ErrValidation)
	}

	label := proposal.StrategyName
	if label == "" {
		label = "Strategy"
	}
	return f.build(ctx, ManualParams{
		Symbol:      symbol,
		Direction:   proposal.Direction,
		EntryPrice:  proposal.EntryPrice,
		SLPrice:     proposal.SLPrice,
		TargetPrice: proposal.TargetPrice,
		Quantity:    proposal.Quantity,
		RiskPercent: riskPercent,
		Balance:     balance,
	}, label)
}

func (f *Factory) build(ctx context.Context, params ManualParams, strategyName string) (*domain.Trade, error) {
	if params.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol must be set", ports.ErrValidation)
	}
	if err := risk.ValidateDirection(params.Direction, params.EntryPrice, params.SLPrice, params.TargetPrice); err != nil {
		return nil, err
	}
	if params.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ports.ErrValidation)
	}

	quantity := params.Quantity
	if quantity == 0 {
		sized, err := risk.PositionSize(params.Balance, params.RiskPercent, params.EntryPrice, params.SLPrice)
		if err != nil {
			return nil, err
		}
		quantity = sized
	}

	riskAmount, rewardAmount, ratio, err := risk.RiskReward(params.EntryPrice, params.SLPrice, params.TargetPrice, quantity)
	if err != nil {
		return nil, err
	}

	broker := params.Broker
	if broker == "" {
		broker = DefaultBroker
	}

	newTrade := &domain.Trade{
		ID:              uuid.NewString(),
		Symbol:          params.Symbol,
		Direction:       params.Direction,
		EntryPrice:      params.EntryPrice,
		SLPrice:         params.SLPrice,
		TargetPrice:     params.TargetPrice,
		Quantity:        quantity,
		RiskAmount:      riskAmount,
		RewardAmount:    rewardAmount,
		RiskRewardRatio: ratio,
		Status:          domain.StatusCreated,
		StrategyName:    strategyName,
		Broker:          broker,
		CreatedAt:       time.Now().UTC(),
	}

	f.logger.Info(ctx, "Trade created", map[string]interface{}{
		"tradeID":   newTrade.ID,
		"symbol":    newTrade.Symbol,
		"direction": newTrade.Direction,
		"entry":     newTrade.EntryPrice,
		"sl":        newTrade.SLPrice,
		"target":    newTrade.TargetPrice,
		"quantity":  newTrade.Quantity,
		"ratio":     newTrade.RiskRewardRatio,
		"strategy":  strategyName,
		"broker":    broker,
	})
	return newTrade, nil
}
