package ports

import (
	"context"

	"riskbot/internal/domain"
)

// TradeRecorder is the contract of the external persistence collaborator.
// The engine hands it a flat trade record on every creation and every
// transition; the trade id is the natural key, so recording the same
// trade again replaces the stored row.
type TradeRecorder interface {
	// Record persists the current state of a trade.
	Record(ctx context.Context, trade *domain.Trade) error

	// FindByID retrieves a persisted trade record.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id string) (*domain.Trade, error)

	// FindAll retrieves all persisted trade records, newest first.
	FindAll(ctx context.Context) ([]*domain.Trade, error)

	// TotalRealizedPnL sums the realized PnL of all closed trades.
	TotalRealizedPnL(ctx context.Context) (float64, error)
}
