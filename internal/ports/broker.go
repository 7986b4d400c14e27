package ports

import (
	"context"
	"time"

	"riskbot/internal/domain"
)

// OrderConfirmation represents the essential details returned after placing an order.
type OrderConfirmation struct {
	OrderID        string    // Gateway's order ID
	Symbol         string    // Symbol for the order
	AvgPrice       float64   // Average filled price (0 if not yet filled)
	FilledQuantity float64   // Quantity filled
	Status         string    // Gateway order status (e.g., NEW, FILLED)
	Timestamp      time.Time // Time the confirmation was generated
}

// MarketDataClient supplies current prices for a symbol. Implementations
// may be slow, rate-limited or temporarily unavailable; failures must be
// wrapped with ErrPriceFeed.
type MarketDataClient interface {
	// GetCurrentPrice retrieves the last traded price for a symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// Ping checks connectivity to the price source.
	Ping(ctx context.Context) error
}

// OrderExecutor places and offsets orders at the execution gateway.
// Rejections (insufficient margin, invalid symbol, connectivity) must be
// wrapped with ErrBrokerExecution.
type OrderExecutor interface {
	// PlaceOrder submits a market order opening exposure in the trade's
	// direction and returns the fill confirmation.
	PlaceOrder(ctx context.Context, symbol string, direction domain.Direction, quantity float64) (*OrderConfirmation, error)

	// CloseOrder submits a market order offsetting an open position.
	CloseOrder(ctx context.Context, symbol string, direction domain.Direction, quantity float64) (*OrderConfirmation, error)

	// GetAccountBalance retrieves the available balance for an asset (e.g., "USDT").
	GetAccountBalance(ctx context.Context, asset string) (float64, error)
}
