// Package binanceclient adapts the go-binance futures client to the
// MarketDataClient and OrderExecutor ports.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"riskbot/internal/domain"
	"riskbot/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements the ports.MarketDataClient and ports.OrderExecutor
// interfaces using the go-binance library.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

var (
	_ ports.MarketDataClient = (*Client)(nil)
	_ ports.OrderExecutor    = (*Client)(nil)
)

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		// Allow creation for public endpoints (price polling). Private
		// endpoints will fail with an authentication error when called.
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{futuresClient: client, logger: cfg.Logger}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Invalid signature
			mappedErr = ports.ErrAuthenticationFailed
		case -2010, -2022: // Order rejected
			mappedErr = ports.ErrBrokerExecution
		case -2013: // Order does not exist
			mappedErr = ports.ErrNotFound
		case -2014, -2015: // Invalid API key / permissions
			mappedErr = ports.ErrAuthenticationFailed
		case -2019, -3005, -3041, -4047: // Insufficient margin/balance/position
			mappedErr = ports.ErrInsufficientFunds
		case -1102, -1104, -1111, -1121, -4003, -4014: // Parameter/request format errors
			mappedErr = ports.ErrValidation
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// GetCurrentPrice retrieves the last traded price for a symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetCurrentPrice"
	tickers, err := c.futuresClient.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ports.ErrPriceFeed, c.handleError(ctx, err, op))
	}
	if len(tickers) == 0 {
		err := fmt.Errorf("no price data returned for symbol %s", symbol)
		return 0, fmt.Errorf("%w: %w", ports.ErrPriceFeed, c.handleError(ctx, err, op))
	}

	price, err := strconv.ParseFloat(tickers[0].Price, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse price '%s': %w", tickers[0].Price, err)
		return 0, fmt.Errorf("%w: %w", ports.ErrPriceFeed, c.handleError(ctx, parseErr, op))
	}
	return price, nil
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetAccountBalance retrieves the available balance for a specific asset (e.g., "USDT").
func (c *Client) GetAccountBalance(ctx context.Context, asset string) (float64, error) {
	op := "GetAccountBalance"
	account, err := c.futuresClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	for _, bal := range account.Assets {
		if bal.Asset == asset {
			balance, err := strconv.ParseFloat(bal.WalletBalance, 64)
			if err != nil {
				parseErr := fmt.Errorf("could not parse balance '%s' for asset %s: %w", bal.WalletBalance, asset, err)
				return 0, c.handleError(ctx, parseErr, op)
			}
			return balance, nil
		}
	}

	err = fmt.Errorf("asset %s not found in account balance", asset)
	return 0, c.handleError(ctx, err, op)
}

// PlaceOrder submits a market order opening exposure in the trade's direction.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, direction domain.Direction, quantity float64) (*ports.OrderConfirmation, error) {
	return c.marketOrder(ctx, "PlaceOrder", symbol, entrySide(direction), quantity, false)
}

// CloseOrder submits a reduce-only market order offsetting an open position.
func (c *Client) CloseOrder(ctx context.Context, symbol string, direction domain.Direction, quantity float64) (*ports.OrderConfirmation, error) {
	return c.marketOrder(ctx, "CloseOrder", symbol, exitSide(direction), quantity, true)
}

func (c *Client) marketOrder(ctx context.Context, op, symbol string, side futures.SideType, quantity float64, reduceOnly bool) (*ports.OrderConfirmation, error) {
	svc := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', -1, 64))
	if reduceOnly {
		svc = svc.ReduceOnly(true)
	}

	order, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrBrokerExecution, c.handleError(ctx, err, op))
	}

	confirmation := translateOrder(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity,
		"orderID":  confirmation.OrderID,
		"status":   confirmation.Status,
	})
	return confirmation, nil
}

// entrySide maps a trade direction to the order side opening exposure.
func entrySide(direction domain.Direction) futures.SideType {
	if direction == domain.Short {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

// exitSide maps a trade direction to the order side offsetting exposure.
func exitSide(direction domain.Direction) futures.SideType {
	if direction == domain.Short {
		return futures.SideTypeBuy
	}
	return futures.SideTypeSell
}

func translateOrder(order *futures.CreateOrderResponse) *ports.OrderConfirmation {
	if order == nil {
		return nil
	}
	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
	execQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)

	return &ports.OrderConfirmation{
		OrderID:        strconv.FormatInt(order.OrderID, 10),
		Symbol:         order.Symbol,
		AvgPrice:       avgPrice,
		FilledQuantity: execQty,
		Status:         string(order.Status),
		Timestamp:      time.UnixMilli(order.UpdateTime),
	}
}
