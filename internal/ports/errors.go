package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrValidation      = errors.New("invalid or invariant-violating input")
	ErrNotFound        = errors.New("trade not found")
	ErrDuplicateEntry  = errors.New("trade already registered")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Collaborator Errors
	ErrPriceFeed            = errors.New("failed to fetch current price")
	ErrBrokerExecution      = errors.New("order gateway rejected the request")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrConnectionFailed     = errors.New("failed to connect to the broker")
	ErrAuthenticationFailed = errors.New("broker authentication failed (check API keys)")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
