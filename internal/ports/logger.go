package ports

import "context"

// Logger is the structured logging contract used throughout the engine.
// Fields carry per-event key/value context (trade id, symbol, prices);
// implementations decide formatting and destination.
type Logger interface {
	// Debug logs high-volume diagnostics, e.g. per-tick price checks.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs lifecycle events: admissions, transitions, orders.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs recoverable conditions such as skipped monitor ticks.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs failures together with the causing error.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
