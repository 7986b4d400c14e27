package domain

// AccountState holds the balance and cumulative closed-trade statistics.
// It is owned by the trade registry and mutated only in the transaction
// that closes a trade.
type AccountState struct {
	Balance      float64 // Current account balance
	TotalPnL     float64 // Sum of realized PnL across closed trades
	WinningCount int     // Closed trades with positive realized PnL
	LosingCount  int     // Closed trades with negative realized PnL
}

// Statistics is a read-time snapshot of the account plus derived registry
// metrics. Equity is a projection (balance plus the unrealized PnL of
// active trades), never stored.
type Statistics struct {
	AccountState

	Equity       float64
	WinRate      float64 // WinningCount / (WinningCount + LosingCount), 0 when none closed
	TotalTrades  int
	ActiveTrades int
	ClosedTrades int
	LongCount    int
	ShortCount   int
}
