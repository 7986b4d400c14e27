package domain

// Direction indicates which way a trade profits (LONG rises, SHORT falls).
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// IsValid checks the direction is one of the two known values.
func (d Direction) IsValid() bool {
	return d == Long || d == Short
}

// Sign returns the PnL sign factor for the direction (+1 long, -1 short).
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusCreated        TradeStatus = "CREATED"
	StatusActive         TradeStatus = "ACTIVE"
	StatusSLHit          TradeStatus = "SL_HIT"
	StatusTargetHit      TradeStatus = "TARGET_HIT"
	StatusManuallyClosed TradeStatus = "MANUALLY_CLOSED"
)

// IsTerminal reports whether the status is one of the closed outcomes.
// Terminal variants record why a trade ended; for querying purposes they
// all classify as closed.
func (s TradeStatus) IsTerminal() bool {
	switch s {
	case StatusSLHit, StatusTargetHit, StatusManuallyClosed:
		return true
	}
	return false
}
