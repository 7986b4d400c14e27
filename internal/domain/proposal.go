package domain

// Proposal is the output of an external signal generator: a candidate
// entry/stop-loss/target for a symbol. The engine only consumes these
// values; it never computes indicators itself.
type Proposal struct {
	Direction    Direction
	EntryPrice   float64
	SLPrice      float64
	TargetPrice  float64
	Quantity     float64 // Optional; sized from risk parameters when zero
	StrategyName string  // Label of the generating strategy
}
