package domain

import "time"

// Exit reason codes.
const (
	ExitReasonStopLoss   = "STOP_LOSS"
	ExitReasonTakeProfit = "TAKE_PROFIT"
)

// ClosedTrade is the immutable record produced when a position closes.
// Appended to trade history, never mutated.
type ClosedTrade struct {
	TradeID   string
	SessionID string
	Symbol    string

	Side            Side
	EntryPrice      float64
	EntryTime       time.Time
	Quantity        float64
	InitialStopLoss float64
	FinalStopLoss   float64
	TakeProfit      float64
	StrategyVersion StrategyVersion

	ExitPrice   float64
	ExitTime    time.Time
	ExitReason  string
	RealizedPnL float64
}

// HoldDuration is the time the position was open.
func (t *ClosedTrade) HoldDuration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// Win reports whether the trade realized a profit.
func (t *ClosedTrade) Win() bool { return t.RealizedPnL > 0 }
