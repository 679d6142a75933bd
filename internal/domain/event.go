package domain

import "time"

// Engine event types, one per observable transition.
const (
	EventSignalDetected  = "SIGNAL_DETECTED"
	EventPositionOpened  = "POSITION_OPENED"
	EventStopTrailed     = "STOP_TRAILED"
	EventPositionClosed  = "POSITION_CLOSED"
	EventPortfolioUpdate = "PORTFOLIO_UPDATE"
	EventCycleError      = "CYCLE_ERROR"
)

// Event is one row of the decision log: what the engine decided and
// the market state that produced the decision.
type Event struct {
	SessionID string
	Timestamp time.Time
	Type      string
	Symbol    string

	// Market state at decision time. Zero where not applicable.
	Price    float64
	EMAShort float64
	EMALong  float64
	ATR      float64

	// Transition details. Zero where not applicable.
	Side       Side
	StopOld    float64
	StopNew    float64
	TakeProfit float64
	PnL        float64
	Detail     string
}
