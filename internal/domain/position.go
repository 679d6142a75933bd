package domain

import "time"

// Position is the single mutable entity of the engine. At most one
// exists at any time; only the position manager mutates it, and only
// StopLoss moves after entry (monotonic in the favorable direction).
type Position struct {
	TradeID         string
	Side            Side
	EntryPrice      float64
	EntryTime       time.Time
	Quantity        float64
	StopLoss        float64
	InitialStopLoss float64
	TakeProfit      float64
	StrategyVersion StrategyVersion
}

// UnrealizedPnL marks the position to the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Side == SideLong {
		return (price - p.EntryPrice) * p.Quantity
	}
	return (p.EntryPrice - price) * p.Quantity
}
