package domain

import "time"

// Side of a position or signal.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Signal is a qualified entry decision derived from one candle close.
// A signal is only valid when the computed risk per unit is strictly
// positive; the detector discards anything else.
type Signal struct {
	Side       Side
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Size       float64

	// Market state that produced the signal, kept for the decision log.
	CandleTime time.Time
	EMAShort   float64
	EMALong    float64
	ATR        float64
	SwingLow   float64
	SwingHigh  float64
}

// RiskPerUnit is the entry-to-stop distance in price units.
func (s Signal) RiskPerUnit() float64 {
	if s.Side == SideLong {
		return s.EntryPrice - s.StopLoss
	}
	return s.StopLoss - s.EntryPrice
}
