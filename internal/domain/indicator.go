package domain

import "math"

// IndicatorSnapshot holds the indicator values at one candle close.
// Values that cannot be computed yet (warm-up) are NaN; consumers
// must gate on the Defined helpers before acting on them.
type IndicatorSnapshot struct {
	EMAShort  float64
	EMALong   float64
	ATR       float64
	SwingLow  float64
	SwingHigh float64
}

// EMADefined reports whether both EMA values are computed.
func (s IndicatorSnapshot) EMADefined() bool {
	return !math.IsNaN(s.EMAShort) && !math.IsNaN(s.EMALong)
}

// ATRDefined reports whether the ATR window has filled.
// An undefined ATR means no signal is possible.
func (s IndicatorSnapshot) ATRDefined() bool {
	return !math.IsNaN(s.ATR)
}
