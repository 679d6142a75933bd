package strategy

import (
	"math"

	"trend-paper-trader/internal/domain"
)

// TrailingStop computes candle-driven stop updates. One policy per
// strategy version, each selecting an EMA per side; updates are
// monotonic and never relax risk. Trailing reacts to the candle time
// frame only, never to live-price ticks.
type TrailingStop struct {
	Version domain.StrategyVersion
}

// NewTrailingStop creates a trailing stop controller for a version.
func NewTrailingStop(version domain.StrategyVersion) *TrailingStop {
	return &TrailingStop{Version: version}
}

// Update returns the new stop for an open position given the latest
// EMA values. LONG stops only ratchet up, SHORT stops only ratchet
// down. The old stop is returned unchanged while EMAs are warming up.
func (t *TrailingStop) Update(side domain.Side, oldStop float64, snap domain.IndicatorSnapshot) float64 {
	if !snap.EMADefined() {
		return oldStop
	}

	anchor := t.anchor(side, snap)
	if side == domain.SideLong {
		return math.Max(oldStop, anchor)
	}
	return math.Min(oldStop, anchor)
}

// anchor selects the EMA that trails the given side.
//
//	v1: LONG ema_long, SHORT ema_long
//	v2: LONG ema_long, SHORT ema_short (default)
//	v3: LONG ema_short, SHORT ema_long
func (t *TrailingStop) anchor(side domain.Side, snap domain.IndicatorSnapshot) float64 {
	switch t.Version {
	case domain.StrategyV1:
		return snap.EMALong
	case domain.StrategyV3:
		if side == domain.SideLong {
			return snap.EMAShort
		}
		return snap.EMALong
	default: // v2
		if side == domain.SideLong {
			return snap.EMALong
		}
		return snap.EMAShort
	}
}
