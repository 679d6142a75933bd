// Package strategy holds the entry signal detector and the trailing
// stop policy for the EMA crossover trend strategy.
package strategy

import (
	"errors"
	"fmt"

	"trend-paper-trader/internal/domain"
)

// ErrNonPositiveRisk marks a signal whose entry-to-stop distance is
// not strictly positive. The caller discards the signal; no trade.
var ErrNonPositiveRisk = errors.New("signal risk per unit is not positive")

// Sizer converts a risk distance into a position size.
type Sizer interface {
	SizePosition(riskPerUnit float64) (float64, error)
}

// Detector evaluates entry conditions on newly closed candles.
//
// A signal requires a strict EMA crossover: the short EMA must be on
// the opposite side of the long EMA on the prior candle. A market
// that is merely still above (or below) the cross does not re-trigger
// while flat; only the state transition itself does.
type Detector struct {
	ATRMultiplier   float64
	RiskRewardRatio float64
	sizer           Sizer
}

// NewDetector creates a Detector.
func NewDetector(atrMultiplier, riskRewardRatio float64, sizer Sizer) (*Detector, error) {
	if atrMultiplier <= 0 {
		return nil, fmt.Errorf("atr multiplier must be positive, got %v", atrMultiplier)
	}
	if riskRewardRatio <= 0 {
		return nil, fmt.Errorf("risk reward ratio must be positive, got %v", riskRewardRatio)
	}
	if sizer == nil {
		return nil, errors.New("sizer is required")
	}
	return &Detector{
		ATRMultiplier:   atrMultiplier,
		RiskRewardRatio: riskRewardRatio,
		sizer:           sizer,
	}, nil
}

// Evaluate inspects the two most recent candle closes. It returns a
// qualified signal, or nil when no entry condition just became true.
// ErrNonPositiveRisk is returned when a crossover fired but the stop
// landed on the wrong side of the entry.
func (d *Detector) Evaluate(prev, curr domain.IndicatorSnapshot, candle domain.Candle) (*domain.Signal, error) {
	if !prev.EMADefined() || !curr.EMADefined() || !curr.ATRDefined() {
		return nil, nil
	}

	crossedUp := curr.EMAShort > curr.EMALong && prev.EMAShort <= prev.EMALong
	crossedDown := curr.EMAShort < curr.EMALong && prev.EMAShort >= prev.EMALong

	switch {
	case crossedUp && candle.Close > curr.EMAShort:
		stop := curr.SwingLow - d.ATRMultiplier*curr.ATR
		return d.build(domain.SideLong, candle, curr, stop)
	case crossedDown && candle.Close < curr.EMAShort:
		stop := curr.SwingHigh + d.ATRMultiplier*curr.ATR
		return d.build(domain.SideShort, candle, curr, stop)
	}
	return nil, nil
}

func (d *Detector) build(side domain.Side, candle domain.Candle, snap domain.IndicatorSnapshot, stop float64) (*domain.Signal, error) {
	entry := candle.Close

	var risk, target float64
	if side == domain.SideLong {
		risk = entry - stop
		target = entry + risk*d.RiskRewardRatio
	} else {
		risk = stop - entry
		target = entry - risk*d.RiskRewardRatio
	}
	if risk <= 0 {
		return nil, fmt.Errorf("%w: side=%s entry=%.2f stop=%.2f", ErrNonPositiveRisk, side, entry, stop)
	}

	size, err := d.sizer.SizePosition(risk)
	if err != nil {
		return nil, fmt.Errorf("size position: %w", err)
	}

	return &domain.Signal{
		Side:       side,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Size:       size,
		CandleTime: candle.OpenTime,
		EMAShort:   snap.EMAShort,
		EMALong:    snap.EMALong,
		ATR:        snap.ATR,
		SwingLow:   snap.SwingLow,
		SwingHigh:  snap.SwingHigh,
	}, nil
}
