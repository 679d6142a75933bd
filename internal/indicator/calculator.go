// Package indicator computes the EMA/ATR/swing snapshot series the
// signal detector and trailing stop consume. Pure functions of the
// candle history supplied by the caller; no retained state.
package indicator

import (
	"fmt"
	"math"

	"trend-paper-trader/internal/domain"
)

// Calculator holds the indicator window configuration.
type Calculator struct {
	ShortPeriod   int
	LongPeriod    int
	ATRPeriod     int
	SwingLookback int
}

// New creates a Calculator, validating the window configuration.
func New(shortPeriod, longPeriod, atrPeriod, swingLookback int) (*Calculator, error) {
	if shortPeriod <= 0 || longPeriod <= 0 || atrPeriod <= 0 || swingLookback <= 0 {
		return nil, fmt.Errorf("indicator periods must be positive: short=%d long=%d atr=%d swing=%d",
			shortPeriod, longPeriod, atrPeriod, swingLookback)
	}
	if shortPeriod >= longPeriod {
		return nil, fmt.Errorf("short EMA period %d must be less than long EMA period %d", shortPeriod, longPeriod)
	}
	return &Calculator{
		ShortPeriod:   shortPeriod,
		LongPeriod:    longPeriod,
		ATRPeriod:     atrPeriod,
		SwingLookback: swingLookback,
	}, nil
}

// MinCandles is the history length required for every snapshot value
// of the latest candle to be defined.
func (c *Calculator) MinCandles() int {
	longest := c.LongPeriod
	if c.ATRPeriod > longest {
		longest = c.ATRPeriod
	}
	return longest + c.SwingLookback
}

// Compute returns one snapshot per input candle. Candles must be
// ordered by open_time. Warm-up values are NaN: each EMA is seeded
// with the SMA of its first `period` closes and undefined before the
// seed window fills; ATR is undefined until `atr_period` candles
// exist. Swing low/high cover the last SwingLookback candles plus the
// current one and are always defined.
func (c *Calculator) Compute(candles []domain.Candle) []domain.IndicatorSnapshot {
	n := len(candles)
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	for i, cd := range candles {
		closes[i] = cd.Close
	}

	emaShort := emaSeries(closes, c.ShortPeriod)
	emaLong := emaSeries(closes, c.LongPeriod)
	atr := atrSeries(candles, c.ATRPeriod)

	out := make([]domain.IndicatorSnapshot, n)
	for i := range candles {
		lo := i - c.SwingLookback
		if lo < 0 {
			lo = 0
		}
		swingLow := candles[lo].Low
		swingHigh := candles[lo].High
		for j := lo + 1; j <= i; j++ {
			if candles[j].Low < swingLow {
				swingLow = candles[j].Low
			}
			if candles[j].High > swingHigh {
				swingHigh = candles[j].High
			}
		}

		out[i] = domain.IndicatorSnapshot{
			EMAShort:  emaShort[i],
			EMALong:   emaLong[i],
			ATR:       atr[i],
			SwingLow:  swingLow,
			SwingHigh: swingHigh,
		}
	}
	return out
}

// emaSeries computes the recursive EMA, SMA-seeded at index period-1.
func emaSeries(closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	k := 2.0 / float64(period+1)

	var sum float64
	for i := 0; i < n; i++ {
		if i < period-1 {
			sum += closes[i]
			out[i] = math.NaN()
			continue
		}
		if i == period-1 {
			sum += closes[i]
			out[i] = sum / float64(period)
			continue
		}
		out[i] = closes[i]*k + out[i-1]*(1-k)
	}
	return out
}

// atrSeries computes the rolling mean of true range. The first
// candle's true range has no prior close and falls back to high-low.
func atrSeries(candles []domain.Candle, period int) []float64 {
	n := len(candles)
	tr := make([]float64, n)
	for i, c := range candles {
		if i == 0 {
			tr[i] = c.High - c.Low
			continue
		}
		prevClose := candles[i-1].Close
		tr[i] = math.Max(c.High-c.Low,
			math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
	}

	out := make([]float64, n)
	var window float64
	for i := 0; i < n; i++ {
		window += tr[i]
		if i >= period {
			window -= tr[i-period]
		}
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = window / float64(period)
	}
	return out
}
