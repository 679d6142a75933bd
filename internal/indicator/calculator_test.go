package indicator

import (
	"math"
	"testing"
	"time"

	"trend-paper-trader/internal/domain"
)

func makeCandles(closes []float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	base := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = domain.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     c,
			High:     c + 1,
			Low:      c - 1,
			Close:    c,
		}
	}
	return out
}

func mustCalc(t *testing.T, short, long, atr, swing int) *Calculator {
	t.Helper()
	c, err := New(short, long, atr, swing)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(0, 20, 14, 10); err == nil {
		t.Error("zero short period must be rejected")
	}
	if _, err := New(20, 9, 14, 10); err == nil {
		t.Error("short >= long must be rejected")
	}
}

func TestCompute_EMAWarmup(t *testing.T) {
	calc := mustCalc(t, 3, 5, 3, 2)
	snaps := calc.Compute(makeCandles([]float64{10, 11, 12, 13, 14, 15}))

	// EMA(3) undefined until index 2, then SMA-seeded.
	if !math.IsNaN(snaps[1].EMAShort) {
		t.Error("EMA short defined before warm-up")
	}
	if got, want := snaps[2].EMAShort, 11.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("EMA short seed = %v, want %v", got, want)
	}
	// Recursive update: ema = close*k + prev*(1-k), k = 0.5 for period 3.
	if got, want := snaps[3].EMAShort, 13*0.5+11*0.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("EMA short step = %v, want %v", got, want)
	}

	// EMA(5) undefined until index 4.
	if !math.IsNaN(snaps[3].EMALong) {
		t.Error("EMA long defined before warm-up")
	}
	if got, want := snaps[4].EMALong, 12.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("EMA long seed = %v, want %v", got, want)
	}
}

func TestCompute_ATRWarmupAndValue(t *testing.T) {
	calc := mustCalc(t, 2, 3, 3, 2)
	// Flat closes: every true range is high-low = 2.
	snaps := calc.Compute(makeCandles([]float64{10, 10, 10, 10, 10}))

	if !math.IsNaN(snaps[1].ATR) {
		t.Error("ATR defined before warm-up")
	}
	if snaps[0].ATRDefined() {
		t.Error("ATRDefined true during warm-up")
	}
	for i := 2; i < len(snaps); i++ {
		if got := snaps[i].ATR; math.Abs(got-2.0) > 1e-9 {
			t.Errorf("ATR[%d] = %v, want 2", i, got)
		}
	}
}

func TestCompute_ATRUsesGaps(t *testing.T) {
	calc := mustCalc(t, 2, 3, 2, 2)
	candles := makeCandles([]float64{10, 10})
	// Gap up: high-prevClose dominates high-low.
	candles = append(candles, domain.Candle{
		OpenTime: candles[1].OpenTime.Add(time.Hour),
		Open:     15, High: 16, Low: 15, Close: 15,
	})
	snaps := calc.Compute(candles)

	// TR[1] = 2, TR[2] = |16-10| = 6, ATR(2)[2] = 4.
	if got := snaps[2].ATR; math.Abs(got-4.0) > 1e-9 {
		t.Errorf("ATR with gap = %v, want 4", got)
	}
}

func TestCompute_SwingWindow(t *testing.T) {
	calc := mustCalc(t, 2, 3, 3, 2)
	snaps := calc.Compute(makeCandles([]float64{10, 20, 5, 8, 9}))

	// Swing covers the last lookback candles plus the current one.
	// At index 4 the window is closes {5, 8, 9}: lows 4..8, highs 6..10.
	if got := snaps[4].SwingLow; got != 4 {
		t.Errorf("swing low = %v, want 4", got)
	}
	if got := snaps[4].SwingHigh; got != 9+1 {
		t.Errorf("swing high = %v, want 10", got)
	}
	// Early candles use the shorter available window.
	if got := snaps[0].SwingLow; got != 9 {
		t.Errorf("initial swing low = %v, want 9", got)
	}
}

func TestMinCandles(t *testing.T) {
	calc := mustCalc(t, 9, 20, 14, 10)
	if got := calc.MinCandles(); got != 30 {
		t.Errorf("MinCandles = %d, want 30", got)
	}
}
