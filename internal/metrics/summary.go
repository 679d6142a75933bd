package metrics

import (
	"math"
	"sort"
	"time"

	"trend-paper-trader/internal/domain"
)

// Summary aggregates the performance of one set of closed trades.
type Summary struct {
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64

	TotalPnL     float64
	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64

	PnLMean    float64
	PnLMedian  float64
	PnLStddev  float64
	BestTrade  float64
	WorstTrade float64

	MaxDrawdown          float64
	MaxConsecutiveLosses int

	AvgHoldDuration time.Duration
}

// Summarize computes performance metrics over closed trades. Trades
// are sorted by ExitTime ASC, TradeID ASC before computing the
// order-dependent metrics (MaxDrawdown, MaxConsecutiveLosses).
func Summarize(trades []*domain.ClosedTrade) Summary {
	n := len(trades)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]*domain.ClosedTrade, n)
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].ExitTime.Equal(sorted[j].ExitTime) {
			return sorted[i].ExitTime.Before(sorted[j].ExitTime)
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	pnls := make([]float64, n)
	var grossProfit, grossLoss float64
	var held time.Duration
	wins := 0
	for i, t := range sorted {
		pnls[i] = t.RealizedPnL
		if t.Win() {
			wins++
			grossProfit += t.RealizedPnL
		} else {
			grossLoss += -t.RealizedPnL
		}
		held += t.HoldDuration()
	}
	losses := n - wins

	sortedPnLs := make([]float64, n)
	copy(sortedPnLs, pnls)
	sort.Float64s(sortedPnLs)

	mean := computeMean(pnls)

	s := Summary{
		TotalTrades: n,
		Wins:        wins,
		Losses:      losses,
		WinRate:     float64(wins) / float64(n),

		TotalPnL:    grossProfit - grossLoss,
		GrossProfit: grossProfit,
		GrossLoss:   grossLoss,

		PnLMean:    mean,
		PnLMedian:  computePercentile(sortedPnLs, 0.50),
		PnLStddev:  computeStddev(pnls, mean),
		BestTrade:  sortedPnLs[n-1],
		WorstTrade: sortedPnLs[0],

		MaxDrawdown:          computeMaxDrawdown(pnls),
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(pnls),

		AvgHoldDuration: held / time.Duration(n),
	}

	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		s.ProfitFactor = math.Inf(1)
	}
	if wins > 0 {
		s.AvgWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		s.AvgLoss = -grossLoss / float64(losses)
	}

	return s
}

// computeMean calculates the arithmetic mean.
func computeMean(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range pnls {
		sum += p
	}
	return sum / float64(len(pnls))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(pnls []float64, mean float64) float64 {
	n := len(pnls)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, p := range pnls {
		diff := p - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation. sorted must be
// pre-sorted ASC; p is the percentile (0.50 = median).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates the worst peak-to-trough fall of the
// cumulative PnL curve. PnLs must be in chronological order.
func computeMaxDrawdown(pnls []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, p := range pnls {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of PnL <= 0.
// PnLs must be in chronological order.
func computeMaxConsecutiveLosses(pnls []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, p := range pnls {
		if p <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
