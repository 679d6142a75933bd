package domain

import (
	"sort"
	"time"
)

// Candle is a single OHLCV bar. Immutable once received.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Series is a bounded, open_time-ordered candle sequence with
// deduplication by open_time. MaxLen 0 means unbounded.
type Series struct {
	candles []Candle
	maxLen  int
}

// NewSeries creates a Series retaining at most maxLen candles.
func NewSeries(maxLen int) *Series {
	return &Series{maxLen: maxLen}
}

// Append inserts a candle, keeping order and dropping duplicates.
// Returns true if the candle was new.
func (s *Series) Append(c Candle) bool {
	n := len(s.candles)

	// Common case: strictly newer than the tail.
	if n == 0 || c.OpenTime.After(s.candles[n-1].OpenTime) {
		s.candles = append(s.candles, c)
		s.trim()
		return true
	}

	// Duplicate or out-of-order arrival.
	idx := sort.Search(n, func(i int) bool {
		return !s.candles[i].OpenTime.Before(c.OpenTime)
	})
	if idx < n && s.candles[idx].OpenTime.Equal(c.OpenTime) {
		return false
	}

	s.candles = append(s.candles, Candle{})
	copy(s.candles[idx+1:], s.candles[idx:])
	s.candles[idx] = c
	s.trim()
	return true
}

// AppendAll inserts all candles, returning how many were new.
func (s *Series) AppendAll(candles []Candle) int {
	added := 0
	for _, c := range candles {
		if s.Append(c) {
			added++
		}
	}
	return added
}

func (s *Series) trim() {
	if s.maxLen > 0 && len(s.candles) > s.maxLen {
		drop := len(s.candles) - s.maxLen
		s.candles = append(s.candles[:0], s.candles[drop:]...)
	}
}

// Len returns the number of retained candles.
func (s *Series) Len() int { return len(s.candles) }

// Candles returns the retained candles in open_time order.
// The returned slice is a copy.
func (s *Series) Candles() []Candle {
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Last returns the most recent candle, or false if empty.
func (s *Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}
