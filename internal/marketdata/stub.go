package marketdata

import (
	"context"
	"sync"

	"trend-paper-trader/internal/domain"
)

// StubFeed is a scripted Feed for tests.
type StubFeed struct {
	mu sync.Mutex

	Candles   []domain.Candle
	CandleErr error
	Price     float64
	PriceErr  error

	CandleCalls int
	PriceCalls  int
}

var _ Feed = (*StubFeed)(nil)

func (s *StubFeed) FetchCandles(ctx context.Context, symbol, interval string, count int) ([]domain.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CandleCalls++
	if s.CandleErr != nil {
		return nil, s.CandleErr
	}
	out := make([]domain.Candle, len(s.Candles))
	copy(out, s.Candles)
	return out, nil
}

func (s *StubFeed) FetchLivePrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PriceCalls++
	if s.PriceErr != nil {
		return 0, s.PriceErr
	}
	return s.Price, nil
}

// SetPrice swaps the scripted price between ticks.
func (s *StubFeed) SetPrice(p float64) {
	s.mu.Lock()
	s.Price = p
	s.mu.Unlock()
}

// SetCandles swaps the scripted candle history.
func (s *StubFeed) SetCandles(c []domain.Candle) {
	s.mu.Lock()
	s.Candles = c
	s.mu.Unlock()
}
