package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trend-paper-trader/internal/domain"
)

// Feed provides market data for one or more symbols.
type Feed interface {
	// FetchCandles returns up to count closed candles for the symbol at
	// the given resolution, ordered oldest first.
	FetchCandles(ctx context.Context, symbol, interval string, count int) ([]domain.Candle, error)
	// FetchLivePrice returns the current traded price for the symbol.
	FetchLivePrice(ctx context.Context, symbol string) (float64, error)
}

// DataError marks a recoverable market data failure. Callers skip the
// current cycle and retry on the next tick instead of shutting down.
type DataError struct {
	Op  string
	Err error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("market data: %s: %v", e.Op, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// IsDataError reports whether err is (or wraps) a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

func dataErrf(op, format string, args ...interface{}) error {
	return &DataError{Op: op, Err: fmt.Errorf(format, args...)}
}

// intervalDuration maps an exchange resolution string to its candle
// duration.
func intervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "2h":
		return 2 * time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
}
