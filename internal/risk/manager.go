// Package risk provides risk-based position sizing and the
// portfolio-level daily loss circuit breaker.
package risk

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrGuardTripped is returned when the daily loss limit vetoes new
// entries. An existing open position is unaffected and continues to
// be managed normally.
var ErrGuardTripped = errors.New("daily loss limit reached, new entries disabled")

// Manager sizes positions against current capital and enforces the
// daily loss circuit breaker. It keeps its own capital mirror, fed by
// RecordTradeClose, so sizing needs no reach into the portfolio.
type Manager struct {
	mu sync.Mutex

	riskFraction   float64
	dailyLossLimit float64
	initialCapital float64

	capital   float64
	lossDay   time.Time // UTC date the running loss belongs to
	dailyLoss float64
}

// NewManager creates a Manager.
func NewManager(initialCapital, riskFraction, dailyLossLimit float64) (*Manager, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %v", initialCapital)
	}
	if riskFraction <= 0 || riskFraction >= 1 {
		return nil, fmt.Errorf("risk fraction must be in (0,1), got %v", riskFraction)
	}
	if dailyLossLimit <= 0 || dailyLossLimit > 1 {
		return nil, fmt.Errorf("daily loss limit must be in (0,1], got %v", dailyLossLimit)
	}
	return &Manager{
		riskFraction:   riskFraction,
		dailyLossLimit: dailyLossLimit,
		initialCapital: initialCapital,
		capital:        initialCapital,
	}, nil
}

// SizePosition converts a per-unit risk distance into a quantity:
// size = risk_fraction * capital / risk_per_unit. A non-positive risk
// sizes to zero with an error so the signal is discarded.
func (m *Manager) SizePosition(riskPerUnit float64) (float64, error) {
	if riskPerUnit <= 0 {
		return 0, fmt.Errorf("risk per unit must be positive, got %v", riskPerUnit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.riskFraction * m.capital / riskPerUnit, nil
}

// CheckEntryAllowed reports ErrGuardTripped while the cumulative
// realized loss for the current UTC day exceeds the configured
// fraction of starting capital. The guard resets on day rollover.
func (m *Manager) CheckEntryAllowed(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollDay(now)
	if m.dailyLoss >= m.dailyLossLimit*m.initialCapital {
		return fmt.Errorf("%w: lost %.2f of %.2f today",
			ErrGuardTripped, m.dailyLoss, m.dailyLossLimit*m.initialCapital)
	}
	return nil
}

// RecordTradeClose updates the capital mirror and the daily loss
// accumulator with a realized result.
func (m *Manager) RecordTradeClose(pnl float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollDay(at)
	m.capital += pnl
	if pnl < 0 {
		m.dailyLoss += -pnl
	}
}

// rollDay resets the loss accumulator when the UTC date changes.
// Callers must hold m.mu.
func (m *Manager) rollDay(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if !day.Equal(m.lossDay) {
		m.lossDay = day
		m.dailyLoss = 0
	}
}
