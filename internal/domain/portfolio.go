package domain

import "time"

// Portfolio tracks paper-trading equity. CashBalance moves only at
// trade close; UnrealizedPnL is derived and recomputed on every
// live-price tick while a position is open.
type Portfolio struct {
	InitialCapital   float64
	CashBalance      float64
	RealizedPnLTotal float64
	UnrealizedPnL    float64
}

// NewPortfolio starts a portfolio at the given capital.
func NewPortfolio(initialCapital float64) Portfolio {
	return Portfolio{
		InitialCapital: initialCapital,
		CashBalance:    initialCapital,
	}
}

// Equity is cash plus marked-to-market open position value.
func (p Portfolio) Equity() float64 {
	return p.CashBalance + p.UnrealizedPnL
}

// PortfolioSnapshot is one point of the per-tick equity timeseries
// written to the snapshot store.
type PortfolioSnapshot struct {
	SessionID     string
	Timestamp     time.Time
	Price         float64
	CashBalance   float64
	UnrealizedPnL float64
	Equity        float64
	PositionOpen  bool
}
