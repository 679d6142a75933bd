package storage

import (
	"context"
	"time"

	"trend-paper-trader/internal/domain"
)

// TradeStore provides access to closed trade storage.
type TradeStore interface {
	// Insert adds a closed trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.ClosedTrade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.ClosedTrade, error)

	// GetBySession retrieves all trades for a session, ordered by exit time ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.ClosedTrade, error)

	// GetAll retrieves all trades, ordered by exit time ASC.
	GetAll(ctx context.Context) ([]*domain.ClosedTrade, error)
}

// EventStore provides access to the decision log.
type EventStore interface {
	// Insert appends a single event.
	Insert(ctx context.Context, e *domain.Event) error

	// InsertBulk appends multiple events atomically.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetBySession retrieves all events for a session, ordered by timestamp ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.Event, error)
}

// PortfolioSnapshotStore provides access to the per-tick equity timeseries.
type PortfolioSnapshotStore interface {
	// InsertBulk appends multiple snapshots.
	InsertBulk(ctx context.Context, snapshots []*domain.PortfolioSnapshot) error

	// GetBySession retrieves all snapshots for a session, ordered by timestamp ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.PortfolioSnapshot, error)

	// GetByTimeRange retrieves snapshots for a session within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, sessionID string, start, end time.Time) ([]*domain.PortfolioSnapshot, error)
}
