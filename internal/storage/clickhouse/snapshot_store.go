package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/storage"
)

// PortfolioSnapshotStore implements storage.PortfolioSnapshotStore using
// ClickHouse. Snapshots are a high-volume append-only timeseries, which
// is what the batch interface is for.
type PortfolioSnapshotStore struct {
	conn *Conn
}

// NewPortfolioSnapshotStore creates a new PortfolioSnapshotStore.
func NewPortfolioSnapshotStore(conn *Conn) *PortfolioSnapshotStore {
	return &PortfolioSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PortfolioSnapshotStore = (*PortfolioSnapshotStore)(nil)

// InsertBulk appends multiple snapshots in one native batch.
func (s *PortfolioSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.PortfolioSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	for _, p := range snapshots {
		if p == nil || p.SessionID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO portfolio_snapshots (
			session_id, ts, price, cash_balance, unrealized_pnl, equity, position_open
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range snapshots {
		var open uint8
		if p.PositionOpen {
			open = 1
		}
		err = batch.Append(
			p.SessionID, p.Timestamp, p.Price,
			p.CashBalance, p.UnrealizedPnL, p.Equity, open,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySession retrieves all snapshots for a session, ordered by timestamp ASC.
func (s *PortfolioSnapshotStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.PortfolioSnapshot, error) {
	query := `
		SELECT session_id, ts, price, cash_balance, unrealized_pnl, equity, position_open
		FROM portfolio_snapshots
		WHERE session_id = ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query by session: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByTimeRange retrieves snapshots for a session within [start, end] (inclusive).
func (s *PortfolioSnapshotStore) GetByTimeRange(ctx context.Context, sessionID string, start, end time.Time) ([]*domain.PortfolioSnapshot, error) {
	query := `
		SELECT session_id, ts, price, cash_balance, unrealized_pnl, equity, position_open
		FROM portfolio_snapshots
		WHERE session_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// scanSnapshots scans rows into a slice of PortfolioSnapshot.
func scanSnapshots(rows driver.Rows) ([]*domain.PortfolioSnapshot, error) {
	var result []*domain.PortfolioSnapshot

	for rows.Next() {
		var p domain.PortfolioSnapshot
		var open uint8

		err := rows.Scan(
			&p.SessionID, &p.Timestamp, &p.Price,
			&p.CashBalance, &p.UnrealizedPnL, &p.Equity, &open,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		p.Timestamp = p.Timestamp.UTC()
		p.PositionOpen = open == 1
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return result, nil
}
