package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `
	session_id, ts, event_type, symbol,
	price, ema_short, ema_long, atr,
	side, stop_old, stop_new, take_profit, pnl, detail
`

const insertEventQuery = `
	INSERT INTO events (` + eventColumns + `)
	VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8,
		$9, $10, $11, $12, $13, $14
	)
`

// Insert appends a single event.
func (s *EventStore) Insert(ctx context.Context, e *domain.Event) error {
	if e == nil || e.SessionID == "" || e.Type == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertEventQuery, eventArgs(e)...)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// InsertBulk appends multiple events atomically.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	for _, e := range events {
		if e == nil || e.SessionID == "" || e.Type == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if _, err := tx.Exec(ctx, insertEventQuery, eventArgs(e)...); err != nil {
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetBySession retrieves all events for a session, ordered by timestamp ASC.
func (s *EventStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE session_id = $1
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get events by session: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func eventArgs(e *domain.Event) []interface{} {
	return []interface{}{
		e.SessionID, e.Timestamp, e.Type, e.Symbol,
		e.Price, e.EMAShort, e.EMALong, e.ATR,
		string(e.Side), e.StopOld, e.StopNew, e.TakeProfit, e.PnL, e.Detail,
	}
}

// scanEvents scans multiple rows into a slice of Event.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var e domain.Event
		var side string

		err := rows.Scan(
			&e.SessionID, &e.Timestamp, &e.Type, &e.Symbol,
			&e.Price, &e.EMAShort, &e.EMALong, &e.ATR,
			&side, &e.StopOld, &e.StopNew, &e.TakeProfit, &e.PnL, &e.Detail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Side = domain.Side(side)
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
