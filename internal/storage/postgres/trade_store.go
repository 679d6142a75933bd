package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, session_id, symbol, side,
	entry_price, entry_time, quantity,
	initial_stop_loss, final_stop_loss, take_profit, strategy_version,
	exit_price, exit_time, exit_reason, realized_pnl
`

// Insert adds a closed trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.ClosedTrade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO closed_trades (` + tradeColumns + `)
		VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.SessionID, t.Symbol, string(t.Side),
		t.EntryPrice, t.EntryTime, t.Quantity,
		t.InitialStopLoss, t.FinalStopLoss, t.TakeProfit, string(t.StrategyVersion),
		t.ExitPrice, t.ExitTime, t.ExitReason, t.RealizedPnL,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert closed trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.ClosedTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM closed_trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get closed trade by id: %w", err)
	}
	return t, nil
}

// GetBySession retrieves all trades for a session, ordered by exit time ASC.
func (s *TradeStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.ClosedTrade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM closed_trades
		WHERE session_id = $1
		ORDER BY exit_time ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get closed trades by session: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetAll retrieves all trades, ordered by exit time ASC.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.ClosedTrade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM closed_trades
		ORDER BY exit_time ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all closed trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrade scans a single row into a ClosedTrade.
func scanTrade(row pgx.Row) (*domain.ClosedTrade, error) {
	var t domain.ClosedTrade
	var side, version string

	err := row.Scan(
		&t.TradeID, &t.SessionID, &t.Symbol, &side,
		&t.EntryPrice, &t.EntryTime, &t.Quantity,
		&t.InitialStopLoss, &t.FinalStopLoss, &t.TakeProfit, &version,
		&t.ExitPrice, &t.ExitTime, &t.ExitReason, &t.RealizedPnL,
	)
	if err != nil {
		return nil, err
	}

	t.Side = domain.Side(side)
	t.StrategyVersion = domain.StrategyVersion(version)
	t.EntryTime = t.EntryTime.UTC()
	t.ExitTime = t.ExitTime.UTC()
	return &t, nil
}

// scanTrades scans multiple rows into a slice of ClosedTrade.
func scanTrades(rows pgx.Rows) ([]*domain.ClosedTrade, error) {
	var trades []*domain.ClosedTrade

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closed trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed trade rows: %w", err)
	}

	return trades, nil
}
