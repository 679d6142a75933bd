package recorder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/engine"
	"trend-paper-trader/internal/storage"
)

// Defaults for snapshot batching and store write deadlines.
const (
	DefaultBatchSize    = 50
	DefaultWriteTimeout = 5 * time.Second
)

// Recorder persists engine events: closed trades to the trade store,
// the decision log to the event store and the equity timeseries to the
// snapshot store. Snapshots are buffered and written in batches; call
// Flush before shutdown to drain the buffer.
//
// Store failures are logged and never propagate back into the engine.
type Recorder struct {
	trades    storage.TradeStore
	events    storage.EventStore
	snapshots storage.PortfolioSnapshotStore

	sessionID    string
	symbol       string
	batchSize    int
	writeTimeout time.Duration
	logger       *log.Logger
	now          func() time.Time

	mu  sync.Mutex
	buf []*domain.PortfolioSnapshot
}

// Options contains configuration for creating a Recorder. Any store
// left nil disables that output.
type Options struct {
	Trades    storage.TradeStore
	Events    storage.EventStore
	Snapshots storage.PortfolioSnapshotStore

	SessionID    string
	Symbol       string
	BatchSize    int
	WriteTimeout time.Duration
	Logger       *log.Logger
}

// New creates a Recorder for one trading session.
func New(opts Options) (*Recorder, error) {
	if opts.SessionID == "" {
		return nil, errors.New("recorder: session ID is required")
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Recorder{
		trades:       opts.Trades,
		events:       opts.Events,
		snapshots:    opts.Snapshots,
		sessionID:    opts.SessionID,
		symbol:       opts.Symbol,
		batchSize:    batchSize,
		writeTimeout: writeTimeout,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Compile-time interface check.
var _ engine.Sink = (*Recorder)(nil)

func (r *Recorder) OnSignalDetected(sig domain.Signal) {
	r.writeEvent(&domain.Event{
		SessionID:  r.sessionID,
		Timestamp:  sig.CandleTime,
		Type:       domain.EventSignalDetected,
		Symbol:     r.symbol,
		Price:      sig.EntryPrice,
		EMAShort:   sig.EMAShort,
		EMALong:    sig.EMALong,
		ATR:        sig.ATR,
		Side:       sig.Side,
		StopNew:    sig.StopLoss,
		TakeProfit: sig.TakeProfit,
	})
}

func (r *Recorder) OnPositionOpened(pos domain.Position) {
	r.writeEvent(&domain.Event{
		SessionID:  r.sessionID,
		Timestamp:  pos.EntryTime,
		Type:       domain.EventPositionOpened,
		Symbol:     r.symbol,
		Price:      pos.EntryPrice,
		Side:       pos.Side,
		StopNew:    pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		Detail:     fmt.Sprintf("trade_id=%s qty=%.8f %s", pos.TradeID, pos.Quantity, pos.StrategyVersion),
	})
}

func (r *Recorder) OnStopTrailed(oldStop, newStop float64) {
	r.writeEvent(&domain.Event{
		SessionID: r.sessionID,
		Timestamp: r.now(),
		Type:      domain.EventStopTrailed,
		Symbol:    r.symbol,
		StopOld:   oldStop,
		StopNew:   newStop,
	})
}

func (r *Recorder) OnPositionClosed(t domain.ClosedTrade) {
	if r.trades != nil {
		ctx, cancel := r.opCtx()
		err := r.trades.Insert(ctx, &t)
		cancel()
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Same candle replayed across restarts; the first write won.
			r.logger.Printf("Trade %s already recorded, skipping", t.TradeID)
		} else if err != nil {
			r.logger.Printf("Failed to persist trade %s: %v", t.TradeID, err)
		}
	}

	r.writeEvent(&domain.Event{
		SessionID: r.sessionID,
		Timestamp: t.ExitTime,
		Type:      domain.EventPositionClosed,
		Symbol:    r.symbol,
		Price:     t.ExitPrice,
		Side:      t.Side,
		StopOld:   t.FinalStopLoss,
		PnL:       t.RealizedPnL,
		Detail:    fmt.Sprintf("trade_id=%s reason=%s", t.TradeID, t.ExitReason),
	})
}

func (r *Recorder) OnPortfolioUpdate(snap domain.PortfolioSnapshot) {
	if r.snapshots == nil {
		return
	}

	r.mu.Lock()
	r.buf = append(r.buf, &snap)
	full := len(r.buf) >= r.batchSize
	r.mu.Unlock()

	if full {
		ctx, cancel := r.opCtx()
		defer cancel()
		if err := r.Flush(ctx); err != nil {
			r.logger.Printf("Snapshot flush failed: %v", err)
		}
	}
}

func (r *Recorder) OnCycleError(stage string, err error) {
	r.writeEvent(&domain.Event{
		SessionID: r.sessionID,
		Timestamp: r.now(),
		Type:      domain.EventCycleError,
		Symbol:    r.symbol,
		Detail:    fmt.Sprintf("stage=%s err=%v", stage, err),
	})
}

// Flush writes all buffered snapshots. On failure the batch is
// restored so a later flush can retry.
func (r *Recorder) Flush(ctx context.Context) error {
	if r.snapshots == nil {
		return nil
	}

	r.mu.Lock()
	batch := r.buf
	r.buf = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := r.snapshots.InsertBulk(ctx, batch); err != nil {
		r.mu.Lock()
		r.buf = append(batch, r.buf...)
		r.mu.Unlock()
		return fmt.Errorf("insert snapshots: %w", err)
	}
	return nil
}

// Buffered returns the number of snapshots waiting for the next flush.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

func (r *Recorder) writeEvent(e *domain.Event) {
	if r.events == nil {
		return
	}
	ctx, cancel := r.opCtx()
	defer cancel()
	if err := r.events.Insert(ctx, e); err != nil {
		r.logger.Printf("Failed to persist %s event: %v", e.Type, err)
	}
}

func (r *Recorder) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.writeTimeout)
}
