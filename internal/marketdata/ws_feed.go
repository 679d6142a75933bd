package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"trend-paper-trader/internal/domain"
)

// WSConfig configures WSFeed behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// StaleAfter bounds how old a cached tick may be before
	// FetchLivePrice falls back to REST.
	StaleAfter time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		StaleAfter:        15 * time.Second,
	}
}

// WSFeed streams ticker prices over a websocket and keeps a last-price
// cache per symbol. Candle history and stale-price fallback go through
// the wrapped REST feed.
type WSFeed struct {
	endpoint string
	config   WSConfig
	rest     Feed

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// last tick per symbol
	prices   map[string]tickEntry
	pricesMu sync.RWMutex

	// symbols subscribed, replayed after reconnect
	symbols   map[string]struct{}
	symbolsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

type tickEntry struct {
	price float64
	at    time.Time
}

// NewWSFeed connects to the websocket endpoint and subscribes to the
// ticker channel for the given symbols. rest handles candle fetches and
// serves as fallback when the stream goes stale.
func NewWSFeed(ctx context.Context, endpoint string, rest Feed, config *WSConfig, symbols ...string) (*WSFeed, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	f := &WSFeed{
		endpoint: endpoint,
		config:   cfg,
		rest:     rest,
		prices:   make(map[string]tickEntry),
		symbols:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	for _, s := range symbols {
		f.symbols[s] = struct{}{}
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}
	if err := f.subscribeAll(); err != nil {
		f.Close()
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

var _ Feed = (*WSFeed)(nil)

func (f *WSFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

type wsSubscribe struct {
	Type    string             `json:"type"`
	Payload wsSubscribePayload `json:"payload"`
}

type wsSubscribePayload struct {
	Channels []wsChannel `json:"channels"`
}

type wsChannel struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

type wsTicker struct {
	Type   string   `json:"type"`
	Symbol string   `json:"symbol"`
	Close  apiFloat `json:"close"`
}

// subscribeAll sends one ticker subscription for every known symbol.
func (f *WSFeed) subscribeAll() error {
	f.symbolsMu.Lock()
	symbols := make([]string, 0, len(f.symbols))
	for s := range f.symbols {
		symbols = append(symbols, s)
	}
	f.symbolsMu.Unlock()

	if len(symbols) == 0 {
		return nil
	}

	req := wsSubscribe{
		Type: "subscribe",
		Payload: wsSubscribePayload{
			Channels: []wsChannel{{Name: "v2/ticker", Symbols: symbols}},
		},
	}

	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	if err := f.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// FetchCandles delegates to the REST feed.
func (f *WSFeed) FetchCandles(ctx context.Context, symbol, interval string, count int) ([]domain.Candle, error) {
	if f.rest == nil {
		return nil, dataErrf("candles", "no REST feed configured")
	}
	return f.rest.FetchCandles(ctx, symbol, interval, count)
}

// FetchLivePrice serves from the stream cache when fresh, otherwise
// falls back to REST.
func (f *WSFeed) FetchLivePrice(ctx context.Context, symbol string) (float64, error) {
	f.pricesMu.RLock()
	entry, ok := f.prices[symbol]
	f.pricesMu.RUnlock()

	if ok && time.Since(entry.at) <= f.config.StaleAfter {
		return entry.price, nil
	}
	if f.rest != nil {
		return f.rest.FetchLivePrice(ctx, symbol)
	}
	if ok {
		return 0, dataErrf("ticker", "stale stream price for %s (age %s)", symbol, time.Since(entry.at).Round(time.Second))
	}
	return 0, dataErrf("ticker", "no stream price for %s", symbol)
}

// Close closes the websocket connection.
func (f *WSFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	return nil
}

// readLoop reads ticker messages and updates the price cache.
func (f *WSFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (f *WSFeed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		// Reconnect failed, retried on next read error.
		return
	}

	f.subscribeAll()
}

func (f *WSFeed) handleMessage(message []byte) {
	var tick wsTicker
	if err := json.Unmarshal(message, &tick); err != nil {
		return
	}
	if tick.Type != "v2/ticker" || tick.Symbol == "" || tick.Close <= 0 {
		return
	}

	f.pricesMu.Lock()
	f.prices[tick.Symbol] = tickEntry{price: float64(tick.Close), at: time.Now()}
	f.pricesMu.Unlock()
}

// pingLoop sends periodic ping frames to keep connection alive.
func (f *WSFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader handles reconnect.
				}
			}
			f.connMu.Unlock()
		}
	}
}
