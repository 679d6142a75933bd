package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// tickerServer upgrades, verifies the subscription and replies with one
// ticker message per price.
func tickerServer(t *testing.T, prices ...float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub wsSubscribe
		if err := json.Unmarshal(msg, &sub); err != nil {
			t.Errorf("unmarshal subscribe: %v", err)
			return
		}
		if sub.Type != "subscribe" || len(sub.Payload.Channels) != 1 {
			t.Errorf("unexpected subscribe message: %+v", sub)
			return
		}
		if ch := sub.Payload.Channels[0]; ch.Name != "v2/ticker" || len(ch.Symbols) != 1 || ch.Symbols[0] != "BTCUSD" {
			t.Errorf("unexpected channel: %+v", sub.Payload.Channels[0])
			return
		}

		for _, p := range prices {
			conn.WriteJSON(wsTicker{Type: "v2/ticker", Symbol: "BTCUSD", Close: apiFloat(p)})
		}

		// Keep the connection open.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestWSFeed_StreamsLivePrice(t *testing.T) {
	server := tickerServer(t, 64000, 64100.5)
	defer server.Close()

	feed, err := NewWSFeed(context.Background(), wsURL(server), nil, nil, "BTCUSD")
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}
	defer feed.Close()

	// Wait for the second tick to land in the cache.
	deadline := time.Now().Add(2 * time.Second)
	for {
		price, err := feed.FetchLivePrice(context.Background(), "BTCUSD")
		if err == nil && price == 64100.5 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("cache never reached 64100.5: price=%v err=%v", price, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWSFeed_UnknownSymbolFallsBackToREST(t *testing.T) {
	server := tickerServer(t, 64000)
	defer server.Close()

	rest := &StubFeed{Price: 123}
	feed, err := NewWSFeed(context.Background(), wsURL(server), rest, nil, "BTCUSD")
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}
	defer feed.Close()

	price, err := feed.FetchLivePrice(context.Background(), "ETHUSD")
	if err != nil {
		t.Fatalf("FetchLivePrice: %v", err)
	}
	if price != 123 {
		t.Errorf("price = %v, want REST fallback 123", price)
	}
	if rest.PriceCalls != 1 {
		t.Errorf("rest calls = %d, want 1", rest.PriceCalls)
	}
}

func TestWSFeed_StalePriceFallsBackToREST(t *testing.T) {
	server := tickerServer(t, 64000)
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.StaleAfter = time.Millisecond

	rest := &StubFeed{Price: 456}
	feed, err := NewWSFeed(context.Background(), wsURL(server), rest, &cfg, "BTCUSD")
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}
	defer feed.Close()

	time.Sleep(50 * time.Millisecond)

	price, err := feed.FetchLivePrice(context.Background(), "BTCUSD")
	if err != nil {
		t.Fatalf("FetchLivePrice: %v", err)
	}
	if price != 456 {
		t.Errorf("price = %v, want stale fallback 456", price)
	}
}

func TestWSFeed_CandlesDelegateToREST(t *testing.T) {
	server := tickerServer(t)
	defer server.Close()

	rest := &StubFeed{}
	feed, err := NewWSFeed(context.Background(), wsURL(server), rest, nil, "BTCUSD")
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}
	defer feed.Close()

	if _, err := feed.FetchCandles(context.Background(), "BTCUSD", "1h", 5); err != nil {
		t.Fatalf("FetchCandles: %v", err)
	}
	if rest.CandleCalls != 1 {
		t.Errorf("rest candle calls = %d, want 1", rest.CandleCalls)
	}
}

func TestWSFeed_CloseIsIdempotent(t *testing.T) {
	server := tickerServer(t)
	defer server.Close()

	feed, err := NewWSFeed(context.Background(), wsURL(server), nil, nil, "BTCUSD")
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}

	if err := feed.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := feed.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
