package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trend-paper-trader/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPFeed implements Feed against a Delta-style exchange REST API.
type HTTPFeed struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	now         func() time.Time
}

// FeedOption configures HTTPFeed.
type FeedOption func(*HTTPFeed)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) FeedOption {
	return func(f *HTTPFeed) {
		f.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) FeedOption {
	return func(f *HTTPFeed) {
		f.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) FeedOption {
	return func(f *HTTPFeed) {
		f.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) FeedOption {
	return func(f *HTTPFeed) {
		f.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) FeedOption {
	return func(f *HTTPFeed) {
		f.client = client
	}
}

// WithClock overrides the wall clock used for candle windows.
func WithClock(now func() time.Time) FeedOption {
	return func(f *HTTPFeed) {
		f.now = now
	}
}

// NewHTTPFeed creates a REST market data feed.
func NewHTTPFeed(baseURL string, opts ...FeedOption) *HTTPFeed {
	f := &HTTPFeed{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ Feed = (*HTTPFeed)(nil)

// apiFloat tolerates numbers the API serialises as strings.
type apiFloat float64

func (f *apiFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	*f = apiFloat(v)
	return nil
}

type candleResponse struct {
	Success bool        `json:"success"`
	Result  []apiCandle `json:"result"`
}

type apiCandle struct {
	Time   int64    `json:"time"`
	Open   apiFloat `json:"open"`
	High   apiFloat `json:"high"`
	Low    apiFloat `json:"low"`
	Close  apiFloat `json:"close"`
	Volume apiFloat `json:"volume"`
}

type tickerResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Symbol string   `json:"symbol"`
		Close  apiFloat `json:"close"`
	} `json:"result"`
}

// FetchCandles requests the last count candles ending now.
func (f *HTTPFeed) FetchCandles(ctx context.Context, symbol, interval string, count int) ([]domain.Candle, error) {
	if count <= 0 {
		return nil, dataErrf("candles", "non-positive count %d", count)
	}
	step, err := intervalDuration(interval)
	if err != nil {
		return nil, &DataError{Op: "candles", Err: err}
	}

	end := f.now().Unix()
	start := end - int64(count)*int64(step.Seconds())

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", interval)
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("end", strconv.FormatInt(end, 10))

	body, err := f.get(ctx, "/v2/history/candles?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp candleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, dataErrf("candles", "unmarshal response: %v", err)
	}
	if len(resp.Result) == 0 {
		return nil, dataErrf("candles", "empty result for %s", symbol)
	}

	// The API is not trusted to return ordered or unique bars.
	series := domain.NewSeries(count)
	for _, c := range resp.Result {
		series.Append(domain.Candle{
			OpenTime: time.Unix(c.Time, 0).UTC(),
			Open:     float64(c.Open),
			High:     float64(c.High),
			Low:      float64(c.Low),
			Close:    float64(c.Close),
			Volume:   float64(c.Volume),
		})
	}
	return series.Candles(), nil
}

// FetchLivePrice returns the last traded price from the ticker.
func (f *HTTPFeed) FetchLivePrice(ctx context.Context, symbol string) (float64, error) {
	body, err := f.get(ctx, "/v2/tickers/"+url.PathEscape(symbol))
	if err != nil {
		return 0, err
	}

	var resp tickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, dataErrf("ticker", "unmarshal response: %v", err)
	}
	price := float64(resp.Result.Close)
	if price <= 0 {
		return 0, dataErrf("ticker", "no price for %s", symbol)
	}
	return price, nil
}

// get performs a GET with retries and exponential backoff.
func (f *HTTPFeed) get(ctx context.Context, path string) ([]byte, error) {
	delay := f.retryDelay
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &DataError{Op: "request", Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * f.backoffMult)
			if delay > f.maxDelay {
				delay = f.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
		if err != nil {
			return nil, &DataError{Op: "request", Err: err}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		return body, nil
	}

	return nil, &DataError{Op: "request", Err: fmt.Errorf("max retries exceeded: %w", lastErr)}
}
