// Package market fetches daily price series for ranking computations.
// It wraps a public chart HTTP API with retries and a short-lived
// result cache keyed by (symbol, resolved range), so a ranking batch
// does not hit the upstream twice for the same series.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// ErrNoData is returned when the upstream has no usable series for a
// symbol. Callers treat it as a per-symbol miss, never a batch failure.
var ErrNoData = errors.New("no price data for symbol")

// Series is a daily price history. Missing data points are NaN; use
// the At helpers, which apply the closes-then-opens fallback.
type Series struct {
	Timestamps []time.Time
	Opens      []float64
	Closes     []float64
	// LastPrice is the most recent market price reported by the
	// upstream, which may be newer than the last daily bar.
	LastPrice float64
}

// Len returns the number of data points.
func (s *Series) Len() int { return len(s.Timestamps) }

// CloseAt returns the close at index i, falling back to the open when
// the close is missing. NaN means both were missing.
func (s *Series) CloseAt(i int) float64 {
	if v := s.Closes[i]; !math.IsNaN(v) {
		return v
	}
	return s.Opens[i]
}

// OpenAt returns the open at index i, falling back to the close.
func (s *Series) OpenAt(i int) float64 {
	if v := s.Opens[i]; !math.IsNaN(v) {
		return v
	}
	return s.Closes[i]
}

// Latest returns the freshest usable price: LastPrice when present,
// otherwise the last non-NaN close/open walking backward.
func (s *Series) Latest() float64 {
	if !math.IsNaN(s.LastPrice) && s.LastPrice != 0 {
		return s.LastPrice
	}
	for i := s.Len() - 1; i >= 0; i-- {
		if v := s.CloseAt(i); !math.IsNaN(v) {
			return v
		}
	}
	return math.NaN()
}

// Client fetches series over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cacheTTL   time.Duration
	log        *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	series  *Series
	fetched time.Time
}

// NewClient creates a Client with a sane HTTP timeout and cache TTL.
// baseURL overrides the upstream endpoint; pass "" for the default.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		cacheTTL:   5 * time.Minute,
		log:        logger.With("component", "market"),
		cache:      make(map[string]cacheEntry),
	}
}

// Series returns daily bars covering since..now for symbol, served from
// cache when a recent fetch for the same (symbol, range) exists.
func (c *Client) Series(ctx context.Context, symbol string, since time.Time) (*Series, error) {
	rng := rangeSince(since)
	key := symbol + "|" + rng

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && time.Since(entry.fetched) < c.cacheTTL {
		c.mu.Unlock()
		return entry.series, nil
	}
	c.mu.Unlock()

	series, err := c.fetch(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{series: series, fetched: time.Now()}
	c.mu.Unlock()
	return series, nil
}

// rangeSince maps an anchor time to the smallest chart range covering
// it. Ranges are the upstream's fixed vocabulary.
func rangeSince(since time.Time) string {
	age := time.Since(since)
	switch {
	case age <= 5*24*time.Hour:
		return "5d"
	case age <= 28*24*time.Hour:
		return "1mo"
	case age <= 88*24*time.Hour:
		return "3mo"
	case age <= 178*24*time.Hour:
		return "6mo"
	case age <= 360*24*time.Hour:
		return "1y"
	case age <= 720*24*time.Hour:
		return "2y"
	default:
		return "5y"
	}
}

func (c *Client) fetch(ctx context.Context, symbol, rng string) (*Series, error) {
	u := c.baseURL + url.PathEscape(symbol) + "?range=" + rng + "&interval=1d"

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", "tickerbot/1.0")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrNoData, symbol))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("chart API returned status %d for %s", resp.StatusCode, symbol)
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			return err
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("retrying price fetch", "symbol", symbol, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch series for %s: %w", symbol, err)
	}

	return parseChart(body, symbol)
}

// chartResponse mirrors the upstream payload. Prices use *float64
// because the upstream emits explicit nulls for missing bars.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func parseChart(body []byte, symbol string) (*Series, error) {
	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to parse chart response for %s: %w", symbol, err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoData, symbol, cr.Chart.Error.Code)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	result := cr.Chart.Result[0]
	n := len(result.Timestamp)
	series := &Series{
		Timestamps: make([]time.Time, n),
		Opens:      make([]float64, n),
		Closes:     make([]float64, n),
		LastPrice:  math.NaN(),
	}
	if result.Meta.RegularMarketPrice != nil {
		series.LastPrice = *result.Meta.RegularMarketPrice
	}

	var opens, closes []*float64
	if len(result.Indicators.Quote) > 0 {
		opens = result.Indicators.Quote[0].Open
		closes = result.Indicators.Quote[0].Close
	}
	for i := 0; i < n; i++ {
		series.Timestamps[i] = time.Unix(result.Timestamp[i], 0).UTC()
		series.Opens[i] = deref(opens, i)
		series.Closes[i] = deref(closes, i)
	}
	return series, nil
}

func deref(vals []*float64, i int) float64 {
	if i < len(vals) && vals[i] != nil {
		return *vals[i]
	}
	return math.NaN()
}
