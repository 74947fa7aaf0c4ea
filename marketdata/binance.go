package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/evdnx/gomr/config"
	"github.com/evdnx/gomr/logger"
	"github.com/evdnx/gomr/types"
)

const (
	klinesPath   = "/api/v3/klines"
	maxPageLimit = 1000
	defaultLimit = 500
)

// Intervals accepted by the kline endpoint.
var Intervals = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M"}

// APIError is a non-200 answer from the exchange.
type APIError struct {
	StatusCode int
	Code       int    // exchange error code, if the body carried one
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("binance: status %d code %d: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("binance: status %d: %s", e.StatusCode, e.Message)
}

// Binance downloads spot klines over the public REST API.
type Binance struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     logger.Logger
}

type BinanceOption func(*Binance)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) BinanceOption {
	return func(b *Binance) { b.client = c }
}

// NewBinance builds a client from the process settings. Credentials are
// read from env only; nothing is looked up later.
func NewBinance(env config.Env, log logger.Logger, opts ...BinanceOption) *Binance {
	if log == nil {
		log = logger.NewNop()
	}
	base := env.BaseURL
	if base == "" {
		base = config.DefaultBaseURL
	}
	rps := env.RateLimit
	if rps <= 0 {
		rps = 10
	}
	b := &Binance{
		baseURL: base,
		apiKey:  env.APIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Bars fetches the most recent Limit bars, or pages forward through
// [Start, End] a thousand bars at a time when Start is set.
func (b *Binance) Bars(ctx context.Context, q Query) ([]types.Bar, error) {
	if q.Symbol == "" {
		return nil, errors.New("binance: symbol required")
	}
	if !lo.Contains(Intervals, q.Interval) {
		return nil, fmt.Errorf("binance: unsupported interval %q", q.Interval)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && !q.End.After(q.Start) {
		return nil, errors.New("binance: end must be after start")
	}

	var out []types.Bar
	var err error
	if q.Start.IsZero() {
		out, err = b.recent(ctx, q)
	} else {
		out, err = b.pageForward(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("binance %s %s: %w", q.Symbol, q.Interval, ErrDataUnavailable)
	}
	b.log.Info("klines_downloaded",
		logger.String("symbol", q.Symbol),
		logger.String("interval", q.Interval),
		logger.Int("bars", len(out)),
	)
	return out, nil
}

func (b *Binance) recent(ctx context.Context, q Query) ([]types.Bar, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		b.log.Warn("kline_limit_capped", logger.Int("requested", limit), logger.Int("limit", maxPageLimit))
		limit = maxPageLimit
	}
	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("interval", q.Interval)
	params.Set("limit", strconv.Itoa(limit))
	if !q.End.IsZero() {
		params.Set("endTime", strconv.FormatInt(q.End.UnixMilli(), 10))
	}
	return b.fetch(ctx, params)
}

func (b *Binance) pageForward(ctx context.Context, q Query) ([]types.Bar, error) {
	var out []types.Bar
	cursor := q.Start
	for {
		params := url.Values{}
		params.Set("symbol", q.Symbol)
		params.Set("interval", q.Interval)
		params.Set("startTime", strconv.FormatInt(cursor.UnixMilli(), 10))
		if !q.End.IsZero() {
			params.Set("endTime", strconv.FormatInt(q.End.UnixMilli(), 10))
		}
		params.Set("limit", strconv.Itoa(maxPageLimit))

		page, err := b.fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if q.Limit > 0 && len(out) >= q.Limit {
			return out[:q.Limit], nil
		}
		if len(page) < maxPageLimit {
			return out, nil
		}
		next := page[len(page)-1].Time.Add(time.Millisecond)
		if !next.After(cursor) {
			return out, nil
		}
		cursor = next
	}
}

type apiErrorBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (b *Binance) fetch(ctx context.Context, params url.Values) ([]types.Bar, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+klinesPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if b.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance: GET klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
		var body apiErrorBody
		if json.Unmarshal(raw, &body) == nil && body.Msg != "" {
			apiErr.Code, apiErr.Message = body.Code, body.Msg
		}
		b.log.Warn("kline_request_failed",
			logger.Int("status", resp.StatusCode),
			logger.String("params", params.Encode()),
			logger.Err(apiErr),
		)
		return nil, apiErr
	}

	var rows [][]json.Number
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("binance: decode klines: %w", err)
	}
	bars := make([]types.Bar, 0, len(rows))
	for i, r := range rows {
		bar, err := klineToBar(r)
		if err != nil {
			return nil, fmt.Errorf("binance: kline %d: %w", i, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// klineToBar converts [openTime, open, high, low, close, volume, ...].
func klineToBar(r []json.Number) (types.Bar, error) {
	if len(r) < 6 {
		return types.Bar{}, fmt.Errorf("expected at least 6 fields, got %d", len(r))
	}
	ms, err := r[0].Int64()
	if err != nil {
		return types.Bar{}, fmt.Errorf("open time: %w", err)
	}
	var vals [5]float64
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(r[i+1].String(), 64); err != nil {
			return types.Bar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}
	return types.Bar{
		Time:   time.UnixMilli(ms).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
