// Package exchange provides Binance market data access: REST klines and
// funding rates, plus a reconnecting WebSocket trade stream.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crypto-alert-bot/internal/model"
)

// validIntervals are the kline intervals Binance accepts.
var validIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// Client fetches spot market data from the Binance public REST API.
// No API key required for klines.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a REST client. baseURL "" uses the production endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Candles fetches the most recent closed candles for a pair, oldest first.
// The newest kline Binance returns is still forming and is dropped, so the
// result holds closed bars only.
func (c *Client) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	if !validIntervals[timeframe] {
		return nil, fmt.Errorf("binance: unsupported interval %q", timeframe)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("binance: limit must be positive, got %d", limit)
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	// +1 to compensate for dropping the forming kline.
	q.Set("limit", strconv.Itoa(limit+1))

	var raw [][]json.RawMessage
	if err := c.getJSON(ctx, "/api/v3/klines?"+q.Encode(), &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("binance: no klines for %s %s", symbol, timeframe)
	}

	// Last entry is the forming kline unless its close time already passed.
	nowMs := time.Now().UnixMilli()
	candles := make([]model.Candle, 0, len(raw))
	for _, k := range raw {
		candle, closeTime, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("binance: %s %s: %w", symbol, timeframe, err)
		}
		if closeTime > nowMs {
			continue
		}
		candles = append(candles, candle)
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// parseKline decodes one kline entry:
// [openTime, open, high, low, close, volume, closeTime, ...]
// Prices and volume arrive as JSON strings.
func parseKline(k []json.RawMessage) (model.Candle, int64, error) {
	if len(k) < 7 {
		return model.Candle{}, 0, fmt.Errorf("kline has %d fields, want >= 7", len(k))
	}

	var openTime, closeTime int64
	if err := json.Unmarshal(k[0], &openTime); err != nil {
		return model.Candle{}, 0, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(k[6], &closeTime); err != nil {
		return model.Candle{}, 0, fmt.Errorf("close time: %w", err)
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(k[i], &s); err != nil {
			return model.Candle{}, 0, fmt.Errorf("field %d: %w", i, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Candle{}, 0, fmt.Errorf("field %d: %w", i, err)
		}
		fields[i-1] = v
	}

	return model.Candle{
		OpenTime: time.Unix(0, openTime*int64(time.Millisecond)).UTC(),
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, closeTime, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("binance: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("binance: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("binance: status %d: %s", resp.StatusCode, detail)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("binance: decode: %w", err)
	}
	return nil
}
