package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// FundingClient fetches perpetual funding rates from the Binance futures
// API and condenses them into a one-line sentiment note. Advisory only:
// the note decorates alerts and never feeds the decision pipeline.
type FundingClient struct {
	baseURL string
	window  int // number of recent funding intervals to average
	client  *http.Client
}

// NewFundingClient creates a funding-rate client. baseURL "" uses the
// production futures endpoint; window <= 1 defaults to 30 (about 10 days
// of 8h funding intervals).
func NewFundingClient(baseURL string, window int) *FundingClient {
	if baseURL == "" {
		baseURL = "https://fapi.binance.com"
	}
	if window <= 1 {
		window = 30
	}
	return &FundingClient{
		baseURL: baseURL,
		window:  window,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type fundingEntry struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
	FundingTime int64  `json:"fundingTime"`
}

// Rates returns the most recent funding rates for a symbol, oldest first.
func (f *FundingClient) Rates(ctx context.Context, symbol string) ([]float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(f.window))

	req, err := http.NewRequestWithContext(ctx, "GET", f.baseURL+"/fapi/v1/fundingRate?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("funding: create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("funding: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("funding: status %d: %s", resp.StatusCode, detail)
	}

	var entries []fundingEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("funding: decode: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("funding: no rates for %s", symbol)
	}

	rates := make([]float64, 0, len(entries))
	for _, e := range entries {
		r, err := strconv.ParseFloat(e.FundingRate, 64)
		if err != nil {
			return nil, fmt.Errorf("funding: rate %q: %w", e.FundingRate, err)
		}
		rates = append(rates, r)
	}
	return rates, nil
}

// Sentiment classifies the latest funding rate against the recent mean and
// standard deviation. A rate more than one deviation above the mean means
// longs are paying up (crowded long, bearish contrarian note); more than
// one below means shorts are paying (crowded short, bullish note).
func (f *FundingClient) Sentiment(ctx context.Context, symbol string) (string, error) {
	rates, err := f.Rates(ctx, symbol)
	if err != nil {
		return "", err
	}

	latest := rates[len(rates)-1]
	mean, std := meanStd(rates)

	switch {
	case std > 0 && latest > mean+std:
		return fmt.Sprintf("funding %.4f%% well above average, longs crowded", latest*100), nil
	case std > 0 && latest < mean-std:
		return fmt.Sprintf("funding %.4f%% well below average, shorts crowded", latest*100), nil
	case latest > 0:
		return fmt.Sprintf("funding %.4f%% positive, mild long bias", latest*100), nil
	case latest < 0:
		return fmt.Sprintf("funding %.4f%% negative, mild short bias", latest*100), nil
	default:
		return "funding neutral", nil
	}
}

func meanStd(xs []float64) (mean, std float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	std = math.Sqrt(std / float64(len(xs)))
	return mean, std
}
