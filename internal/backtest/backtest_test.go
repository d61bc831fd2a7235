package backtest

import (
	"strings"
	"testing"
	"time"

	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/engine"
	"crypto-alert-bot/internal/indicator"
	"crypto-alert-bot/internal/model"
)

func compactConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Indicator = indicator.Config{
		EMAPeriods:     []int{3, 5},
		RSIPeriod:      3,
		ADXPeriod:      3,
		ATRPeriod:      3,
		MACDFast:       3,
		MACDSlow:       6,
		MACDSignal:     3,
		VolumeMAPeriod: 3,
		PivotWindow:    9,
		PivotWidth:     2,
	}
	return cfg
}

func candlesFrom(closes []float64) []model.Candle {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = model.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     open,
			High:     c + 0.2,
			Low:      c - 0.2,
			Close:    c,
			Volume:   100,
		}
	}
	return out
}

func TestRun_TooFewCandles(t *testing.T) {
	cfg := compactConfig()
	_, err := Run("BTCUSDT", "1h", candlesFrom([]float64{100, 101, 102}), cfg, 10000)
	if err == nil {
		t.Fatal("expected an error below the warmup window")
	}
	if !strings.Contains(err.Error(), "need at least") {
		t.Errorf("error %q does not name the warmup requirement", err)
	}
}

func TestRun_ChoppyMarketStaysFlat(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 101
		}
	}

	res, err := Run("BTCUSDT", "1h", candlesFrom(closes), compactConfig(), 10000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	warmup := compactConfig().Indicator.MinBars()
	if want := len(closes) - warmup + 1; res.BarsReplayed != want {
		t.Errorf("BarsReplayed = %d, want %d", res.BarsReplayed, want)
	}
	// A trendless market never produces a directional verdict, so the
	// balance is untouched and every bar is a HOLD.
	if res.Verdicts[decision.Hold] != res.BarsReplayed {
		t.Errorf("verdicts = %v, want all HOLD", res.Verdicts)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %d in a flat market, want 0", len(res.Trades))
	}
	if res.FinalBalance != res.StartBalance {
		t.Errorf("balance moved without trades: %v -> %v", res.StartBalance, res.FinalBalance)
	}
	if res.MaxDrawdown != 0 {
		t.Errorf("drawdown = %v without trades", res.MaxDrawdown)
	}
}

func TestRun_DefaultsStartBalance(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	res, err := Run("BTCUSDT", "1h", candlesFrom(closes), compactConfig(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StartBalance != 10000 {
		t.Errorf("StartBalance = %v, want the 10000 default", res.StartBalance)
	}
}

func TestCloseTrade_Accounting(t *testing.T) {
	entry := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	exit := entry.Add(time.Hour)

	var res Result

	// Winning trade: 100 -> 110 grows the balance 10%.
	balance, peak := closeTrade(&res, 10000, 10000, 100, 110, entry, exit)
	if balance != 11000 || peak != 11000 {
		t.Errorf("after win: balance %v peak %v, want 11000/11000", balance, peak)
	}
	if res.MaxDrawdown != 0 {
		t.Errorf("drawdown = %v after a new equity peak", res.MaxDrawdown)
	}

	// Losing trade: 110 -> 99 is -10%, drawdown measured from the peak.
	balance, peak = closeTrade(&res, balance, peak, 110, 99, entry, exit)
	if balance != 9900 || peak != 11000 {
		t.Errorf("after loss: balance %v peak %v, want 9900/11000", balance, peak)
	}
	if want := 0.1; res.MaxDrawdown != want {
		t.Errorf("MaxDrawdown = %v, want %v", res.MaxDrawdown, want)
	}

	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(res.Trades))
	}
	if res.Trades[0].PnLPct != 10 || res.Trades[1].PnLPct != -10 {
		t.Errorf("PnL = %v/%v, want 10/-10", res.Trades[0].PnLPct, res.Trades[1].PnLPct)
	}
	if got := winCount(res.Trades); got != 1 {
		t.Errorf("winCount = %d, want 1", got)
	}
}
