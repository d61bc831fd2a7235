package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJournal_SaveAndRecentDecisions(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, verdict := range []decision.Verdict{decision.Hold, decision.Buy, decision.Sell} {
		d := decision.Decision{
			Symbol:     "BTCUSDT",
			Timeframe:  "1h",
			Verdict:    verdict,
			Score:      50 + i,
			Regime:     decision.RegimeModerate,
			HighVolume: i == 1,
			Reasons:    []string{"EMAs fully stacked bullish"},
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.SaveDecision(d, i == 1); err != nil {
			t.Fatalf("SaveDecision: %v", err)
		}
	}
	// A different pair must not leak into the query below.
	other := decision.Decision{Symbol: "ETHUSDT", Timeframe: "1h", Verdict: decision.Hold,
		Regime: decision.RegimeWeak, Reasons: []string{}, Timestamp: base}
	if err := s.SaveDecision(other, false); err != nil {
		t.Fatalf("SaveDecision: %v", err)
	}

	got, err := s.RecentDecisions("BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d decisions, want 2", len(got))
	}
	// Newest first.
	if got[0].Verdict != decision.Sell || got[1].Verdict != decision.Buy {
		t.Errorf("order = %s, %s; want SELL, BUY", got[0].Verdict, got[1].Verdict)
	}
	if !got[1].HighVolume || got[1].Score != 51 {
		t.Errorf("row = %+v, fields not round-tripped", got[1])
	}
	if len(got[1].Reasons) != 1 || got[1].Reasons[0] != "EMAs fully stacked bullish" {
		t.Errorf("reasons = %v", got[1].Reasons)
	}
	if !got[1].Timestamp.Equal(base.Add(time.Hour)) {
		t.Errorf("timestamp = %v, want %v", got[1].Timestamp, base.Add(time.Hour))
	}
}

func TestCandleCache_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	candles := make([]model.Candle, 5)
	for i := range candles {
		c := 100 + float64(i)
		candles[i] = model.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 10 * float64(i+1),
		}
	}
	if err := s.SaveCandles("BTCUSDT", "1h", candles); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}

	n, err := s.CandleCount("BTCUSDT", "1h")
	if err != nil || n != 5 {
		t.Fatalf("CandleCount = %d, %v; want 5", n, err)
	}

	// Fetch fewer than stored: the trailing window, oldest first.
	got, err := s.Candles(context.Background(), "BTCUSDT", "1h", 3)
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candles, want 3", len(got))
	}
	if !got[0].OpenTime.Equal(candles[2].OpenTime) || got[0].Close != 102 {
		t.Errorf("first = %+v, want the third stored candle", got[0])
	}
	if got[2].Close != 104 || got[2].Volume != 50 {
		t.Errorf("last = %+v, want the newest stored candle", got[2])
	}
}

func TestCandleCache_UpsertReplacesBar(t *testing.T) {
	s := openTestStore(t)
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	bar := model.Candle{OpenTime: ts, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}
	if err := s.SaveCandles("BTCUSDT", "1h", []model.Candle{bar}); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}

	bar.Close = 100.9
	if err := s.SaveCandles("BTCUSDT", "1h", []model.Candle{bar}); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}

	n, err := s.CandleCount("BTCUSDT", "1h")
	if err != nil || n != 1 {
		t.Fatalf("CandleCount = %d, %v; want 1 after upsert", n, err)
	}
	got, err := s.Candles(context.Background(), "BTCUSDT", "1h", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("Candles = %d rows, %v", len(got), err)
	}
	if got[0].Close != 100.9 {
		t.Errorf("close = %v, want the replaced value", got[0].Close)
	}
}
