package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// kline renders one Binance kline entry. openTime in ms; prices and volume
// are JSON strings on the wire.
func kline(openTimeMs int64, open, high, low, close, volume float64, closeTimeMs int64) string {
	return fmt.Sprintf(`[%d,"%v","%v","%v","%v","%v",%d,"0",0,"0","0","0"]`,
		openTimeMs, open, high, low, close, volume, closeTimeMs)
}

func TestParseKline(t *testing.T) {
	var k []json.RawMessage
	if err := json.Unmarshal([]byte(kline(1717243200000, 68000, 68500.5, 67900, 68400, 123.45, 1717246799999)), &k); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	c, closeTime, err := parseKline(k)
	if err != nil {
		t.Fatalf("parseKline: %v", err)
	}
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if !c.OpenTime.Equal(want) {
		t.Errorf("open time = %v, want %v", c.OpenTime, want)
	}
	if c.Open != 68000 || c.High != 68500.5 || c.Low != 67900 || c.Close != 68400 || c.Volume != 123.45 {
		t.Errorf("candle = %+v", c)
	}
	if closeTime != 1717246799999 {
		t.Errorf("close time = %d", closeTime)
	}
}

func TestParseKline_Malformed(t *testing.T) {
	cases := map[string]string{
		"too few fields": `[1717243200000,"1","2"]`,
		"numeric price":  `[1717243200000,1,"2","3","4","5",1717246799999]`,
		"bad price text": `[1717243200000,"abc","2","3","4","5",1717246799999]`,
	}
	for name, raw := range cases {
		var k []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &k); err != nil {
			t.Fatalf("%s: unmarshal fixture: %v", name, err)
		}
		if _, _, err := parseKline(k); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestCandles_DropsFormingKline(t *testing.T) {
	now := time.Now()
	hour := time.Hour.Milliseconds()
	// Three closed bars plus one still forming (close time in the future).
	base := now.Add(-4 * time.Hour).Truncate(time.Hour).UnixMilli()
	body := "[" + strings.Join([]string{
		kline(base, 100, 101, 99, 100.5, 10, base+hour-1),
		kline(base+hour, 100.5, 102, 100, 101, 11, base+2*hour-1),
		kline(base+2*hour, 101, 103, 101, 102, 12, base+3*hour-1),
		kline(base+3*hour, 102, 104, 102, 103, 13, now.Add(30*time.Minute).UnixMilli()),
	}, ",") + "]"

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	candles, err := c.Candles(context.Background(), "BTCUSDT", "1h", 3)
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}

	if len(candles) != 3 {
		t.Fatalf("got %d candles, want 3 (forming kline dropped)", len(candles))
	}
	if candles[2].Close != 102 {
		t.Errorf("last close = %v, want 102 (closed bar, not the forming one)", candles[2].Close)
	}
	if !strings.Contains(gotQuery, "limit=4") {
		t.Errorf("query %q should over-fetch by one", gotQuery)
	}
	if !strings.Contains(gotQuery, "symbol=BTCUSDT") || !strings.Contains(gotQuery, "interval=1h") {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestCandles_RejectsBadArguments(t *testing.T) {
	c := NewClient("http://unused.invalid")
	if _, err := c.Candles(context.Background(), "BTCUSDT", "7m", 10); err == nil {
		t.Error("unsupported interval accepted")
	}
	if _, err := c.Candles(context.Background(), "BTCUSDT", "1h", 0); err == nil {
		t.Error("non-positive limit accepted")
	}
}

func TestCandles_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Candles(context.Background(), "NOPEUSDT", "1h", 10)
	if err == nil {
		t.Fatal("expected an error on HTTP 400")
	}
	if !strings.Contains(err.Error(), "Invalid symbol") {
		t.Errorf("error %q does not carry the API response", err)
	}
}
