// Package model defines the market data types shared across the engine:
// candles, series, and their validation rules.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Candle represents one closed OHLCV bar for a single symbol/timeframe.
// Immutable once appended to a Series.
type Candle struct {
	OpenTime time.Time `json:"open_time"` // bar open time (UTC)
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Series is an ordered sequence of closed candles for one (symbol, timeframe)
// pair, ascending by open time with unique timestamps. It acts as a sliding
// window: Append drops the oldest bar once MaxBars is exceeded.
type Series struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"` // e.g. "1h", "4h", "1d"
	MaxBars   int      `json:"max_bars"`  // 0 = unbounded
	Candles   []Candle `json:"candles"`
}

// Key returns "symbol:timeframe", the identity of this series.
func (s *Series) Key() string {
	return s.Symbol + ":" + s.Timeframe
}

// Len returns the number of closed bars in the series.
func (s *Series) Len() int { return len(s.Candles) }

// Last returns the most recent closed candle. Panics on an empty series;
// callers must check Len first.
func (s *Series) Last() Candle { return s.Candles[len(s.Candles)-1] }

// Prev returns the candle before the most recent one.
func (s *Series) Prev() Candle { return s.Candles[len(s.Candles)-2] }

// Closes returns the close prices in series order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].Close
	}
	return out
}

// Volumes returns the volumes in series order.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i := range s.Candles {
		out[i] = s.Candles[i].Volume
	}
	return out
}

// Append adds a newly closed bar to the series, sliding the window if
// MaxBars is set. Out-of-order or duplicate timestamps are rejected.
func (s *Series) Append(c Candle) error {
	if n := len(s.Candles); n > 0 && !c.OpenTime.After(s.Candles[n-1].OpenTime) {
		return fmt.Errorf("series %s: candle at %s not after last bar %s",
			s.Key(), c.OpenTime.Format(time.RFC3339), s.Candles[n-1].OpenTime.Format(time.RFC3339))
	}
	s.Candles = append(s.Candles, c)
	if s.MaxBars > 0 && len(s.Candles) > s.MaxBars {
		// Drop oldest bars; copy so the backing array does not grow unbounded.
		keep := s.Candles[len(s.Candles)-s.MaxBars:]
		s.Candles = append(s.Candles[:0:0], keep...)
	}
	return nil
}

// Validate checks ordering and uniqueness across the whole series.
// The fetch layer owns gap handling; this only rejects disorder.
func (s *Series) Validate() error {
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i].OpenTime.After(s.Candles[i-1].OpenTime) {
			return fmt.Errorf("series %s: bar %d at %s is not strictly after bar %d",
				s.Key(), i, s.Candles[i].OpenTime.Format(time.RFC3339), i-1)
		}
	}
	return nil
}
