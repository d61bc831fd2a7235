// Package decision aggregates an active signal set plus trend inputs into a
// final BUY/SELL/HOLD verdict with a 0-100 confidence score and a ranked
// list of contributing reasons.
package decision

import (
	"encoding/json"
	"fmt"
	"time"

	"crypto-alert-bot/internal/indicator"
)

// Verdict is the categorical trading recommendation.
type Verdict string

const (
	Buy  Verdict = "BUY"
	Sell Verdict = "SELL"
	Hold Verdict = "HOLD"
)

// Regime classifies directional conviction from ADX and EMA alignment.
type Regime string

const (
	RegimeStrong   Regime = "STRONG"
	RegimeModerate Regime = "MODERATE"
	RegimeWeak     Regime = "WEAK"
)

// Decision is the output of one evaluation cycle for one (symbol, timeframe).
type Decision struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Verdict    Verdict   `json:"verdict"`
	Score      int       `json:"score"` // 0-100
	Regime     Regime    `json:"regime"`
	HighVolume bool      `json:"high_volume"`
	Reasons    []string  `json:"reasons"` // most specific first
	Timestamp  time.Time `json:"timestamp"`
}

// JSON returns the JSON-encoded decision (ignoring errors for hot-path usage).
func (d *Decision) JSON() []byte {
	b, _ := json.Marshal(d)
	return b
}

// Config holds the aggregation thresholds. All are hot-swappable between
// cycles without invalidating tracker state.
type Config struct {
	ADXStrong        float64 // e.g. 25
	ADXWeak          float64 // e.g. 20
	VolumeMultiplier float64 // high volume when volume > multiplier * volume MA
	MinAligned       int     // minimum aligned signals for a non-HOLD verdict, >= 2
}

// DefaultConfig returns the thresholds the live bot runs with.
func DefaultConfig() Config {
	return Config{
		ADXStrong:        25,
		ADXWeak:          20,
		VolumeMultiplier: 2.0,
		MinAligned:       2,
	}
}

// Validate checks the aggregation thresholds. MinAligned below 2 would let a
// single signal flip the verdict, so it is rejected.
func (c Config) Validate() error {
	if c.ADXWeak <= 0 || c.ADXStrong <= c.ADXWeak {
		return fmt.Errorf("ADX thresholds strong=%v weak=%v out of order: %w", c.ADXStrong, c.ADXWeak, indicator.ErrInvalidConfig)
	}
	if c.VolumeMultiplier <= 0 {
		return fmt.Errorf("volume multiplier must be positive: %w", indicator.ErrInvalidConfig)
	}
	if c.MinAligned < 2 {
		return fmt.Errorf("min aligned signals must be >= 2, got %d: %w", c.MinAligned, indicator.ErrInvalidConfig)
	}
	return nil
}
