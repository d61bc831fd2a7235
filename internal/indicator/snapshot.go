// Package indicator provides pure technical indicator calculations over
// candle series: EMA, RSI, ADX, MACD, ATR, rolling volume average and
// pivot-based support/resistance.
//
// All functions are side-effect free and safe to run in parallel across
// symbols. Compute bundles the whole battery into a Snapshot at the latest
// closed bar.
package indicator

import (
	"errors"

	"crypto-alert-bot/internal/model"
)

// Snapshot holds every indicator value at the latest closed bar, plus the
// previous bar's values needed for crossover detection. Recomputed each
// cycle; never persisted.
type Snapshot struct {
	Close     float64
	PrevClose float64
	Volume    float64

	EMA     map[int]float64 // period -> value at latest bar
	PrevEMA map[int]float64 // period -> value at previous bar

	RSI float64

	ADX   float64
	ADXOK bool // false when ADX could not be computed; regime degrades to Weak

	MACD MACDResult

	ATR      float64
	VolumeMA float64

	Levels Levels
}

// Compute derives a full Snapshot from the series using only the trailing
// MinBars window, so two series that differ solely in older bars produce
// identical snapshots. Series shorter than the window fail with
// ErrInsufficientData naming the minimum length.
func Compute(series *model.Series, cfg Config) (Snapshot, error) {
	var snap Snapshot
	if err := cfg.Validate(); err != nil {
		return snap, err
	}
	need := cfg.MinBars()
	if series.Len() < need {
		return snap, insufficient("snapshot "+series.Key(), need, series.Len())
	}

	window := series.Candles[series.Len()-need:]
	n := len(window)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range window {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	snap.Close = closes[n-1]
	snap.PrevClose = closes[n-2]
	snap.Volume = volumes[n-1]

	snap.EMA = make(map[int]float64, len(cfg.EMAPeriods))
	snap.PrevEMA = make(map[int]float64, len(cfg.EMAPeriods))
	for _, period := range cfg.EMAPeriods {
		s, err := EMASeries(closes, period)
		if err != nil {
			return snap, err
		}
		snap.EMA[period] = s[n-1]
		snap.PrevEMA[period] = s[n-2]
	}

	rsi, err := RSI(closes, cfg.RSIPeriod)
	if err != nil {
		return snap, err
	}
	snap.RSI = rsi

	// ADX failure is soft: the aggregator downgrades the regime to Weak
	// instead of crashing the pipeline on partial data.
	adx, err := ADX(highs, lows, closes, cfg.ADXPeriod)
	if err != nil {
		if !errors.Is(err, ErrInsufficientData) {
			return snap, err
		}
	} else {
		snap.ADX = adx
		snap.ADXOK = true
	}

	macd, err := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	if err != nil {
		return snap, err
	}
	snap.MACD = macd

	atr, err := ATR(highs, lows, closes, cfg.ATRPeriod)
	if err != nil {
		return snap, err
	}
	snap.ATR = atr

	volMA, err := VolumeMA(volumes, cfg.VolumeMAPeriod)
	if err != nil {
		return snap, err
	}
	snap.VolumeMA = volMA

	levels, err := SupportResistance(highs, lows, snap.Close, cfg.PivotWindow, cfg.PivotWidth)
	if err != nil {
		return snap, err
	}
	snap.Levels = levels

	return snap, nil
}

// EMAAligned reports whether the configured EMAs are monotonically ordered
// at the latest bar: +1 for a full bullish stack (short above long), -1 for
// a full bearish stack, 0 otherwise.
func (s *Snapshot) EMAAligned(periods []int) int {
	up, down := true, true
	for i := 1; i < len(periods); i++ {
		shorter, longer := s.EMA[periods[i-1]], s.EMA[periods[i]]
		if shorter <= longer {
			up = false
		}
		if shorter >= longer {
			down = false
		}
	}
	switch {
	case up:
		return 1
	case down:
		return -1
	default:
		return 0
	}
}
