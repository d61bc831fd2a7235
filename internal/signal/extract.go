package signal

import (
	"fmt"

	"crypto-alert-bot/internal/indicator"
)

// Config holds the thresholds the extractor compares indicator values
// against. Validated once at startup; hot-swappable between cycles.
type Config struct {
	RSIOversold   float64 // e.g. 30
	RSIOverbought float64 // e.g. 70
	// Trend-adjusted RSI thresholds: in a full bullish EMA stack the
	// oversold bound rises (dips are buyable earlier); in a bearish stack
	// the overbought bound drops.
	RSITrendOversold   float64 // e.g. 40
	RSITrendOverbought float64 // e.g. 60

	BreakoutPct      float64 // close must exceed the level by this fraction, e.g. 0.01
	NearPct          float64 // S/R proximity band, e.g. 0.02
	VolumeMultiplier float64 // surge when volume > multiplier * volume MA, e.g. 2.0
	ATRMultiplier    float64 // breakout move must exceed multiplier * ATR, e.g. 1.5
}

// DefaultConfig returns the thresholds the live bot runs with.
func DefaultConfig() Config {
	return Config{
		RSIOversold:        30,
		RSIOverbought:      70,
		RSITrendOversold:   40,
		RSITrendOverbought: 60,
		BreakoutPct:        0.01,
		NearPct:            0.02,
		VolumeMultiplier:   2.0,
		ATRMultiplier:      1.5,
	}
}

// Validate checks threshold sanity. Returns indicator.ErrInvalidConfig on failure.
func (c Config) Validate() error {
	if c.RSIOversold <= 0 || c.RSIOverbought >= 100 || c.RSIOversold >= c.RSIOverbought {
		return fmt.Errorf("RSI thresholds %v/%v out of order: %w", c.RSIOversold, c.RSIOverbought, indicator.ErrInvalidConfig)
	}
	if c.BreakoutPct < 0 || c.NearPct < 0 {
		return fmt.Errorf("breakout/near percentages must be non-negative: %w", indicator.ErrInvalidConfig)
	}
	if c.VolumeMultiplier <= 0 || c.ATRMultiplier < 0 {
		return fmt.Errorf("volume/ATR multipliers must be positive: %w", indicator.ErrInvalidConfig)
	}
	return nil
}

// Extract derives the active signal set at the latest bar from a snapshot
// that already carries the previous bar's values. Crossovers require a
// strict sign change between consecutive bars; an exact-equality reading at
// the current bar never fires. Level signals (RSI, volume, trend) fire on
// comparison and may stay active across many bars; deduplicating their
// alerts is the state tracker's job, not the extractor's.
func Extract(snap indicator.Snapshot, emaPeriods []int, cfg Config) Set {
	set := NewSet()

	extractEMACrossovers(set, snap, emaPeriods)
	extractMACD(set, snap)

	align := snap.EMAAligned(emaPeriods)
	extractRSI(set, snap, align, cfg)
	extractTrend(set, snap, align)
	extractVolume(set, snap, cfg)
	extractBreakouts(set, snap, cfg)

	return set
}

// extractEMACrossovers checks each consecutive pair of configured EMA
// periods. Longer-term pairs get lower ranks so they lead the reasons list.
func extractEMACrossovers(set Set, snap indicator.Snapshot, periods []int) {
	pairs := len(periods) - 1
	for i := 0; i < pairs; i++ {
		short, long := periods[i], periods[i+1]
		prevDiff := snap.PrevEMA[short] - snap.PrevEMA[long]
		currDiff := snap.EMA[short] - snap.EMA[long]
		rank := pairs - 1 - i // longest pair -> rank 0

		if prevDiff <= 0 && currDiff > 0 {
			set.Add(Signal{
				Name:     fmt.Sprintf("EMA%d_CROSS_ABOVE_EMA%d", short, long),
				Polarity: Buy,
				Rank:     rank,
				Detail:   fmt.Sprintf("EMA%d crossed above EMA%d", short, long),
			})
		}
		if prevDiff >= 0 && currDiff < 0 {
			set.Add(Signal{
				Name:     fmt.Sprintf("EMA%d_CROSS_BELOW_EMA%d", short, long),
				Polarity: Sell,
				Rank:     rank,
				Detail:   fmt.Sprintf("EMA%d crossed below EMA%d", short, long),
			})
		}
	}
}

func extractMACD(set Set, snap indicator.Snapshot) {
	m := snap.MACD
	prevDiff := m.PrevLine - m.PrevSignal
	currDiff := m.Line - m.Signal

	if prevDiff <= 0 && currDiff > 0 {
		set.Add(Signal{
			Name:     "MACD_CROSS_ABOVE_SIGNAL",
			Polarity: Buy,
			Rank:     rankMACD,
			Detail:   fmt.Sprintf("MACD line %.4f crossed above signal %.4f", m.Line, m.Signal),
		})
	}
	if prevDiff >= 0 && currDiff < 0 {
		set.Add(Signal{
			Name:     "MACD_CROSS_BELOW_SIGNAL",
			Polarity: Sell,
			Rank:     rankMACD,
			Detail:   fmt.Sprintf("MACD line %.4f crossed below signal %.4f", m.Line, m.Signal),
		})
	}
}

func extractRSI(set Set, snap indicator.Snapshot, align int, cfg Config) {
	oversold := cfg.RSIOversold
	overbought := cfg.RSIOverbought
	if align > 0 && cfg.RSITrendOversold > oversold {
		oversold = cfg.RSITrendOversold
	}
	if align < 0 && cfg.RSITrendOverbought > 0 && cfg.RSITrendOverbought < overbought {
		overbought = cfg.RSITrendOverbought
	}

	if snap.RSI < oversold {
		set.Add(Signal{
			Name:     "RSI_OVERSOLD",
			Polarity: Buy,
			Rank:     rankRSI,
			Detail:   fmt.Sprintf("RSI %.2f below %.0f (oversold)", snap.RSI, oversold),
		})
	} else if snap.RSI > overbought {
		set.Add(Signal{
			Name:     "RSI_OVERBOUGHT",
			Polarity: Sell,
			Rank:     rankRSI,
			Detail:   fmt.Sprintf("RSI %.2f above %.0f (overbought)", snap.RSI, overbought),
		})
	}
}

func extractTrend(set Set, snap indicator.Snapshot, align int) {
	switch {
	case align > 0:
		set.Add(Signal{
			Name:     "TREND_STRONG_UP",
			Polarity: Buy,
			Rank:     rankTrend,
			Detail:   "EMAs fully stacked bullish",
		})
	case align < 0:
		set.Add(Signal{
			Name:     "TREND_STRONG_DOWN",
			Polarity: Sell,
			Rank:     rankTrend,
			Detail:   "EMAs fully stacked bearish",
		})
	}
}

func extractVolume(set Set, snap indicator.Snapshot, cfg Config) {
	if snap.VolumeMA > 0 && snap.Volume > cfg.VolumeMultiplier*snap.VolumeMA {
		set.Add(Signal{
			Name:     "VOLUME_SURGE",
			Polarity: Neutral,
			Rank:     rankVolume,
			Detail:   fmt.Sprintf("volume %.0f is %.1fx the %.0f average", snap.Volume, snap.Volume/snap.VolumeMA, snap.VolumeMA),
		})
	}
}

// extractBreakouts requires the close to exceed the level by BreakoutPct
// (not merely touch it, to filter wicks), with the previous close still
// inside the range, the move larger than ATRMultiplier*ATR, and volume above
// the surge threshold. Proximity signals fire inside the NearPct band but
// are suppressed on a side that just broke out.
func extractBreakouts(set Set, snap indicator.Snapshot, cfg Config) {
	lv := snap.Levels
	volumeConfirmed := snap.VolumeMA > 0 && snap.Volume > cfg.VolumeMultiplier*snap.VolumeMA

	brokeUp := false
	if lv.HasResistance && snap.Close > lv.Resistance*(1+cfg.BreakoutPct) && snap.PrevClose <= lv.Resistance {
		if volumeConfirmed && snap.Close-lv.Resistance > cfg.ATRMultiplier*snap.ATR {
			set.Add(Signal{
				Name:     "PRICE_BROKE_RESISTANCE",
				Polarity: Buy,
				Rank:     rankBreakout,
				Detail:   fmt.Sprintf("close %.2f broke resistance %.2f with volume and ATR confirmation", snap.Close, lv.Resistance),
			})
			brokeUp = true
		}
	}

	brokeDown := false
	if lv.HasSupport && snap.Close < lv.Support*(1-cfg.BreakoutPct) && snap.PrevClose >= lv.Support {
		if volumeConfirmed && lv.Support-snap.Close > cfg.ATRMultiplier*snap.ATR {
			set.Add(Signal{
				Name:     "PRICE_BROKE_SUPPORT",
				Polarity: Sell,
				Rank:     rankBreakout,
				Detail:   fmt.Sprintf("close %.2f broke support %.2f with volume and ATR confirmation", snap.Close, lv.Support),
			})
			brokeDown = true
		}
	}

	if lv.HasSupport && !brokeDown && snap.Close <= lv.Support*(1+cfg.NearPct) {
		set.Add(Signal{
			Name:     "PRICE_NEAR_SUPPORT",
			Polarity: Buy,
			Rank:     rankNearSR,
			Detail:   fmt.Sprintf("close %.2f near support %.2f", snap.Close, lv.Support),
		})
	}
	if lv.HasResistance && !brokeUp && snap.Close >= lv.Resistance*(1-cfg.NearPct) {
		set.Add(Signal{
			Name:     "PRICE_NEAR_RESISTANCE",
			Polarity: Sell,
			Rank:     rankNearSR,
			Detail:   fmt.Sprintf("close %.2f near resistance %.2f", snap.Close, lv.Resistance),
		})
	}
}
