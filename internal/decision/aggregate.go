package decision

import (
	"fmt"
	"math"
	"time"

	"crypto-alert-bot/internal/indicator"
	"crypto-alert-bot/internal/signal"
)

// Aggregate combines the active signal set with trend inputs from the
// snapshot into a Decision.
//
// A non-HOLD verdict requires at least cfg.MinAligned signals on exactly one
// side; ties resolve to HOLD. A Weak regime forces HOLD regardless of signal
// count, and a Moderate regime without high volume demands one extra aligned
// signal. Unavailable ADX degrades the regime to Weak (partial data biases
// toward caution, never a crash).
func Aggregate(symbol, timeframe string, snap indicator.Snapshot, set signal.Set, emaPeriods []int, cfg Config, ts time.Time) Decision {
	align := snap.EMAAligned(emaPeriods)
	regime := classifyRegime(snap, align, cfg)
	highVolume := snap.VolumeMA > 0 && snap.Volume > cfg.VolumeMultiplier*snap.VolumeMA

	buyCount := set.Count(signal.Buy)
	sellCount := set.Count(signal.Sell)

	verdict, holdWhy := applyDecisionTable(regime, highVolume, buyCount, sellCount, snap, cfg)

	d := Decision{
		Symbol:     symbol,
		Timeframe:  timeframe,
		Verdict:    verdict,
		Regime:     regime,
		HighVolume: highVolume,
		Timestamp:  ts,
	}
	d.Score = score(snap, regime, highVolume, buyCount, sellCount)
	d.Reasons = reasons(set, verdict, holdWhy)
	return d
}

func classifyRegime(snap indicator.Snapshot, align int, cfg Config) Regime {
	if !snap.ADXOK || snap.ADX < cfg.ADXWeak {
		return RegimeWeak
	}
	if snap.ADX > cfg.ADXStrong && align != 0 {
		return RegimeStrong
	}
	return RegimeModerate
}

// applyDecisionTable picks the verdict from regime x volume x aligned-signal
// count. Returns a short explanation when the result is HOLD.
func applyDecisionTable(regime Regime, highVolume bool, buyCount, sellCount int, snap indicator.Snapshot, cfg Config) (Verdict, string) {
	if regime == RegimeWeak {
		if snap.ADXOK {
			return Hold, fmt.Sprintf("trend too weak (ADX %.1f below %.0f)", snap.ADX, cfg.ADXWeak)
		}
		return Hold, "trend strength unavailable, holding for more data"
	}
	if buyCount == sellCount {
		if buyCount == 0 {
			return Hold, "no directional signals active"
		}
		return Hold, fmt.Sprintf("conflicting signals (%d buy vs %d sell)", buyCount, sellCount)
	}

	required := cfg.MinAligned
	if regime == RegimeModerate && !highVolume {
		required++ // moderate conviction without volume needs one extra confirmation
	}

	winner, count := Buy, buyCount
	if sellCount > buyCount {
		winner, count = Sell, sellCount
	}
	if count < required {
		return Hold, fmt.Sprintf("insufficient confirmation (%d aligned, need %d)", count, required)
	}
	return winner, ""
}

// score is the weighted confidence sum: up to 60 from aligned-signal count
// and indicator strength (RSI distance from 50, ADX magnitude), +20 for a
// Strong regime, +20 for high volume, clamped to [0,100].
func score(snap indicator.Snapshot, regime Regime, highVolume bool, buyCount, sellCount int) int {
	leading := buyCount
	if sellCount > leading {
		leading = sellCount
	}

	countPart := math.Min(40, float64(leading)*15)
	rsiPart := math.Min(10, math.Abs(snap.RSI-50)*10/25)
	adxPart := 0.0
	if snap.ADXOK {
		adxPart = math.Min(10, snap.ADX*10/40)
	}
	base := math.Min(60, countPart+rsiPart+adxPart)

	total := base
	if regime == RegimeStrong {
		total += 20
	}
	if highVolume {
		total += 20
	}
	return int(math.Max(0, math.Min(100, math.Round(total))))
}

// reasons orders the winning side's signal details by rank (long-term EMA
// crossovers first, S/R confirmation last), with neutral confirmations such
// as a volume surge merged in by their own rank. A HOLD verdict carries its
// explanation instead.
func reasons(set signal.Set, verdict Verdict, holdWhy string) []string {
	if verdict == Hold {
		return []string{holdWhy}
	}

	side := signal.Buy
	if verdict == Sell {
		side = signal.Sell
	}
	contributing := set.ByPolarity(side)
	neutral := set.ByPolarity(signal.Neutral)

	merged := make([]signal.Signal, 0, len(contributing)+len(neutral))
	merged = append(merged, contributing...)
	merged = append(merged, neutral...)
	// Re-sort the merged slice so neutral confirmations slot in by rank.
	for i := 1; i < len(merged); i++ {
		for j := i; j > 0 && merged[j].Rank < merged[j-1].Rank; j-- {
			merged[j], merged[j-1] = merged[j-1], merged[j]
		}
	}

	out := make([]string, len(merged))
	for i, sig := range merged {
		out[i] = sig.Detail
	}
	return out
}
