package indicator

// ATR computes the Average True Range at the latest bar using Wilder's
// smoothing: the first ATR is a simple mean of the first `period` true
// ranges, later bars fold in with weight 1/period.
//
// Requires period+1 bars (true range needs the previous close).
func ATR(highs, lows, closes []float64, period int) (float64, error) {
	if period < 1 {
		return 0, badConfig("ATR period must be positive, got %d", period)
	}
	if len(closes) < period+1 {
		return 0, insufficient("ATR", period+1, len(closes))
	}

	p := float64(period)
	var atr float64
	for t := 1; t <= period; t++ {
		atr += trueRange(highs[t], lows[t], closes[t-1])
	}
	atr /= p

	for t := period + 1; t < len(closes); t++ {
		atr = (atr*(p-1) + trueRange(highs[t], lows[t], closes[t-1])) / p
	}
	return atr, nil
}
