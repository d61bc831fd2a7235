package indicator

// RSI computes the Relative Strength Index at the latest bar using Wilder's
// smoothing: the first average gain/loss is a simple mean over the first
// `period` deltas, every later bar folds in with weight 1/period.
//
// Defined only for period >= 2 and series of at least period+1 closes.
// Returns exactly 100 when the smoothed average loss is zero.
func RSI(closes []float64, period int) (float64, error) {
	if period < 2 {
		return 0, badConfig("RSI period must be >= 2, got %d", period)
	}
	if len(closes) < period+1 {
		return 0, insufficient("RSI", period+1, len(closes))
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs)), nil
}
