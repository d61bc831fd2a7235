package indicator

// EMASeries computes the Exponential Moving Average over the full close
// series using the recurrence ema[t] = price[t]*k + ema[t-1]*(1-k) with
// k = 2/(period+1).
//
// Seeding convention: ema[0] = price[0] (first-price seed). This matches the
// exponential weighting the live data path always used; backtests use the
// same function so live and replay values never drift.
func EMASeries(closes []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, badConfig("EMA period must be positive, got %d", period)
	}
	if len(closes) == 0 {
		return nil, insufficient("EMA", 1, 0)
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for t := 1; t < len(closes); t++ {
		out[t] = closes[t]*k + out[t-1]*(1-k)
	}
	return out, nil
}

// EMA returns only the latest EMA value for the series.
func EMA(closes []float64, period int) (float64, error) {
	s, err := EMASeries(closes, period)
	if err != nil {
		return 0, err
	}
	return s[len(s)-1], nil
}
