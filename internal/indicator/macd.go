package indicator

// MACDResult holds the MACD values at the latest bar and the bar before it.
// The previous-bar values feed crossover detection.
type MACDResult struct {
	Line   float64 // EMA(fast) - EMA(slow)
	Signal float64 // EMA(signal) of Line
	Hist   float64 // Line - Signal

	PrevLine   float64
	PrevSignal float64
	PrevHist   float64
}

// MACD computes Moving Average Convergence Divergence over the close series.
// Requires fast < slow and at least slow+signal bars for a meaningful
// signal line.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	var out MACDResult
	if fast < 1 || slow < 1 || signal < 1 {
		return out, badConfig("MACD periods must be positive, got %d/%d/%d", fast, slow, signal)
	}
	if fast >= slow {
		return out, badConfig("MACD fast period %d must be < slow period %d", fast, slow)
	}
	need := slow + signal
	if len(closes) < need {
		return out, insufficient("MACD", need, len(closes))
	}

	fastEMA, err := EMASeries(closes, fast)
	if err != nil {
		return out, err
	}
	slowEMA, err := EMASeries(closes, slow)
	if err != nil {
		return out, err
	}

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine, err := EMASeries(line, signal)
	if err != nil {
		return out, err
	}

	n := len(closes)
	out.Line = line[n-1]
	out.Signal = signalLine[n-1]
	out.Hist = out.Line - out.Signal
	out.PrevLine = line[n-2]
	out.PrevSignal = signalLine[n-2]
	out.PrevHist = out.PrevLine - out.PrevSignal
	return out, nil
}
