package indicator

// Levels holds the nearest unbroken support/resistance derived from pivots.
// A level may be absent when no qualifying pivot exists in the window.
type Levels struct {
	Support       float64
	Resistance    float64
	HasSupport    bool
	HasResistance bool
}

// SupportResistance detects static support/resistance from local extrema.
//
// A bar is a pivot high (low) when its high (low) is the strict maximum
// (minimum) within a symmetric neighborhood of `width` bars on each side.
// Scanning the trailing `window` bars, the most recent pivot high still above
// the latest close becomes resistance and the most recent pivot low still
// below it becomes support. Broken pivots are skipped.
func SupportResistance(highs, lows []float64, lastClose float64, window, width int) (Levels, error) {
	var lv Levels
	if window < 1 || width < 1 || 2*width+1 > window {
		return lv, badConfig("pivot width %d does not fit window %d", width, window)
	}
	n := len(highs)
	if n < window {
		return lv, insufficient("SupportResistance", window, n)
	}

	start := n - window
	if start < width {
		start = width
	}
	// The last `width` bars cannot be confirmed pivots yet.
	for i := n - 1 - width; i >= start; i-- {
		if !lv.HasResistance && highs[i] > lastClose && isPivotHigh(highs, i, width) {
			lv.Resistance = highs[i]
			lv.HasResistance = true
		}
		if !lv.HasSupport && lows[i] < lastClose && isPivotLow(lows, i, width) {
			lv.Support = lows[i]
			lv.HasSupport = true
		}
		if lv.HasSupport && lv.HasResistance {
			break
		}
	}
	return lv, nil
}

func isPivotHigh(highs []float64, i, width int) bool {
	for j := i - width; j <= i+width; j++ {
		if j == i {
			continue
		}
		if highs[j] >= highs[i] {
			return false
		}
	}
	return true
}

func isPivotLow(lows []float64, i, width int) bool {
	for j := i - width; j <= i+width; j++ {
		if j == i {
			continue
		}
		if lows[j] <= lows[i] {
			return false
		}
	}
	return true
}
