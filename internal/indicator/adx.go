package indicator

import "math"

// ADX computes the Average Directional Index at the latest bar using Wilder's
// smoothing of directional movement.
//
// A stable first reading needs period bars to seed the smoothed TR/DM sums
// plus period DX values to seed the ADX average, so series shorter than
// 2*period fail with ErrInsufficientData.
func ADX(highs, lows, closes []float64, period int) (float64, error) {
	if period < 1 {
		return 0, badConfig("ADX period must be positive, got %d", period)
	}
	need := 2 * period
	if len(closes) < need {
		return 0, insufficient("ADX", need, len(closes))
	}

	n := len(closes)
	p := float64(period)

	// Wilder-smoothed running sums of TR, +DM, -DM. Seeded with the plain
	// sum over the first `period` movements (bars 1..period).
	var smTR, smPlus, smMinus float64
	var adx float64
	dxCount := 0

	for t := 1; t < n; t++ {
		upMove := highs[t] - highs[t-1]
		downMove := lows[t-1] - lows[t]
		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr := trueRange(highs[t], lows[t], closes[t-1])

		if t <= period {
			smTR += tr
			smPlus += plusDM
			smMinus += minusDM
			if t < period {
				continue
			}
		} else {
			smTR = smTR - smTR/p + tr
			smPlus = smPlus - smPlus/p + plusDM
			smMinus = smMinus - smMinus/p + minusDM
		}

		// DI and DX at bar t (first available at t == period).
		var plusDI, minusDI float64
		if smTR != 0 {
			plusDI = 100 * smPlus / smTR
			minusDI = 100 * smMinus / smTR
		}
		dx := 0.0
		if sum := plusDI + minusDI; sum != 0 {
			dx = 100 * math.Abs(plusDI-minusDI) / sum
		}

		dxCount++
		if dxCount <= period {
			adx += dx
			if dxCount == period {
				adx /= p
			}
		} else {
			adx = (adx*(p-1) + dx) / p
		}
	}

	return adx, nil
}

// trueRange is the greatest of high-low, |high-prevClose|, |low-prevClose|.
func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if d := math.Abs(high - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(low - prevClose); d > tr {
		tr = d
	}
	return tr
}
