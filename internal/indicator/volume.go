package indicator

// VolumeMA computes the simple rolling mean of volume over the last `period`
// bars. Used as the baseline for volume-surge detection.
func VolumeMA(volumes []float64, period int) (float64, error) {
	if period < 1 {
		return 0, badConfig("volume MA period must be positive, got %d", period)
	}
	if len(volumes) < period {
		return 0, insufficient("VolumeMA", period, len(volumes))
	}
	var sum float64
	for _, v := range volumes[len(volumes)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}
