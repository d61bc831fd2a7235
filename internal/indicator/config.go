package indicator

import "sort"

// Config enumerates every indicator parameter the engine recognizes.
// Validated once at startup; hot-swappable between cycles.
type Config struct {
	EMAPeriods []int // ascending, e.g. 7,21,50,100,200

	RSIPeriod int // e.g. 14, must be >= 2
	ADXPeriod int // e.g. 14
	ATRPeriod int // e.g. 14

	MACDFast   int // e.g. 12
	MACDSlow   int // e.g. 26, must be > MACDFast
	MACDSignal int // e.g. 9

	VolumeMAPeriod int // e.g. 20

	PivotWindow int // trailing bars scanned for pivot levels, e.g. 100
	PivotWidth  int // symmetric pivot neighborhood half-width, e.g. 3
}

// DefaultConfig returns the parameter set the live bot runs with.
func DefaultConfig() Config {
	return Config{
		EMAPeriods:     []int{7, 21, 50, 100, 200},
		RSIPeriod:      14,
		ADXPeriod:      14,
		ATRPeriod:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		VolumeMAPeriod: 20,
		PivotWindow:    100,
		PivotWidth:     3,
	}
}

// Validate checks every parameter once. Returns ErrInvalidConfig on failure.
func (c Config) Validate() error {
	if len(c.EMAPeriods) < 2 {
		return badConfig("at least 2 EMA periods required, got %d", len(c.EMAPeriods))
	}
	for i, p := range c.EMAPeriods {
		if p < 1 {
			return badConfig("EMA period %d must be positive", p)
		}
		if i > 0 && p <= c.EMAPeriods[i-1] {
			return badConfig("EMA periods must be strictly ascending, got %v", c.EMAPeriods)
		}
	}
	if c.RSIPeriod < 2 {
		return badConfig("RSI period must be >= 2, got %d", c.RSIPeriod)
	}
	if c.ADXPeriod < 1 {
		return badConfig("ADX period must be positive, got %d", c.ADXPeriod)
	}
	if c.ATRPeriod < 1 {
		return badConfig("ATR period must be positive, got %d", c.ATRPeriod)
	}
	if c.MACDFast < 1 || c.MACDSlow < 1 || c.MACDSignal < 1 {
		return badConfig("MACD periods must be positive, got %d/%d/%d", c.MACDFast, c.MACDSlow, c.MACDSignal)
	}
	if c.MACDFast >= c.MACDSlow {
		return badConfig("MACD fast period %d must be < slow period %d", c.MACDFast, c.MACDSlow)
	}
	if c.VolumeMAPeriod < 1 {
		return badConfig("volume MA period must be positive, got %d", c.VolumeMAPeriod)
	}
	if c.PivotWindow < 1 {
		return badConfig("pivot window must be positive, got %d", c.PivotWindow)
	}
	if c.PivotWidth < 1 || 2*c.PivotWidth+1 > c.PivotWindow {
		return badConfig("pivot width %d does not fit window %d", c.PivotWidth, c.PivotWindow)
	}
	return nil
}

// MinBars returns the minimum series length required so every indicator in
// this configuration produces a value, plus one extra bar for the previous
// snapshot used in crossover detection.
func (c Config) MinBars() int {
	lookbacks := []int{
		c.RSIPeriod + 1,
		2 * c.ADXPeriod,
		c.ATRPeriod + 1,
		c.MACDSlow + c.MACDSignal,
		c.VolumeMAPeriod,
		c.PivotWindow,
	}
	for _, p := range c.EMAPeriods {
		lookbacks = append(lookbacks, p)
	}
	sort.Ints(lookbacks)
	return lookbacks[len(lookbacks)-1] + 1
}
