// Package engine runs the evaluation pipeline: candles -> indicator
// snapshot -> signal extraction -> decision aggregation, once per
// (symbol, timeframe) pair per cycle.
package engine

import (
	"errors"
	"fmt"
	"time"

	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/indicator"
	"crypto-alert-bot/internal/model"
	"crypto-alert-bot/internal/signal"
)

// Config bundles the per-stage configs. Validated once at startup; the
// pipeline itself never mutates it, so it can be swapped between cycles.
type Config struct {
	Indicator indicator.Config
	Signal    signal.Config
	Decision  decision.Config
}

// DefaultConfig returns the stage defaults the live bot runs with.
func DefaultConfig() Config {
	return Config{
		Indicator: indicator.DefaultConfig(),
		Signal:    signal.DefaultConfig(),
		Decision:  decision.DefaultConfig(),
	}
}

// Validate checks every stage config.
func (c Config) Validate() error {
	if err := c.Indicator.Validate(); err != nil {
		return fmt.Errorf("indicator config: %w", err)
	}
	if err := c.Signal.Validate(); err != nil {
		return fmt.Errorf("signal config: %w", err)
	}
	if err := c.Decision.Validate(); err != nil {
		return fmt.Errorf("decision config: %w", err)
	}
	return nil
}

// Evaluation is the full output of one pipeline run for one pair.
type Evaluation struct {
	Decision decision.Decision
	Signals  signal.Set
	Snapshot indicator.Snapshot

	// Degraded marks a HOLD produced because the series was too short for
	// the indicator battery rather than by the decision table.
	Degraded bool
}

// Evaluate runs the full pipeline over a series at time ts.
//
// A series shorter than the indicator window degrades to a HOLD decision
// with the shortfall in the reasons, so one cold pair cannot crash a cycle.
// Invalid configuration is the only hard error.
func Evaluate(series *model.Series, cfg Config, ts time.Time) (Evaluation, error) {
	snap, err := indicator.Compute(series, cfg.Indicator)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			return Evaluation{
				Decision: decision.Decision{
					Symbol:    series.Symbol,
					Timeframe: series.Timeframe,
					Verdict:   decision.Hold,
					Regime:    decision.RegimeWeak,
					Reasons:   []string{"data incomplete: " + err.Error()},
					Timestamp: ts,
				},
				Signals:  signal.NewSet(),
				Degraded: true,
			}, nil
		}
		return Evaluation{}, err
	}

	set := signal.Extract(snap, cfg.Indicator.EMAPeriods, cfg.Signal)
	d := decision.Aggregate(series.Symbol, series.Timeframe, snap, set, cfg.Indicator.EMAPeriods, cfg.Decision, ts)

	return Evaluation{Decision: d, Signals: set, Snapshot: snap}, nil
}
