// Package backtest replays historical candles through the evaluation
// pipeline and simulates a single-position long strategy from the verdicts.
package backtest

import (
	"fmt"
	"time"

	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/engine"
	"crypto-alert-bot/internal/model"
)

// Trade is one completed round trip.
type Trade struct {
	EntryTime time.Time
	ExitTime  time.Time
	Entry     float64
	Exit      float64
	PnLPct    float64
}

// Result summarizes one backtest run.
type Result struct {
	Symbol    string
	Timeframe string

	BarsReplayed int
	Verdicts     map[decision.Verdict]int
	Trades       []Trade

	StartBalance float64
	FinalBalance float64
	WinRate      float64 // fraction of closed trades with positive PnL
	MaxDrawdown  float64 // worst peak-to-trough balance fraction
}

// Run replays candles bar by bar, evaluating after each close. BUY enters a
// full-balance long at the bar close, SELL exits; HOLD does nothing. Any
// open position is closed at the final bar. Evaluation at bar i sees only
// bars up to i, never ahead.
func Run(symbol, timeframe string, candles []model.Candle, cfg engine.Config, startBalance float64) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	warmup := cfg.Indicator.MinBars()
	if len(candles) < warmup {
		return Result{}, fmt.Errorf("backtest: need at least %d candles, have %d", warmup, len(candles))
	}
	if startBalance <= 0 {
		startBalance = 10000
	}

	res := Result{
		Symbol:       symbol,
		Timeframe:    timeframe,
		Verdicts:     make(map[decision.Verdict]int),
		StartBalance: startBalance,
	}

	series := &model.Series{Symbol: symbol, Timeframe: timeframe, MaxBars: warmup}

	balance := startBalance
	peak := startBalance
	inPosition := false
	var entry float64
	var entryTime time.Time

	for _, c := range candles {
		if err := series.Append(c); err != nil {
			return Result{}, fmt.Errorf("backtest: %w", err)
		}
		if series.Len() < warmup {
			continue
		}

		eval, err := engine.Evaluate(series, cfg, c.OpenTime)
		if err != nil {
			return Result{}, err
		}
		res.BarsReplayed++
		res.Verdicts[eval.Decision.Verdict]++

		switch eval.Decision.Verdict {
		case decision.Buy:
			if !inPosition {
				inPosition = true
				entry = c.Close
				entryTime = c.OpenTime
			}
		case decision.Sell:
			if inPosition {
				balance, peak = closeTrade(&res, balance, peak, entry, c.Close, entryTime, c.OpenTime)
				inPosition = false
			}
		}
	}

	if inPosition {
		last := candles[len(candles)-1]
		balance, peak = closeTrade(&res, balance, peak, entry, last.Close, entryTime, last.OpenTime)
	}

	res.FinalBalance = balance
	if wins, total := winCount(res.Trades), len(res.Trades); total > 0 {
		res.WinRate = float64(wins) / float64(total)
	}
	return res, nil
}

func closeTrade(res *Result, balance, peak, entry, exit float64, entryTime, exitTime time.Time) (float64, float64) {
	pnl := (exit - entry) / entry
	balance *= 1 + pnl
	res.Trades = append(res.Trades, Trade{
		EntryTime: entryTime,
		ExitTime:  exitTime,
		Entry:     entry,
		Exit:      exit,
		PnLPct:    pnl * 100,
	})

	if balance > peak {
		peak = balance
	}
	if dd := (peak - balance) / peak; dd > res.MaxDrawdown {
		res.MaxDrawdown = dd
	}
	return balance, peak
}

func winCount(trades []Trade) int {
	n := 0
	for _, t := range trades {
		if t.PnLPct > 0 {
			n++
		}
	}
	return n
}
