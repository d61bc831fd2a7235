package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/metrics"
	"crypto-alert-bot/internal/model"
	"crypto-alert-bot/internal/notification"
	"crypto-alert-bot/internal/tracker"
)

// CandleSource fetches the most recent closed candles for a pair, oldest
// first. Implemented by the Binance REST client and by the sqlite candle
// cache in backtests.
type CandleSource interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error)
}

// SentimentSource provides an optional one-line market sentiment note
// (e.g. from funding rates) attached to alert text. Advisory only: it never
// influences the verdict and its errors never fail a cycle.
type SentimentSource interface {
	Sentiment(ctx context.Context, symbol string) (string, error)
}

// Journal persists every decision for later inspection and backtest
// comparison.
type Journal interface {
	SaveDecision(d decision.Decision, notified bool) error
}

// Publisher fans notified decisions out to subscribers, e.g. a Redis
// pub/sub channel consumed by dashboards. Best effort.
type Publisher interface {
	PublishDecision(ctx context.Context, payload []byte) error
}

// Pair is one (symbol, timeframe) evaluation target.
type Pair struct {
	Symbol    string
	Timeframe string
}

// Deps are the runner's collaborators. Source and Tracker are required;
// the rest degrade gracefully when nil.
type Deps struct {
	Source    CandleSource
	Tracker   *tracker.Tracker
	Notifiers []notification.Notifier
	Sentiment SentimentSource
	Journal   Journal
	Publisher Publisher
	Metrics   *metrics.Metrics
}

// Runner evaluates every configured pair once per cycle, each pair in its
// own goroutine. Pairs are independent: state isolation lives in the
// tracker's per-pair slots, so a failure on one pair never blocks another.
type Runner struct {
	cfg   Config
	pairs []Pair
	bars  int

	deps Deps
}

// NewRunner validates the config and wires the runner. bars is how many
// candles to fetch per pair per cycle; values below the indicator window
// are raised to it.
func NewRunner(cfg Config, pairs []Pair, bars int, deps Deps) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("runner: candle source is required")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("runner: tracker is required")
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("runner: no pairs configured")
	}
	if min := cfg.Indicator.MinBars(); bars < min {
		bars = min
	}
	return &Runner{cfg: cfg, pairs: pairs, bars: bars, deps: deps}, nil
}

// Run evaluates all pairs immediately, then on every tick of interval until
// the context is cancelled. A slow cycle delays the next tick rather than
// overlapping it.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	log.Printf("[engine] running %d pairs every %s", len(r.pairs), interval)
	r.RunCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("[engine] runner stopped")
			return
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle evaluates every pair once, in parallel, and blocks until all
// pairs finish.
func (r *Runner) RunCycle(ctx context.Context) {
	start := time.Now()
	var wg sync.WaitGroup
	for _, p := range r.pairs {
		wg.Add(1)
		go func(p Pair) {
			defer wg.Done()
			r.evaluatePair(ctx, p)
		}(p)
	}
	wg.Wait()

	if r.deps.Metrics != nil {
		r.deps.Metrics.CycleDur.Observe(time.Since(start).Seconds())
	}
}

func (r *Runner) evaluatePair(ctx context.Context, p Pair) {
	m := r.deps.Metrics

	candles, err := r.deps.Source.Candles(ctx, p.Symbol, p.Timeframe, r.bars)
	if err != nil {
		log.Printf("[engine] %s %s: candle fetch failed: %v", p.Symbol, p.Timeframe, err)
		if m != nil {
			m.FetchErrors.Inc()
		}
		return
	}

	series := &model.Series{Symbol: p.Symbol, Timeframe: p.Timeframe, MaxBars: r.bars}
	for _, c := range candles {
		if err := series.Append(c); err != nil {
			log.Printf("[engine] %s %s: bad candle data: %v", p.Symbol, p.Timeframe, err)
			if m != nil {
				m.FetchErrors.Inc()
			}
			return
		}
	}

	evalStart := time.Now()
	eval, err := Evaluate(series, r.cfg, time.Now().UTC())
	if err != nil {
		// Only invalid configuration reaches here; it is fatal for the
		// pair but must not take the other goroutines down.
		log.Printf("[engine] %s %s: evaluation failed: %v", p.Symbol, p.Timeframe, err)
		return
	}
	if m != nil {
		m.EvaluationDur.Observe(time.Since(evalStart).Seconds())
		m.EvaluationsTotal.WithLabelValues(p.Symbol, p.Timeframe, string(eval.Decision.Verdict)).Inc()
		m.ActiveSignals.WithLabelValues(p.Symbol, p.Timeframe).Set(float64(len(eval.Signals)))
	}
	if eval.Degraded {
		log.Printf("[engine] %s %s: %s", p.Symbol, p.Timeframe, eval.Decision.Reasons[0])
	}

	notify, summary := r.deps.Tracker.ShouldNotify(ctx, p.Symbol, p.Timeframe, eval.Decision, eval.Signals)

	if r.deps.Journal != nil {
		if err := r.deps.Journal.SaveDecision(eval.Decision, notify); err != nil {
			log.Printf("[engine] %s %s: journal write failed: %v", p.Symbol, p.Timeframe, err)
		}
	}

	if !notify {
		return
	}
	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.PublishDecision(ctx, eval.Decision.JSON()); err != nil {
			log.Printf("[engine] %s %s: decision publish failed: %v", p.Symbol, p.Timeframe, err)
		}
	}
	r.sendAlert(ctx, eval.Decision, summary)
}

func (r *Runner) sendAlert(ctx context.Context, d decision.Decision, summary tracker.ChangeSummary) {
	sentiment := ""
	if r.deps.Sentiment != nil && d.Verdict != decision.Hold {
		s, err := r.deps.Sentiment.Sentiment(ctx, d.Symbol)
		if err != nil {
			log.Printf("[engine] %s: sentiment fetch failed: %v", d.Symbol, err)
		} else {
			sentiment = s
		}
	}

	alert := notification.FormatDecision(d, summary, sentiment)
	for _, n := range r.deps.Notifiers {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("[engine] %s %s: notify failed: %v", d.Symbol, d.Timeframe, err)
			if r.deps.Metrics != nil {
				r.deps.Metrics.NotifyErrors.Inc()
			}
			continue
		}
		if r.deps.Metrics != nil {
			r.deps.Metrics.NotificationsTotal.WithLabelValues(string(d.Verdict)).Inc()
		}
	}
}
