// cmd/alertbot is the live signal engine: it polls Binance klines for every
// configured (symbol, timeframe) pair, evaluates the signal pipeline, and
// notifies the configured channels on decision transitions.
package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"crypto-alert-bot/config"
	"crypto-alert-bot/internal/engine"
	"crypto-alert-bot/internal/exchange"
	"crypto-alert-bot/internal/logger"
	"crypto-alert-bot/internal/metrics"
	"crypto-alert-bot/internal/notification"
	redisstore "crypto-alert-bot/internal/store/redis"
	sqlitestore "crypto-alert-bot/internal/store/sqlite"
	"crypto-alert-bot/internal/tracker"
)

func main() {
	logger.Init("alertbot", slog.LevelInfo)
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	// ---- State persistence (optional) ----
	var stateStore tracker.Store
	redisStore, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		TTL:      cfg.StateTTL,
	})
	if err != nil {
		slog.Warn("redis unavailable, tracking in memory only", "err", err)
	} else {
		stateStore = redisStore
		defer redisStore.Close()
	}

	// ---- Decision journal (optional) ----
	var journal engine.Journal
	os.MkdirAll("data", 0o755)
	sqlStore, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		slog.Warn("sqlite unavailable, decisions will not be journaled", "err", err)
	} else {
		journal = sqlStore
		defer sqlStore.Close()
	}

	// ---- Notification channels ----
	var notifiers []notification.Notifier
	for _, ch := range cfg.NotifyChannels {
		switch ch {
		case "telegram":
			notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
		case "webhook":
			notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookSecret))
		case "log":
			notifiers = append(notifiers, notification.NewLogNotifier())
		}
	}

	// ---- Market data ----
	client := exchange.NewClient(cfg.BinanceBaseURL)
	var sentiment engine.SentimentSource
	if cfg.FundingEnabled {
		sentiment = exchange.NewFundingClient("", 0)
	}

	// ---- Pipeline ----
	pairs := make([]engine.Pair, 0, len(cfg.Symbols)*len(cfg.Timeframes))
	pairNames := make([]string, 0, cap(pairs))
	for _, sym := range cfg.Symbols {
		for _, tf := range cfg.Timeframes {
			pairs = append(pairs, engine.Pair{Symbol: sym, Timeframe: tf})
			pairNames = append(pairNames, sym+":"+tf)
		}
	}
	health.SetPairs(pairNames)

	var publisher engine.Publisher
	if redisStore != nil {
		publisher = redisStore
	}
	runner, err := engine.NewRunner(engine.DefaultConfig(), pairs, cfg.CandleLimit, engine.Deps{
		Source:    client,
		Tracker:   tracker.New(cfg.MinChangedSignals, stateStore),
		Notifiers: notifiers,
		Sentiment: sentiment,
		Journal:   journal,
		Publisher: publisher,
		Metrics:   prom,
	})
	if err != nil {
		log.Fatalf("[alertbot] runner init failed: %v", err)
	}

	// ---- Metrics and health server ----
	srv := metrics.NewServer(cfg.MetricsAddr, health)
	srv.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer stopCancel()
		srv.Stop(stopCtx)
	}()

	var rdb *goredis.Client
	if redisStore != nil {
		rdb = redisStore.Client()
	}
	var db *sql.DB
	if sqlStore != nil {
		db = sqlStore.DB()
	}
	health.StartLivenessChecker(ctx, rdb, db, 15*time.Second)

	// ---- Live trade stream (health reporting only) ----
	if cfg.StreamEnabled {
		stream := exchange.NewTradeStream("", cfg.Symbols)
		stream.OnConnect = func() { health.SetWSConnected(true) }
		stream.OnDisconnect = func() {
			health.SetWSConnected(false)
			prom.WSReconnects.Inc()
		}
		tradeCh := make(chan exchange.Trade, 1000)
		go stream.Run(ctx, tradeCh)
		go func() {
			for range tradeCh {
				prom.TradesTotal.Inc()
			}
		}()
	}

	slog.Info("alert bot started",
		"pairs", len(pairs),
		"interval", cfg.PollInterval.String(),
		"channels", cfg.NotifyChannels,
	)

	// ---- Main evaluation loop ----
	runner.RunCycle(ctx)
	health.SetLastCycleAt(time.Now())

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("alert bot stopped")
			return
		case <-ticker.C:
			runner.RunCycle(ctx)
			health.SetLastCycleAt(time.Now())
		}
	}
}
