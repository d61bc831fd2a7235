// Package config loads application configuration from environment
// variables, with optional .env file support for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market data
	Symbols        []string // e.g. BTCUSDT,ETHUSDT
	Timeframes     []string // e.g. 1h,4h
	BinanceBaseURL string   // override for tests; "" = production
	FundingEnabled bool
	StreamEnabled  bool // live trade stream for health reporting

	// Evaluation
	PollInterval      time.Duration
	CandleLimit       int // candles fetched per pair per cycle
	MinChangedSignals int // signal-diff threshold for re-notification

	// Notification channels: comma list of log, telegram, webhook
	NotifyChannels   []string
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
	WebhookSecret    string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	StateTTL      time.Duration
	SQLitePath    string
	MetricsAddr   string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env file")
	}

	cfg := &Config{
		Symbols:        splitList(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT")),
		Timeframes:     splitList(getEnv("TIMEFRAMES", "1h,4h")),
		BinanceBaseURL: getEnv("BINANCE_BASE_URL", ""),
		FundingEnabled: getEnvBool("FUNDING_ENABLED", true),
		StreamEnabled:  getEnvBool("STREAM_ENABLED", false),

		PollInterval:      getEnvDur("POLL_INTERVAL", time.Minute),
		CandleLimit:       getEnvInt("CANDLE_LIMIT", 500),
		MinChangedSignals: getEnvInt("MIN_CHANGED_SIGNALS", 1),

		NotifyChannels: splitList(getEnv("NOTIFY_CHANNELS", "log")),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		StateTTL:      getEnvDur("STATE_TTL", 24*time.Hour),
		SQLitePath:    getEnv("SQLITE_PATH", "data/alertbot.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
	}

	for _, ch := range cfg.NotifyChannels {
		switch ch {
		case "telegram":
			cfg.TelegramBotToken = mustEnv("TELEGRAM_BOT_TOKEN")
			cfg.TelegramChatID = mustEnv("TELEGRAM_CHAT_ID")
		case "webhook":
			cfg.WebhookURL = mustEnv("WEBHOOK_URL")
			cfg.WebhookSecret = getEnv("WEBHOOK_SECRET", "")
		case "log":
		default:
			log.Fatalf("[config] unknown notify channel %q", ch)
		}
	}

	if len(cfg.Symbols) == 0 {
		log.Fatal("[config] SYMBOLS must list at least one symbol")
	}
	if len(cfg.Timeframes) == 0 {
		log.Fatal("[config] TIMEFRAMES must list at least one timeframe")
	}

	return cfg
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDur(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
