// cmd/backtest replays historical candles through the signal pipeline to
// validate thresholds without live market data. Candles come from the local
// SQLite cache; --fetch downloads them from Binance first.
//
// Usage:
//
//	go run ./cmd/backtest --symbol=BTCUSDT --tf=1h --bars=1000 --fetch
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-alert-bot/internal/backtest"
	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/engine"
	"crypto-alert-bot/internal/exchange"
	sqlitestore "crypto-alert-bot/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	symbol := flag.String("symbol", "BTCUSDT", "Symbol to backtest")
	tf := flag.String("tf", "1h", "Candle timeframe")
	bars := flag.Int("bars", 1000, "Number of candles to replay")
	dbPath := flag.String("db", "data/alertbot.db", "Path to SQLite database")
	fetch := flag.Bool("fetch", false, "Download candles from Binance into the cache first")
	balance := flag.Float64("balance", 10000, "Simulated starting balance")
	flag.Parse()

	store, err := sqlitestore.Open(*dbPath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if *fetch {
		client := exchange.NewClient("")
		fetchCtx, fetchCancel := context.WithTimeout(ctx, time.Minute)
		candles, err := client.Candles(fetchCtx, *symbol, *tf, *bars)
		fetchCancel()
		if err != nil {
			log.Fatalf("[backtest] fetch failed: %v", err)
		}
		if err := store.SaveCandles(*symbol, *tf, candles); err != nil {
			log.Fatalf("[backtest] cache write failed: %v", err)
		}
		log.Printf("[backtest] cached %d candles for %s %s", len(candles), *symbol, *tf)
	}

	candles, err := store.Candles(ctx, *symbol, *tf, *bars)
	if err != nil {
		log.Fatalf("[backtest] cache read failed: %v", err)
	}
	if len(candles) == 0 {
		log.Fatalf("[backtest] no cached candles for %s %s, rerun with --fetch", *symbol, *tf)
	}

	result, err := backtest.Run(*symbol, *tf, candles, engine.DefaultConfig(), *balance)
	if err != nil {
		log.Fatalf("[backtest] run failed: %v", err)
	}

	pnlPct := (result.FinalBalance - result.StartBalance) / result.StartBalance * 100

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Pair:              %-16s ║\n", *symbol+" "+*tf)
	fmt.Printf("║  Bars replayed:     %-16d ║\n", result.BarsReplayed)
	fmt.Printf("║  BUY / SELL / HOLD: %-16s ║\n", fmt.Sprintf("%d / %d / %d",
		result.Verdicts[decision.Buy], result.Verdicts[decision.Sell], result.Verdicts[decision.Hold]))
	fmt.Printf("║  Trades closed:     %-16d ║\n", len(result.Trades))
	fmt.Printf("║  Win rate:          %-16s ║\n", fmt.Sprintf("%.1f%%", result.WinRate*100))
	fmt.Printf("║  PnL:               %-16s ║\n", fmt.Sprintf("%+.2f%%", pnlPct))
	fmt.Printf("║  Max drawdown:      %-16s ║\n", fmt.Sprintf("%.2f%%", result.MaxDrawdown*100))
	fmt.Println("╚══════════════════════════════════════╝")
}
