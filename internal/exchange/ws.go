package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Trade is one normalized trade from the stream.
type Trade struct {
	Symbol string
	Price  float64
	Qty    float64
	Time   time.Time
}

// TradeStream maintains a combined Binance trade stream over WebSocket and
// pushes normalized trades into a channel. Reconnects with exponential
// backoff; a full channel drops trades rather than stalling the read loop.
type TradeStream struct {
	wsBase  string
	symbols []string

	// Optional hooks for metrics and health reporting.
	OnConnect    func()
	OnDisconnect func()
}

// NewTradeStream creates a stream for the given symbols. wsBase "" uses the
// production endpoint.
func NewTradeStream(wsBase string, symbols []string) *TradeStream {
	if wsBase == "" {
		wsBase = "wss://stream.binance.com:9443"
	}
	return &TradeStream{wsBase: wsBase, symbols: symbols}
}

// combined stream payload: {"stream":"btcusdt@trade","data":{...}}
type streamEnvelope struct {
	Stream string    `json:"stream"`
	Data   tradeData `json:"data"`
}

type tradeData struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Qty       string `json:"q"`
	TradeTime int64  `json:"T"`
}

// Run connects and streams trades into tradeCh until ctx is cancelled.
// Dropped connections are retried with backoff capped at one minute.
func (ts *TradeStream) Run(ctx context.Context, tradeCh chan<- Trade) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := ts.streamOnce(ctx, tradeCh)
		if ctx.Err() != nil {
			return
		}
		log.Printf("[ws] stream dropped: %v, reconnecting in %s", err, backoff)
		if ts.OnDisconnect != nil {
			ts.OnDisconnect()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > time.Minute {
			backoff = time.Minute
		}
	}
}

func (ts *TradeStream) streamOnce(ctx context.Context, tradeCh chan<- Trade) error {
	streams := make([]string, len(ts.symbols))
	for i, s := range ts.symbols {
		streams[i] = strings.ToLower(s) + "@trade"
	}
	url := ts.wsBase + "/stream?streams=" + strings.Join(streams, "/")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	log.Printf("[ws] connected, %d trade streams", len(streams))
	if ts.OnConnect != nil {
		ts.OnConnect()
	}

	// Unblock ReadMessage on shutdown.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})
	conn.SetReadDeadline(time.Now().Add(90 * time.Second))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var env streamEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			log.Printf("[ws] bad frame: %v", err)
			continue
		}
		if env.Data.EventType != "trade" {
			continue
		}

		trade, err := parseTrade(env.Data)
		if err != nil {
			log.Printf("[ws] parse trade: %v", err)
			continue
		}

		select {
		case tradeCh <- trade:
		default:
			log.Println("[ws] tradeCh full, dropping trade")
		}
	}
}

func parseTrade(d tradeData) (Trade, error) {
	price, err := strconv.ParseFloat(d.Price, 64)
	if err != nil {
		return Trade{}, fmt.Errorf("price %q: %w", d.Price, err)
	}
	qty, err := strconv.ParseFloat(d.Qty, 64)
	if err != nil {
		return Trade{}, fmt.Errorf("qty %q: %w", d.Qty, err)
	}
	return Trade{
		Symbol: d.Symbol,
		Price:  price,
		Qty:    qty,
		Time:   time.Unix(0, d.TradeTime*int64(time.Millisecond)).UTC(),
	}, nil
}
