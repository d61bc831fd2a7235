// Package metrics exposes Prometheus metrics and a JSON health endpoint for
// the alert bot.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	EvaluationsTotal   *prometheus.CounterVec // labels: symbol, timeframe, verdict
	NotificationsTotal *prometheus.CounterVec // labels: verdict
	NotifyErrors       prometheus.Counter
	FetchErrors        prometheus.Counter

	EvaluationDur prometheus.Histogram
	CycleDur      prometheus.Histogram

	ActiveSignals *prometheus.GaugeVec // labels: symbol, timeframe

	WSReconnects prometheus.Counter
	TradesTotal  prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertbot_evaluations_total",
			Help: "Total pair evaluations (by symbol, timeframe, verdict)",
		}, []string{"symbol", "timeframe", "verdict"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertbot_notifications_total",
			Help: "Alerts delivered to notification channels (by verdict)",
		}, []string{"verdict"}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertbot_notify_errors_total",
			Help: "Alert delivery failures",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertbot_fetch_errors_total",
			Help: "Candle fetch or validation failures",
		}),
		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertbot_evaluation_duration_seconds",
			Help:    "Pipeline latency per pair evaluation",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertbot_cycle_duration_seconds",
			Help:    "Wall time of a full evaluation cycle across all pairs",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveSignals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alertbot_active_signals",
			Help: "Signals active at the latest bar (by symbol, timeframe)",
		}, []string{"symbol", "timeframe"}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertbot_ws_reconnects_total",
			Help: "Total trade stream reconnection attempts",
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertbot_trades_total",
			Help: "Total trades received from the WebSocket stream",
		}),
	}

	prometheus.MustRegister(
		m.EvaluationsTotal,
		m.NotificationsTotal,
		m.NotifyErrors,
		m.FetchErrors,
		m.EvaluationDur,
		m.CycleDur,
		m.ActiveSignals,
		m.WSReconnects,
		m.TradesTotal,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	WSConnected    bool      `json:"ws_connected"`
	LastCycleAt    time.Time `json:"last_cycle_at"`
	Pairs          []string  `json:"pairs"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetWSConnected(v bool) {
	h.mu.Lock()
	h.WSConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCycleAt(t time.Time) {
	h.mu.Lock()
	h.LastCycleAt = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetPairs(pairs []string) {
	h.mu.Lock()
	h.Pairs = pairs
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.RedisConnected {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	cycleAge := ""
	if !h.LastCycleAt.IsZero() {
		cycleAge = time.Since(h.LastCycleAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		RedisConnected  bool     `json:"redis_connected"`
		RedisLatencyMs  float64  `json:"redis_latency_ms"`
		SQLiteOK        bool     `json:"sqlite_ok"`
		SQLiteLatencyMs float64  `json:"sqlite_latency_ms"`
		WSConnected     bool     `json:"ws_connected"`
		LastCycleAt     string   `json:"last_cycle_at"`
		CycleAge        string   `json:"cycle_age"`
		Pairs           []string `json:"pairs"`
		LastCheckAt     string   `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		WSConnected:     h.WSConnected,
		LastCycleAt:     h.LastCycleAt.Format(time.RFC3339),
		CycleAge:        cycleAge,
		Pairs:           h.Pairs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
