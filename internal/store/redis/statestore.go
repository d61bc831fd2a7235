// Package redis persists tracker symbol states so alert deduplication
// survives restarts. Every operation is advisory: a down Redis degrades to
// in-memory tracking, never to a crash.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"crypto-alert-bot/internal/tracker"

	goredis "github.com/go-redis/redis/v8"
)

const keyPrefix = "alertbot:state:"

// Config configures the state store.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // state entry lifetime; 0 means no expiry
}

// StateStore implements tracker.Store on Redis. Writes go through a circuit
// breaker so a dead Redis is probed instead of hammered every cycle.
type StateStore struct {
	client  *goredis.Client
	ttl     time.Duration
	breaker *Breaker
}

// Client returns the underlying Redis client for health checks.
func (s *StateStore) Client() *goredis.Client { return s.client }

// New creates a StateStore and pings the server.
func New(cfg Config) (*StateStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &StateStore{
		client:  client,
		ttl:     cfg.TTL,
		breaker: NewBreaker(5, 30*time.Second),
	}, nil
}

// Load reads a symbol state. Returns (nil, nil) when the key is absent or
// expired; the tracker treats both as an unseen pair.
func (s *StateStore) Load(ctx context.Context, key string) (*tracker.SymbolState, error) {
	if !s.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err == goredis.Nil {
		s.breaker.Success()
		return nil, nil
	}
	if err != nil {
		s.breaker.Failure()
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	s.breaker.Success()

	var st tracker.SymbolState
	if err := json.Unmarshal(data, &st); err != nil {
		// A corrupt entry is stale by definition; drop it.
		log.Printf("[redis] corrupt state for %s, discarding: %v", key, err)
		s.client.Del(ctx, keyPrefix+key)
		return nil, nil
	}
	return &st, nil
}

// Save writes a symbol state with the configured TTL.
func (s *StateStore) Save(ctx context.Context, key string, st *tracker.SymbolState) error {
	if !s.breaker.Allow() {
		return ErrCircuitOpen
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state %s: %w", key, err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err(); err != nil {
		s.breaker.Failure()
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	s.breaker.Success()
	return nil
}

// PublishDecision publishes a decision JSON to the decisions channel for
// external subscribers (dashboards, paper traders).
func (s *StateStore) PublishDecision(ctx context.Context, payload []byte) error {
	if !s.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := s.client.Publish(ctx, "alertbot:decisions", payload).Err(); err != nil {
		s.breaker.Failure()
		return fmt.Errorf("redis PUBLISH decisions: %w", err)
	}
	s.breaker.Success()
	return nil
}

// Close closes the Redis client.
func (s *StateStore) Close() error {
	return s.client.Close()
}
