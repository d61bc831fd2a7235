// Package tracker remembers the last decision and signal set per
// (symbol, timeframe) pair and decides whether a new evaluation differs
// enough to notify. Alerts fire on transitions, not on every cycle.
package tracker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/signal"
)

// SymbolState is the per-pair memory, owned and mutated exclusively by the
// Tracker. Lives for the process lifetime; optionally persisted with a TTL
// by an injected Store.
type SymbolState struct {
	Decision     decision.Decision `json:"decision"`
	Signals      signal.Set        `json:"signals"`
	LastNotified time.Time         `json:"last_notified"`
}

// ChangeSummary describes what changed between two evaluations.
type ChangeSummary struct {
	First          bool             `json:"first"` // baseline notification for an unseen pair
	VerdictChanged bool             `json:"verdict_changed"`
	PrevVerdict    decision.Verdict `json:"prev_verdict,omitempty"`
	Added          []string         `json:"added,omitempty"`
	Removed        []string         `json:"removed,omitempty"`
}

// String renders the summary for logs and alert footers.
func (cs ChangeSummary) String() string {
	if cs.First {
		return "first evaluation (baseline)"
	}
	var parts []string
	if cs.VerdictChanged {
		parts = append(parts, fmt.Sprintf("verdict changed from %s", cs.PrevVerdict))
	}
	if len(cs.Added) > 0 {
		parts = append(parts, "new: "+strings.Join(cs.Added, ", "))
	}
	if len(cs.Removed) > 0 {
		parts = append(parts, "cleared: "+strings.Join(cs.Removed, ", "))
	}
	if len(parts) == 0 {
		return "no material change"
	}
	return strings.Join(parts, "; ")
}

// Store persists symbol states across restarts. Load returns (nil, nil)
// when no entry exists; a missing or unreadable entry is advisory only and
// is treated as an unseen pair, never as an error.
type Store interface {
	Load(ctx context.Context, key string) (*SymbolState, error)
	Save(ctx context.Context, key string, st *SymbolState) error
}

// Tracker holds the per-pair state map. Each pair owns a distinct slot, so
// parallel workers for different pairs never contend beyond the map lock.
type Tracker struct {
	mu         sync.Mutex
	minChanged int // minimum signal-set difference count to notify (1 = any)
	states     map[string]*SymbolState
	store      Store // optional
}

// New creates a tracker. minChanged is the signal-diff sensitivity: notify
// when at least this many signals were added or removed (verdict changes
// always notify). Values below 1 are clamped to 1.
func New(minChanged int, store Store) *Tracker {
	if minChanged < 1 {
		minChanged = 1
	}
	return &Tracker{
		minChanged: minChanged,
		states:     make(map[string]*SymbolState),
		store:      store,
	}
}

// ShouldNotify compares the new decision and signal set against the stored
// state for (symbol, timeframe). The first evaluation of a pair always
// notifies (baseline); afterwards it notifies iff the verdict changed or the
// signal-set difference reaches the configured threshold.
//
// The stored state is overwritten every call whether or not a notification
// fires, so comparisons always run against the immediately preceding
// evaluation, so a signal flickering across a no-op threshold cannot build
// up into an alert storm.
func (t *Tracker) ShouldNotify(ctx context.Context, symbol, timeframe string, d decision.Decision, signals signal.Set) (bool, ChangeSummary) {
	key := symbol + ":" + timeframe

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.states[key]
	if !ok && t.store != nil {
		restored, err := t.store.Load(ctx, key)
		if err != nil {
			log.Printf("[tracker] state load %s failed, treating as unseen: %v", key, err)
		} else if restored != nil {
			prev, ok = restored, true
		}
	}

	var notify bool
	var summary ChangeSummary
	if !ok {
		notify = true
		summary = ChangeSummary{First: true}
	} else {
		added, removed := signals.Diff(prev.Signals)
		summary = ChangeSummary{
			VerdictChanged: d.Verdict != prev.Decision.Verdict,
			Added:          added,
			Removed:        removed,
		}
		if summary.VerdictChanged {
			summary.PrevVerdict = prev.Decision.Verdict
		}
		notify = summary.VerdictChanged || len(added)+len(removed) >= t.minChanged
	}

	st := &SymbolState{Decision: d, Signals: signals}
	if ok && !notify {
		st.LastNotified = prev.LastNotified
	} else {
		st.LastNotified = d.Timestamp
	}
	t.states[key] = st

	if t.store != nil {
		if err := t.store.Save(ctx, key, st); err != nil {
			log.Printf("[tracker] state save %s failed: %v", key, err)
		}
	}

	return notify, summary
}

// State returns a copy of the stored state for a pair, or nil if unseen.
// Used by tests and the status endpoint.
func (t *Tracker) State(symbol, timeframe string) *SymbolState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[symbol+":"+timeframe]
	if !ok {
		return nil
	}
	cp := *st
	return &cp
}
