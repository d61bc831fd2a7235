package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/signal"
)

var testTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(verdict decision.Verdict) decision.Decision {
	return decision.Decision{
		Symbol: "BTCUSDT", Timeframe: "1h",
		Verdict: verdict, Score: 50, Regime: decision.RegimeModerate,
		Timestamp: testTime,
	}
}

func set(names ...string) signal.Set {
	s := signal.NewSet()
	for _, n := range names {
		s.Add(signal.Signal{Name: n, Polarity: signal.Buy})
	}
	return s
}

func TestShouldNotify_FirstEvaluationAlwaysNotifies(t *testing.T) {
	tr := New(1, nil)

	notify, summary := tr.ShouldNotify(context.Background(), "BTCUSDT", "1h", dec(decision.Hold), set())
	if !notify {
		t.Fatal("first evaluation must notify")
	}
	if !summary.First {
		t.Error("summary.First = false on first evaluation")
	}
}

func TestShouldNotify_UnchangedStateIsSilent(t *testing.T) {
	tr := New(1, nil)
	ctx := context.Background()

	tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Buy), set("A", "B"))

	notify, summary := tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Buy), set("A", "B"))
	if notify {
		t.Errorf("unchanged evaluation notified: %+v", summary)
	}
}

func TestShouldNotify_VerdictChangeAlwaysNotifies(t *testing.T) {
	tr := New(5, nil) // high signal threshold: verdict change must still win
	ctx := context.Background()

	tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Hold), set("A"))

	notify, summary := tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Buy), set("A"))
	if !notify {
		t.Fatal("verdict change did not notify")
	}
	if !summary.VerdictChanged || summary.PrevVerdict != decision.Hold {
		t.Errorf("summary = %+v, want verdict change from HOLD", summary)
	}
}

func TestShouldNotify_SignalDiffThreshold(t *testing.T) {
	tr := New(2, nil)
	ctx := context.Background()

	tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Hold), set("A", "B"))

	// One signal swapped: diff count 2 (one added, one removed) meets the
	// threshold.
	notify, summary := tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Hold), set("A", "C"))
	if !notify {
		t.Fatalf("diff of 2 at threshold 2 did not notify: %+v", summary)
	}

	// Single addition: below threshold, silent.
	notify, _ = tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Hold), set("A", "C", "D"))
	if notify {
		t.Error("diff of 1 at threshold 2 notified")
	}
}

func TestShouldNotify_StateOverwrittenEvenWhenSilent(t *testing.T) {
	tr := New(2, nil)
	ctx := context.Background()

	tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Hold), set("A"))

	// Silent change (diff 1 < threshold 2) still replaces the baseline.
	tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Hold), set("A", "B"))

	// Reverting to the original set is again a diff of 1 against the
	// *latest* state, not a diff of 0 against the original baseline.
	notify, _ := tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Hold), set("A"))
	if notify {
		t.Error("flicker against the latest state notified at threshold 2")
	}

	st := tr.State("BTCUSDT", "1h")
	if st == nil || !st.Signals.Equal(set("A")) {
		t.Errorf("stored state not overwritten: %+v", st)
	}
}

func TestShouldNotify_PairsAreIsolated(t *testing.T) {
	tr := New(1, nil)
	ctx := context.Background()

	tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Buy), set("A"))

	// Same symbol, different timeframe: still a first evaluation.
	notify, summary := tr.ShouldNotify(ctx, "BTCUSDT", "4h", dec(decision.Buy), set("A"))
	if !notify || !summary.First {
		t.Error("distinct timeframe shares state with another pair")
	}
}

// ────────────────────────────────────────────────────────────
// Store integration
// ────────────────────────────────────────────────────────────

type fakeStore struct {
	states  map[string]*SymbolState
	loadErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string]*SymbolState)}
}

func (f *fakeStore) Load(ctx context.Context, key string) (*SymbolState, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.states[key], nil
}

func (f *fakeStore) Save(ctx context.Context, key string, st *SymbolState) error {
	f.states[key] = st
	f.saves++
	return nil
}

func TestShouldNotify_RestoresFromStoreAcrossRestarts(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	first := New(1, store)
	first.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Buy), set("A"))

	// Fresh tracker, same store: the pair is not unseen anymore.
	second := New(1, store)
	notify, summary := second.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Buy), set("A"))
	if notify {
		t.Errorf("restored unchanged state notified: %+v", summary)
	}

	notify, summary = second.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Sell), set("A"))
	if !notify || !summary.VerdictChanged {
		t.Error("verdict change against restored state did not notify")
	}
}

func TestShouldNotify_StoreFailureIsAdvisory(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("connection refused")

	tr := New(1, store)
	notify, summary := tr.ShouldNotify(context.Background(), "BTCUSDT", "1h", dec(decision.Hold), set())
	if !notify || !summary.First {
		t.Error("store failure must degrade to unseen, not block")
	}
}

func TestSymbolState_JSONRoundTrip(t *testing.T) {
	st := &SymbolState{
		Decision:     dec(decision.Buy),
		Signals:      set("EMA7_CROSS_ABOVE_EMA21", "TREND_STRONG_UP"),
		LastNotified: testTime,
	}

	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back SymbolState
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back.Decision.Verdict != decision.Buy {
		t.Errorf("verdict = %s, want BUY", back.Decision.Verdict)
	}
	if !back.Signals.Equal(st.Signals) {
		t.Errorf("signals = %v, want %v", back.Signals.Names(), st.Signals.Names())
	}
	if !back.LastNotified.Equal(testTime) {
		t.Errorf("last notified = %v, want %v", back.LastNotified, testTime)
	}
}

func TestShouldNotify_SavesEveryEvaluation(t *testing.T) {
	store := newFakeStore()
	tr := New(2, store)
	ctx := context.Background()

	tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Hold), set("A"))
	tr.ShouldNotify(ctx, "BTCUSDT", "1h", dec(decision.Hold), set("A", "B")) // silent

	if store.saves != 2 {
		t.Errorf("saves = %d, want 2 (state persists even when silent)", store.saves)
	}
}
