package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/tracker"
)

func sampleDecision() decision.Decision {
	return decision.Decision{
		Symbol:     "BTCUSDT",
		Timeframe:  "1h",
		Verdict:    decision.Buy,
		Score:      83,
		Regime:     decision.RegimeStrong,
		HighVolume: true,
		Reasons:    []string{"EMA50 crossed above EMA200", "EMAs fully stacked bullish"},
		Timestamp:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatDecision(t *testing.T) {
	summary := tracker.ChangeSummary{
		VerdictChanged: true,
		PrevVerdict:    decision.Hold,
		Added:          []string{"EMA50_CROSS_ABOVE_EMA200"},
	}

	alert := FormatDecision(sampleDecision(), summary, "funding neutral")

	if alert.Title != "BTCUSDT 1h: BUY (score 83)" {
		t.Errorf("title = %q", alert.Title)
	}
	if alert.Level != AlertCritical {
		t.Errorf("level = %v for a strong-regime BUY, want critical", alert.Level)
	}
	for _, want := range []string{
		"Regime: STRONG | high volume",
		"• EMA50 crossed above EMA200",
		"• EMAs fully stacked bullish",
		"Sentiment: funding neutral",
		"Change: verdict changed from HOLD",
	} {
		if !strings.Contains(alert.Message, want) {
			t.Errorf("message missing %q:\n%s", want, alert.Message)
		}
	}
}

func TestFormatDecision_OmitsEmptySentiment(t *testing.T) {
	alert := FormatDecision(sampleDecision(), tracker.ChangeSummary{First: true}, "")
	if strings.Contains(alert.Message, "Sentiment:") {
		t.Errorf("empty sentiment rendered:\n%s", alert.Message)
	}
	if !strings.Contains(alert.Message, "Change: first evaluation (baseline)") {
		t.Errorf("baseline change line missing:\n%s", alert.Message)
	}
}

func TestLevelFor(t *testing.T) {
	d := sampleDecision()

	d.Verdict = decision.Hold
	if got := levelFor(d); got != AlertInfo {
		t.Errorf("HOLD level = %v, want info", got)
	}

	d.Verdict = decision.Sell
	d.Regime = decision.RegimeModerate
	if got := levelFor(d); got != AlertWarning {
		t.Errorf("moderate SELL level = %v, want warning", got)
	}

	d.Regime = decision.RegimeStrong
	if got := levelFor(d); got != AlertCritical {
		t.Errorf("strong SELL level = %v, want critical", got)
	}
}

// ────────────────────────────────────────────────────────────
// Telegram transport
// ────────────────────────────────────────────────────────────

func TestTelegramNotifier_Send(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.apiBase = srv.URL

	err := n.Send(context.Background(), Alert{Level: AlertCritical, Title: "BTCUSDT 1h: BUY (score 83)", Message: "Regime: STRONG"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["parse_mode"] != "MarkdownV2" {
		t.Errorf("payload = %v", gotBody)
	}
	text, _ := gotBody["text"].(string)
	if !strings.Contains(text, `score 83\)`) {
		t.Errorf("markdown specials not escaped: %q", text)
	}
}

func TestTelegramNotifier_SendErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.apiBase = srv.URL

	err := n.Send(context.Background(), Alert{Title: "x", Message: "y"})
	if err == nil {
		t.Fatal("expected an error on HTTP 400")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error %q does not carry the API response", err)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := escapeMarkdown("BUY (score 83) | x.y")
	want := `BUY \(score 83\) \| x\.y`
	if got != want {
		t.Errorf("escapeMarkdown = %q, want %q", got, want)
	}
}
