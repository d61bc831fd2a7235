package notification

import (
	"fmt"
	"strings"

	"crypto-alert-bot/internal/decision"
	"crypto-alert-bot/internal/tracker"
)

// FormatDecision renders a decision and its change summary into an Alert.
// sentiment is an optional one-line market note appended below the reasons;
// pass "" to omit it.
func FormatDecision(d decision.Decision, summary tracker.ChangeSummary, sentiment string) Alert {
	var b strings.Builder

	fmt.Fprintf(&b, "Regime: %s", d.Regime)
	if d.HighVolume {
		b.WriteString(" | high volume")
	}
	b.WriteString("\n")

	for _, reason := range d.Reasons {
		fmt.Fprintf(&b, "• %s\n", reason)
	}

	if sentiment != "" {
		fmt.Fprintf(&b, "Sentiment: %s\n", sentiment)
	}
	fmt.Fprintf(&b, "Change: %s", summary.String())

	return Alert{
		Level:   levelFor(d),
		Title:   fmt.Sprintf("%s %s: %s (score %d)", d.Symbol, d.Timeframe, d.Verdict, d.Score),
		Message: b.String(),
	}
}

// levelFor maps verdicts to alert severity: HOLD transitions are
// informational, directional calls in a strong regime are critical.
func levelFor(d decision.Decision) AlertLevel {
	if d.Verdict == decision.Hold {
		return AlertInfo
	}
	if d.Regime == decision.RegimeStrong {
		return AlertCritical
	}
	return AlertWarning
}
