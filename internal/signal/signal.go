// Package signal converts indicator snapshots into discrete named trading
// signals and defines the set operations the state tracker diffs on.
package signal

import "sort"

// Polarity classifies which side of the market a signal supports.
type Polarity int8

const (
	Neutral Polarity = iota // confirmation-only, e.g. volume surge
	Buy
	Sell
)

func (p Polarity) String() string {
	switch p {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NEUTRAL"
	}
}

// Signal is one named condition active at the current bar. Polarity comes
// from a fixed table; Rank orders reasons in the final decision (lower rank
// first: long-term EMA crossovers, then momentum, S/R confirmation last).
type Signal struct {
	Name     string   `json:"name"`
	Polarity Polarity `json:"polarity"`
	Rank     int      `json:"rank"`
	Detail   string   `json:"detail"`
}

// Rank bands. EMA crossovers occupy [0, rankMACD); longer-term pairs get
// lower ranks inside the band.
const (
	rankMACD     = 10
	rankRSI      = 11
	rankTrend    = 12
	rankVolume   = 13
	rankBreakout = 14
	rankNearSR   = 15
)

// Set is the collection of signals active at one bar, keyed by name.
// Duplicates are impossible and order is irrelevant.
type Set map[string]Signal

// NewSet returns an empty signal set.
func NewSet() Set { return make(Set) }

// Add inserts a signal, replacing any previous signal with the same name.
func (s Set) Add(sig Signal) { s[sig.Name] = sig }

// Has reports whether a signal with the given name is active.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the active signal names in deterministic (sorted) order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of active signals with the given polarity.
func (s Set) Count(p Polarity) int {
	n := 0
	for _, sig := range s {
		if sig.Polarity == p {
			n++
		}
	}
	return n
}

// ByPolarity returns the active signals with the given polarity, most
// significant first (ascending rank, name as tiebreak).
func (s Set) ByPolarity(p Polarity) []Signal {
	out := make([]Signal, 0, len(s))
	for _, sig := range s {
		if sig.Polarity == p {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Diff returns the signal names present in s but not in prev (added) and
// present in prev but not in s (removed), both sorted.
func (s Set) Diff(prev Set) (added, removed []string) {
	for name := range s {
		if _, ok := prev[name]; !ok {
			added = append(added, name)
		}
	}
	for name := range prev {
		if _, ok := s[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// Equal reports whether both sets contain exactly the same signal names.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for name := range s {
		if _, ok := other[name]; !ok {
			return false
		}
	}
	return true
}
