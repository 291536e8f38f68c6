package core

import "sort"

// Watchlist is a set of pinned symbols.
type Watchlist map[string]struct{}

// NewWatchlist builds a watchlist from symbols, ignoring empty strings.
func NewWatchlist(symbols ...string) Watchlist {
	w := make(Watchlist, len(symbols))
	for _, s := range symbols {
		if s != "" {
			w[s] = struct{}{}
		}
	}
	return w
}

// Has reports whether symbol is watched.
func (w Watchlist) Has(symbol string) bool {
	_, ok := w[symbol]
	return ok
}

// Toggle returns a new watchlist with symbol's membership flipped.
// The receiver is left unchanged.
func (w Watchlist) Toggle(symbol string) Watchlist {
	next := w.Clone()
	if next.Has(symbol) {
		delete(next, symbol)
	} else {
		next[symbol] = struct{}{}
	}
	return next
}

// Clone returns a copy of the set.
func (w Watchlist) Clone() Watchlist {
	next := make(Watchlist, len(w))
	for s := range w {
		next[s] = struct{}{}
	}
	return next
}

// Symbols returns the members in sorted order.
func (w Watchlist) Symbols() []string {
	out := make([]string, 0, len(w))
	for s := range w {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same symbols.
func (w Watchlist) Equal(other Watchlist) bool {
	if len(w) != len(other) {
		return false
	}
	for s := range w {
		if !other.Has(s) {
			return false
		}
	}
	return true
}
