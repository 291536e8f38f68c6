package view

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/newthinker/signaldeck/internal/core"
)

// Project returns the signals to display, in display order:
//  1. scope filter (signal type contains ENTRY or EXIT),
//  2. case-insensitive symbol search,
//  3. stable sort by the query's key and direction,
//  4. stable partition moving watched symbols to the front.
//
// signals is never modified.
func Project(signals []core.Signal, q Query, watchlist core.Watchlist) []core.Signal {
	out := make([]core.Signal, 0, len(signals))

	token := q.Scope.token()
	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, s := range signals {
		if token != "" && !strings.Contains(s.Type.Raw, token) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Symbol), search) {
			continue
		}
		out = append(out, s)
	}

	compare := comparator(q.SortKey)
	if q.SortDir == Desc {
		asc := compare
		compare = func(a, b core.Signal) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)

	if len(watchlist) > 0 {
		slices.SortStableFunc(out, func(a, b core.Signal) int {
			return cmp.Compare(pinRank(watchlist, a), pinRank(watchlist, b))
		})
	}
	return out
}

func pinRank(w core.Watchlist, s core.Signal) int {
	if w.Has(s.Symbol) {
		return 0
	}
	return 1
}

// comparator returns the ascending order for key.
func comparator(key SortKey) func(a, b core.Signal) int {
	switch key {
	case SortSymbol:
		// Collators keep scratch buffers; one per projection.
		coll := collate.New(language.Und)
		return func(a, b core.Signal) int {
			return coll.CompareString(a.Symbol, b.Symbol)
		}
	case SortPrice:
		return func(a, b core.Signal) int {
			return cmp.Compare(a.Price, b.Price)
		}
	default:
		return func(a, b core.Signal) int {
			return a.Timestamp.Compare(b.Timestamp.Time)
		}
	}
}
