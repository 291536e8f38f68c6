// Package view derives what the dashboard shows from the latest snapshot.
// Everything here is pure except CopyIndicator.
package view

// Scope narrows the list to entry or exit signals.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeEntry
	ScopeExit
)

func (s Scope) String() string {
	switch s {
	case ScopeEntry:
		return "ENTRY"
	case ScopeExit:
		return "EXIT"
	default:
		return "ALL"
	}
}

// Next cycles ALL -> ENTRY -> EXIT -> ALL.
func (s Scope) Next() Scope {
	return (s + 1) % 3
}

// token is the signal type substring the scope requires.
func (s Scope) token() string {
	switch s {
	case ScopeEntry:
		return "ENTRY"
	case ScopeExit:
		return "EXIT"
	default:
		return ""
	}
}

// SortKey is the primary ordering field.
type SortKey int

const (
	SortTimestamp SortKey = iota
	SortSymbol
	SortPrice
)

func (k SortKey) String() string {
	switch k {
	case SortSymbol:
		return "symbol"
	case SortPrice:
		return "price"
	default:
		return "timestamp"
	}
}

// Next cycles timestamp -> symbol -> price -> timestamp.
func (k SortKey) Next() SortKey {
	return (k + 1) % 3
}

// SortDir is the ordering direction.
type SortDir int

const (
	Desc SortDir = iota
	Asc
)

func (d SortDir) String() string {
	if d == Asc {
		return "asc"
	}
	return "desc"
}

// Toggle flips the direction.
func (d SortDir) Toggle() SortDir {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Query holds the user's view controls. The zero value is the dashboard's
// initial state: all signals, no search, newest first.
type Query struct {
	Scope   Scope
	Search  string
	SortKey SortKey
	SortDir SortDir
}
