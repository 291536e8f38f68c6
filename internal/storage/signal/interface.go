// Package signal keeps the current signal set served by the mock backend.
package signal

import (
	"context"

	"github.com/newthinker/signaldeck/internal/core"
)

// Store defines the interface for signal persistence.
type Store interface {
	// Save stores a signal as the current one for its symbol and type,
	// replacing any older signal with the same ID.
	Save(ctx context.Context, signal core.Signal) error

	// GetByID retrieves a signal by its ID.
	GetByID(ctx context.Context, id string) (*core.Signal, error)

	// List retrieves signals matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]core.Signal, error)

	// Count returns the number of signals matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)

	// Stats counts signals per market and system family.
	Stats(ctx context.Context) (core.SignalStats, error)
}

// ListFilter defines criteria for listing signals. Market and System match
// as case-insensitive substrings of the signal's system tag, so "CRYPTO"
// selects "HYBRID_CRYPTO".
type ListFilter struct {
	Symbol string
	Market string
	System string
	Limit  int
	Offset int
}

// ID returns the identifier the backend gives a signal: symbol and type.
func ID(sig core.Signal) string {
	return sig.Symbol + "_" + sig.Type.Raw
}
