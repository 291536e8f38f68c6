package signal

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/newthinker/signaldeck/internal/core"
)

// MemoryStore is an in-memory signal store.
type MemoryStore struct {
	signals map[string]core.Signal
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		signals: make(map[string]core.Signal),
		maxSize: maxSize,
	}
}

// Save adds a signal to the store. A signal older than the stored one for the
// same ID is ignored.
func (m *MemoryStore) Save(ctx context.Context, signal core.Signal) error {
	if signal.Symbol == "" {
		return core.WrapError(core.ErrStorageFailed, errors.New("signal without symbol"))
	}
	if signal.ID == "" {
		signal.ID = ID(signal)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.signals[signal.ID]; ok && existing.Timestamp.After(signal.Timestamp.Time) {
		return nil
	}
	m.signals[signal.ID] = signal

	// Trim if over capacity (remove oldest)
	if m.maxSize > 0 && len(m.signals) > m.maxSize {
		sorted := m.sortedLocked()
		for _, old := range sorted[m.maxSize:] {
			delete(m.signals, old.ID)
		}
	}
	return nil
}

// GetByID retrieves a signal by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sig, ok := m.signals[id]
	if !ok {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("signal %q", id))
	}
	return &sig, nil
}

// List returns signals matching the filter.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []core.Signal{}
	for _, sig := range m.sortedLocked() {
		if matches(sig, filter) {
			result = append(result, sig)
		}
	}

	// Apply offset and limit
	if filter.Offset >= len(result) {
		return []core.Signal{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Count returns the count of matching signals.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sig := range m.signals {
		if matches(sig, filter) {
			count++
		}
	}
	return count, nil
}

// Stats counts signals per market and system family.
func (m *MemoryStore) Stats(ctx context.Context) (core.SignalStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := core.SignalStats{}
	for _, sig := range m.signals {
		market := MarketOf(sig.System)
		if stats[market] == nil {
			stats[market] = map[string]int{}
		}
		stats[market][string(sig.System.Family)]++
	}
	return stats, nil
}

// sortedLocked returns all signals newest first, ties broken by ID.
func (m *MemoryStore) sortedLocked() []core.Signal {
	out := make([]core.Signal, 0, len(m.signals))
	for _, sig := range m.signals {
		out = append(out, sig)
	}
	slices.SortFunc(out, func(a, b core.Signal) int {
		if c := b.Timestamp.Compare(a.Timestamp.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// MarketOf extracts the venue from a tag such as "HYBRID_CRYPTO".
func MarketOf(system core.SystemTag) string {
	upper := strings.ToUpper(system.Raw)
	for _, market := range core.Markets[1:] {
		if strings.Contains(upper, market) {
			return market
		}
	}
	return "UNKNOWN"
}

func matches(sig core.Signal, filter ListFilter) bool {
	if filter.Symbol != "" && sig.Symbol != filter.Symbol {
		return false
	}
	upper := strings.ToUpper(sig.System.Raw)
	if filter.Market != "" && !strings.Contains(upper, strings.ToUpper(filter.Market)) {
		return false
	}
	if filter.System != "" && !strings.Contains(upper, strings.ToUpper(filter.System)) {
		return false
	}
	return true
}
