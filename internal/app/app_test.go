package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/signaldeck/internal/config"
	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/prefs"
	"github.com/newthinker/signaldeck/internal/storage/kv"
)

// mockFetcher returns whatever the test queues, one entry per call. With an
// empty queue it returns the last snapshot it was given.
type mockFetcher struct {
	mu      sync.Mutex
	results []result
	last    result
	calls   []core.Filters
	gate    chan struct{}
}

type result struct {
	snap *core.Snapshot
	err  error
}

func (m *mockFetcher) push(snap *core.Snapshot, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result{snap, err})
}

func (m *mockFetcher) FetchSnapshot(ctx context.Context, filters core.Filters) (*core.Snapshot, error) {
	m.mu.Lock()
	m.calls = append(m.calls, filters)
	gate := m.gate
	r := m.last
	if len(m.results) > 0 {
		r, m.results = m.results[0], m.results[1:]
		m.last = r
	}
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.snap, r.err
}

func (m *mockFetcher) lastFilters() core.Filters {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return core.Filters{}
	}
	return m.calls[len(m.calls)-1]
}

func snapshot(symbols ...string) *core.Snapshot {
	snap := &core.Snapshot{ScannerStatus: "online", FetchedAt: time.Now()}
	for _, s := range symbols {
		snap.Signals = append(snap.Signals, core.Signal{ID: s + "_LONG_ENTRY", Symbol: s, Type: core.ParseSignalType("LONG_ENTRY")})
	}
	return snap
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Poll.Interval = time.Hour
	cfg.Poll.FetchTimeout = time.Second
	return cfg
}

func waitFor(t *testing.T, a *App, cond func(State) bool) State {
	t.Helper()
	var st State
	require.Eventually(t, func() bool {
		st = a.State()
		return cond(st)
	}, 2*time.Second, time.Millisecond)
	return st
}

func TestApp_New(t *testing.T) {
	a := New(nil, &mockFetcher{}, nil, nil, nil)
	require.NotNil(t, a)

	st := a.State()
	assert.Equal(t, core.MarketCrypto, st.Filters.Market)
	assert.Equal(t, core.All, st.Filters.System)
	assert.Equal(t, 20, st.Filters.Limit)
	assert.Nil(t, st.Snapshot)
	assert.False(t, a.GetStats()["running"].(bool))
}

func TestApp_StartLoadsPreferencesAndPolls(t *testing.T) {
	storage := kv.NewMemory()
	store := prefs.New(storage)
	store.SaveWatchlist(context.Background(), core.NewWatchlist("ETH"))
	store.SaveDarkMode(context.Background(), true)

	f := &mockFetcher{}
	f.push(snapshot("BTC", "ETH"), nil)

	a := New(testConfig(), f, store, nil, nil)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()

	assert.Error(t, a.Start(context.Background()), "second start is rejected")

	st := waitFor(t, a, func(s State) bool { return s.Snapshot != nil })
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Len(t, st.Snapshot.Signals, 2)
	assert.True(t, st.Preferences.Watchlist.Has("ETH"))
	assert.True(t, st.Preferences.DarkMode)
	assert.Equal(t, core.MarketCrypto, f.lastFilters().Market)
}

func TestApp_FailureKeepsLastGoodSnapshot(t *testing.T) {
	f := &mockFetcher{gate: make(chan struct{})}
	f.push(snapshot("BTC"), nil)
	f.push(nil, core.WrapError(core.ErrNetworkUnreachable, errors.New("connection refused")))
	f.push(nil, core.WrapError(core.ErrUnexpected, errors.New("backend returned 500")))
	f.push(snapshot("SOL"), nil)

	cfg := testConfig()
	cfg.Poll.Interval = time.Millisecond
	a := New(cfg, f, nil, nil, nil)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()

	f.gate <- struct{}{}
	waitFor(t, a, func(s State) bool { return s.Snapshot != nil })

	f.gate <- struct{}{}
	st := waitFor(t, a, func(s State) bool { return s.Error != "" })
	assert.Equal(t, "Network error: backend unreachable", st.Error)
	require.NotNil(t, st.Snapshot, "failure keeps the last good snapshot")
	assert.Equal(t, "BTC", st.Snapshot.Signals[0].Symbol)

	f.gate <- struct{}{}
	st = waitFor(t, a, func(s State) bool { return s.Error != "Network error: backend unreachable" })
	assert.Contains(t, st.Error, "Unexpected error: ")
	assert.Equal(t, "BTC", st.Snapshot.Signals[0].Symbol)

	f.gate <- struct{}{}
	st = waitFor(t, a, func(s State) bool { return s.Snapshot.Signals[0].Symbol == "SOL" })
	assert.Empty(t, st.Error, "success clears the banner")
}

func TestApp_ErrorBannerAndDismiss(t *testing.T) {
	f := &mockFetcher{}
	f.push(nil, core.WrapError(core.ErrUnexpected, errors.New("decode response: bad json")))

	a := New(testConfig(), f, nil, nil, nil)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()

	st := waitFor(t, a, func(s State) bool { return s.Error != "" })
	assert.Equal(t, "Unexpected error: decode response: bad json", st.Error)
	assert.Nil(t, st.Snapshot, "nothing to show yet")
	assert.False(t, st.Loading)
	assert.Contains(t, a.GetStats(), "last_error")

	a.DismissError()
	assert.Empty(t, a.State().Error)
}

func TestApp_SetMarketAndSystem(t *testing.T) {
	f := &mockFetcher{}
	f.push(snapshot("BTC"), nil)

	a := New(testConfig(), f, nil, nil, nil)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()
	waitFor(t, a, func(s State) bool { return s.Snapshot != nil })

	require.NoError(t, a.SetMarket(core.MarketBIST))
	waitFor(t, a, func(State) bool { return f.lastFilters().Market == core.MarketBIST })

	require.NoError(t, a.SetSystem("ELLIOTT"))
	waitFor(t, a, func(State) bool { return f.lastFilters().System == "ELLIOTT" })
	assert.Equal(t, core.MarketBIST, f.lastFilters().Market)

	st := a.State()
	assert.Equal(t, core.MarketBIST, st.Filters.Market)
	assert.Equal(t, "ELLIOTT", st.Filters.System)

	assert.ErrorIs(t, a.SetMarket("FOREX"), core.ErrConfigInvalid)
	assert.ErrorIs(t, a.SetSystem("MOMENTUM"), core.ErrConfigInvalid)
}

func TestApp_RefreshIsCoalesced(t *testing.T) {
	f := &mockFetcher{gate: make(chan struct{})}
	f.push(snapshot("BTC"), nil)

	a := New(testConfig(), f, nil, nil, nil)
	assert.False(t, a.Refresh(), "not running")

	require.NoError(t, a.Start(context.Background()))
	defer a.Stop()

	waitFor(t, a, func(s State) bool { return s.Refreshing })
	assert.False(t, a.Refresh(), "fetch in flight")

	f.gate <- struct{}{}
	waitFor(t, a, func(s State) bool { return s.Snapshot != nil && !s.Refreshing })

	assert.True(t, a.Refresh())
	f.gate <- struct{}{}
}

func TestApp_ToggleWatchlist(t *testing.T) {
	storage := kv.NewMemory()
	a := New(testConfig(), &mockFetcher{}, prefs.New(storage), nil, nil)

	w := a.ToggleWatchlist("BTC")
	assert.True(t, w.Has("BTC"))
	w = a.ToggleWatchlist("ETH")
	assert.Equal(t, []string{"BTC", "ETH"}, w.Symbols())
	w = a.ToggleWatchlist("BTC")
	assert.Equal(t, []string{"ETH"}, w.Symbols())
	assert.Equal(t, []string{"ETH"}, a.ToggleWatchlist("").Symbols(), "empty symbol is ignored")

	raw, err := storage.Read(context.Background(), prefs.KeyWatchlist)
	require.NoError(t, err)
	assert.JSONEq(t, `["ETH"]`, string(raw))

	// The returned set is a copy.
	delete(w, "ETH")
	assert.True(t, a.State().Preferences.Watchlist.Has("ETH"))
}

func TestApp_SetDarkMode(t *testing.T) {
	storage := kv.NewMemory()
	a := New(testConfig(), &mockFetcher{}, prefs.New(storage), nil, nil)

	a.SetDarkMode(true)
	assert.True(t, a.State().Preferences.DarkMode)

	raw, err := storage.Read(context.Background(), prefs.KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "true", string(raw))

	a.SetDarkMode(false)
	assert.False(t, a.State().Preferences.DarkMode)
}

func TestApp_StopDiscardsInFlightResult(t *testing.T) {
	f := &mockFetcher{gate: make(chan struct{})}
	f.push(snapshot("BTC"), nil)

	a := New(testConfig(), f, nil, nil, nil)
	require.NoError(t, a.Start(context.Background()))
	waitFor(t, a, func(s State) bool { return s.Refreshing })

	a.Stop()
	require.NoError(t, a.Wait(context.Background()))

	st := a.State()
	assert.Nil(t, st.Snapshot)
	assert.False(t, st.Refreshing)
	assert.False(t, a.GetStats()["running"].(bool))
}

func TestApp_UpdatesCoalesce(t *testing.T) {
	a := New(testConfig(), &mockFetcher{}, nil, nil, nil)

	a.DismissError()
	a.DismissError()
	a.SetDarkMode(true)

	select {
	case <-a.Updates():
	default:
		t.Fatal("expected a pending update")
	}
	select {
	case <-a.Updates():
		t.Fatal("updates should coalesce into one signal")
	default:
	}
}
