package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/signaldeck/internal/app"
	"github.com/newthinker/signaldeck/internal/core"
)

type fakeController struct {
	state      app.State
	updates    chan struct{}
	refreshOK  bool
	refreshes  int
	markets    []string
	systems    []string
	toggled    []string
	dismissed  int
	setMarketE error
}

func newFakeController(signals ...core.Signal) *fakeController {
	return &fakeController{
		updates: make(chan struct{}, 1),
		state: app.State{
			Filters: core.Filters{Market: core.All, System: core.All},
			Snapshot: &core.Snapshot{
				Signals:       signals,
				ScannerStatus: "online",
				Markets: map[string]core.MarketStatus{
					"CRYPTO": {Name: "Crypto", Status: "open", TradingHours: "24/7"},
				},
				FetchedAt: time.Now(),
			},
			Preferences: core.Preferences{Watchlist: core.NewWatchlist()},
		},
	}
}

func (f *fakeController) State() app.State         { return f.state }
func (f *fakeController) Updates() <-chan struct{} { return f.updates }

func (f *fakeController) SetMarket(market string) error {
	if f.setMarketE != nil {
		return f.setMarketE
	}
	f.markets = append(f.markets, market)
	f.state.Filters.Market = market
	return nil
}

func (f *fakeController) SetSystem(system string) error {
	f.systems = append(f.systems, system)
	f.state.Filters.System = system
	return nil
}

func (f *fakeController) Refresh() bool {
	f.refreshes++
	return f.refreshOK
}

func (f *fakeController) ToggleWatchlist(symbol string) core.Watchlist {
	f.toggled = append(f.toggled, symbol)
	f.state.Preferences.Watchlist = f.state.Preferences.Watchlist.Toggle(symbol)
	return f.state.Preferences.Watchlist.Clone()
}

func (f *fakeController) SetDarkMode(dark bool) { f.state.Preferences.DarkMode = dark }

func (f *fakeController) DismissError() {
	f.dismissed++
	f.state.Error = ""
}

type fakeClipboard struct {
	copied []string
	err    error
}

func (c *fakeClipboard) Copy(text string) error {
	if c.err != nil {
		return c.err
	}
	c.copied = append(c.copied, text)
	return nil
}

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func testSignals() []core.Signal {
	mk := func(id, symbol, typ string, price float64, minutes int) core.Signal {
		return core.Signal{
			ID:        id,
			Symbol:    symbol,
			Type:      core.ParseSignalType(typ),
			Price:     price,
			Timestamp: core.Timestamp{Time: base.Add(time.Duration(minutes) * time.Minute)},
			System:    core.ParseSystemTag("HYBRID"),
			Message:   symbol + " " + typ,
		}
	}
	return []core.Signal{
		mk("1", "BTCUSDT", core.TypeLongEntry, 65000, 1),
		mk("2", "ETHUSDT", core.TypeShortEntry, 3200.5, 3),
		mk("3", "SOLUSDT", core.TypeLongExit, 0.5, 2),
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return next.(Model)
}

func visibleIDs(m Model) []string {
	out := make([]string, len(m.visible))
	for i, s := range m.visible {
		out[i] = s.ID
	}
	return out
}

func TestNew_ProjectsInitialState(t *testing.T) {
	m := New(newFakeController(testSignals()...))

	assert.Equal(t, []string{"2", "3", "1"}, visibleIDs(m))
	assert.Equal(t, "2", m.selectedID)
	assert.Equal(t, 3, m.summary.Total)
	assert.Equal(t, 2, m.summary.Entries)
}

func TestModel_FilterKeys(t *testing.T) {
	ctl := newFakeController(testSignals()...)
	m := New(ctl)

	m, _ = press(t, m, "m", "m", "y")
	assert.Equal(t, []string{core.Markets[1], core.Markets[2]}, ctl.markets)
	assert.Equal(t, []string{core.Systems[1]}, ctl.systems)
	assert.Equal(t, core.Markets[2], m.state.Filters.Market)
}

func TestModel_FilterRejected(t *testing.T) {
	ctl := newFakeController(testSignals()...)
	ctl.setMarketE = core.WrapError(core.ErrConfigInvalid, errors.New("bad market"))
	m := New(ctl)

	m, _ = press(t, m, "m")
	assert.NotEmpty(t, m.flash)
	assert.Equal(t, core.All, m.state.Filters.Market)
}

func TestModel_ViewControls(t *testing.T) {
	m := New(newFakeController(testSignals()...))

	m, _ = press(t, m, "tab")
	assert.Equal(t, []string{"2", "1"}, visibleIDs(m))

	m, _ = press(t, m, "tab", "tab", "s")
	assert.Equal(t, []string{"3", "2", "1"}, visibleIDs(m))

	m, _ = press(t, m, "o")
	assert.Equal(t, []string{"1", "2", "3"}, visibleIDs(m))
}

func TestModel_Search(t *testing.T) {
	m := New(newFakeController(testSignals()...))

	m, cmd := press(t, m, "/")
	assert.True(t, m.searching)
	assert.NotNil(t, cmd)

	m, _ = press(t, m, "e", "t", "h")
	assert.Equal(t, "eth", m.query.Search)
	assert.Equal(t, []string{"2"}, visibleIDs(m))

	m, _ = press(t, m, "enter")
	assert.False(t, m.searching)
	assert.Equal(t, "eth", m.query.Search)

	m, _ = press(t, m, "esc")
	assert.Empty(t, m.query.Search)
	assert.Len(t, m.visible, 3)
}

func TestModel_SearchSwallowsCommandKeys(t *testing.T) {
	ctl := newFakeController(testSignals()...)
	m := New(ctl)

	m, _ = press(t, m, "/", "r", "m")
	assert.True(t, m.searching)
	assert.Equal(t, "rm", m.query.Search)
	assert.Zero(t, ctl.refreshes)
	assert.Empty(t, ctl.markets)
}

func TestModel_SearchEscClears(t *testing.T) {
	m := New(newFakeController(testSignals()...))

	m, _ = press(t, m, "/", "s", "o", "l", "esc")
	assert.False(t, m.searching)
	assert.Empty(t, m.query.Search)
	assert.Len(t, m.visible, 3)
}

func TestModel_Selection(t *testing.T) {
	m := New(newFakeController(testSignals()...))

	m, _ = press(t, m, "down")
	assert.Equal(t, "3", m.selectedID)
	m, _ = press(t, m, "down", "down", "down")
	assert.Equal(t, "1", m.selectedID)
	m, _ = press(t, m, "up")
	assert.Equal(t, "3", m.selectedID)

	// Selection follows the signal across re-sorts.
	m, _ = press(t, m, "o")
	assert.Equal(t, "3", m.selectedID)
}

func TestModel_ToggleWatchlistPinsSelected(t *testing.T) {
	ctl := newFakeController(testSignals()...)
	m := New(ctl)

	m, _ = press(t, m, "down", "down", " ")
	assert.Equal(t, []string{"BTCUSDT"}, ctl.toggled)
	assert.Equal(t, []string{"1", "2", "3"}, visibleIDs(m))
	assert.Equal(t, "1", m.selectedID)
}

func TestModel_Copy(t *testing.T) {
	clip := &fakeClipboard{}
	m := New(newFakeController(testSignals()...), WithClipboard(clip), WithCopiedFor(time.Minute))

	m, cmd := press(t, m, "c")
	require.Len(t, clip.copied, 1)
	assert.Equal(t, "ETHUSDT - SHORT_ENTRY @ $3200.500000 - HYBRID", clip.copied[0])
	assert.Equal(t, "2", m.copied.Active())
	assert.NotNil(t, cmd)

	m = sized(t, m)
	assert.Contains(t, m.viewport.View(), "Copied!")
}

func TestModel_CopyFailure(t *testing.T) {
	clip := &fakeClipboard{err: errors.New("no tty")}
	m := New(newFakeController(testSignals()...), WithClipboard(clip))

	m, cmd := press(t, m, "c")
	assert.Nil(t, cmd)
	assert.Equal(t, "Copy failed", m.flash)
	assert.Empty(t, m.copied.Active())
}

func TestModel_RefreshCoalesced(t *testing.T) {
	ctl := newFakeController(testSignals()...)
	m := New(ctl)

	m, _ = press(t, m, "r")
	assert.Equal(t, 1, ctl.refreshes)
	assert.Equal(t, "Refresh already in progress", m.flash)

	ctl.refreshOK = true
	m, _ = press(t, m, "r")
	assert.Equal(t, 2, ctl.refreshes)
	assert.Empty(t, m.flash)
}

func TestModel_DarkModeToggle(t *testing.T) {
	ctl := newFakeController(testSignals()...)
	m := New(ctl)

	m, _ = press(t, m, "d")
	assert.True(t, ctl.state.Preferences.DarkMode)
	assert.True(t, m.state.Preferences.DarkMode)
	m, _ = press(t, m, "d")
	assert.False(t, m.state.Preferences.DarkMode)
}

func TestModel_EscDismissesBanner(t *testing.T) {
	ctl := newFakeController(testSignals()...)
	ctl.state.Error = "Network error: backend unreachable"
	m := sized(t, New(ctl))

	assert.Contains(t, m.View(), "backend unreachable")

	m, _ = press(t, m, "esc")
	assert.Equal(t, 1, ctl.dismissed)
	assert.NotContains(t, m.View(), "backend unreachable")
}

func TestModel_Quit(t *testing.T) {
	m := New(newFakeController())
	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRun_EndsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, New(newFakeController(testSignals()...)), tea.WithInput(nil), tea.WithOutput(io.Discard))
	}()

	select {
	case err := <-done:
		assert.NoError(t, err, "a cancelled context is a clean exit")
	case <-time.After(2 * time.Second):
		t.Fatal("dashboard kept running after its context ended")
	}
}

func TestModel_StateChanged(t *testing.T) {
	ctl := newFakeController()
	m := New(ctl)
	assert.Empty(t, m.visible)

	ctl.state.Snapshot = &core.Snapshot{Signals: testSignals()}
	next, cmd := m.Update(stateChangedMsg{})
	m = next.(Model)
	assert.Len(t, m.visible, 3)
	assert.NotNil(t, cmd)
}

func TestWaitForUpdate(t *testing.T) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	assert.Equal(t, stateChangedMsg{}, waitForUpdate(ch)())
}

func TestModel_View(t *testing.T) {
	ctl := newFakeController(testSignals()...)
	ctl.state.Preferences.Watchlist = core.NewWatchlist("SOLUSDT")
	ctl.state.Snapshot.Portfolio = core.Portfolio{TotalBalance: 10000, TotalPnL: -12.5}
	ctl.state.Snapshot.OpenTradesPnL = []core.TradeWithPnL{{
		Trade:        core.Trade{Symbol: "BTCUSDT", Type: "LONG", EntryPrice: 64000},
		CurrentPrice: 65000,
		PnLPercent:   1.56,
	}}
	ctl.state.Snapshot.OpenTrades = []core.Trade{ctl.state.Snapshot.OpenTradesPnL[0].Trade}

	m := sized(t, New(ctl))
	out := m.View()

	for _, want := range []string{
		"SIGNALDECK", "ONLINE", "24/7",
		"SIGNALS (3 of 3)", "★", "SOLUSDT", "$3200.50",
		"PORTFOLIO", "$10000.00", "-$12.50",
		"OPEN POSITIONS (1)", "+1.56%",
		"No closed trades",
	} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.Index(out, "SOLUSDT") < strings.Index(out, "ETHUSDT"), "watched symbol pinned first")
}

func TestModel_ViewEmptyStates(t *testing.T) {
	ctl := newFakeController()
	ctl.state.Snapshot = nil
	ctl.state.Loading = true
	m := sized(t, New(ctl))
	assert.Contains(t, m.View(), "Loading signals...")

	ctl = newFakeController(testSignals()...)
	m = sized(t, New(ctl))
	m, _ = press(t, m, "/", "x", "y", "z", "enter")
	assert.Contains(t, m.View(), "No signals match the current filters")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "-", formatPrice(0))
	assert.Equal(t, "$0.500000", formatPrice(0.5))
	assert.Equal(t, "$42.1000", formatPrice(42.1))
	assert.Equal(t, "$65000.00", formatPrice(65000))
	assert.Equal(t, "-$3.25", formatMoney(-3.25))
	assert.Equal(t, "-2.00%", formatPercent(-2))
	assert.Equal(t, "-", formatTime(core.Timestamp{}))
	assert.Equal(t, "ab  ", padOrTrunc("ab", 4))
	assert.Equal(t, "abc", padOrTrunc("abcdef", 3))
}
