package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/client"
	"github.com/newthinker/signaldeck/internal/config"
	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/metrics"
	"github.com/newthinker/signaldeck/internal/poller"
)

// persistTimeout bounds one preference write.
const persistTimeout = 5 * time.Second

// PreferenceStore loads and saves the user's dashboard preferences.
type PreferenceStore interface {
	Load(ctx context.Context) core.Preferences
	SaveWatchlist(ctx context.Context, w core.Watchlist)
	SaveDarkMode(ctx context.Context, dark bool)
}

// State is a point-in-time copy of everything the dashboard renders.
type State struct {
	Filters core.Filters

	// Snapshot is the last successful poll, nil until one succeeds. It is
	// replaced wholesale and never modified, so it may be shared.
	Snapshot *core.Snapshot

	// Error is the banner text of the latest failed poll, cleared by the next
	// success or by DismissError.
	Error string

	// Loading is set until the first poll after Start completes.
	Loading bool

	// Refreshing is set while a fetch is in flight.
	Refreshing bool

	Preferences core.Preferences
}

// App reconciles poll results, user filters and preferences into the
// dashboard's view state.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	store     PreferenceStore
	scheduler *poller.Scheduler
	stream    *client.Stream

	mu       sync.RWMutex
	filters  core.Filters
	snapshot *core.Snapshot
	errMsg   string
	lastErr  error
	loading  bool
	prefs    core.Preferences
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc

	// prefsMu serializes read-modify-write-persist of preferences.
	prefsMu sync.Mutex

	updates chan struct{}
}

// New creates a new App instance
func New(cfg *config.Config, fetcher poller.Fetcher, store PreferenceStore, logger *zap.Logger, reg *metrics.Registry) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Defaults()
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: reg,
		store:   store,
		filters: core.Filters{
			Market: cfg.Dashboard.Market,
			System: cfg.Dashboard.System,
			Limit:  cfg.API.Limit,
		},
		prefs:   core.Preferences{Watchlist: core.NewWatchlist()},
		updates: make(chan struct{}, 1),
	}
	a.scheduler = poller.New(
		poller.Config{Interval: cfg.Poll.Interval, FetchTimeout: cfg.Poll.FetchTimeout},
		fetcher,
		poller.HandlerFunc(a.handleResult),
		logger,
		reg,
	)
	return a
}

// AttachStream makes every backend update notification trigger a refresh.
// It must be called before Start.
func (a *App) AttachStream(s *client.Stream) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stream = s
}

// Start loads preferences and begins polling. It returns immediately.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	a.loading = true
	ctx, cancel := context.WithCancel(ctx)
	a.ctx, a.cancel = ctx, cancel
	filters := a.filters
	stream := a.stream
	a.mu.Unlock()

	var prefs core.Preferences
	if a.store != nil {
		prefs = a.store.Load(ctx)
	}
	if prefs.Watchlist == nil {
		prefs.Watchlist = core.NewWatchlist()
	}

	a.mu.Lock()
	a.prefs = prefs
	a.mu.Unlock()
	a.metrics.SetWatchlistSize(len(prefs.Watchlist))

	a.logger.Info("signaldeck starting",
		zap.String("market", filters.Market),
		zap.String("system", filters.System),
		zap.Int("watchlist_count", len(prefs.Watchlist)),
		zap.Duration("interval", a.cfg.Poll.Interval),
	)

	a.scheduler.Activate(ctx, filters)
	if stream != nil {
		go a.runStream(ctx, stream)
	}
	a.notify()
	return nil
}

// Stop stops polling. Results still in flight are discarded.
func (a *App) Stop() {
	a.scheduler.Deactivate()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.running {
		a.logger.Info("signaldeck shutting down")
	}
	a.running = false
}

// Wait blocks until in-flight fetches have returned after Stop.
func (a *App) Wait(ctx context.Context) error {
	return a.scheduler.Wait(ctx)
}

func (a *App) runStream(ctx context.Context, s *client.Stream) {
	err := s.Run(ctx, func(e client.StreamEvent) {
		a.logger.Debug("backend update", zap.Int("count", e.Data.Count))
		a.Refresh()
	})
	a.logger.Debug("update stream stopped", zap.Error(err))
}

// handleResult is called by the scheduler for every current poll.
func (a *App) handleResult(snap *core.Snapshot, err error) {
	a.mu.Lock()
	a.loading = false
	if err != nil {
		a.errMsg = core.UserMessage(err)
		a.lastErr = err
	} else {
		a.snapshot = snap
		a.errMsg = ""
		a.lastErr = nil
	}
	a.mu.Unlock()

	if err == nil {
		a.metrics.SetSnapshotSignals(len(snap.Signals))
	}
	a.notify()
}

// SetMarket changes the market filter and restarts polling for it.
func (a *App) SetMarket(market string) error {
	if !slices.Contains(core.Markets, market) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown market %q", market))
	}
	return a.updateFilters(func(f *core.Filters) { f.Market = market })
}

// SetSystem changes the system filter and restarts polling for it.
func (a *App) SetSystem(system string) error {
	if !slices.Contains(core.Systems, system) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown system %q", system))
	}
	return a.updateFilters(func(f *core.Filters) { f.System = system })
}

func (a *App) updateFilters(apply func(*core.Filters)) error {
	a.mu.Lock()
	next := a.filters
	apply(&next)
	if next == a.filters {
		a.mu.Unlock()
		return nil
	}
	a.filters = next
	running, ctx := a.running, a.ctx
	a.mu.Unlock()

	a.logger.Debug("filters changed",
		zap.String("market", next.Market),
		zap.String("system", next.System),
	)
	if running {
		a.scheduler.Activate(ctx, next)
	}
	a.notify()
	return nil
}

// Refresh asks for an immediate poll. It returns false when a poll is
// already in flight or the app is stopped.
func (a *App) Refresh() bool {
	a.mu.RLock()
	running := a.running
	a.mu.RUnlock()
	if !running {
		return false
	}

	ok := a.scheduler.Refresh()
	if ok {
		a.notify()
	}
	return ok
}

// ToggleWatchlist adds or removes symbol from the watchlist and persists the
// result. It returns the new watchlist.
func (a *App) ToggleWatchlist(symbol string) core.Watchlist {
	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()

	a.mu.Lock()
	if symbol == "" {
		w := a.prefs.Watchlist.Clone()
		a.mu.Unlock()
		return w
	}
	w := a.prefs.Watchlist.Toggle(symbol)
	a.prefs.Watchlist = w
	a.mu.Unlock()

	a.metrics.SetWatchlistSize(len(w))
	a.notify()

	if a.store != nil {
		ctx, cancel := a.persistContext()
		defer cancel()
		a.store.SaveWatchlist(ctx, w)
	}
	return w.Clone()
}

// SetDarkMode sets and persists the theme.
func (a *App) SetDarkMode(dark bool) {
	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()

	a.mu.Lock()
	a.prefs.DarkMode = dark
	a.mu.Unlock()
	a.notify()

	if a.store != nil {
		ctx, cancel := a.persistContext()
		defer cancel()
		a.store.SaveDarkMode(ctx, dark)
	}
}

// DismissError clears the error banner.
func (a *App) DismissError() {
	a.mu.Lock()
	a.errMsg = ""
	a.mu.Unlock()
	a.notify()
}

// State returns a copy of the current view state.
func (a *App) State() State {
	refreshing := a.scheduler.State() == poller.Fetching

	a.mu.RLock()
	defer a.mu.RUnlock()

	return State{
		Filters:    a.filters,
		Snapshot:   a.snapshot,
		Error:      a.errMsg,
		Loading:    a.loading,
		Refreshing: refreshing,
		Preferences: core.Preferences{
			Watchlist: a.prefs.Watchlist.Clone(),
			DarkMode:  a.prefs.DarkMode,
		},
	}
}

// Updates signals that State has changed. Notifications coalesce: one
// pending signal stands for any number of changes.
func (a *App) Updates() <-chan struct{} {
	return a.updates
}

func (a *App) notify() {
	select {
	case a.updates <- struct{}{}:
	default:
	}
}

func (a *App) persistContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), persistTimeout)
}

// GetStats returns app statistics
func (a *App) GetStats() map[string]any {
	pollerState := a.scheduler.State()

	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"running":         a.running,
		"market":          a.filters.Market,
		"system":          a.filters.System,
		"watchlist_count": len(a.prefs.Watchlist),
		"poller_state":    pollerState.String(),
	}
	if a.snapshot != nil {
		stats["signals"] = len(a.snapshot.Signals)
		stats["fetched_at"] = a.snapshot.FetchedAt
	}
	if a.lastErr != nil {
		stats["last_error"] = a.lastErr.Error()
	}
	return stats
}
