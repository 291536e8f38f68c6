// Package poller schedules snapshot fetches: one immediate fetch on
// activation, then one more a fixed interval after each completes.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/metrics"
)

// State is the scheduler's lifecycle state.
type State int

const (
	Idle State = iota
	Fetching
	Scheduled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Scheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// Fetcher produces a snapshot for the given filters.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, filters core.Filters) (*core.Snapshot, error)
}

// Handler receives the outcome of every poll that was not superseded or
// torn down.
// Exactly one of snap and err is non-nil. HandleResult runs under the
// scheduler lock and must not call back into the Scheduler.
type Handler interface {
	HandleResult(snap *core.Snapshot, err error)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(*core.Snapshot, error)

func (f HandlerFunc) HandleResult(snap *core.Snapshot, err error) {
	f(snap, err)
}

// Config holds scheduler configuration.
type Config struct {
	Interval     time.Duration // Delay after a poll completes (default: 5s)
	FetchTimeout time.Duration // Upper bound on one poll (default: 12s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Second,
		FetchTimeout: 12 * time.Second,
	}
}

// Scheduler runs at most one fetch at a time. Each Activate or Deactivate
// starts a new generation; results from older generations are dropped.
type Scheduler struct {
	cfg     Config
	fetcher Fetcher
	handler Handler
	logger  *zap.Logger
	metrics *metrics.Registry

	mu      sync.Mutex
	state   State
	gen     uint64
	armSeq  uint64
	parent  context.Context
	filters core.Filters
	cancel  context.CancelFunc
	timer   *time.Timer

	wg sync.WaitGroup
}

// New creates a Scheduler in the Idle state.
func New(cfg Config, fetcher Fetcher, handler Handler, logger *zap.Logger, reg *metrics.Registry) *Scheduler {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:     cfg,
		fetcher: fetcher,
		handler: handler,
		logger:  logger,
		metrics: reg,
		state:   Idle,
	}
}

// Activate cancels any pending timer or in-flight fetch and fetches
// immediately for filters. ctx bounds every fetch of this activation; once it
// is done the scheduler drops the outstanding result and returns to Idle.
func (s *Scheduler) Activate(ctx context.Context, filters core.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	s.parent = ctx
	s.filters = filters

	s.logger.Debug("poller activated",
		zap.Uint64("generation", s.gen),
		zap.String("market", filters.Market),
		zap.String("system", filters.System),
	)
	s.startFetchLocked()
}

// Deactivate cancels the pending timer and any in-flight fetch. A fetch that
// completes afterwards is discarded and schedules nothing.
func (s *Scheduler) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	s.state = Idle
	s.logger.Debug("poller deactivated", zap.Uint64("generation", s.gen))
}

// Refresh fetches now instead of waiting for the timer. It returns false,
// and does nothing, unless a fetch is currently scheduled.
func (s *Scheduler) Refresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Scheduled && s.parentDoneLocked() {
		s.stopLocked()
		s.state = Idle
	}
	if s.state != Scheduled {
		s.metrics.RecordRefreshCoalesced()
		s.logger.Debug("refresh coalesced", zap.Stringer("state", s.state))
		return false
	}

	s.stopLocked()
	s.startFetchLocked()
	return true
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Filters returns the filters of the current activation.
func (s *Scheduler) Filters() core.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Wait blocks until every started fetch goroutine has returned, or ctx ends.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopLocked disarms the timer and cancels the in-flight fetch.
func (s *Scheduler) stopLocked() {
	s.armSeq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) startFetchLocked() {
	parent := s.parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, s.cfg.FetchTimeout)

	s.state = Fetching
	s.cancel = cancel
	gen, filters := s.gen, s.filters

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		start := time.Now()
		snap, err := s.fetcher.FetchSnapshot(ctx, filters)
		if err == nil && snap == nil {
			err = core.WrapError(core.ErrUnexpected, errors.New("fetcher returned no snapshot"))
		}
		s.complete(gen, snap, err, time.Since(start))
	}()
}

func (s *Scheduler) complete(gen uint64, snap *core.Snapshot, err error, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != Fetching {
		s.metrics.RecordStaleResult()
		s.logger.Debug("dropping stale poll result",
			zap.Uint64("generation", gen),
			zap.Uint64("current", s.gen),
		)
		return
	}

	s.cancel = nil
	if s.parentDoneLocked() {
		// The activation's context ended without a Deactivate: treat it as
		// teardown.
		s.state = Idle
		s.metrics.RecordStaleResult()
		s.logger.Debug("activation context done, poller idle",
			zap.Uint64("generation", gen),
			zap.Error(s.parent.Err()),
		)
		return
	}

	s.metrics.RecordPoll(err == nil, elapsed.Seconds())
	if err != nil {
		s.logger.Warn("poll failed", zap.Duration("duration", elapsed), zap.Error(err))
	} else {
		s.logger.Debug("poll complete",
			zap.Int("signals", len(snap.Signals)),
			zap.Duration("duration", elapsed),
		)
	}

	if s.handler != nil {
		s.handler.HandleResult(snap, err)
	}

	s.state = Scheduled
	s.armSeq++
	seq := s.armSeq
	s.timer = time.AfterFunc(s.cfg.Interval, func() { s.fire(seq) })
}

func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.armSeq || s.state != Scheduled {
		return
	}
	s.timer = nil
	if s.parentDoneLocked() {
		s.state = Idle
		s.logger.Debug("activation context done, poller idle", zap.Uint64("generation", s.gen))
		return
	}
	s.startFetchLocked()
}

func (s *Scheduler) parentDoneLocked() bool {
	return s.parent != nil && s.parent.Err() != nil
}
