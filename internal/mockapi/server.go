// Package mockapi serves a deterministic stand-in for the signal backend.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/client"
	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/metrics"
	"github.com/newthinker/signaldeck/internal/storage/signal"
)

// Backend list defaults.
const (
	defaultSignalsLimit = 50
	defaultClosedLimit  = 100
)

// Config holds server configuration
type Config struct {
	Addr string

	// Seed makes the generated data reproducible.
	Seed uint64

	// Signals is how many signals are generated at startup. Signals sharing
	// a symbol and type collapse into one.
	Signals      int
	OpenTrades   int
	ClosedTrades int

	// StreamInterval is the /ws push cadence.
	StreamInterval time.Duration

	// GenerateInterval adds a new signal periodically while Run is active.
	// Zero disables it.
	GenerateInterval time.Duration

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns a configuration matching the real backend's port.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8000",
		Seed:           42,
		Signals:        40,
		OpenTrades:     4,
		ClosedTrades:   12,
		StreamInterval: 5 * time.Second,
	}
}

// Server represents the mock backend HTTP server.
type Server struct {
	cfg        Config
	logger     *zap.Logger
	httpServer *http.Server
	mux        *http.ServeMux
	signals    signal.Store
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	gen      *generator
	book     book
	scanner  string
	failures map[string]int

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}

	done     chan struct{}
	doneOnce sync.Once
}

// New creates the server and seeds its data. reg may be nil.
func New(cfg Config, logger *zap.Logger, reg *metrics.Registry) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = def.StreamInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		signals:  signal.NewMemoryStore(len(instruments) * len(signalTypes)),
		gen:      newGenerator(cfg.Seed),
		scanner:  "online",
		failures: make(map[string]int),
		subs:     make(map[chan struct{}]struct{}),
		done:     make(chan struct{}),
	}
	s.seed()
	s.setupRoutes()

	var handler http.Handler = s.mux
	handler = metrics.LoggingMiddleware(logger)(handler)
	if reg != nil {
		handler = metrics.HTTPMiddleware(reg)(handler)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) seed() {
	now := s.cfg.Now()
	ctx := context.Background()
	for i := range s.cfg.Signals {
		sig := s.gen.signal(now.Add(-time.Duration(i) * 7 * time.Minute))
		if err := s.signals.Save(ctx, sig); err != nil {
			s.logger.Warn("seeding signal failed", zap.Error(err))
		}
	}
	s.book = s.gen.book(s.cfg.OpenTrades, s.cfg.ClosedTrades, now)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.route(client.PathHealth, s.handleHealth)
	s.route(client.PathSignals, s.handleSignals)
	s.route(client.PathSignalStats, s.handleStats)
	s.route(client.PathMarkets, s.handleMarkets)
	s.route(client.PathPortfolio, s.handlePortfolio)
	s.route(client.PathOpenTrades, s.handleOpenTrades)
	s.route(client.PathOpenTradesPnL, s.handleOpenTradesPnL)
	s.route(client.PathClosedTrades, s.handleClosedTrades)
	s.route(client.PathPerformance, s.handlePerformance)
	s.mux.HandleFunc("GET "+client.DefaultStreamPath, s.handleStream)
}

// route registers a GET handler that honours injected failures.
func (s *Server) route(path string, h http.HandlerFunc) {
	s.mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, failing := s.failures[path]
		s.mu.Unlock()
		if failing {
			writeError(w, status, fmt.Errorf("injected failure on %s", path))
			return
		}
		h(w, r)
	})
}

// Handler returns the server's routes wrapped in middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting mock backend", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and closes open streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down mock backend")
	s.doneOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}

// Run generates a new signal every GenerateInterval until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.GenerateInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(s.cfg.GenerateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Generate(ctx); err != nil {
				s.logger.Warn("generating signal failed", zap.Error(err))
			}
		}
	}
}

// Generate adds one new signal stamped now and notifies stream clients.
func (s *Server) Generate(ctx context.Context) (core.Signal, error) {
	s.mu.Lock()
	sig := s.gen.signal(s.cfg.Now())
	s.mu.Unlock()

	if err := s.signals.Save(ctx, sig); err != nil {
		return core.Signal{}, err
	}
	sig.ID = signal.ID(sig)
	s.logger.Debug("signal generated",
		zap.String("id", sig.ID),
		zap.String("system", sig.System.Raw),
	)
	s.broadcast()
	return sig, nil
}

// Fail makes path answer with status until Recover is called.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// Recover clears an injected failure.
func (s *Server) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, path)
}

// SetScanner sets the scanner status reported by /health.
func (s *Server) SetScanner(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanner = status
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	scanner := s.scanner
	s.mu.Unlock()

	now := s.cfg.Now().UTC()
	payload := map[string]any{
		"status":    "healthy",
		"scanner":   scanner,
		"last_scan": nil,
		"timestamp": now.Format(time.RFC3339),
	}
	if scanner == "online" {
		payload["last_scan"] = now.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultSignalsLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	signals, err := s.signals.List(r.Context(), signal.ListFilter{
		Market: q.Get("market"),
		System: q.Get("system"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(signals),
		"signals": signals,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.signals.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	total := 0
	for _, systems := range stats {
		for _, n := range systems {
			total += n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats, "total": total})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"markets": markets(s.cfg.Now())})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.book.portfolio()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"portfolio": p})
}

func (s *Server) handleOpenTrades(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	trades := s.book.openTrades()
	s.mu.Unlock()

	trades = filterBySystem(trades, r, func(t core.Trade) string { return t.System })
	writeJSON(w, http.StatusOK, map[string]any{"count": len(trades), "trades": trades})
}

func (s *Server) handleOpenTradesPnL(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	trades := append([]core.TradeWithPnL{}, s.book.open...)
	s.mu.Unlock()

	trades = filterBySystem(trades, r, func(t core.TradeWithPnL) string { return t.System })
	writeJSON(w, http.StatusOK, map[string]any{"count": len(trades), "trades": trades})
}

func (s *Server) handleClosedTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), defaultClosedLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	s.mu.Lock()
	trades := append([]core.ClosedTrade{}, s.book.closed...)
	s.mu.Unlock()

	trades = filterBySystem(trades, r, func(t core.ClosedTrade) string { return t.System })
	if limit > 0 && limit < len(trades) {
		trades = trades[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(trades), "trades": trades})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	perf := s.book.performance()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"performance": perf})
}

// filterBySystem applies the market and system query parameters as
// substrings of each item's system tag.
func filterBySystem[T any](items []T, r *http.Request, system func(T) string) []T {
	market := strings.ToUpper(r.URL.Query().Get("market"))
	family := strings.ToUpper(r.URL.Query().Get("system"))
	out := make([]T, 0, len(items))
	for _, item := range items {
		tag := strings.ToUpper(system(item))
		if market != "" && !strings.Contains(tag, market) {
			continue
		}
		if family != "" && !strings.Contains(tag, family) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid integer %q", raw))
	}
	return n, nil
}
