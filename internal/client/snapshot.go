package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/signaldeck/internal/core"
)

// Backend endpoints.
const (
	PathSignals       = "/api/signals"
	PathSignalStats   = "/api/signals/stats"
	PathMarkets       = "/api/markets"
	PathHealth        = "/health"
	PathPortfolio     = "/api/portfolio"
	PathOpenTrades    = "/api/trades/open"
	PathOpenTradesPnL = "/api/trades/open-with-pnl"
	PathClosedTrades  = "/api/trades/closed"
	PathPerformance   = "/api/trades/performance"
	DefaultStreamPath = "/ws"
)

// ScannerOffline is reported when the health payload has no scanner status.
const ScannerOffline = "offline"

// Response envelopes. Missing keys decode to zero values.
type (
	signalsResponse struct {
		Signals []core.Signal `json:"signals"`
	}
	statsResponse struct {
		Stats core.SignalStats `json:"stats"`
	}
	marketsResponse struct {
		Markets map[string]core.MarketStatus `json:"markets"`
	}
	healthResponse struct {
		Scanner string `json:"scanner"`
	}
	portfolioResponse struct {
		Portfolio *core.Portfolio `json:"portfolio"`
	}
	tradesResponse[T any] struct {
		Trades []T `json:"trades"`
	}
	performanceResponse struct {
		Performance map[string]core.Performance `json:"performance"`
	}
)

// FetchSnapshot issues every resource request concurrently and returns the
// combined snapshot. If any request fails the others are cancelled and the
// first failure is returned; no partial snapshot is produced.
func (c *Client) FetchSnapshot(ctx context.Context, filters core.Filters) (*core.Snapshot, error) {
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)

	var (
		signals   signalsResponse
		stats     statsResponse
		markets   marketsResponse
		health    healthResponse
		portfolio portfolioResponse
		open      tradesResponse[core.Trade]
		openPnL   tradesResponse[core.TradeWithPnL]
		closed    tradesResponse[core.ClosedTrade]
	)

	g.Go(func() error { return c.get(ctx, PathSignals, c.signalsQuery(filters), &signals) })
	g.Go(func() error { return c.get(ctx, PathSignalStats, nil, &stats) })
	g.Go(func() error { return c.get(ctx, PathMarkets, nil, &markets) })
	g.Go(func() error { return c.get(ctx, PathHealth, nil, &health) })
	if c.portfolio {
		g.Go(func() error { return c.get(ctx, PathPortfolio, nil, &portfolio) })
		g.Go(func() error { return c.get(ctx, PathOpenTrades, nil, &open) })
		g.Go(func() error { return c.get(ctx, PathOpenTradesPnL, nil, &openPnL) })
		g.Go(func() error { return c.get(ctx, PathClosedTrades, nil, &closed) })
	}

	if err := g.Wait(); err != nil {
		c.logger.Debug("snapshot fetch failed",
			zap.String("market", filters.Market),
			zap.String("system", filters.System),
			zap.Error(err),
		)
		return nil, err
	}

	snap := &core.Snapshot{
		Signals:       withIDs(signals.Signals),
		Stats:         stats.Stats,
		Markets:       markets.Markets,
		ScannerStatus: health.Scanner,
		OpenTrades:    open.Trades,
		OpenTradesPnL: openPnL.Trades,
		ClosedTrades:  closed.Trades,
		FetchedAt:     time.Now(),
	}
	if portfolio.Portfolio != nil {
		snap.Portfolio = *portfolio.Portfolio
	}
	applyDefaults(snap)

	c.logger.Debug("snapshot fetched",
		zap.Int("signals", len(snap.Signals)),
		zap.String("scanner", snap.ScannerStatus),
		zap.Duration("duration", time.Since(start)),
	)
	return snap, nil
}

// Performance returns per-system closed-trade statistics.
func (c *Client) Performance(ctx context.Context) (map[string]core.Performance, error) {
	var resp performanceResponse
	if err := c.get(ctx, PathPerformance, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Performance == nil {
		resp.Performance = map[string]core.Performance{}
	}
	return resp.Performance, nil
}

// signalsQuery omits market and system when they are ALL or unset.
func (c *Client) signalsQuery(filters core.Filters) url.Values {
	q := url.Values{}
	if filters.Market != "" && filters.Market != core.All {
		q.Set("market", filters.Market)
	}
	if filters.System != "" && filters.System != core.All {
		q.Set("system", filters.System)
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = c.limit
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}

func applyDefaults(snap *core.Snapshot) {
	if snap.Signals == nil {
		snap.Signals = []core.Signal{}
	}
	if snap.Stats == nil {
		snap.Stats = core.SignalStats{}
	}
	if snap.Markets == nil {
		snap.Markets = map[string]core.MarketStatus{}
	}
	if snap.ScannerStatus == "" {
		snap.ScannerStatus = ScannerOffline
	}
	if snap.OpenTrades == nil {
		snap.OpenTrades = []core.Trade{}
	}
	if snap.OpenTradesPnL == nil {
		snap.OpenTradesPnL = []core.TradeWithPnL{}
	}
	if snap.ClosedTrades == nil {
		snap.ClosedTrades = []core.ClosedTrade{}
	}
}

// withIDs fills in the backend's symbol_type identifier where it is missing
// and makes every ID unique within the snapshot: a repeated ID gets its
// position appended.
func withIDs(signals []core.Signal) []core.Signal {
	seen := make(map[string]struct{}, len(signals))
	for i := range signals {
		id := signals[i].ID
		if id == "" {
			id = signals[i].Symbol + "_" + signals[i].Type.Raw
		}
		if _, dup := seen[id]; dup {
			id += "#" + strconv.Itoa(i)
		}
		seen[id] = struct{}{}
		signals[i].ID = id
	}
	return signals
}
