package mockapi

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/newthinker/signaldeck/internal/core"
)

// Every mock position has the same notional.
const (
	positionSize    = 1000.0
	startingBalance = 10000.0
)

type instrument struct {
	symbol string
	market string
	price  float64
}

var instruments = []instrument{
	{"BTCUSDT", core.MarketCrypto, 65000},
	{"ETHUSDT", core.MarketCrypto, 3200},
	{"SOLUSDT", core.MarketCrypto, 150},
	{"BNBUSDT", core.MarketCrypto, 580},
	{"AVAXUSDT", core.MarketCrypto, 35},
	{"XRPUSDT", core.MarketCrypto, 0.52},
	{"ADAUSDT", core.MarketCrypto, 0.45},
	{"DOGEUSDT", core.MarketCrypto, 0.12},
	{"THYAO.IS", core.MarketBIST, 285},
	{"ASELS.IS", core.MarketBIST, 62},
	{"GARAN.IS", core.MarketBIST, 118},
	{"AKBNK.IS", core.MarketBIST, 58},
	{"AAPL", core.MarketUS, 190},
	{"MSFT", core.MarketUS, 420},
	{"NVDA", core.MarketUS, 880},
	{"TSLA", core.MarketUS, 175},
}

var signalTypes = []string{core.TypeLongEntry, core.TypeShortEntry, core.TypeLongExit, core.TypeShortExit}

var families = []core.Family{core.FamilyHybrid, core.FamilyElliott}

// generator produces deterministic synthetic data for a seed.
type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x5deece66d))}
}

func (g *generator) instrument() instrument {
	return instruments[g.rng.IntN(len(instruments))]
}

func (g *generator) system(market string) string {
	return string(families[g.rng.IntN(len(families))]) + "_" + market
}

// jitter returns price moved by up to ±pct percent.
func (g *generator) jitter(price, pct float64) float64 {
	return price * (1 + (g.rng.Float64()*2-1)*pct/100)
}

func (g *generator) signal(at time.Time) core.Signal {
	inst := g.instrument()
	typ := core.ParseSignalType(signalTypes[g.rng.IntN(len(signalTypes))])
	rsi := 20 + 60*g.rng.Float64()
	adx := 10 + 40*g.rng.Float64()
	price := g.jitter(inst.price, 5)

	return core.Signal{
		Symbol:    inst.symbol,
		Type:      typ,
		Message:   fmt.Sprintf("%s %s at %.4f", inst.symbol, typ.Raw, price),
		Price:     price,
		Timestamp: core.Timestamp{Time: at.UTC()},
		System:    core.ParseSystemTag(g.system(inst.market)),
		RSI:       &rsi,
		ADX:       &adx,
	}
}

func (g *generator) side() string {
	if g.rng.IntN(2) == 0 {
		return string(core.DirectionLong)
	}
	return string(core.DirectionShort)
}

// move returns the percent result of a position from entry to price.
func move(side string, entry, price float64) float64 {
	pct := (price - entry) / entry * 100
	if side == string(core.DirectionShort) {
		return -pct
	}
	return pct
}

func (g *generator) openTrade(id int, now time.Time) core.TradeWithPnL {
	inst := g.instrument()
	side := g.side()
	entry := g.jitter(inst.price, 5)
	current := g.jitter(entry, 4)
	pct := move(side, entry, current)

	stop, take := entry*0.95, entry*1.10
	if side == string(core.DirectionShort) {
		stop, take = entry*1.05, entry*0.90
	}
	return core.TradeWithPnL{
		Trade: core.Trade{
			ID:         fmt.Sprintf("trade_%d", id),
			Symbol:     inst.symbol,
			Type:       side,
			EntryPrice: entry,
			EntryTime:  core.Timestamp{Time: now.Add(-time.Duration(1+g.rng.IntN(48)) * time.Hour).UTC()},
			Status:     "open",
			StopLoss:   stop,
			TakeProfit: take,
			System:     g.system(inst.market),
		},
		CurrentPrice: current,
		PnL:          positionSize * pct / 100,
		PnLPercent:   pct,
	}
}

func (g *generator) closedTrade(id int, now time.Time) core.ClosedTrade {
	inst := g.instrument()
	side := g.side()
	entry := g.jitter(inst.price, 5)
	exit := g.jitter(entry, 8)
	exitAt := now.Add(-time.Duration(1+g.rng.IntN(240)) * time.Hour)

	return core.ClosedTrade{
		Trade: core.Trade{
			ID:         fmt.Sprintf("trade_%d", id),
			Symbol:     inst.symbol,
			Type:       side,
			EntryPrice: entry,
			EntryTime:  core.Timestamp{Time: exitAt.Add(-time.Duration(1+g.rng.IntN(72)) * time.Hour).UTC()},
			Status:     "closed",
			System:     g.system(inst.market),
		},
		ExitPrice:  exit,
		ExitTime:   core.Timestamp{Time: exitAt.UTC()},
		PnLPercent: move(side, entry, exit),
	}
}

// book is the mock account's trades, closed trades newest first.
type book struct {
	open   []core.TradeWithPnL
	closed []core.ClosedTrade
}

func (g *generator) book(open, closed int, now time.Time) book {
	var b book
	for i := range open {
		b.open = append(b.open, g.openTrade(i+1, now))
	}
	for i := range closed {
		b.closed = append(b.closed, g.closedTrade(open+i+1, now))
	}
	sortClosed(b.closed)
	return b
}

func sortClosed(trades []core.ClosedTrade) {
	slices.SortStableFunc(trades, func(a, b core.ClosedTrade) int {
		return b.ExitTime.Compare(a.ExitTime.Time)
	})
}

func (b book) openTrades() []core.Trade {
	out := make([]core.Trade, len(b.open))
	for i, t := range b.open {
		out[i] = t.Trade
	}
	return out
}

func (b book) portfolio() core.Portfolio {
	realized, unrealized := 0.0, 0.0
	for _, t := range b.closed {
		realized += positionSize * t.PnLPercent / 100
	}
	for _, t := range b.open {
		unrealized += t.PnL
	}
	total := startingBalance + realized
	used := positionSize * float64(len(b.open))
	return core.Portfolio{
		TotalBalance:     total,
		AvailableBalance: total - used,
		UsedBalance:      used,
		TotalPnL:         realized + unrealized,
	}
}

// performance groups closed trades by system. Best and worst start at zero.
func (b book) performance() map[string]core.Performance {
	stats := map[string]core.Performance{}
	for _, t := range b.closed {
		p := stats[t.System]
		pnl := positionSize * t.PnLPercent / 100
		p.TotalTrades++
		p.TotalPnL += pnl
		if pnl > 0 {
			p.WinningTrades++
			p.BestTrade = max(p.BestTrade, pnl)
		} else {
			p.LosingTrades++
			p.WorstTrade = min(p.WorstTrade, pnl)
		}
		stats[t.System] = p
	}
	for system, p := range stats {
		p.AvgPnL = p.TotalPnL / float64(p.TotalTrades)
		p.WinRate = float64(p.WinningTrades) / float64(p.TotalTrades) * 100
		stats[system] = p
	}
	return stats
}

type session struct {
	market   string
	name     string
	location string
	open     time.Duration
	close    time.Duration
}

var sessions = []session{
	{core.MarketCrypto, "Cryptocurrency", "UTC", 0, 24 * time.Hour},
	{core.MarketBIST, "Borsa Istanbul", "Europe/Istanbul", 10 * time.Hour, 18 * time.Hour},
	{core.MarketUS, "US Equities", "America/New_York", 9*time.Hour + 30*time.Minute, 16 * time.Hour},
}

// markets reports venue status at now.
func markets(now time.Time) map[string]core.MarketStatus {
	out := make(map[string]core.MarketStatus, len(sessions))
	for _, s := range sessions {
		loc, err := time.LoadLocation(s.location)
		if err != nil {
			loc = time.UTC
		}
		local := now.In(loc)
		status := "closed"
		hours := "24/7"
		if s.market == core.MarketCrypto {
			status = "open"
		} else {
			hours = fmt.Sprintf("Mon-Fri %s-%s", clock(s.open), clock(s.close))
			midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
			since := local.Sub(midnight)
			weekday := local.Weekday() != time.Saturday && local.Weekday() != time.Sunday
			if weekday && since >= s.open && since < s.close {
				status = "open"
			}
		}
		out[s.market] = core.MarketStatus{
			Name:         s.name,
			Status:       status,
			TradingHours: hours,
			CurrentTime:  local.Format(time.RFC3339),
			Timezone:     s.location,
		}
	}
	return out
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
