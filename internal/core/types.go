package core

import (
	"encoding/json"
	"strings"
	"time"
)

// All is the filter token meaning "no restriction".
const All = "ALL"

// Venue codes known to the dashboard.
const (
	MarketCrypto = "CRYPTO"
	MarketBIST   = "BIST"
	MarketUS     = "US"
)

// Markets lists the selectable market filters in display order.
var Markets = []string{All, MarketCrypto, MarketBIST, MarketUS}

// Systems lists the selectable system filters in display order.
var Systems = []string{All, string(FamilyHybrid), string(FamilyElliott)}

// Filters selects which signals the backend returns.
type Filters struct {
	Market string
	System string
	Limit  int
}

// Timestamp is a point in time decoded leniently from the backend.
// Values without a zone are treated as UTC; unparsable values decode to the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601-ish string.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t}
		}
	}
	return Timestamp{}
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// null or a non-string value
		*t = Timestamp{}
		return nil
	}
	*t = ParseTimestamp(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Signal is one detected trading opportunity.
type Signal struct {
	ID        string     `json:"id"`
	Symbol    string     `json:"symbol"`
	Type      SignalType `json:"signal_type"`
	Message   string     `json:"message"`
	Price     float64    `json:"price"`
	Timestamp Timestamp  `json:"timestamp"`
	System    SystemTag  `json:"system"`
	RSI       *float64   `json:"rsi,omitempty"`
	ADX       *float64   `json:"adx,omitempty"`
}

// MarketStatus describes one venue.
type MarketStatus struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	TradingHours string `json:"trading_hours"`
	CurrentTime  string `json:"current_time,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
}

// IsOpen reports whether the venue reports itself open.
func (m MarketStatus) IsOpen() bool {
	return strings.EqualFold(m.Status, "open")
}

// SignalStats counts signals per market and system.
type SignalStats map[string]map[string]int

// Portfolio is the account summary.
type Portfolio struct {
	TotalBalance     float64 `json:"total_balance"`
	AvailableBalance float64 `json:"available_balance"`
	UsedBalance      float64 `json:"used_balance"`
	TotalPnL         float64 `json:"total_pnl"`
}

// Trade is an open position.
type Trade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  Timestamp `json:"entry_time"`
	Status     string    `json:"status"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	System     string    `json:"system,omitempty"`
}

// UnmarshalJSON accepts both "type" and the older "trade_type" key.
func (t *Trade) UnmarshalJSON(b []byte) error {
	type plain Trade
	var aux struct {
		plain
		TradeType string `json:"trade_type"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*t = Trade(aux.plain)
	if t.Type == "" {
		t.Type = aux.TradeType
	}
	return nil
}

// TradeWithPnL is an open position annotated with live P&L.
type TradeWithPnL struct {
	Trade
	CurrentPrice float64 `json:"current_price"`
	PnL          float64 `json:"pnl"`
	PnLPercent   float64 `json:"pnl_percent"`
}

// UnmarshalJSON decodes the embedded trade and the P&L fields separately,
// since the embedded Trade's UnmarshalJSON would otherwise swallow them.
func (t *TradeWithPnL) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &t.Trade); err != nil {
		return err
	}
	var pnl struct {
		CurrentPrice float64 `json:"current_price"`
		PnL          float64 `json:"pnl"`
		PnLPercent   float64 `json:"pnl_percent"`
	}
	if err := json.Unmarshal(b, &pnl); err != nil {
		return err
	}
	t.CurrentPrice, t.PnL, t.PnLPercent = pnl.CurrentPrice, pnl.PnL, pnl.PnLPercent
	return nil
}

// ClosedTrade is a finished position.
type ClosedTrade struct {
	Trade
	ExitPrice  float64   `json:"exit_price"`
	ExitTime   Timestamp `json:"exit_time"`
	PnLPercent float64   `json:"pnl_percent"`
}

func (t *ClosedTrade) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &t.Trade); err != nil {
		return err
	}
	var exit struct {
		ExitPrice  float64   `json:"exit_price"`
		ExitTime   Timestamp `json:"exit_time"`
		PnLPercent float64   `json:"pnl_percent"`
	}
	if err := json.Unmarshal(b, &exit); err != nil {
		return err
	}
	t.ExitPrice, t.ExitTime, t.PnLPercent = exit.ExitPrice, exit.ExitTime, exit.PnLPercent
	return nil
}

// Performance holds closed-trade statistics for one system.
type Performance struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
	WinRate       float64 `json:"win_rate"`
	BestTrade     float64 `json:"best_trade"`
	WorstTrade    float64 `json:"worst_trade"`
}

// Snapshot is everything fetched in one poll cycle.
type Snapshot struct {
	Signals       []Signal
	Stats         SignalStats
	Markets       map[string]MarketStatus
	ScannerStatus string
	Portfolio     Portfolio
	OpenTrades    []Trade
	OpenTradesPnL []TradeWithPnL
	ClosedTrades  []ClosedTrade
	FetchedAt     time.Time
}

// Preferences are the user's persisted dashboard settings.
type Preferences struct {
	Watchlist Watchlist
	DarkMode  bool
}
