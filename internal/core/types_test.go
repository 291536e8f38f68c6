package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignalType(t *testing.T) {
	tests := []struct {
		raw       string
		direction Direction
		action    Action
	}{
		{"LONG_ENTRY", DirectionLong, ActionEntry},
		{"SHORT_ENTRY", DirectionShort, ActionEntry},
		{"LONG_EXIT", DirectionLong, ActionExit},
		{"SHORT_EXIT", DirectionShort, ActionExit},
		{"long_entry", DirectionLong, ActionEntry},
		{"TAKE_PROFIT_EXIT", DirectionUnknown, ActionExit},
		{"HOLD", DirectionUnknown, ActionUnknown},
		{"", DirectionUnknown, ActionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseSignalType(tt.raw)
			assert.Equal(t, tt.raw, got.Raw)
			assert.Equal(t, tt.direction, got.Direction)
			assert.Equal(t, tt.action, got.Action)
		})
	}
}

func TestParseSystemTag(t *testing.T) {
	assert.Equal(t, FamilyHybrid, ParseSystemTag("HYBRID_CRYPTO").Family)
	assert.Equal(t, FamilyElliott, ParseSystemTag("ELLIOTT_BIST").Family)
	assert.Equal(t, FamilyUnknown, ParseSystemTag("MOMENTUM").Family)
	assert.Equal(t, "MOMENTUM", ParseSystemTag("MOMENTUM").String())
}

func TestSignal_UnmarshalJSON(t *testing.T) {
	payload := `{
		"id": "BTCUSDT_LONG_ENTRY",
		"symbol": "BTCUSDT",
		"signal_type": "LONG_ENTRY",
		"message": "breakout",
		"price": 64250.5,
		"timestamp": "2025-03-01T12:30:00.123456+00:00",
		"system": "HYBRID_CRYPTO",
		"rsi": 61.2
	}`

	var sig Signal
	require.NoError(t, json.Unmarshal([]byte(payload), &sig))

	assert.Equal(t, "BTCUSDT", sig.Symbol)
	assert.Equal(t, DirectionLong, sig.Type.Direction)
	assert.Equal(t, ActionEntry, sig.Type.Action)
	assert.Equal(t, FamilyHybrid, sig.System.Family)
	require.NotNil(t, sig.RSI)
	assert.InDelta(t, 61.2, *sig.RSI, 1e-9)
	assert.Nil(t, sig.ADX)
	assert.Equal(t, 2025, sig.Timestamp.Year())
	assert.Equal(t, 30, sig.Timestamp.Minute())
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T12:30:00Z", time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-03-01T12:30:00", time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-03-01 12:30:00", time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseTimestamp(tt.in)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got.Time, tt.want)
		})
	}

	assert.True(t, ParseTimestamp("not a date").IsZero())
}

func TestTrade_UnmarshalJSON_LegacyTypeKey(t *testing.T) {
	var tr Trade
	require.NoError(t, json.Unmarshal([]byte(`{"symbol":"ETHUSDT","trade_type":"SHORT","entry_price":3100}`), &tr))
	assert.Equal(t, "SHORT", tr.Type)
	assert.Equal(t, 3100.0, tr.EntryPrice)
}

func TestTradeWithPnL_UnmarshalJSON(t *testing.T) {
	var tr TradeWithPnL
	payload := `{"id":"t1","symbol":"SOLUSDT","type":"LONG","entry_price":100,"current_price":110,"pnl":10,"pnl_percent":10}`
	require.NoError(t, json.Unmarshal([]byte(payload), &tr))
	assert.Equal(t, "SOLUSDT", tr.Symbol)
	assert.Equal(t, "LONG", tr.Type)
	assert.Equal(t, 110.0, tr.CurrentPrice)
	assert.Equal(t, 10.0, tr.PnLPercent)
}

func TestClosedTrade_UnmarshalJSON(t *testing.T) {
	var tr ClosedTrade
	payload := `{"symbol":"BTCUSDT","type":"LONG","entry_price":100,"exit_price":90,"exit_time":"2025-03-02T00:00:00Z","pnl_percent":-10}`
	require.NoError(t, json.Unmarshal([]byte(payload), &tr))
	assert.Equal(t, 90.0, tr.ExitPrice)
	assert.Equal(t, -10.0, tr.PnLPercent)
	assert.Equal(t, 2, tr.ExitTime.Day())
}

func TestMarketStatus_IsOpen(t *testing.T) {
	assert.True(t, MarketStatus{Status: "open"}.IsOpen())
	assert.True(t, MarketStatus{Status: "OPEN"}.IsOpen())
	assert.False(t, MarketStatus{Status: "closed"}.IsOpen())
}

func TestWatchlist_Toggle(t *testing.T) {
	w := NewWatchlist("BTC")

	added := w.Toggle("ETH")
	assert.True(t, added.Has("ETH"))
	assert.False(t, w.Has("ETH"), "toggle must not mutate the receiver")

	removed := added.Toggle("BTC")
	assert.False(t, removed.Has("BTC"))
}

func TestWatchlist_ToggleIsInvolution(t *testing.T) {
	sets := []Watchlist{
		NewWatchlist(),
		NewWatchlist("BTC"),
		NewWatchlist("BTC", "ETH", "SOL"),
	}
	for _, s := range sets {
		for _, sym := range []string{"BTC", "DOGE"} {
			assert.True(t, s.Toggle(sym).Toggle(sym).Equal(s), "toggle twice of %q on %v", sym, s.Symbols())
		}
	}
}

func TestWatchlist_Symbols(t *testing.T) {
	w := NewWatchlist("SOL", "", "BTC", "ETH")
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, w.Symbols())
}
