package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/newthinker/signaldeck/internal/core"
)

// Fixed chrome around the scrolling body: title, venues, KPIs, filter bar,
// banner line above; key help below.
const (
	headerLines = 5
	footerLines = 1
)

// maxClosedTrades caps the closed trades section.
const maxClosedTrades = 10

const timeLayout = "01-02 15:04:05"

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	t := themeFor(m.state.Preferences.DarkMode)

	var b strings.Builder
	b.WriteString(m.renderTitle(t))
	b.WriteByte('\n')
	b.WriteString(m.renderMarkets(t))
	b.WriteByte('\n')
	b.WriteString(m.renderKPIs(t))
	b.WriteByte('\n')
	b.WriteString(m.renderFilterBar(t))
	b.WriteByte('\n')
	b.WriteString(m.renderBanner(t))
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	b.WriteString(m.renderFooter(t))
	return b.String()
}

func (m Model) renderTitle(t theme) string {
	status := ""
	switch {
	case m.state.Loading:
		status = "loading"
	case m.state.Refreshing:
		status = "refreshing"
	case m.state.Snapshot != nil:
		status = "updated " + m.state.Snapshot.FetchedAt.Local().Format("15:04:05")
	}
	left := " SIGNALDECK"
	right := status + " "
	gap := max(m.width-len(left)-len(right), 1)
	return t.header.Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderMarkets(t theme) string {
	snap := m.state.Snapshot
	if snap == nil {
		return t.dim.Render(" Scanner: -")
	}
	var b strings.Builder
	b.WriteString(t.label.Render(" Scanner: "))
	b.WriteString(t.scannerStyle(snap.ScannerStatus).Render(strings.ToUpper(snap.ScannerStatus)))

	for _, name := range slices.Sorted(maps.Keys(snap.Markets)) {
		ms := snap.Markets[name]
		style := t.loss
		if ms.IsOpen() {
			style = t.gain
		}
		b.WriteString(t.dim.Render("  │  "))
		b.WriteString(t.value.Render(name + " "))
		b.WriteString(style.Render(strings.ToUpper(ms.Status)))
		if ms.TradingHours != "" {
			b.WriteString(t.dim.Render(" " + ms.TradingHours))
		}
	}
	return b.String()
}

func (m Model) renderKPIs(t theme) string {
	kpi := func(label string, n int) string {
		return t.label.Render(label+" ") + t.value.Render(fmt.Sprintf("%d", n))
	}
	s := m.summary
	return " " + strings.Join([]string{
		kpi("Total", s.Total),
		kpi("Entries", s.Entries),
		kpi("Exits", s.Exits),
		t.longEntry.Render("Long") + " " + t.value.Render(fmt.Sprintf("%d", s.LongEntries)),
		t.shortEntry.Render("Short") + " " + t.value.Render(fmt.Sprintf("%d", s.ShortEntries)),
	}, "   ")
}

func (m Model) renderFilterBar(t theme) string {
	field := func(key, label, value string) string {
		return t.dim.Render("["+key+"] ") + t.label.Render(label+": ") + t.value.Render(value)
	}
	search := m.query.Search
	if m.searching {
		search = m.search.View()
	} else if search == "" {
		search = "-"
	}
	return " " + strings.Join([]string{
		field("m", "Market", m.state.Filters.Market),
		field("y", "System", m.state.Filters.System),
		field("tab", "Scope", m.query.Scope.String()),
		field("s/o", "Sort", m.query.SortKey.String()+" "+m.query.SortDir.String()),
		field("/", "Search", search),
	}, "  ")
}

func (m Model) renderBanner(t theme) string {
	if m.state.Error == "" {
		return ""
	}
	msg := " ⚠ " + m.state.Error + "  (esc to dismiss) "
	return t.banner.Render(padOrTrunc(msg, max(m.width, len(msg))))
}

func (m Model) renderFooter(t theme) string {
	text := " ↑/↓ select  space watch  c copy  r refresh  d theme  q quit"
	if m.flash != "" {
		text = " " + m.flash
	}
	return t.footer.Render(padOrTrunc(text, max(m.width, 1)))
}

// renderBody renders the scrolling sections and returns the line index of
// the selected signal row, or -1.
func (m Model) renderBody() (string, int) {
	t := themeFor(m.state.Preferences.DarkMode)
	var lines []string
	selectedLine := -1

	lines = append(lines, t.section.Render(fmt.Sprintf("SIGNALS (%d of %d)", len(m.visible), m.summary.Total)))
	switch {
	case m.state.Snapshot == nil && m.state.Loading:
		lines = append(lines, t.dim.Render("  Loading signals..."))
	case m.state.Snapshot == nil:
		lines = append(lines, t.dim.Render("  No data yet"))
	case len(m.visible) == 0:
		lines = append(lines, t.dim.Render("  No signals match the current filters"))
	default:
		lines = append(lines, t.colHeader.Render(fmt.Sprintf("    %-12s %-12s %14s  %-10s %-14s %s",
			"SYMBOL", "TYPE", "PRICE", "SYSTEM", "TIME", "MESSAGE")))
		copiedID := m.copied.Active()
		for _, sig := range m.visible {
			isSelected := sig.ID == m.selectedID
			if isSelected {
				selectedLine = len(lines)
			}
			lines = append(lines, m.renderSignalRow(t, sig, isSelected, sig.ID == copiedID))
		}
	}

	if snap := m.state.Snapshot; snap != nil {
		lines = append(lines, "")
		lines = append(lines, m.renderPortfolio(t, snap)...)
		lines = append(lines, "")
		lines = append(lines, m.renderOpenPositions(t, snap)...)
		lines = append(lines, "")
		lines = append(lines, m.renderClosedTrades(t, snap)...)
	}
	return strings.Join(lines, "\n"), selectedLine
}

func (m Model) renderSignalRow(t theme, sig core.Signal, selected, copied bool) string {
	cursor := "  "
	if selected {
		cursor = t.cursor.Render("▸ ")
	}
	star := "  "
	if m.state.Preferences.Watchlist.Has(sig.Symbol) {
		star = t.watched.Render("★ ")
	}
	row := cursor + star +
		t.symbol.Render(padOrTrunc(sig.Symbol, 12)) + " " +
		t.signalStyle(sig.Type).Render(padOrTrunc(sig.Type.Raw, 12)) + " " +
		t.value.Render(fmt.Sprintf("%14s", formatPrice(sig.Price))) + "  " +
		t.label.Render(padOrTrunc(sig.System.Raw, 10)) + " " +
		t.dim.Render(padOrTrunc(formatTime(sig.Timestamp), 14)) + " " +
		t.value.Render(sig.Message)
	if copied {
		row += " " + t.copied.Render(" Copied! ")
	}
	return row
}

func (m Model) renderPortfolio(t theme, snap *core.Snapshot) []string {
	p := snap.Portfolio
	money := func(label string, v float64) string {
		return t.label.Render(label+" ") + t.value.Render(formatMoney(v))
	}
	return []string{
		t.section.Render("PORTFOLIO"),
		"  " + strings.Join([]string{
			money("Balance", p.TotalBalance),
			money("Available", p.AvailableBalance),
			money("Used", p.UsedBalance),
			t.label.Render("P&L ") + t.pnlStyle(p.TotalPnL).Render(formatMoney(p.TotalPnL)),
		}, "   "),
	}
}

func (m Model) renderOpenPositions(t theme, snap *core.Snapshot) []string {
	lines := []string{t.section.Render(fmt.Sprintf("OPEN POSITIONS (%d)", len(snap.OpenTrades)))}

	if len(snap.OpenTradesPnL) > 0 {
		lines = append(lines, t.colHeader.Render(fmt.Sprintf("  %-12s %-6s %14s %14s %10s  %s",
			"SYMBOL", "SIDE", "ENTRY", "CURRENT", "P&L %", "OPENED")))
		for _, tr := range snap.OpenTradesPnL {
			lines = append(lines, "  "+
				t.symbol.Render(padOrTrunc(tr.Symbol, 12))+" "+
				t.value.Render(padOrTrunc(tr.Type, 6))+" "+
				t.value.Render(fmt.Sprintf("%14s %14s", formatPrice(tr.EntryPrice), formatPrice(tr.CurrentPrice)))+" "+
				t.pnlStyle(tr.PnLPercent).Render(fmt.Sprintf("%10s", formatPercent(tr.PnLPercent)))+"  "+
				t.dim.Render(formatTime(tr.EntryTime)))
		}
		return lines
	}

	if len(snap.OpenTrades) == 0 {
		return append(lines, t.dim.Render("  No open positions"))
	}
	lines = append(lines, t.colHeader.Render(fmt.Sprintf("  %-12s %-6s %14s  %s", "SYMBOL", "SIDE", "ENTRY", "OPENED")))
	for _, tr := range snap.OpenTrades {
		lines = append(lines, "  "+
			t.symbol.Render(padOrTrunc(tr.Symbol, 12))+" "+
			t.value.Render(padOrTrunc(tr.Type, 6))+" "+
			t.value.Render(fmt.Sprintf("%14s", formatPrice(tr.EntryPrice)))+"  "+
			t.dim.Render(formatTime(tr.EntryTime)))
	}
	return lines
}

func (m Model) renderClosedTrades(t theme, snap *core.Snapshot) []string {
	lines := []string{t.section.Render(fmt.Sprintf("CLOSED TRADES (%d)", len(snap.ClosedTrades)))}
	if len(snap.ClosedTrades) == 0 {
		return append(lines, t.dim.Render("  No closed trades"))
	}
	lines = append(lines, t.colHeader.Render(fmt.Sprintf("  %-12s %-6s %14s %14s %10s  %s",
		"SYMBOL", "SIDE", "ENTRY", "EXIT", "P&L %", "CLOSED")))
	for _, tr := range snap.ClosedTrades[:min(len(snap.ClosedTrades), maxClosedTrades)] {
		lines = append(lines, "  "+
			t.symbol.Render(padOrTrunc(tr.Symbol, 12))+" "+
			t.value.Render(padOrTrunc(tr.Type, 6))+" "+
			t.value.Render(fmt.Sprintf("%14s %14s", formatPrice(tr.EntryPrice), formatPrice(tr.ExitPrice)))+" "+
			t.pnlStyle(tr.PnLPercent).Render(fmt.Sprintf("%10s", formatPercent(tr.PnLPercent)))+"  "+
			t.dim.Render(formatTime(tr.ExitTime)))
	}
	return lines
}

// formatPrice shows more decimals for sub-dollar prices.
func formatPrice(v float64) string {
	switch {
	case v == 0:
		return "-"
	case v < 1:
		return fmt.Sprintf("$%.6f", v)
	case v < 100:
		return fmt.Sprintf("$%.4f", v)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func formatMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func formatTime(ts core.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(timeLayout)
}

func padOrTrunc(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
