package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/newthinker/signaldeck/internal/core"
)

// theme is one palette of styles. Colors are ANSI 256 codes.
type theme struct {
	header     lipgloss.Style
	footer     lipgloss.Style
	banner     lipgloss.Style
	section    lipgloss.Style
	colHeader  lipgloss.Style
	label      lipgloss.Style
	value      lipgloss.Style
	dim        lipgloss.Style
	symbol     lipgloss.Style
	watched    lipgloss.Style
	cursor     lipgloss.Style
	longEntry  lipgloss.Style
	shortEntry lipgloss.Style
	longExit   lipgloss.Style
	shortExit  lipgloss.Style
	gain       lipgloss.Style
	loss       lipgloss.Style
	online     lipgloss.Style
	offline    lipgloss.Style
	copied     lipgloss.Style
}

var darkTheme = theme{
	header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")),
	footer:     lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8")),
	banner:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
	section:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
	colHeader:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	label:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	value:      lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	symbol:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	watched:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
	cursor:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("238")),
	longEntry:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	shortEntry: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	longExit:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	shortExit:  lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
	gain:       lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	loss:       lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	online:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
	offline:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	copied:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")),
}

var lightTheme = theme{
	header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("25")),
	footer:     lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("252")),
	banner:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("124")).Background(lipgloss.Color("224")),
	section:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("24")),
	colHeader:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	label:      lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	value:      lipgloss.NewStyle().Foreground(lipgloss.Color("235")),
	dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("248")),
	symbol:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("25")),
	watched:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("166")),
	cursor:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("252")),
	longEntry:  lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
	shortEntry: lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	longExit:   lipgloss.NewStyle().Foreground(lipgloss.Color("166")),
	shortExit:  lipgloss.NewStyle().Foreground(lipgloss.Color("26")),
	gain:       lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
	loss:       lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	online:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("28")),
	offline:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("160")),
	copied:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("28")),
}

func themeFor(dark bool) theme {
	if dark {
		return darkTheme
	}
	return lightTheme
}

// signalStyle colors a signal type; the first matching token wins.
func (t theme) signalStyle(typ core.SignalType) lipgloss.Style {
	switch {
	case strings.Contains(typ.Raw, core.TypeLongEntry):
		return t.longEntry
	case strings.Contains(typ.Raw, core.TypeShortEntry):
		return t.shortEntry
	case strings.Contains(typ.Raw, core.TypeLongExit):
		return t.longExit
	case strings.Contains(typ.Raw, core.TypeShortExit):
		return t.shortExit
	default:
		return t.dim
	}
}

func (t theme) pnlStyle(v float64) lipgloss.Style {
	if v < 0 {
		return t.loss
	}
	return t.gain
}

func (t theme) scannerStyle(status string) lipgloss.Style {
	if status == "online" {
		return t.online
	}
	return t.offline
}
