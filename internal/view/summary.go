package view

import (
	"strings"

	"github.com/newthinker/signaldeck/internal/core"
)

// Summary holds the KPI counters shown above the signal table.
type Summary struct {
	Total        int
	Entries      int
	Exits        int
	LongEntries  int
	ShortEntries int
}

// Summarize counts over the full, unfiltered signal list.
func Summarize(signals []core.Signal) Summary {
	sum := Summary{Total: len(signals)}
	for _, s := range signals {
		if strings.Contains(s.Type.Raw, "ENTRY") {
			sum.Entries++
		}
		if strings.Contains(s.Type.Raw, "EXIT") {
			sum.Exits++
		}
		switch {
		case s.Type.Is(core.TypeLongEntry):
			sum.LongEntries++
		case s.Type.Is(core.TypeShortEntry):
			sum.ShortEntries++
		}
	}
	return sum
}
