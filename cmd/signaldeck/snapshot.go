package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/logger"
	"github.com/newthinker/signaldeck/internal/view"
)

var (
	snapMarket string
	snapSystem string
	snapLimit  int
	snapScope  string
	snapSearch string
	snapSort   string
	snapAsc    bool
	snapJSON   bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch signals once and print them",
	Long: `Fetch one snapshot from the backend and print the signal list as the
dashboard would show it: filtered, sorted and with watched symbols first.`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapMarket, "market", "", "market filter (ALL, CRYPTO, BIST, US); defaults to config")
	snapshotCmd.Flags().StringVar(&snapSystem, "system", "", "system filter (ALL, HYBRID, ELLIOTT); defaults to config")
	snapshotCmd.Flags().IntVar(&snapLimit, "limit", 0, "maximum number of signals; defaults to config")
	snapshotCmd.Flags().StringVar(&snapScope, "scope", "ALL", "ALL, ENTRY or EXIT")
	snapshotCmd.Flags().StringVar(&snapSearch, "search", "", "symbol substring")
	snapshotCmd.Flags().StringVar(&snapSort, "sort", "timestamp", "timestamp, symbol or price")
	snapshotCmd.Flags().BoolVar(&snapAsc, "asc", false, "sort ascending")
	snapshotCmd.Flags().BoolVar(&snapJSON, "json", false, "print JSON")

	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Must(cfg.Log.Debug)
	defer log.Sync()

	q, err := snapshotQuery()
	if err != nil {
		return err
	}
	filters := core.Filters{
		Market: cfg.Dashboard.Market,
		System: cfg.Dashboard.System,
		Limit:  cfg.API.Limit,
	}
	if snapMarket != "" {
		filters.Market = strings.ToUpper(snapMarket)
	}
	if snapSystem != "" {
		filters.System = strings.ToUpper(snapSystem)
	}
	if snapLimit > 0 {
		filters.Limit = snapLimit
	}

	ctx := context.Background()
	store, closeStore := openPreferencesOrDefaults(ctx, cfg, log)
	defer closeStore()
	p := store.Load(ctx)

	snap, err := newClient(cfg, log, nil).FetchSnapshot(ctx, filters)
	if err != nil {
		return fmt.Errorf("fetching snapshot: %w", err)
	}
	signals := view.Project(snap.Signals, q, p.Watchlist)

	if snapJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(signals)
	}

	sum := view.Summarize(snap.Signals)
	fmt.Printf("Scanner: %s   Total: %d   Entries: %d   Exits: %d   Long: %d   Short: %d\n\n",
		strings.ToUpper(snap.ScannerStatus), sum.Total, sum.Entries, sum.Exits, sum.LongEntries, sum.ShortEntries)

	if len(signals) == 0 {
		fmt.Println("No signals match the current filters")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tSYMBOL\tTYPE\tPRICE\tSYSTEM\tTIME")
	fmt.Fprintln(w, "\t------\t----\t-----\t------\t----")
	for _, s := range signals {
		star := ""
		if p.Watchlist.Has(s.Symbol) {
			star = "*"
		}
		ts := "-"
		if !s.Timestamp.IsZero() {
			ts = s.Timestamp.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.6f\t%s\t%s\n", star, s.Symbol, s.Type.Raw, s.Price, s.System.Raw, ts)
	}
	return w.Flush()
}

func snapshotQuery() (view.Query, error) {
	q := view.Query{Search: snapSearch}
	if snapAsc {
		q.SortDir = view.Asc
	}

	switch strings.ToUpper(snapScope) {
	case "ALL":
		q.Scope = view.ScopeAll
	case "ENTRY":
		q.Scope = view.ScopeEntry
	case "EXIT":
		q.Scope = view.ScopeExit
	default:
		return q, fmt.Errorf("unknown scope %q", snapScope)
	}

	switch strings.ToLower(snapSort) {
	case "timestamp", "time":
		q.SortKey = view.SortTimestamp
	case "symbol":
		q.SortKey = view.SortSymbol
	case "price":
		q.SortKey = view.SortPrice
	default:
		return q, fmt.Errorf("unknown sort key %q", snapSort)
	}
	return q, nil
}
