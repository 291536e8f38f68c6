package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/signaldeck/internal/logger"
)

var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Show closed-trade statistics per system",
	RunE:  runPerformance,
}

func init() {
	rootCmd.AddCommand(performanceCmd)
}

func runPerformance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Must(cfg.Log.Debug)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
	defer cancel()

	perf, err := newClient(cfg, log, nil).Performance(ctx)
	if err != nil {
		return fmt.Errorf("fetching performance: %w", err)
	}
	if len(perf) == 0 {
		fmt.Println("No closed trades")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYSTEM\tTRADES\tWIN\tLOSS\tWIN RATE\tTOTAL P&L\tAVG P&L\tBEST\tWORST")
	fmt.Fprintln(w, "------\t------\t---\t----\t--------\t---------\t-------\t----\t-----")
	for _, system := range slices.Sorted(maps.Keys(perf)) {
		p := perf[system]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.1f%%\t%.2f\t%.2f\t%.2f\t%.2f\n",
			system, p.TotalTrades, p.WinningTrades, p.LosingTrades, p.WinRate,
			p.TotalPnL, p.AvgPnL, p.BestTrade, p.WorstTrade)
	}
	return w.Flush()
}
