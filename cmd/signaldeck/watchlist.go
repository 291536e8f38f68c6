package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/core"
	"github.com/newthinker/signaldeck/internal/logger"
	"github.com/newthinker/signaldeck/internal/prefs"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Manage the watchlist",
	Long:  `Watched symbols are pinned to the top of the signal list.`,
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched symbols",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPreferences(func(ctx context.Context, store *prefs.Store) error {
			w := store.Load(ctx).Watchlist
			if len(w) == 0 {
				fmt.Println("Watchlist is empty")
				return nil
			}
			for _, s := range w.Symbols() {
				fmt.Println(s)
			}
			return nil
		})
	},
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add SYMBOL...",
	Short: "Add symbols to the watchlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateWatchlist(args, func(w core.Watchlist, s string) bool { return !w.Has(s) })
	},
}

var watchlistRemoveCmd = &cobra.Command{
	Use:   "remove SYMBOL...",
	Short: "Remove symbols from the watchlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateWatchlist(args, func(w core.Watchlist, s string) bool { return w.Has(s) })
	},
}

var watchlistToggleCmd = &cobra.Command{
	Use:   "toggle SYMBOL...",
	Short: "Toggle symbols on the watchlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateWatchlist(args, func(core.Watchlist, string) bool { return true })
	},
}

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistListCmd)
	watchlistCmd.AddCommand(watchlistAddCmd)
	watchlistCmd.AddCommand(watchlistRemoveCmd)
	watchlistCmd.AddCommand(watchlistToggleCmd)
}

// withPreferences handles common preference store setup and teardown.
func withPreferences(fn func(ctx context.Context, store *prefs.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Must(cfg.Log.Debug)
	defer log.Sync()

	ctx := context.Background()
	store, closeStore, err := openPreferences(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	log.Debug("preferences opened", zap.String("backend", cfg.Preferences.Backend))
	return fn(ctx, store)
}

// updateWatchlist toggles every symbol for which shouldToggle is true and
// saves once. Symbols are stored as given, trimmed.
func updateWatchlist(symbols []string, shouldToggle func(core.Watchlist, string) bool) error {
	return withPreferences(func(ctx context.Context, store *prefs.Store) error {
		w := store.Load(ctx).Watchlist
		changed := false
		for _, s := range symbols {
			s = strings.TrimSpace(s)
			if s == "" || !shouldToggle(w, s) {
				continue
			}
			w = w.Toggle(s)
			changed = true
		}
		if changed {
			store.SaveWatchlist(ctx, w)
		}
		fmt.Printf("Watchlist (%d): %s\n", len(w), strings.Join(w.Symbols(), ", "))
		return nil
	})
}
