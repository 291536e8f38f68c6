package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/client"
	"github.com/newthinker/signaldeck/internal/config"
	"github.com/newthinker/signaldeck/internal/metrics"
	"github.com/newthinker/signaldeck/internal/prefs"
	"github.com/newthinker/signaldeck/internal/storage/kv"
)

var (
	cfgFile   string
	debugMode bool
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "signaldeck",
	Short: "SignalDeck - terminal dashboard for trading signals",
	Long: `SignalDeck polls a trading-signal backend and shows its signals, market
status and open positions in the terminal, with a persistent watchlist.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep preferences in memory only")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file (or defaults plus environment), applies
// the global flags and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if debugMode {
		cfg.Log.Debug = true
	}
	if ephemeral {
		cfg.Preferences.Backend = kv.BackendMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// openPreferences opens the configured preference backend. The returned
// function closes it.
func openPreferences(ctx context.Context, cfg *config.Config, log *zap.Logger) (*prefs.Store, func(), error) {
	storage, err := kv.New(ctx, cfg.Preferences)
	if err != nil {
		return nil, nil, fmt.Errorf("opening preferences: %w", err)
	}
	store := prefs.New(storage,
		prefs.WithLogger(log),
		prefs.WithDefaultDark(lipgloss.HasDarkBackground),
	)
	closeFn := func() {
		if err := kv.Close(storage); err != nil {
			log.Warn("closing preferences", zap.Error(err))
		}
	}
	return store, closeFn, nil
}

// openPreferencesOrDefaults is openPreferences for the views: an unavailable
// backend is logged and replaced by an in-memory one, so defaults apply and
// nothing persists for this run.
func openPreferencesOrDefaults(ctx context.Context, cfg *config.Config, log *zap.Logger) (*prefs.Store, func()) {
	store, closeFn, err := openPreferences(ctx, cfg, log)
	if err == nil {
		return store, closeFn
	}
	log.Debug("preferences unavailable, using defaults",
		zap.String("backend", cfg.Preferences.Backend),
		zap.Error(err),
	)
	fallback := prefs.New(kv.NewMemory(),
		prefs.WithLogger(log),
		prefs.WithDefaultDark(lipgloss.HasDarkBackground),
	)
	return fallback, func() {}
}

func newClient(cfg *config.Config, log *zap.Logger, reg *metrics.Registry) *client.Client {
	return client.New(cfg.API.BaseURL,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLimit(cfg.API.Limit),
		client.WithPortfolio(cfg.API.Portfolio),
		client.WithLogger(log),
		client.WithMetrics(reg),
	)
}
