package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/app"
	"github.com/newthinker/signaldeck/internal/client"
	"github.com/newthinker/signaldeck/internal/logger"
	"github.com/newthinker/signaldeck/internal/metrics"
	"github.com/newthinker/signaldeck/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live dashboard",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The dashboard owns the terminal, so logs go to a file.
	log, err := logger.New(cfg.Log.Debug, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		srv := metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, reg, log)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	store, closeStore := openPreferencesOrDefaults(ctx, cfg, log)
	defer closeStore()

	a := app.New(cfg, newClient(cfg, log, reg), store, log, reg)
	if cfg.API.Stream.Enabled {
		streamCfg, err := client.DefaultStreamConfig(cfg.API.BaseURL, cfg.API.Stream.Path)
		if err != nil {
			return err
		}
		a.AttachStream(client.NewStream(streamCfg, log, reg))
	}

	log.Info("starting dashboard",
		zap.String("api", cfg.API.BaseURL),
		zap.Duration("interval", cfg.Poll.Interval),
		zap.Bool("stream", cfg.API.Stream.Enabled),
	)
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("starting dashboard: %w", err)
	}
	defer func() {
		a.Stop()
		waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Wait(waitCtx)
	}()

	return tui.Run(ctx, a, tui.WithLogger(log), tui.WithCopiedFor(cfg.Dashboard.CopiedIndicator))
}
