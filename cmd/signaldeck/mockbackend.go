package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/signaldeck/internal/logger"
	"github.com/newthinker/signaldeck/internal/metrics"
	"github.com/newthinker/signaldeck/internal/mockapi"
)

var (
	mockAddr     string
	mockSeed     uint64
	mockGenerate time.Duration
	mockStream   time.Duration
)

var mockBackendCmd = &cobra.Command{
	Use:   "mock-backend",
	Short: "Serve synthetic backend data for demos",
	Long: `Start an HTTP server that answers every backend endpoint, including the
/ws update stream, with deterministic synthetic data.`,
	RunE: runMockBackend,
}

func init() {
	defaults := mockapi.DefaultConfig()
	mockBackendCmd.Flags().StringVar(&mockAddr, "addr", defaults.Addr, "listen address")
	mockBackendCmd.Flags().Uint64Var(&mockSeed, "seed", defaults.Seed, "random seed for generated data")
	mockBackendCmd.Flags().DurationVar(&mockGenerate, "generate", 30*time.Second, "add a new signal this often (0 disables)")
	mockBackendCmd.Flags().DurationVar(&mockStream, "stream-interval", defaults.StreamInterval, "websocket push interval")

	rootCmd.AddCommand(mockBackendCmd)
}

func runMockBackend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Must(cfg.Log.Debug)
	defer log.Sync()

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		metricsSrv := metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, reg, log)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
		defer metricsSrv.Shutdown(context.Background())
	}

	mockCfg := mockapi.DefaultConfig()
	mockCfg.Addr = mockAddr
	mockCfg.Seed = mockSeed
	mockCfg.GenerateInterval = mockGenerate
	mockCfg.StreamInterval = mockStream
	server := mockapi.New(mockCfg, log, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	go func() {
		if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("signal generator stopped", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
