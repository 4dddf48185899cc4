package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/groblegark/shopwatch/internal/archive"
	"github.com/groblegark/shopwatch/internal/config"
	"github.com/groblegark/shopwatch/internal/eventlog"
	"github.com/groblegark/shopwatch/internal/hub"
	"github.com/groblegark/shopwatch/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the broadcast server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Connect to Postgres.
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		// Pick the event source: the broker when configured, otherwise the
		// polled event log.
		var source eventlog.Source
		if cfg.NATSURL != "" {
			natsSource, err := eventlog.NewNATSSource(cfg.NATSURL, "")
			if err != nil {
				return err
			}
			defer natsSource.Close()
			source = natsSource
			logger.Info("event source: NATS", "url", cfg.NATSURL)
		} else {
			source = eventlog.NewStoreSource(store)
			logger.Info("event source: event log polling", "window", cfg.PollWindow)
		}

		// Bind the listening socket. This is the one fatal failure.
		ln, err := net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("cannot bind listening socket on %s: %w", cfg.ListenAddr, err)
		}

		// Start the archive scheduler if a bucket is configured.
		var scheduler *archive.Scheduler
		if cfg.ArchiveInterval > 0 && cfg.ArchiveS3Bucket != "" {
			dest, err := archive.NewS3Destination(
				context.Background(),
				cfg.ArchiveS3Bucket,
				cfg.ArchiveS3Key,
				cfg.ArchiveS3Region,
				cfg.ArchiveS3Endpoint,
			)
			if err != nil {
				logger.Error("failed to create S3 archive destination", "err", err)
			} else {
				scheduler = archive.NewScheduler(store, []archive.Destination{dest}, cfg.ArchiveInterval, logger)
				scheduler.Start()
				logger.Info("archive scheduler started", "bucket", cfg.ArchiveS3Bucket, "interval", cfg.ArchiveInterval)
			}
		}

		h := hub.New(source, store, logger, hub.Options{
			Tick:          cfg.Tick,
			PollWindow:    cfg.PollWindow,
			Retention:     cfg.Retention,
			SnapshotLimit: cfg.SnapshotLimit,
			StrictFrames:  cfg.StrictFrames,
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			h.Serve(ctx, ln)
		}()
		logger.Info("broadcast server listening", "addr", cfg.ListenAddr)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		cancel()
		<-done
		logger.Info("broadcast server stopped")

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("archive scheduler stopped")
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
