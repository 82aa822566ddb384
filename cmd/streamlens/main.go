// Package main wires together the streamlens service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/internal/api"
	"github.com/streamlens/streamlens/internal/archive"
	"github.com/streamlens/streamlens/internal/clock/system"
	"github.com/streamlens/streamlens/internal/config"
	"github.com/streamlens/streamlens/internal/extract"
	"github.com/streamlens/streamlens/internal/id/uuid"
	"github.com/streamlens/streamlens/internal/logging"
	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/probe"
	"github.com/streamlens/streamlens/internal/publish"
	"github.com/streamlens/streamlens/internal/runner"
	"github.com/streamlens/streamlens/internal/scrape"
	"github.com/streamlens/streamlens/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	clock := system.New()
	ids := uuid.New()

	store, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		CategoriesTable: cfg.DB.CategoriesTable,
		StreamsTable:    cfg.DB.StreamsTable,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
	}, clock, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	archiver, closeArchiver, err := buildArchiver(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init archiver: %w", err)
	}
	defer func() {
		if err := closeArchiver(); err != nil {
			logger.Warn("close archiver failed", zap.Error(err))
		}
	}()

	publisher, closePublisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}
	defer func() {
		if err := closePublisher(); err != nil {
			logger.Warn("close publisher failed", zap.Error(err))
		}
	}()

	extractor, err := extract.New(extract.Config{
		DirectoryURL:        cfg.Scraper.DirectoryURL,
		CategoryURLTemplate: cfg.Scraper.CategoryURLTemplate,
		CategoryCap:         cfg.Scraper.CategoryCap,
		DirectoryScrollMax:  cfg.Scraper.DirectoryScrollMax,
		CategoryScrollMax:   cfg.Scraper.CategoryScrollMax,
		ScrollPause:         cfg.ScrollPause(),
		WaitTimeout:         cfg.WaitTimeout(),
		UserAgent:           cfg.Scraper.UserAgent,
	}, clock, archiver, logger.Named("extract"))
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}
	defer extractor.Close()

	var prober runner.Prober
	if cfg.Probe.Enabled {
		prober = probe.New(probe.Config{
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   time.Duration(cfg.Probe.TimeoutSeconds) * time.Second,
		})
	}

	cycles, err := runner.New(extractor, store, publisher, prober, clock, ids, runner.Config{
		Interval: cfg.Interval(),
		Backoff:  cfg.Backoff(),
		Topic:    cfg.Publisher.Topic,
		ProbeURL: cfg.Scraper.DirectoryURL,
	}, logger.Named("runner"))
	if err != nil {
		return fmt.Errorf("init runner: %w", err)
	}

	apiServer := api.NewServer(store, cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("scrape runner started", zap.Duration("interval", cfg.Interval()))
		cycles.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func noClose() error { return nil }

// buildArchiver returns the configured archiver and a close func releasing
// any client it holds.
func buildArchiver(ctx context.Context, cfg config.Config) (scrape.Archiver, func() error, error) {
	switch cfg.Archive.Provider {
	case "local":
		archiver, err := archive.NewLocal(archive.LocalConfig{BaseDir: cfg.Archive.LocalDir})
		return archiver, noClose, err
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		archiver, err := archive.NewGCS(client, archive.GCSConfig{
			Bucket: cfg.Archive.Bucket,
			Prefix: cfg.Archive.Prefix,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return archiver, client.Close, nil
	default:
		return archive.NewNoop(), noClose, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (scrape.Publisher, func() error, error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.Publisher.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		publisher, err := publish.NewPubSub(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return publisher, client.Close, nil
	default:
		return publish.NewNoop(), noClose, nil
	}
}
