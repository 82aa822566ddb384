// Package main creates the snapshot tables and their indexes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/internal/config"
	"github.com/streamlens/streamlens/internal/logging"
)

const categoriesSchema = `
CREATE TABLE IF NOT EXISTS %s (
	id          BIGSERIAL PRIMARY KEY,
	category    TEXT NOT NULL,
	viewers     BIGINT NOT NULL,
	tags        TEXT NOT NULL DEFAULT 'No Tags',
	image_url   TEXT NOT NULL DEFAULT 'No Image',
	"timestamp" TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_category_created_at_idx ON %[1]s (category, created_at DESC);
CREATE INDEX IF NOT EXISTS %[1]s_created_at_idx ON %[1]s (created_at);
`

const streamsSchema = `
CREATE TABLE IF NOT EXISTS %s (
	id          BIGSERIAL PRIMARY KEY,
	category    TEXT NOT NULL,
	title       TEXT NOT NULL,
	channel     TEXT NOT NULL,
	viewers     BIGINT NOT NULL,
	tags        TEXT NOT NULL DEFAULT 'No Tags',
	"timestamp" TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_channel_created_at_idx ON %[1]s (channel, created_at DESC);
CREATE INDEX IF NOT EXISTS %[1]s_category_idx ON %[1]s (category);
CREATE INDEX IF NOT EXISTS %[1]s_created_at_idx ON %[1]s (created_at);
`

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
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := migrate(ctx, cfg, logger); err != nil {
		logger.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("migration complete",
		zap.String("categories_table", cfg.DB.CategoriesTable),
		zap.String("streams_table", cfg.DB.StreamsTable),
	)
}

func migrate(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	conn, err := pgx.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(ctx); closeErr != nil {
			logger.Warn("close connection failed", zap.Error(closeErr))
		}
	}()

	categoriesTable := cfg.DB.CategoriesTable
	if categoriesTable == "" {
		categoriesTable = "categories"
	}
	streamsTable := cfg.DB.StreamsTable
	if streamsTable == "" {
		streamsTable = "streams"
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf(categoriesSchema, categoriesTable)); err != nil {
		return fmt.Errorf("create %s: %w", categoriesTable, err)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf(streamsSchema, streamsTable)); err != nil {
		return fmt.Errorf("create %s: %w", streamsTable, err)
	}
	return nil
}
