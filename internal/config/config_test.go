package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "db:\n  dsn: postgres://localhost/streamlens\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "categories", cfg.DB.CategoriesTable)
	require.Equal(t, "streams", cfg.DB.StreamsTable)
	require.Equal(t, 20, cfg.Scraper.CategoryCap)
	require.Equal(t, 8, cfg.Scraper.DirectoryScrollMax)
	require.Equal(t, 3, cfg.Scraper.CategoryScrollMax)
	require.Equal(t, "noop", cfg.Archive.Provider)
	require.Equal(t, "noop", cfg.Publisher.Provider)
	require.True(t, cfg.Probe.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfigFile(t, `
db:
  dsn: postgres://localhost/streamlens
scraper:
  interval_seconds: 60
  backoff_seconds: 120
  category_cap: 5
server:
  port: 9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, 5, cfg.Scraper.CategoryCap)
	require.Equal(t, int64(60), int64(cfg.Interval().Seconds()))
	require.Equal(t, int64(120), int64(cfg.Backoff().Seconds()))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		path := writeConfigFile(t, "db:\n  dsn: postgres://localhost/streamlens\n")
		cfg, err := Load(path)
		require.NoError(t, err)
		return cfg
	}

	t.Run("missing dsn", func(t *testing.T) {
		cfg := base()
		cfg.DB.DSN = ""
		require.ErrorContains(t, cfg.Validate(), "db.dsn")
	})

	t.Run("backoff shorter than interval", func(t *testing.T) {
		cfg := base()
		cfg.Scraper.BackoffSeconds = cfg.Scraper.IntervalSeconds - 1
		require.ErrorContains(t, cfg.Validate(), "backoff_seconds")
	})

	t.Run("template without slug placeholder", func(t *testing.T) {
		cfg := base()
		cfg.Scraper.CategoryURLTemplate = "https://example.com/directory"
		require.ErrorContains(t, cfg.Validate(), "category_url_template")
	})

	t.Run("gcs archive needs bucket", func(t *testing.T) {
		cfg := base()
		cfg.Archive.Provider = "gcs"
		require.ErrorContains(t, cfg.Validate(), "archive.bucket")
	})

	t.Run("pubsub needs project and topic", func(t *testing.T) {
		cfg := base()
		cfg.Publisher.Provider = "pubsub"
		require.ErrorContains(t, cfg.Validate(), "publisher.project_id")
	})

	t.Run("auth needs key", func(t *testing.T) {
		cfg := base()
		cfg.Auth.Enabled = true
		require.ErrorContains(t, cfg.Validate(), "auth.api_key")
	})
}
