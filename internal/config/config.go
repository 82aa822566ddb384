// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	DB        DBConfig        `mapstructure:"db"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig controls access to the snapshot database.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	CategoriesTable string `mapstructure:"categories_table"`
	StreamsTable    string `mapstructure:"streams_table"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
}

// ScraperConfig governs the extraction pipeline and its cadence.
type ScraperConfig struct {
	DirectoryURL        string `mapstructure:"directory_url"`
	CategoryURLTemplate string `mapstructure:"category_url_template"`
	IntervalSeconds     int    `mapstructure:"interval_seconds"`
	BackoffSeconds      int    `mapstructure:"backoff_seconds"`
	CategoryCap         int    `mapstructure:"category_cap"`
	DirectoryScrollMax  int    `mapstructure:"directory_scroll_max"`
	CategoryScrollMax   int    `mapstructure:"category_scroll_max"`
	ScrollPauseMs       int    `mapstructure:"scroll_pause_ms"`
	WaitTimeoutSeconds  int    `mapstructure:"wait_timeout_seconds"`
	UserAgent           string `mapstructure:"user_agent"`
}

// ProbeConfig controls the pre-cycle reachability check.
type ProbeConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// ArchiveConfig selects where rendered page snapshots are stored.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"` // noop, local, or gcs
	LocalDir string `mapstructure:"local_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// PublisherConfig selects where cycle summaries are published.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"` // noop or pubsub
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STREAMLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("db.categories_table", "categories")
	v.SetDefault("db.streams_table", "streams")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("scraper.directory_url", "https://www.twitch.tv/directory?sort=VIEWER_COUNT")
	v.SetDefault("scraper.category_url_template", "https://www.twitch.tv/directory/category/%s?sort=VIEWER_COUNT")
	v.SetDefault("scraper.interval_seconds", 900)
	v.SetDefault("scraper.backoff_seconds", 3600)
	v.SetDefault("scraper.category_cap", 20)
	v.SetDefault("scraper.directory_scroll_max", 8)
	v.SetDefault("scraper.category_scroll_max", 3)
	v.SetDefault("scraper.scroll_pause_ms", 3000)
	v.SetDefault("scraper.wait_timeout_seconds", 10)
	v.SetDefault("scraper.user_agent", "streamlens-bot/0.1")
	v.SetDefault("probe.enabled", true)
	v.SetDefault("probe.timeout_seconds", 10)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Scraper.IntervalSeconds <= 0 {
		return fmt.Errorf("scraper.interval_seconds must be > 0")
	}
	if c.Scraper.BackoffSeconds < c.Scraper.IntervalSeconds {
		return fmt.Errorf("scraper.backoff_seconds must be >= scraper.interval_seconds")
	}
	if c.Scraper.CategoryCap <= 0 {
		return fmt.Errorf("scraper.category_cap must be > 0")
	}
	if c.Scraper.WaitTimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.wait_timeout_seconds must be > 0")
	}
	if !strings.Contains(c.Scraper.CategoryURLTemplate, "%s") {
		return fmt.Errorf("scraper.category_url_template must contain a %%s slug placeholder")
	}
	switch c.Archive.Provider {
	case "noop", "local", "gcs":
	default:
		return fmt.Errorf("archive.provider must be one of noop, local, gcs")
	}
	if c.Archive.Provider == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive.provider is gcs")
	}
	if c.Archive.Provider == "local" && c.Archive.LocalDir == "" {
		return fmt.Errorf("archive.local_dir is required when archive.provider is local")
	}
	switch c.Publisher.Provider {
	case "noop", "pubsub":
	default:
		return fmt.Errorf("publisher.provider must be one of noop, pubsub")
	}
	if c.Publisher.Provider == "pubsub" && (c.Publisher.ProjectID == "" || c.Publisher.Topic == "") {
		return fmt.Errorf("publisher.project_id and publisher.topic are required when publisher.provider is pubsub")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// Interval returns the configured cycle cadence as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Scraper.IntervalSeconds) * time.Second
}

// Backoff returns the post-failure wait as a duration.
func (c Config) Backoff() time.Duration {
	return time.Duration(c.Scraper.BackoffSeconds) * time.Second
}

// WaitTimeout returns the per-wait content timeout as a duration.
func (c Config) WaitTimeout() time.Duration {
	return time.Duration(c.Scraper.WaitTimeoutSeconds) * time.Second
}

// ScrollPause returns the pause between scroll rounds as a duration.
func (c Config) ScrollPause() time.Duration {
	return time.Duration(c.Scraper.ScrollPauseMs) * time.Millisecond
}
