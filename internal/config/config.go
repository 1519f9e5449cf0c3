// Package config loads layered configuration: compiled defaults, a JSON file
// backend, then STOCKTRACK_* environment overrides.
package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Feed    FeedConfig
	Poll    PollConfig
	History HistoryConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

// FeedConfig selects where inventory exports come from.
// Source is "file" (a CSV on disk, optionally watched for writes) or "http"
// (a CSV export URL, e.g. a published spreadsheet).
type FeedConfig struct {
	Source string
	Path   string
	URL    string
	Watch  bool
}

type PollConfig struct {
	Interval string
}

type HistoryConfig struct {
	RetentionSnapshots int
	RetentionEvents    int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4750,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Feed: FeedConfig{
			Source: "file",
			Watch:  true,
		},
		Poll: PollConfig{
			Interval: "5m",
		},
		History: HistoryConfig{
			RetentionSnapshots: 90,
			RetentionEvents:    10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend
// ($XDG_CONFIG_HOME/stocktrack/config.json) with STOCKTRACK_* environment
// variables overriding backend values.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// PollInterval parses the configured interval, falling back to 5 minutes on
// a malformed value.
func (c Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Poll.Interval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// ValidateFeed checks that the feed selection is usable. Only the server
// needs a feed; client commands load config without one.
func (c Config) ValidateFeed() error {
	switch c.Feed.Source {
	case "file":
		if c.Feed.Path == "" {
			return fmt.Errorf("missing required config: feed path. Set feed.path via `stocktrack config set` or STOCKTRACK_FEED_PATH")
		}
	case "http":
		if c.Feed.URL == "" {
			return fmt.Errorf("missing required config: feed URL. Set feed.url via `stocktrack config set` or STOCKTRACK_FEED_URL")
		}
	default:
		return fmt.Errorf("invalid feed source %q: must be \"file\" or \"http\"", c.Feed.Source)
	}
	return nil
}
