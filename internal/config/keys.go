package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "STOCKTRACK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "STOCKTRACK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "feed.source", typ: kString, env: "STOCKTRACK_FEED_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Feed.Source = v.(string) },
		extract: func(cfg Config) any { return cfg.Feed.Source },
	},
	{
		key: "feed.path", typ: kString, env: "STOCKTRACK_FEED_PATH",
		apply:   func(cfg *Config, v any) { cfg.Feed.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Feed.Path },
	},
	{
		key: "feed.url", typ: kString, env: "STOCKTRACK_FEED_URL",
		apply:   func(cfg *Config, v any) { cfg.Feed.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Feed.URL },
	},
	{
		key: "feed.watch", typ: kBool, env: "STOCKTRACK_FEED_WATCH",
		apply:   func(cfg *Config, v any) { cfg.Feed.Watch = v.(bool) },
		extract: func(cfg Config) any { return cfg.Feed.Watch },
	},
	{
		key: "poll.interval", typ: kString, env: "STOCKTRACK_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Poll.Interval = v.(string) },
		extract: func(cfg Config) any { return cfg.Poll.Interval },
	},
	{
		key: "history.retention_snapshots", typ: kInt, env: "STOCKTRACK_HISTORY_RETENTION_SNAPSHOTS",
		apply:   func(cfg *Config, v any) { cfg.History.RetentionSnapshots = v.(int) },
		extract: func(cfg Config) any { return cfg.History.RetentionSnapshots },
	},
	{
		key: "history.retention_events", typ: kInt, env: "STOCKTRACK_HISTORY_RETENTION_EVENTS",
		apply:   func(cfg *Config, v any) { cfg.History.RetentionEvents = v.(int) },
		extract: func(cfg Config) any { return cfg.History.RetentionEvents },
	},
	{
		key: "log.level", typ: kString, env: "STOCKTRACK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
