package config

import (
	"strings"
	"testing"
	"time"
)

// memBackend is an in-memory test double for ConfigBackend.
type memBackend struct {
	data map[string]any
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", false, nil
	}
	return s, true, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	i, isInt := v.(int)
	if !isInt {
		return 0, false, nil
	}
	return i, true, nil
}

func (m *memBackend) SetString(key, val string) error { m.data[key] = val; return nil }
func (m *memBackend) SetInt(key string, val int) error { m.data[key] = val; return nil }
func (m *memBackend) Delete(key string) error          { delete(m.data, key); return nil }

func emptyBackend() *memBackend {
	return &memBackend{data: make(map[string]any)}
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4750 {
		t.Errorf("Server.Port = %d, want 4750", cfg.Server.Port)
	}
	if cfg.Feed.Source != "file" {
		t.Errorf("Feed.Source = %q, want %q", cfg.Feed.Source, "file")
	}
	if !cfg.Feed.Watch {
		t.Error("Feed.Watch = false, want true by default")
	}
	if cfg.Poll.Interval != "5m" {
		t.Errorf("Poll.Interval = %q, want %q", cfg.Poll.Interval, "5m")
	}
	if cfg.History.RetentionSnapshots != 90 {
		t.Errorf("History.RetentionSnapshots = %d, want 90", cfg.History.RetentionSnapshots)
	}
	if cfg.History.RetentionEvents != 10 {
		t.Errorf("History.RetentionEvents = %d, want 10", cfg.History.RetentionEvents)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestBackendOverridesDefaults(t *testing.T) {
	b := emptyBackend()
	b.data["server.port"] = 9090
	b.data["feed.source"] = "http"
	b.data["feed.url"] = "https://example.com/export.csv"
	b.data["feed.watch"] = "false"
	b.data["history.retention_snapshots"] = 30

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Feed.Source != "http" || cfg.Feed.URL != "https://example.com/export.csv" {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	if cfg.Feed.Watch {
		t.Error("Feed.Watch = true, want false from backend")
	}
	if cfg.History.RetentionSnapshots != 30 {
		t.Errorf("History.RetentionSnapshots = %d, want 30", cfg.History.RetentionSnapshots)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := emptyBackend()
	b.data["server.port"] = 9090
	b.data["feed.path"] = "/srv/backend.csv"

	t.Setenv("STOCKTRACK_SERVER_PORT", "7070")
	t.Setenv("STOCKTRACK_FEED_PATH", "/srv/env.csv")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from env", cfg.Server.Port)
	}
	if cfg.Feed.Path != "/srv/env.csv" {
		t.Errorf("Feed.Path = %q, want env value", cfg.Feed.Path)
	}
}

func TestMalformedEnvIntKeepsDefault(t *testing.T) {
	t.Setenv("STOCKTRACK_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4750 {
		t.Errorf("Server.Port = %d, want default 4750", cfg.Server.Port)
	}
}

func TestPollIntervalParsing(t *testing.T) {
	cfg := Config{Poll: PollConfig{Interval: "30s"}}
	if got := cfg.PollInterval(); got != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", got)
	}

	cfg.Poll.Interval = "garbage"
	if got := cfg.PollInterval(); got != 5*time.Minute {
		t.Errorf("PollInterval = %v for malformed value, want 5m fallback", got)
	}

	cfg.Poll.Interval = "-1m"
	if got := cfg.PollInterval(); got != 5*time.Minute {
		t.Errorf("PollInterval = %v for negative value, want 5m fallback", got)
	}
}

func TestValidateFeed(t *testing.T) {
	cases := []struct {
		name    string
		feed    FeedConfig
		wantErr string
	}{
		{"file with path", FeedConfig{Source: "file", Path: "/srv/inv.csv"}, ""},
		{"file without path", FeedConfig{Source: "file"}, "feed path"},
		{"http with url", FeedConfig{Source: "http", URL: "https://example.com/x.csv"}, ""},
		{"http without url", FeedConfig{Source: "http"}, "feed URL"},
		{"unknown source", FeedConfig{Source: "ftp"}, "invalid feed source"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Config{Feed: tc.feed}.ValidateFeed()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidKeysCoverAllSpecs(t *testing.T) {
	keys := ValidKeys()
	if len(keys) != len(specs) {
		t.Fatalf("ValidKeys returned %d keys, want %d", len(keys), len(specs))
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		if seen[k] {
			t.Errorf("duplicate key %q", k)
		}
		seen[k] = true
	}
}

func TestEnsureAPITokenRoundTrip(t *testing.T) {
	dir := t.TempDir()

	token, err := EnsureAPIToken(dir)
	if err != nil {
		t.Fatalf("EnsureAPIToken: %v", err)
	}
	if token == "" {
		t.Fatal("generated token is empty")
	}

	again, err := EnsureAPIToken(dir)
	if err != nil {
		t.Fatalf("second EnsureAPIToken: %v", err)
	}
	if again != token {
		t.Errorf("token changed across calls: %q vs %q", again, token)
	}

	got, err := GetAPIToken(dir)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if got != token {
		t.Errorf("GetAPIToken = %q, want %q", got, token)
	}
}

func TestGetAPITokenMissing(t *testing.T) {
	_, err := GetAPIToken(t.TempDir())
	if err == nil {
		t.Fatal("expected error when no token exists")
	}
	if !strings.Contains(err.Error(), "no API token found") {
		t.Errorf("error = %v, want a hint to start the server", err)
	}
}
