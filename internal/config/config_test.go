package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"REEL_API_URL", "REEL_TOKEN", "REEL_RSS_URL", "REEL_USER_EMAIL", "REEL_USER_ID"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("REEL_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("REEL_TOKEN", "env-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feed.PageSize != 10 || cfg.API.Source != SourceAPI {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("token = %q, want env-token", cfg.API.Token)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	t.Setenv("REEL_CONFIG", path)

	cfg := DefaultConfig()
	cfg.Feed.SortKey = "VIEWERS"
	cfg.Feed.ChannelID = "42"
	cfg.User = UserConfig{Email: "a@b.c", ID: "7"}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Feed != cfg.Feed || got.User != cfg.User {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("REEL_CONFIG", path)
	if err := os.WriteFile(path, []byte(`{"feed": {"page_size": 25}}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feed.PageSize != 25 {
		t.Errorf("page size = %d, want 25", cfg.Feed.PageSize)
	}
	if cfg.API.MaxRetries != 2 || cfg.Links.ShareBaseURL == "" {
		t.Errorf("unset keys should keep defaults: %+v", cfg)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("REEL_CONFIG", path)
	os.WriteFile(path, []byte(`{"feed":`), 0600)

	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestAutoPopulateFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("REEL_API_URL", "https://api.example")
	t.Setenv("REEL_RSS_URL", "https://feed.example/rss")
	t.Setenv("REEL_USER_EMAIL", "x@y.z")
	t.Setenv("REEL_USER_ID", "99")

	cfg := DefaultConfig()
	cfg.AutoPopulateFromEnv()

	if cfg.API.BaseURL != "https://api.example" || cfg.API.RSSURL != "https://feed.example/rss" {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.API.Source != SourceRSS {
		t.Errorf("source = %q, REEL_RSS_URL should switch to rss", cfg.API.Source)
	}
	if cfg.User.Email != "x@y.z" || cfg.User.ID != "99" {
		t.Errorf("user = %+v", cfg.User)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.sh")
	content := "#!/bin/sh\nexport REEL_TOKEN=\"abc\"\nREEL_USER_ID=5\nexport OTHER=1\n\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if cfg.API.Token != "abc" || cfg.User.ID != "5" {
		t.Errorf("token = %q user id = %q", cfg.API.Token, cfg.User.ID)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"rss without url", func(c *Config) { c.API.Source = SourceRSS }, true},
		{"rss with url", func(c *Config) { c.API.Source = SourceRSS; c.API.RSSURL = "http://x" }, false},
		{"api without url", func(c *Config) { c.API.BaseURL = "" }, true},
		{"unknown source", func(c *Config) { c.API.Source = "ftp" }, true},
		{"negative page size", func(c *Config) { c.Feed.PageSize = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	a := APIConfig{TimeoutMs: 1500, MinIntervalMs: 100, RetryWaitMs: 20}
	if a.Timeout() != 1500*time.Millisecond || a.MinInterval() != 100*time.Millisecond || a.RetryWait() != 20*time.Millisecond {
		t.Errorf("durations = %v %v %v", a.Timeout(), a.MinInterval(), a.RetryWait())
	}
}
