package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the persistent application configuration
type Config struct {
	// Video platform API or feed source
	API APIConfig `json:"api"`

	// What the feed shows
	Feed FeedConfig `json:"feed"`

	// Share and report link targets
	Links LinksConfig `json:"links"`

	// Viewer identity used in report links
	User UserConfig `json:"user"`

	// Prometheus endpoint
	Metrics MetricsConfig `json:"metrics"`
}

// APIConfig holds network settings
type APIConfig struct {
	Source        string `json:"source"` // "api" or "rss"
	BaseURL       string `json:"base_url"`
	Token         string `json:"token,omitempty"`
	RSSURL        string `json:"rss_url,omitempty"`
	TimeoutMs     int    `json:"timeout_ms"`
	MinIntervalMs int    `json:"min_interval_ms"` // spacing between requests
	MaxRetries    int    `json:"max_retries"`     // for 429 and 5xx
	RetryWaitMs   int    `json:"retry_wait_ms"`
	Locale        string `json:"locale"` // follower count formatting
}

// FeedConfig holds feed query settings
type FeedConfig struct {
	SortKey   string `json:"sort_key"`             // "DATE", "VIEWERS"
	ChannelID string `json:"channel_id,omitempty"` // restrict to one channel
	PageSize  int    `json:"page_size"`
}

// LinksConfig holds external link bases
type LinksConfig struct {
	ShareBaseURL string `json:"share_base_url"`
	ReportURL    string `json:"report_url,omitempty"`
}

// UserConfig identifies the viewer
type UserConfig struct {
	Email string `json:"email,omitempty"`
	ID    string `json:"id,omitempty"`
}

// MetricsConfig holds the metrics listener
type MetricsConfig struct {
	Listen string `json:"listen,omitempty"` // e.g. "127.0.0.1:9464"; empty disables
}

// Source kinds
const (
	SourceAPI = "api"
	SourceRSS = "rss"
)

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Source:        SourceAPI,
			BaseURL:       "http://127.0.0.1:8787",
			TimeoutMs:     15000,
			MinIntervalMs: 100,
			MaxRetries:    2,
			RetryWaitMs:   250,
			Locale:        "en",
		},
		Feed: FeedConfig{
			SortKey:  "DATE",
			PageSize: 10,
		},
		Links: LinksConfig{
			ShareBaseURL: "https://wasd.tv",
		},
	}
}

// Timeout returns the per-request timeout.
func (a APIConfig) Timeout() time.Duration { return time.Duration(a.TimeoutMs) * time.Millisecond }

// MinInterval returns the minimum spacing between requests.
func (a APIConfig) MinInterval() time.Duration {
	return time.Duration(a.MinIntervalMs) * time.Millisecond
}

// RetryWait returns the initial retry backoff.
func (a APIConfig) RetryWait() time.Duration { return time.Duration(a.RetryWaitMs) * time.Millisecond }

// Validate checks settings that would otherwise fail later.
func (c *Config) Validate() error {
	switch c.API.Source {
	case SourceAPI:
		if c.API.BaseURL == "" {
			return fmt.Errorf("api.base_url is required for source %q", SourceAPI)
		}
	case SourceRSS:
		if c.API.RSSURL == "" {
			return fmt.Errorf("api.rss_url is required for source %q", SourceRSS)
		}
	default:
		return fmt.Errorf("api.source must be %q or %q, got %q", SourceAPI, SourceRSS, c.API.Source)
	}
	if c.Feed.PageSize < 0 {
		return fmt.Errorf("feed.page_size must not be negative")
	}
	return nil
}

// ConfigPath returns the path to the config file. REEL_CONFIG overrides
// the default location.
func ConfigPath() string {
	if p := os.Getenv("REEL_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".reel", "config.json")
}

// Load reads config from disk, or returns defaults
func Load() (*Config, error) {
	path := ConfigPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults and try to auto-populate from environment
			cfg := DefaultConfig()
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, err
	}

	// Missing keys keep their defaults.
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	path := ConfigPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for the API token
}

// AutoPopulateFromEnv fills in connection and identity settings from
// environment variables
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("REEL_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("REEL_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("REEL_RSS_URL"); v != "" {
		c.API.RSSURL = v
		c.API.Source = SourceRSS
	}
	if v := os.Getenv("REEL_USER_EMAIL"); v != "" {
		c.User.Email = v
	}
	if v := os.Getenv("REEL_USER_ID"); v != "" {
		c.User.ID = v
	}
}

// LoadEnvFile loads settings from a shell script of export lines
// (like keys.sh)
func (c *Config) LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Simple parser for export KEY=value lines
	for _, line := range splitLines(string(data)) {
		if len(line) > 7 && line[:7] == "export " {
			line = line[7:]
		}
		parts := splitFirst(line, '=')
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], unquote(parts[1])

		switch key {
		case "REEL_API_URL":
			c.API.BaseURL = value
		case "REEL_TOKEN":
			c.API.Token = value
		case "REEL_USER_EMAIL":
			c.User.Email = value
		case "REEL_USER_ID":
			c.User.ID = value
		}
	}

	return nil
}

// Helpers

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func splitFirst(s string, sep byte) []string {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return []string{s[:i], s[i+1:]}
		}
	}
	return []string{s}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
