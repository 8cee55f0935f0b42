// Package config loads and validates the typed application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Services  []ServiceConfig `yaml:"services"`
	SpamGuard SpamGuardConfig `yaml:"spam_guard"`
}

// TelegramConfig holds the chat-platform credentials and access control.
type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AllowedUsers []int64 `yaml:"allowed_users"`
}

// DatabaseConfig holds the persistence settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ServiceConfig declares one feed-family poll service. Services are enabled
// and disabled here, never by code edits.
type ServiceConfig struct {
	Name       string `yaml:"name"`
	Enabled    bool   `yaml:"enabled"`
	Interval   string `yaml:"interval"`
	FeedURL    string `yaml:"feed_url"`
	RatePerSec int    `yaml:"rate_per_sec"`

	interval time.Duration
}

// PollInterval returns the validated poll interval.
func (s ServiceConfig) PollInterval() time.Duration {
	return s.interval
}

// SpamGuardConfig holds the media-spam detector settings.
type SpamGuardConfig struct {
	Enabled bool `yaml:"enabled"`
}

const defaultInterval = 15 * time.Minute

// Load reads the YAML configuration at path, applies environment overrides,
// and validates it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML configuration document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if tok := os.Getenv("TELEGRAM_BOT_TOKEN"); tok != "" {
		cfg.Telegram.Token = tok
	}
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram.token is required (or set TELEGRAM_BOT_TOKEN)")
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/bot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	seen := make(map[string]bool)
	for i := range cfg.Services {
		svc := &cfg.Services[i]
		if svc.Name == "" {
			return nil, fmt.Errorf("services[%d]: name is required", i)
		}
		if seen[svc.Name] {
			return nil, fmt.Errorf("services[%d]: duplicate name %q", i, svc.Name)
		}
		seen[svc.Name] = true

		d, err := parseInterval(fmt.Sprintf("services[%d].interval", i), svc.Interval)
		if err != nil {
			return nil, err
		}
		svc.interval = d

		if !svc.Enabled {
			continue
		}
		if !strings.Contains(svc.FeedURL, "%s") {
			return nil, fmt.Errorf("services[%d].feed_url %q must contain %%s for the entity key", i, svc.FeedURL)
		}
	}

	return &cfg, nil
}

func parseInterval(field, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return defaultInterval, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("%s: %q is below 1s", field, raw)
	}
	return d, nil
}

// EnabledServices returns only the services enabled by configuration.
func (c *Config) EnabledServices() []ServiceConfig {
	var out []ServiceConfig
	for _, s := range c.Services {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.Telegram.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.Telegram.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
