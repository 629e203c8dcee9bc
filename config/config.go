package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Checker    CheckerConfig    `yaml:"checker"`
	Primary    PrimaryConfig    `yaml:"primary"`
	Mirror     MirrorConfig     `yaml:"mirror"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the dashboard HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// CheckerConfig holds the polling loop configuration.
type CheckerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	URL             string        `yaml:"url"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-"`
	HTTPProxy       string        `yaml:"http_proxy"`
}

// PrimaryConfig holds the authoritative PostgreSQL connection configuration.
type PrimaryConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// MirrorConfig holds the local SQLite read-cache configuration.
type MirrorConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// TelegramConfig holds the Telegram bot credentials.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
	APIBase string `yaml:"api_base"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

const defaultVisaListURL = "https://api.schengenvisaappointments.com/api/visa-list/?format=json"

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Checker.URL == "" {
		cfg.Checker.URL = defaultVisaListURL
	}
	if cfg.Checker.IntervalSeconds <= 0 {
		cfg.Checker.IntervalSeconds = 600
	}
	cfg.Checker.Interval = time.Duration(cfg.Checker.IntervalSeconds) * time.Second

	if cfg.Checker.TimeoutSeconds <= 0 {
		cfg.Checker.TimeoutSeconds = 10
	}
	cfg.Checker.Timeout = time.Duration(cfg.Checker.TimeoutSeconds) * time.Second

	if cfg.Mirror.Path == "" {
		cfg.Mirror.Path = "local_data.db"
	}

	if cfg.Telegram.APIBase == "" {
		cfg.Telegram.APIBase = "https://api.telegram.org"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}

// Validate checks the settings that must be present before the polling loop
// may start. Failures here are fatal at startup.
func (c *Config) Validate() error {
	if c.Primary.DSN == "" {
		return fmt.Errorf("primary.dsn is required")
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if c.Push.Enabled && (c.Push.PublicKey == "" || c.Push.PrivateKey == "") {
		return fmt.Errorf("push.vapid_public_key and push.vapid_private_key are required when push is enabled")
	}
	return nil
}
