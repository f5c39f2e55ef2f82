// Package config loads runtime settings from an optional YAML file and
// HUB_* environment overrides.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Env      string         `yaml:"env"` // "development" or "production"
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	CMS      CMSConfig      `yaml:"cms"`
	Email    EmailConfig    `yaml:"email"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Browse   BrowseConfig   `yaml:"browse"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	BaseURL        string        `yaml:"base_url"`
	CSRFKey        string        `yaml:"csrf_key"` // 64 hex characters; random per process when empty
	TrustedOrigins []string      `yaml:"trusted_origins"`
	SlowRequest    time.Duration `yaml:"slow_request"`
	RateLimit      int           `yaml:"rate_limit"` // auth form posts per IP per RateWindow
	RateWindow     time.Duration `yaml:"rate_window"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
}

type DatabaseConfig struct {
	Path      string        `yaml:"path"`
	SlowQuery time.Duration `yaml:"slow_query"`
}

type CMSConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	Timeout   time.Duration `yaml:"timeout"`
	PageSize  int           `yaml:"page_size"` // 0 keeps each collection's default
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"` // negative disables caching
}

type EmailConfig struct {
	ResendAPIKey string   `yaml:"resend_api_key"` // empty logs mail instead of sending
	From         string   `yaml:"from"`
	ContactInbox []string `yaml:"contact_inbox"`
}

type OutboxConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Schedule      string        `yaml:"schedule"`
	PurgeSchedule string        `yaml:"purge_schedule"`
	RetainDone    time.Duration `yaml:"retain_done"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
}

type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // optional rotating log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type BrowseConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Env: "development",
		Server: ServerConfig{
			Addr:          ":8080",
			BaseURL:       "http://localhost:8080",
			SlowRequest:   200 * time.Millisecond,
			RateLimit:     10,
			RateWindow:    time.Minute,
			ShutdownGrace: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "investhub.db",
			SlowQuery: 50 * time.Millisecond,
		},
		CMS: CMSConfig{
			BaseURL:   "http://localhost:1337",
			Timeout:   15 * time.Second,
			CacheSize: 512,
			CacheTTL:  time.Minute,
		},
		Email: EmailConfig{
			From: "Investment Hub <noreply@localhost>",
		},
		Outbox: OutboxConfig{
			Enabled:       true,
			Schedule:      "@every 1m",
			PurgeSchedule: "@daily",
			RetainDone:    30 * 24 * time.Hour,
			BaseDelay:     time.Minute,
			MaxDelay:      time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Browse: BrowseConfig{
			Debounce: 400 * time.Millisecond,
		},
	}
}

// IsProduction reports whether Env is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides read through getenv, then validates.
// PRE: getenv is non-nil; os.Getenv in production
// POST: Returns a validated Config or the first problem found
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays HUB_* variables. Unset variables leave values untouched.
func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := getenv(key); v != "" {
			*dst = splitList(v)
		}
	}
	var errs []error
	millis := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				errs = append(errs, fmt.Errorf("%s must be a non-negative integer, got %q", key, v))
				return
			}
			*dst = time.Duration(n) * time.Millisecond
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("HUB_ENV", &cfg.Env)
	str("HUB_ADDR", &cfg.Server.Addr)
	str("HUB_BASE_URL", &cfg.Server.BaseURL)
	str("HUB_CSRF_KEY", &cfg.Server.CSRFKey)
	list("HUB_TRUSTED_ORIGINS", &cfg.Server.TrustedOrigins)
	millis("HUB_SLOW_REQUEST_MS", &cfg.Server.SlowRequest)
	str("HUB_DB_PATH", &cfg.Database.Path)
	millis("HUB_SLOW_QUERY_MS", &cfg.Database.SlowQuery)
	str("HUB_CMS_URL", &cfg.CMS.BaseURL)
	str("HUB_CMS_TOKEN", &cfg.CMS.Token)
	duration("HUB_CMS_TIMEOUT", &cfg.CMS.Timeout)
	duration("HUB_CMS_CACHE_TTL", &cfg.CMS.CacheTTL)
	str("HUB_RESEND_API_KEY", &cfg.Email.ResendAPIKey)
	str("HUB_EMAIL_FROM", &cfg.Email.From)
	list("HUB_CONTACT_INBOX", &cfg.Email.ContactInbox)
	boolean("HUB_OUTBOX_ENABLED", &cfg.Outbox.Enabled)
	str("HUB_OUTBOX_SCHEDULE", &cfg.Outbox.Schedule)
	str("HUB_LOG_LEVEL", &cfg.Log.Level)
	str("HUB_LOG_FORMAT", &cfg.Log.Format)
	str("HUB_LOG_FILE", &cfg.Log.File)
	str("HUB_ADMIN_EMAIL", &cfg.Admin.Email)
	str("HUB_ADMIN_PASSWORD", &cfg.Admin.Password)
	millis("HUB_BROWSE_DEBOUNCE_MS", &cfg.Browse.Debounce)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings that would otherwise fail late at runtime.
// POST: Returns every problem found, joined
func (c Config) Validate() error {
	var errs []error
	if c.Env != "development" && c.Env != "production" {
		errs = append(errs, fmt.Errorf("env must be development or production, got %q", c.Env))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if err := checkURL("server.base_url", c.Server.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("cms.base_url", c.CMS.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Server.CSRFKey != "" {
		if key, err := hex.DecodeString(c.Server.CSRFKey); err != nil || len(key) != 32 {
			errs = append(errs, errors.New("server.csrf_key must be 64 hex characters"))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("server.csrf_key is required in production"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.CMS.PageSize < 0 {
		errs = append(errs, errors.New("cms.page_size cannot be negative"))
	}
	if c.Email.ResendAPIKey != "" && !strings.Contains(c.Email.From, "@") {
		errs = append(errs, errors.New("email.from must be an address when sending through Resend"))
	}
	for _, addr := range c.Email.ContactInbox {
		if !strings.Contains(addr, "@") {
			errs = append(errs, fmt.Errorf("email.contact_inbox entry %q is not an address", addr))
		}
	}
	if c.Outbox.Enabled && c.Outbox.Schedule == "" {
		errs = append(errs, errors.New("outbox.schedule is required when the outbox is enabled"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}
