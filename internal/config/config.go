// Package config loads the relay configuration once at startup. The
// resulting Config is a value; nothing reads the environment afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jdelaire/scanrelay/internal/keychain"
)

// Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultMode            = ModeWebhook
	DefaultLogLevel        = "info"
	DefaultScanConcurrency = 4
	DefaultScanTimeout     = 30 * time.Second
)

// Ingress modes.
const (
	ModeWebhook = "webhook"
	ModePoll    = "poll"
)

// Environment variables recognized by Load.
const (
	EnvToken       = "TELEGRAM_TOKEN"
	EnvAdminChatID = "ADMIN_CHAT_ID"
	EnvAddr        = "SCANRELAY_ADDR"
	EnvLogLevel    = "SCANRELAY_LOG_LEVEL"
	EnvLogFile     = "SCANRELAY_LOG_FILE"
)

// Config is the complete relay configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	HTTP     HTTPConfig     `yaml:"http"`
	Scan     ScanConfig     `yaml:"scan"`
	Log      LogConfig      `yaml:"log"`

	// Warnings collects non-fatal problems found while loading, for the
	// caller to log once a logger exists.
	Warnings []string `yaml:"-"`
}

// TelegramConfig holds the bot credential and the admin identity.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	AdminChatID *int64 `yaml:"admin_chat_id"`
	BaseURL     string `yaml:"base_url"`
	Mode        string `yaml:"mode"`
	Keychain    *bool  `yaml:"keychain"`
}

// HTTPConfig configures the inbound HTTP surface.
type HTTPConfig struct {
	Addr        string `yaml:"addr"`
	RootWebhook bool   `yaml:"root_webhook"`
}

// ScanConfig bounds the scoring runner.
type ScanConfig struct {
	MaxConcurrent int64         `yaml:"max_concurrent"`
	Timeout       time.Duration `yaml:"timeout"`
}

// LogConfig selects the log level and optional rotating log file.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// FieldError reports an invalid configuration field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ErrInvalidValue is wrapped by FieldError for values that fail validation.
var ErrInvalidValue = errors.New("invalid value")

// Load reads the optional YAML file at path, applies environment overrides,
// falls back to the keychain for the bot token, then validates and fills in
// defaults. An empty path skips the file.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideWithEnv(&cfg)
	cfg.loadTokenFromKeychain()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Admin returns a copy of the admin chat id, or nil when unset.
func (c Config) Admin() *int64 {
	if c.Telegram.AdminChatID == nil {
		return nil
	}
	id := *c.Telegram.AdminChatID
	return &id
}

// Validate checks field values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Telegram.Mode {
	case "", ModeWebhook, ModePoll:
	default:
		return &FieldError{Field: "telegram.mode", Err: fmt.Errorf("%w %q, want webhook or poll", ErrInvalidValue, c.Telegram.Mode)}
	}
	if c.Telegram.Mode == ModePoll && c.Telegram.Token == "" {
		return &FieldError{Field: "telegram.token", Err: errors.New("required in poll mode")}
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return &FieldError{Field: "log.level", Err: fmt.Errorf("%w %q", ErrInvalidValue, c.Log.Level)}
	}

	if c.Scan.MaxConcurrent < 0 {
		return &FieldError{Field: "scan.max_concurrent", Err: fmt.Errorf("%w: must not be negative", ErrInvalidValue)}
	}
	if c.Scan.Timeout < 0 {
		return &FieldError{Field: "scan.timeout", Err: fmt.Errorf("%w: must not be negative", ErrInvalidValue)}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Telegram.Mode == "" {
		c.Telegram.Mode = DefaultMode
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Scan.MaxConcurrent == 0 {
		c.Scan.MaxConcurrent = DefaultScanConcurrency
	}
	if c.Scan.Timeout == 0 {
		c.Scan.Timeout = DefaultScanTimeout
	}
}

// overrideWithEnv replaces file values with environment values when set.
func overrideWithEnv(cfg *Config) {
	if token := os.Getenv(EnvToken); token != "" {
		cfg.Telegram.Token = token
	}
	if raw := os.Getenv(EnvAdminChatID); raw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring %s=%q: not an integer", EnvAdminChatID, raw))
		} else {
			cfg.Telegram.AdminChatID = &id
		}
	}
	if addr := os.Getenv(EnvAddr); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if file := os.Getenv(EnvLogFile); file != "" {
		cfg.Log.File = file
	}
}

func (c *Config) loadTokenFromKeychain() {
	if c.Telegram.Token != "" {
		return
	}
	if c.Telegram.Keychain != nil && !*c.Telegram.Keychain {
		return
	}

	token, err := keychain.Get(keychain.TokenAccount)
	switch {
	case err == nil:
		c.Telegram.Token = token
	case errors.Is(err, keychain.ErrNotFound):
		c.Warnings = append(c.Warnings, "no telegram token configured; replies will only be logged")
	default:
		c.Warnings = append(c.Warnings, fmt.Sprintf("keychain lookup failed: %v", err))
	}
}
