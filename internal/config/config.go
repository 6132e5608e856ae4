// Package config loads fintrack settings from TOML and secrets from the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/fintrack/internal/projection"
)

// Config holds all fintrack configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Market     MarketConfig     `toml:"market"`
	Realtime   RealtimeConfig   `toml:"realtime"`
	Functions  FunctionsConfig  `toml:"functions"`
	Messaging  MessagingConfig  `toml:"messaging"`
	Simulator  SimulatorConfig  `toml:"simulator"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds local-operator preferences.
type GeneralConfig struct {
	UserID      string `toml:"user_id,omitempty"`
	DisplayName string `toml:"display_name,omitempty"`
	Currency    string `toml:"currency"`
}

// ServerConfig controls the HTTP daemon.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	Metrics         bool   `toml:"metrics"`
	SummaryInterval string `toml:"summary_interval"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn,omitempty"`
}

// GatewayConfig points at the LLM gateway.
type GatewayConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
	APIKey  string `toml:"api_key,omitempty"`
}

// MarketConfig points at the quote provider.
type MarketConfig struct {
	BaseURL      string `toml:"base_url"`
	PollInterval string `toml:"poll_interval"`
}

// RealtimeConfig sizes the change hub and its optional broker mirror.
type RealtimeConfig struct {
	RingSize int         `toml:"ring_size"`
	Kafka    KafkaConfig `toml:"kafka"`
}

// KafkaConfig enables mirroring when Brokers is non-empty.
type KafkaConfig struct {
	Brokers     []string `toml:"brokers,omitempty"`
	TopicPrefix string   `toml:"topic_prefix"`
}

// FunctionsConfig tunes the HTTP function handlers.
type FunctionsConfig struct {
	BackfillBatchSize int    `toml:"backfill_batch_size"`
	BackfillPause     string `toml:"backfill_pause"`
	TrendMonths       int    `toml:"trend_months"`
}

// MessagingConfig points at the messaging platform.
type MessagingConfig struct {
	BaseURL string `toml:"base_url"`
	PhoneID string `toml:"phone_id,omitempty"`
}

// SimulatorConfig holds simulator defaults.
type SimulatorConfig struct {
	DailyContribution float64          `toml:"daily_contribution"`
	RiskLevel         string           `toml:"risk_level"`
	Horizon           int              `toml:"horizon"`
	Rates             projection.Rates `toml:"rates"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Currency: "USD",
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8787",
			Metrics:         true,
			SummaryInterval: "30s",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Gateway: GatewayConfig{
			BaseURL: "https://ai.gateway.lovable.dev/v1",
			Model:   "google/gemini-2.5-flash",
			Timeout: "30s",
		},
		Market: MarketConfig{
			BaseURL:      "https://finnhub.io/api/v1",
			PollInterval: "15s",
		},
		Realtime: RealtimeConfig{
			RingSize: 200,
			Kafka:    KafkaConfig{TopicPrefix: "fintrack."},
		},
		Functions: FunctionsConfig{
			BackfillBatchSize: 10,
			BackfillPause:     "1s",
			TrendMonths:       3,
		},
		Messaging: MessagingConfig{
			BaseURL: "https://graph.facebook.com/v19.0",
		},
		Simulator: SimulatorConfig{
			DailyContribution: 10,
			RiskLevel:         string(projection.Moderate),
			Horizon:           12,
			Rates:             projection.DefaultRates,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fintrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fintrack")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "fintrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "fintrack")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DatabaseDSN returns the configured DSN, defaulting SQLite to a file in
// DataDir.
func (c Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	if c.Database.Driver == "postgres" {
		return os.Getenv(EnvDatabaseURL)
	}
	return filepath.Join(DataDir(), "fintrack.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads a config file at path.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path with owner-only permissions.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // operator-supplied config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Duration parses a config duration, returning def when s is empty or
// malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
