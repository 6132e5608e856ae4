package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/fintrack/internal/projection"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Functions.BackfillBatchSize != 10 {
		t.Fatalf("BackfillBatchSize = %d, want 10", cfg.Functions.BackfillBatchSize)
	}
	if got := Duration(cfg.Functions.BackfillPause, 0); got != time.Second {
		t.Fatalf("BackfillPause = %v, want 1s", got)
	}
	if cfg.Simulator.Rates != projection.DefaultRates {
		t.Fatalf("Rates = %+v, want defaults", cfg.Simulator.Rates)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.General.UserID = "u-42"
	cfg.Database.Driver = "postgres"
	cfg.Realtime.Kafka.Brokers = []string{"k1:9092", "k2:9092"}
	cfg.Simulator.Rates.Aggressive = 0.2

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.General.UserID != "u-42" || got.Database.Driver != "postgres" {
		t.Fatalf("loaded %+v", got.General)
	}
	if len(got.Realtime.Kafka.Brokers) != 2 || got.Simulator.Rates.Aggressive != 0.2 {
		t.Fatalf("loaded realtime %+v simulator %+v", got.Realtime, got.Simulator)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server\naddr="), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom accepted malformed TOML")
	}
}

func TestGatewayKeyPrefersEnv(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gateway.APIKey = "from-file"

	t.Setenv(EnvGatewayKey, "")
	if got := GetGatewayAPIKey(cfg); got != "from-file" {
		t.Fatalf("key = %q, want from-file", got)
	}
	t.Setenv(EnvGatewayKey, "from-env")
	if got := GetGatewayAPIKey(cfg); got != "from-env" {
		t.Fatalf("key = %q, want from-env", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte(EnvWebhookSecret+"=hook-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvWebhookSecret, "")
	_ = os.Unsetenv(EnvWebhookSecret)

	if err := LoadEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := ReadSecrets(DefaultConfig()).WebhookSecret; got != "hook-secret" {
		t.Fatalf("WebhookSecret = %q, want hook-secret", got)
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("", 5*time.Second); got != 5*time.Second {
		t.Fatalf("empty = %v", got)
	}
	if got := Duration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("malformed = %v", got)
	}
	if got := Duration("250ms", time.Minute); got != 250*time.Millisecond {
		t.Fatalf("250ms = %v", got)
	}
}

func TestDatabaseDSNDefaultsToDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	cfg := DefaultConfig()
	if got, want := cfg.DatabaseDSN(), filepath.Join("/tmp/xdg-data", "fintrack", "fintrack.db"); got != want {
		t.Fatalf("DatabaseDSN = %q, want %q", got, want)
	}
}
