package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Secret environment variables. They are never written to the config file.
const (
	EnvGatewayKey     = "FINTRACK_GATEWAY_API_KEY"
	EnvTokenKey       = "FINTRACK_TOKEN_KEY"
	EnvMessagingToken = "FINTRACK_MESSAGING_TOKEN"
	EnvJWTSecret      = "FINTRACK_JWT_SECRET"
	EnvWebhookSecret  = "FINTRACK_WEBHOOK_SECRET"
	EnvMarketKey      = "FINTRACK_MARKET_API_KEY"
	EnvDatabaseURL    = "FINTRACK_DATABASE_URL"
)

// Secrets groups the values read from the environment.
type Secrets struct {
	GatewayKey     string
	TokenKey       string
	MessagingToken string
	JWTSecret      string
	WebhookSecret  string
	MarketKey      string
}

// LoadEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ReadSecrets collects secrets from the environment. The gateway key
// falls back to the config file value.
func ReadSecrets(cfg Config) Secrets {
	return Secrets{
		GatewayKey:     GetGatewayAPIKey(cfg),
		TokenKey:       os.Getenv(EnvTokenKey),
		MessagingToken: os.Getenv(EnvMessagingToken),
		JWTSecret:      os.Getenv(EnvJWTSecret),
		WebhookSecret:  os.Getenv(EnvWebhookSecret),
		MarketKey:      os.Getenv(EnvMarketKey),
	}
}

// GetGatewayAPIKey returns the API key from env var or config, in that order.
func GetGatewayAPIKey(cfg Config) string {
	if key := os.Getenv(EnvGatewayKey); key != "" {
		return key
	}
	return cfg.Gateway.APIKey
}

// Missing lists the names of required secrets that are empty.
func (s Secrets) Missing() []string {
	var out []string
	if s.TokenKey == "" {
		out = append(out, EnvTokenKey)
	}
	if s.JWTSecret == "" {
		out = append(out, EnvJWTSecret)
	}
	return out
}
