// Package config loads gateway client configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Endpoint defaults per environment. The production public key lives at a
// different path than the test one.
const (
	testAPIURL       = "https://test.spectrocoin.com/api/public"
	testAuthURL      = "https://test.spectrocoin.com/api/public/oauth/token"
	testPublicKeyURL = "https://test.spectrocoin.com/public.pem"

	prodAPIURL       = "https://spectrocoin.com/api/public"
	prodAuthURL      = "https://spectrocoin.com/api/public/oauth/token"
	prodPublicKeyURL = "https://spectrocoin.com/files/merchant.public.pem"
)

// DefaultAcceptedCurrencies is the fiat allow-list for order creation.
var DefaultAcceptedCurrencies = []string{
	"EUR", "USD", "PLN", "CHF", "SEK", "GBP", "AUD", "CAD", "CZK", "DKK", "NOK",
}

type Notifications struct {
	URL         string `yaml:"url"`
	Secret      string `yaml:"secret"`
	MaxAttempts int    `yaml:"max_attempts"`
}

type Config struct {
	Listen      string `yaml:"listen"`
	Environment string `yaml:"environment"` // "test" or "prod"

	MerchantAPIURL string `yaml:"merchant_api_url"`
	AuthURL        string `yaml:"auth_url"`
	PublicKeyURL   string `yaml:"public_key_url"`

	ProjectID    string `yaml:"project_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// EncryptionSecret is the platform-wide secret the token encryption key
	// is derived from; never used as the key directly.
	EncryptionSecret string `yaml:"encryption_secret"`
	TokenCacheKey    string `yaml:"token_cache_key"`

	AcceptedCurrencies []string `yaml:"accepted_currencies"`

	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	CancelRedirectURL string `yaml:"cancel_redirect_url"`

	// CallbackRatePerSec limits inbound callbacks per remote IP.
	CallbackRatePerSec float64 `yaml:"callback_rate_per_sec"`
	CallbackBurst      int     `yaml:"callback_burst"`

	Notifications Notifications `yaml:"notifications"`
}

// Load reads path (when non-empty), applies env overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Listen = envOr("LISTEN_ADDR", c.Listen)
	c.Environment = envOr("GATEWAY_ENV", c.Environment)
	c.MerchantAPIURL = envOr("MERCHANT_API_URL", c.MerchantAPIURL)
	c.AuthURL = envOr("AUTH_URL", c.AuthURL)
	c.PublicKeyURL = envOr("PUBLIC_KEY_URL", c.PublicKeyURL)
	c.ProjectID = envOr("PROJECT_ID", c.ProjectID)
	c.ClientID = envOr("CLIENT_ID", c.ClientID)
	c.ClientSecret = envOr("CLIENT_SECRET", c.ClientSecret)
	c.EncryptionSecret = envOr("ENCRYPTION_SECRET", c.EncryptionSecret)
	c.TokenCacheKey = envOr("TOKEN_CACHE_KEY", c.TokenCacheKey)
	c.DatabaseURL = envOr("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = envOr("REDIS_URL", c.RedisURL)
	c.CancelRedirectURL = envOr("CANCEL_REDIRECT_URL", c.CancelRedirectURL)
	c.Notifications.URL = envOr("NOTIFICATION_URL", c.Notifications.URL)
	c.Notifications.Secret = envOr("NOTIFICATION_SECRET", c.Notifications.Secret)
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Environment == "" {
		c.Environment = "test"
	}
	prod := strings.EqualFold(c.Environment, "prod") || strings.EqualFold(c.Environment, "production")
	if c.MerchantAPIURL == "" {
		c.MerchantAPIURL = testAPIURL
		if prod {
			c.MerchantAPIURL = prodAPIURL
		}
	}
	if c.AuthURL == "" {
		c.AuthURL = testAuthURL
		if prod {
			c.AuthURL = prodAuthURL
		}
	}
	if c.PublicKeyURL == "" {
		c.PublicKeyURL = testPublicKeyURL
		if prod {
			c.PublicKeyURL = prodPublicKeyURL
		}
	}
	if c.TokenCacheKey == "" {
		c.TokenCacheKey = "CRYPTOPAY_ACCESS_TOKEN"
	}
	if len(c.AcceptedCurrencies) == 0 {
		c.AcceptedCurrencies = DefaultAcceptedCurrencies
	}
	if c.CallbackRatePerSec <= 0 {
		c.CallbackRatePerSec = 5
	}
	if c.CallbackBurst <= 0 {
		c.CallbackBurst = 10
	}
	if c.Notifications.MaxAttempts <= 0 {
		c.Notifications.MaxAttempts = 10
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
