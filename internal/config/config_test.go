package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen: %q", cfg.Listen)
	}
	if cfg.Environment != "test" {
		t.Errorf("environment: %q", cfg.Environment)
	}
	if cfg.MerchantAPIURL != "https://test.spectrocoin.com/api/public" {
		t.Errorf("api url: %q", cfg.MerchantAPIURL)
	}
	if cfg.AuthURL != "https://test.spectrocoin.com/api/public/oauth/token" {
		t.Errorf("auth url: %q", cfg.AuthURL)
	}
	if cfg.TokenCacheKey != "CRYPTOPAY_ACCESS_TOKEN" {
		t.Errorf("cache key: %q", cfg.TokenCacheKey)
	}
	if len(cfg.AcceptedCurrencies) != len(DefaultAcceptedCurrencies) {
		t.Errorf("currencies: %v", cfg.AcceptedCurrencies)
	}
	if cfg.CallbackRatePerSec != 5 || cfg.CallbackBurst != 10 {
		t.Errorf("rate limits: %v/%v", cfg.CallbackRatePerSec, cfg.CallbackBurst)
	}
	if cfg.Notifications.MaxAttempts != 10 {
		t.Errorf("max attempts: %d", cfg.Notifications.MaxAttempts)
	}
}

func TestLoadProdEndpoints(t *testing.T) {
	t.Setenv("GATEWAY_ENV", "prod")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MerchantAPIURL != "https://spectrocoin.com/api/public" {
		t.Errorf("api url: %q", cfg.MerchantAPIURL)
	}
	if cfg.PublicKeyURL != "https://spectrocoin.com/files/merchant.public.pem" {
		t.Errorf("public key url: %q", cfg.PublicKeyURL)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: ":9000"
environment: prod
project_id: proj-7
client_id: cid
client_secret: csec
accepted_currencies: [EUR, USD]
cancel_redirect_url: https://shop.example/checkout
notifications:
  url: https://merchant.example/hook
  secret: hooksecret
  max_attempts: 4
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" || cfg.ProjectID != "proj-7" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if len(cfg.AcceptedCurrencies) != 2 {
		t.Errorf("currencies: %v", cfg.AcceptedCurrencies)
	}
	if cfg.Notifications.MaxAttempts != 4 || cfg.Notifications.URL != "https://merchant.example/hook" {
		t.Errorf("notifications: %+v", cfg.Notifications)
	}
	// prod environment from the file selects prod endpoint defaults
	if cfg.AuthURL != "https://spectrocoin.com/api/public/oauth/token" {
		t.Errorf("auth url: %q", cfg.AuthURL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("project_id: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROJECT_ID", "from-env")
	t.Setenv("MERCHANT_API_URL", "http://127.0.0.1:9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProjectID != "from-env" {
		t.Errorf("project id: %q", cfg.ProjectID)
	}
	if cfg.MerchantAPIURL != "http://127.0.0.1:9999" {
		t.Errorf("api url: %q", cfg.MerchantAPIURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
