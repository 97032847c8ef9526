package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	os.Unsetenv("API_BASE_URL")
	os.Unsetenv("API_REQUEST_TIMEOUT")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.API.BaseURL == "" {
		t.Fatalf("expected default base URL, got empty: %+v", cfg)
	}
	if cfg.API.RequestTimeout != 15*time.Second {
		t.Fatalf("expected 15s default request timeout, got %v", cfg.API.RequestTimeout)
	}
	if cfg.Charging.PollInterval != 30*time.Second {
		t.Fatalf("expected 30s default poll interval, got %v", cfg.Charging.PollInterval)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	os.Setenv("API_BASE_URL", "http://localhost:8089/mobile")
	os.Setenv("API_RETRY_MAX", "1")
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("REDIS_PORT", "6379")
	defer func() {
		os.Unsetenv("API_BASE_URL")
		os.Unsetenv("API_RETRY_MAX")
		os.Unsetenv("REDIS_HOST")
		os.Unsetenv("REDIS_PORT")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8089/mobile" {
		t.Fatalf("unexpected base URL: %q", cfg.API.BaseURL)
	}
	if cfg.API.RetryMax != 1 {
		t.Fatalf("unexpected retry max: %d", cfg.API.RetryMax)
	}
	if cfg.Redis.Host != "localhost" {
		t.Fatalf("unexpected redis host: %q", cfg.Redis.Host)
	}
}
