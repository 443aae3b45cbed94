package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg := Load()

	if cfg.Fetcher.MaxItemsPerFeed != 50 {
		t.Fatalf("expected default item cap 50, got %d", cfg.Fetcher.MaxItemsPerFeed)
	}
	if cfg.Fetcher.TimeoutSeconds != 30 {
		t.Fatalf("expected default fetch timeout 30s, got %d", cfg.Fetcher.TimeoutSeconds)
	}
	if cfg.Classifier.BatchSize != 10 {
		t.Fatalf("expected default batch size 10, got %d", cfg.Classifier.BatchSize)
	}
	if cfg.Classifier.BatchDelaySeconds != 1 {
		t.Fatalf("expected default batch delay 1s, got %d", cfg.Classifier.BatchDelaySeconds)
	}
	if cfg.Scheduler.Hour != 6 {
		t.Fatalf("expected default hour 6, got %d", cfg.Scheduler.Hour)
	}
	if cfg.Scheduler.Location() == nil {
		t.Fatal("scheduler location must always resolve")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
scheduler:
  hour: 7
  minute: 30
  timezone: Pacific/Auckland
classifier:
  batchSize: 5
  batchDelaySeconds: 2
fetcher:
  maxItemsPerFeed: 20
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()

	if cfg.Scheduler.Hour != 7 || cfg.Scheduler.Minute != 30 {
		t.Fatalf("expected 07:30, got %02d:%02d", cfg.Scheduler.Hour, cfg.Scheduler.Minute)
	}
	if cfg.Scheduler.Location().String() != "Pacific/Auckland" {
		t.Fatalf("expected Pacific/Auckland, got %s", cfg.Scheduler.Location())
	}
	if cfg.Classifier.BatchSize != 5 {
		t.Fatalf("expected batch size 5, got %d", cfg.Classifier.BatchSize)
	}
	if cfg.Fetcher.MaxItemsPerFeed != 20 {
		t.Fatalf("expected item cap 20, got %d", cfg.Fetcher.MaxItemsPerFeed)
	}
	// Untouched fields keep their defaults.
	if cfg.Classifier.MaxTokens != 4096 {
		t.Fatalf("expected default max tokens, got %d", cfg.Classifier.MaxTokens)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "postgres://env-host/db")
	t.Setenv(anthropicKeyEnv, "env-key")
	t.Setenv(anthropicModelEnv, "env-model")

	cfg := Load()

	if cfg.Database.DSN != "postgres://env-host/db" {
		t.Fatalf("dsn override not applied: %s", cfg.Database.DSN)
	}
	if cfg.Classifier.APIKey != "env-key" {
		t.Fatalf("api key override not applied")
	}
	if cfg.Classifier.Model != "env-model" {
		t.Fatalf("model override not applied: %s", cfg.Classifier.Model)
	}
}
