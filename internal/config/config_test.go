package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  url: postgres://localhost/crew
auth:
  jwt_secret: not-so-secret
`)
	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig(): %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Log.Level)
	}
	if cfg.Jobs.Workers != 4 || cfg.Jobs.QueueSize != 16 {
		t.Errorf("job pool defaults = %d/%d, want 4/16", cfg.Jobs.Workers, cfg.Jobs.QueueSize)
	}
	if cfg.Jobs.GenerationTimeout != 5*time.Minute {
		t.Errorf("generation timeout = %s, want 5m", cfg.Jobs.GenerationTimeout)
	}
	if cfg.Jobs.ContextWindow != 8 || cfg.Jobs.ContextCharBudget != 500 {
		t.Errorf("context defaults = %d/%d, want 8/500", cfg.Jobs.ContextWindow, cfg.Jobs.ContextCharBudget)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %s, want 24h", cfg.Auth.TokenTTL)
	}
}

func TestLoadConfigRequiresSecretsOutsideDev(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)
	if _, err := LoadConfig(path, false); err == nil {
		t.Error("prod config without database url accepted")
	}
	if _, err := LoadConfig(path, true); err != nil {
		t.Errorf("dev config rejected: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
jobs:
  workers: 2
  queue_size: 5
  generation_timeout: 30s
  context_window: 3
`)
	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig(): %v", err)
	}
	if cfg.Jobs.Workers != 2 || cfg.Jobs.QueueSize != 5 {
		t.Errorf("pool config = %d/%d, want 2/5", cfg.Jobs.Workers, cfg.Jobs.QueueSize)
	}
	if cfg.Jobs.GenerationTimeout != 30*time.Second {
		t.Errorf("generation timeout = %s, want 30s", cfg.Jobs.GenerationTimeout)
	}
	if cfg.Jobs.ContextWindow != 3 {
		t.Errorf("context window = %d, want 3", cfg.Jobs.ContextWindow)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), true); err == nil {
		t.Error("missing file accepted")
	}
}
