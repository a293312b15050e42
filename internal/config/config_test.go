package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", cfg.API.Timeout)
	}
	if cfg.Realtime.MaxUpdates != 500 {
		t.Errorf("max_updates = %d, want 500", cfg.Realtime.MaxUpdates)
	}
	if cfg.Storage.Path != "carpool.db" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carpool.yaml")
	content := `
api:
  base_url: https://rides.example.com/api
  timeout: 3s
realtime:
  reconnect_attempts: 4
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CARPOOL_LOG_LEVEL", "warn")
	t.Setenv("CARPOOL_STORAGE_PASSPHRASE", "hunter2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://rides.example.com/api" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.Realtime.ReconnectAttempts != 4 {
		t.Errorf("reconnect_attempts = %d, want 4", cfg.Realtime.ReconnectAttempts)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, env should win over file", cfg.Log.Level)
	}
	if cfg.Storage.Passphrase != "hunter2" {
		t.Errorf("passphrase = %q", cfg.Storage.Passphrase)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CARPOOL_LOG_FORMAT", "xml")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for log format")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CARPOOL_API_BASE_URL":               "api.base_url",
		"CARPOOL_REALTIME_RECONNECT_ATTEMPTS": "realtime.reconnect_attempts",
		"CARPOOL_STORAGE_PATH":               "storage.path",
		"CARPOOL_CONFIG":                     "",
		"CARPOOL_OTHER":                      "other",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
