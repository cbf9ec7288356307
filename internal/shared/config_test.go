package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "modlingo.db" {
			t.Errorf("expected database path modlingo.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8090 {
			t.Errorf("expected server port 8090, got %d", config.Server.Port)
		}

		if config.Worker.BaseURL != "http://localhost:9000" {
			t.Errorf("expected worker base URL http://localhost:9000, got %s", config.Worker.BaseURL)
		}

		if config.Storage.Bucket != "mod-artifacts" {
			t.Errorf("expected storage bucket mod-artifacts, got %s", config.Storage.Bucket)
		}

		if config.Sweep.FailureThreshold != 10 {
			t.Errorf("expected failure threshold 10, got %d", config.Sweep.FailureThreshold)
		}

		if config.Files.RetentionHours != 168 {
			t.Errorf("expected retention of 168 hours, got %d", config.Files.RetentionHours)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080
callback_base_url = "http://orchestrator.internal:8080"

[worker]
base_url = "http://worker.internal:9000"
timeout_seconds = 60

[storage]
base_url = "http://storage.internal:9100"
bucket = "custom-bucket"
token_url = "http://storage.internal:9100/oauth/token"
client_id = "test_client_id"
client_secret = "test_secret"

[sweep]
interval_seconds = 10
failure_threshold = 3
poll_rate = 2.5

[files]
work_dir = "/var/lib/modlingo"
retention_hours = 24
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.CallbackBaseURL != "http://orchestrator.internal:8080" {
			t.Errorf("expected callback base URL http://orchestrator.internal:8080, got %s", config.Server.CallbackBaseURL)
		}

		if config.Storage.ClientID != "test_client_id" {
			t.Errorf("expected storage client_id test_client_id, got %s", config.Storage.ClientID)
		}

		if config.Sweep.PollRate != 2.5 {
			t.Errorf("expected poll rate 2.5, got %f", config.Sweep.PollRate)
		}
	})

	t.Run("LoadConfigMissing", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("loading a missing config file should fail")
		}
	})
}
