package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Worker   WorkerConfig   `toml:"worker"`
	Storage  StorageConfig  `toml:"storage"`
	Sweep    SweepConfig    `toml:"sweep"`
	Files    FilesConfig    `toml:"files"`
}

// ServerConfig contains HTTP server settings.
//
// CallbackBaseURL is the externally reachable address the Worker posts
// progress callbacks to, e.g. "http://orchestrator:8090".
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	CallbackBaseURL string `toml:"callback_base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// WorkerConfig contains settings for the external translation worker.
type WorkerConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// StorageConfig contains object storage settings. Authentication uses the
// OAuth2 client-credentials flow against TokenURL.
type StorageConfig struct {
	BaseURL      string `toml:"base_url"`
	Bucket       string `toml:"bucket"`
	TokenURL     string `toml:"token_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// SweepConfig tunes the periodic reconciliation pass over non-terminal tasks.
type SweepConfig struct {
	IntervalSeconds  int     `toml:"interval_seconds"`
	FailureThreshold int     `toml:"failure_threshold"`
	PollRate         float64 `toml:"poll_rate"`
}

// FilesConfig contains local file handling settings.
type FilesConfig struct {
	WorkDir        string `toml:"work_dir"`
	RetentionHours int    `toml:"retention_hours"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
