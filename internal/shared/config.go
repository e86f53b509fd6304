package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Cleanup modes for the final queue wipe of an export run.
const (
	CleanupAll       = "all"
	CleanupAttempted = "attempted"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Trakt TraktConfig `toml:"trakt"`
}

// TraktConfig contains Trakt API application credentials.
//
// User tokens are not stored here; they live in the trakt_tokens table.
type TraktConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	BaseURL      string `toml:"base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncConfig tunes the export engine.
type SyncConfig struct {
	BatchLimit        int     `toml:"batch_limit"`
	BatchDelayMS      int     `toml:"batch_delay_ms"`
	HiddenDelayMS     int     `toml:"hidden_delay_ms"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	MoviesEnabled     bool    `toml:"movies_enabled"`
	QuickSyncEnabled  bool    `toml:"quick_sync_enabled"`
	Cleanup           string  `toml:"cleanup"`
	LockPath          string  `toml:"lock_path"`
}

// BatchDelay returns the pause between export batches.
func (s SyncConfig) BatchDelay() time.Duration {
	return time.Duration(s.BatchDelayMS) * time.Millisecond
}

// HiddenDelay returns the pause between the hidden shows and hidden movies calls.
func (s SyncConfig) HiddenDelay() time.Duration {
	return time.Duration(s.HiddenDelayMS) * time.Millisecond
}

// Validate rejects configurations the export engine cannot run with.
func (c *Config) Validate() error {
	if c.Sync.BatchLimit <= 0 {
		return fmt.Errorf("%w: sync.batch_limit must be positive, got %d", ErrInvalidConfig, c.Sync.BatchLimit)
	}
	if c.Sync.BatchDelayMS < 0 || c.Sync.HiddenDelayMS < 0 {
		return fmt.Errorf("%w: sync delays cannot be negative", ErrInvalidConfig)
	}
	if c.Sync.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: sync.requests_per_second must be positive", ErrInvalidConfig)
	}
	switch c.Sync.Cleanup {
	case CleanupAll, CleanupAttempted:
	default:
		return fmt.Errorf("%w: sync.cleanup must be %q or %q, got %q", ErrInvalidConfig, CleanupAll, CleanupAttempted, c.Sync.Cleanup)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
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

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
