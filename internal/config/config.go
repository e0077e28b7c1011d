// Package config loads the application configuration from the global config
// file and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
)

const (
	appName        = "retriever"
	configFileName = "retriever.json"

	// DefaultAPIBase is the chat backend used when nothing is configured.
	DefaultAPIBase = "http://localhost:8000"
)

// Config is the resolved application configuration.
type Config struct {
	// APIBase is the chat backend base URL.
	APIBase string `json:"api_base" env:"CHAT_API_BASE"`

	// APIToken is the optional bearer credential. Guest mode works without it.
	APIToken string `json:"api_token" env:"CHAT_API_TOKEN"`

	// UserID identifies the signed-in user; empty means guest.
	UserID string `json:"user_id" env:"CHAT_USER_ID"`

	// DataDir holds the draft database and preference file.
	DataDir string `json:"data_dir" env:"RETRIEVER_DATA_DIR"`

	// Debug enables the development log file.
	Debug bool `json:"debug" env:"RETRIEVER_DEBUG"`
}

// Load reads the global config file if present, then applies environment
// overrides and defaults. A missing config file is not an error.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadFile(GlobalConfigPath(), cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading global config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file path, still applying
// environment overrides and defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}

	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(xdg.DataHome, appName)
	}
}

// GlobalConfigPath returns the path to the global configuration file.
func GlobalConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// DraftDBPath returns the draft database location under the data directory.
func (c *Config) DraftDBPath() string {
	return filepath.Join(c.DataDir, "drafts.db")
}

// LogPath returns the debug log location under the data directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "debug.log")
}
