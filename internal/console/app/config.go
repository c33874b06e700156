package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AuthBaseURL string `yaml:"auth_base_url"` // Required: base URL of the auth endpoint
	APIBaseURL  string `yaml:"api_base_url"`  // Required: base URL of the REST backend

	StateFile    string        `yaml:"state_file"`     // Optional: path to the session state database (default: per-user state dir)
	StateKeyFile string        `yaml:"state_key_file"` // Optional: path to the at-rest encryption key file
	Env          string        `yaml:"env"`            // Environment (dev, staging, prod) (default: prod)
	LogLevel     string        `yaml:"log_level"`      // Log level (debug, info, warn, error) (default: info)
	LogFormat    string        `yaml:"log_format"`     // Log format (json, text) (default: text)
	HTTPTimeout  time.Duration `yaml:"http_timeout"`   // Per-request timeout for API calls (default: 15s)
}

// LoadConfig reads the optional YAML config file and overlays environment
// variables on top, so ATLAS_* always wins over the file.
func LoadConfig() (Config, error) {
	cfg := Config{
		Env:         "prod",
		LogLevel:    "info",
		LogFormat:   "text",
		HTTPTimeout: 15 * time.Second,
	}

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.AuthBaseURL = getEnvOrDefault("ATLAS_AUTH_URL", cfg.AuthBaseURL)
	cfg.APIBaseURL = getEnvOrDefault("ATLAS_API_URL", cfg.APIBaseURL)
	cfg.StateFile = getEnvOrDefault("ATLAS_STATE_FILE", cfg.StateFile)
	cfg.StateKeyFile = getEnvOrDefault("ATLAS_STATE_KEY_FILE", cfg.StateKeyFile)
	cfg.Env = getEnvOrDefault("ATLAS_ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("ATLAS_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("ATLAS_LOG_FORMAT", cfg.LogFormat)
	cfg.HTTPTimeout = getEnvDurationOrDefault("ATLAS_HTTP_TIMEOUT", cfg.HTTPTimeout)

	if cfg.AuthBaseURL == "" {
		return Config{}, fmt.Errorf("auth base URL is required (ATLAS_AUTH_URL or auth_base_url)")
	}
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("API base URL is required (ATLAS_API_URL or api_base_url)")
	}

	if cfg.StateFile == "" {
		cfg.StateFile = defaultStateFile()
	}

	return cfg, nil
}

// configFilePath returns the explicit config path or the per-user default.
func configFilePath() string {
	if path := os.Getenv("ATLAS_CONFIG"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "atlasboard", "config.yaml")
}

// defaultStateFile places the session state database in the per-user config
// dir, falling back to the working directory when none exists.
func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "atlas-state.db"
	}
	return filepath.Join(dir, "atlasboard", "state.db")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
