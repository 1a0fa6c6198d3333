package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads the configuration from the specified path or searches default locations
func Load(configPath string) (*Config, error) {
	// Find config file
	cfgFile, err := findConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.File = cfgFile
	cfg.ConfigDir = filepath.Dir(cfgFile)

	return finish(&cfg)
}

// LoadOrDefault behaves like Load but falls back to the defaults when no
// config file exists in the default locations. An explicit path must exist.
func LoadOrDefault(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err == nil || configPath != "" || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	return finish(&Config{})
}

// finish applies defaults and validates
func finish(cfg *Config) (*Config, error) {
	cfg.defaults()

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile searches for the configuration file in standard locations
func findConfigFile(explicitPath string) (string, error) {
	// If explicit path provided, use it
	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return "", os.ErrNotExist
		}
		return explicitPath, nil
	}

	// Try standard locations by priority
	candidates := []string{}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "venvpack", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "venvpack", "config.yaml"))
	}
	candidates = append(candidates, "/etc/venvpack/config.yaml")

	// Find first existing file
	for _, file := range candidates {
		if fileExists(file) {
			return file, nil
		}
	}

	return "", os.ErrNotExist
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
