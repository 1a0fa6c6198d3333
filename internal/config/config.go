package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dionysius/venvpack/internal/common"
	"github.com/dionysius/venvpack/internal/versioner"
	"github.com/dionysius/venvpack/version"
)

// Config represents the complete application configuration
type Config struct {
	Directories DirectoriesConfig `yaml:"directories"`
	HTTP        HTTPConfig        `yaml:"http,omitempty"`
	GitHub      GitHubConfig      `yaml:"github,omitempty"`
	Workers     WorkersConfig     `yaml:"workers"`
	Formats     FormatsConfig     `yaml:"formats,omitempty"`
	Versioner   versioner.Options `yaml:"versioner,omitempty"`
	Store       StoreConfig       `yaml:"store,omitempty"`
	ConfigDir   string            `yaml:"-"` // Directory containing config.yaml, empty without a file
	File        string            `yaml:"-"` // Loaded config file, empty without a file
}

// DirectoriesConfig defines directory paths
type DirectoriesConfig struct {
	Cache string `yaml:"cache"` // "~/" expands to the home directory, relative to config dir if not absolute
}

// GetCachePath returns the absolute path to the cache directory
func (d *DirectoriesConfig) GetCachePath(configDir string) string {
	return resolvePath(d.Cache, configDir)
}

// HTTPConfig contains HTTP client configuration
type HTTPConfig struct {
	UserAgent       string `yaml:"user_agent,omitempty"`         // Custom User-Agent header
	Timeout         int    `yaml:"timeout"`                      // Request timeout in seconds
	MaxIdleConns    int    `yaml:"max_idle_conns,omitempty"`     // Maximum idle connections
	MaxConnsPerHost int    `yaml:"max_conns_per_host,omitempty"` // Maximum connections per host
}

// GitHubConfig contains GitHub API configuration
type GitHubConfig struct {
	Token string `yaml:"token,omitempty"` // GitHub personal access token
}

// WorkersConfig defines worker pool sizes
type WorkersConfig struct {
	Main        uint `yaml:"main"`
	Download    uint `yaml:"download"`
	Compression uint `yaml:"compression"`
}

// FormatsConfig tunes the version parsers
type FormatsConfig struct {
	SemVer version.SemVerOptions `yaml:"semver,omitempty"`
	Regex  RegexConfig           `yaml:"regex,omitempty"`
}

// RegexConfig enables the regex format when a pattern is set
type RegexConfig struct {
	Pattern string `yaml:"pattern,omitempty"`
}

// RegistryOptions returns the parser options of the version registry
func (f *FormatsConfig) RegistryOptions() version.Options {
	return version.Options{
		SemVer:       f.SemVer,
		RegexPattern: f.Regex.Pattern,
	}
}

// StoreConfig selects the APT archive published versions are looked up in
type StoreConfig struct {
	URL            string                   `yaml:"url,omitempty"`
	Distribution   string                   `yaml:"distribution,omitempty"` // "/" for flat repositories
	Components     []string                 `yaml:"components,omitempty"`
	Architectures  []string                 `yaml:"architectures,omitempty"`
	Package        string                   `yaml:"package,omitempty"`
	Packages       []string                 `yaml:"packages,omitempty"` // glob patterns, "!" negates
	Debug          bool                     `yaml:"debug,omitempty"`
	Keyring        string                   `yaml:"keyring,omitempty"`
	Keys           []string                 `yaml:"keys,omitempty"`
	AcceptUnsigned bool                     `yaml:"accept_unsigned,omitempty"`
	Retention      []common.RetentionPolicy `yaml:"retention,omitempty"`
}

// GetPackages returns the package patterns, Package first
func (s *StoreConfig) GetPackages() []string {
	if s.Package == "" {
		return s.Packages
	}
	return append([]string{s.Package}, s.Packages...)
}

// GetKeyringPath returns the absolute path to the keyring
func (s *StoreConfig) GetKeyringPath(configDir string) string {
	return resolvePath(s.Keyring, configDir)
}

// GetKeyPaths returns absolute paths for all keys
func (s *StoreConfig) GetKeyPaths(configDir string) []string {
	paths := make([]string, len(s.Keys))
	for i, key := range s.Keys {
		paths[i] = resolvePath(key, configDir)
	}
	return paths
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() *Config {
	redacted := *c
	if redacted.GitHub.Token != "" {
		redacted.GitHub.Token = "REDACTED"
	}
	return &redacted
}

// defaults applies default values to the configuration
func (c *Config) defaults() {
	// Load environment variables
	if c.GitHub.Token == "" {
		if token := os.Getenv("GITHUB_TOKEN"); token != "" {
			c.GitHub.Token = token
		}
	}

	if c.Directories.Cache == "" {
		c.Directories.Cache = defaultCacheDir()
	}

	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "venvpack"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 60
	}

	// Worker pool defaults
	if c.Workers.Main == 0 {
		c.Workers.Main = uint(runtime.NumCPU() * 4)
	}
	// Index fetching runs in a subpool of the main pool
	if c.Workers.Main < 8 {
		c.Workers.Main = 8
	}
	if c.Workers.Download == 0 {
		c.Workers.Download = 8
	}
	if c.Workers.Compression == 0 {
		c.Workers.Compression = uint(runtime.NumCPU())
	}

	if c.Versioner.Source.Type == versioner.SourceControl && c.Versioner.Source.Field == "" {
		c.Versioner.Source.Field = versioner.DefaultControlField
	}
	// Paths in the versioner source are relative to the config file
	if c.Versioner.Source.Path != "" {
		c.Versioner.Source.Path = resolvePath(c.Versioner.Source.Path, c.ConfigDir)
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "venvpack")
	}
	return filepath.Join(os.TempDir(), "venvpack")
}

// resolvePath expands "~/" and makes relative paths relative to base
func resolvePath(path, base string) string {
	if path == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}
