// Package config provides configuration loading and structs for yobidashi.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool               `yaml:"debug"`
	Storage      StorageConfig      `yaml:"storage"`
	Query        QueryConfig        `yaml:"query"`
	Index        IndexConfig        `yaml:"index"`
	Applications ApplicationsConfig `yaml:"applications"`
	Bookmarks    BookmarksConfig    `yaml:"bookmarks"`
	WebSearch    WebSearchConfig    `yaml:"websearch"`
}

// StorageConfig holds the usage database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// QueryConfig controls query sessions.
type QueryConfig struct {
	UXTimeout      Duration `yaml:"ux_timeout"`
	NotifyInterval Duration `yaml:"notify_interval"`
	PoolSize       int      `yaml:"pool_size"`
	// Dedup is "none" or "id".
	Dedup string `yaml:"dedup"`
}

// IndexConfig controls the offline indexes shared by all providers.
type IndexConfig struct {
	// Backend is "token" or "bleve".
	Backend     string `yaml:"backend"`
	MaxDistance int    `yaml:"max_distance"`
	// CacheSize is the number of cached result lists per index; negative disables caching.
	CacheSize int `yaml:"cache_size"`
}

// ApplicationsConfig configures the desktop entry provider.
type ApplicationsConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	// Paths are the scanned root directories. Empty means the XDG defaults.
	Paths       []string `yaml:"paths,omitempty"`
	Fuzzy       bool     `yaml:"fuzzy"`
	UpdateDelay Duration `yaml:"update_delay"`
	Extensions  []string `yaml:"extensions"`
}

// BookmarksConfig configures the browser bookmarks provider.
type BookmarksConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	// Path is the Bookmarks file. Empty means the first Chromium or Chrome profile found.
	Path        string   `yaml:"path,omitempty"`
	Fuzzy       bool     `yaml:"fuzzy"`
	UpdateDelay Duration `yaml:"update_delay"`
}

// WebSearchConfig configures the fallback search engines.
type WebSearchConfig struct {
	Engines []Engine `yaml:"engines"`
}

// Engine is a web search engine. URL contains %s where the escaped term goes. A query
// starting with Trigger searches the engine directly.
type Engine struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Trigger string `yaml:"trigger,omitempty"`
}

// Duration is a time.Duration written as a string such as "50ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}

// EnabledOrDefault returns whether the provider is enabled; defaults to true when unset.
func (a *ApplicationsConfig) EnabledOrDefault() bool {
	return a.Enabled == nil || *a.Enabled
}

// EnabledOrDefault returns whether the provider is enabled; defaults to true when unset.
func (b *BookmarksConfig) EnabledOrDefault() bool {
	return b.Enabled == nil || *b.Enabled
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "yobidashi", "config.yaml")
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Applications.Paths {
		cfg.Applications.Paths[i] = expandPath(cfg.Applications.Paths[i], configDir)
	}
	if cfg.Bookmarks.Path != "" {
		cfg.Bookmarks.Path = expandPath(cfg.Bookmarks.Path, configDir)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &Config{}
		ApplyDefaults(cfg)
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, filepath.Dir(path))
		return cfg, nil
	}
	return Load(path)
}

// Save writes the config to path, creating its directory. Used for persisting path edits
// and fuzzy toggles.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
