// Package config loads trove configuration. Values layer in order of
// increasing precedence: built-in defaults, the user config
// (~/.config/trove/config.yaml), the project config (.trove.yaml in the
// project root), and TROVE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	trerrors "github.com/trove-dev/trove/internal/errors"
)

const (
	// ProjectConfigName is the project-level configuration file name.
	ProjectConfigName = ".trove.yaml"

	// projectConfigAlt is the accepted alternative spelling.
	projectConfigAlt = ".trove.yml"
)

// Config is the complete trove configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// IndexConfig configures the indexing pipeline.
type IndexConfig struct {
	// Workers is the indexing worker count. Zero means one per CPU.
	Workers int `yaml:"workers" json:"workers"`
}

// SearchConfig configures result presentation defaults.
type SearchConfig struct {
	// MaxResults caps how many results commands print or serve.
	MaxResults int `yaml:"max_results" json:"max_results"`
	// MinScore hides results scoring below it in the TUI.
	MinScore float64 `yaml:"min_score" json:"min_score"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	// CacheSize is the number of query results the LRU cache holds.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is the window within which filesystem event bursts per path
	// collapse into one action (duration string, e.g. "500ms").
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level"`
	// Format is the record encoding, "text" or "json". Empty lets the
	// logging package pick per destination.
	Format string `yaml:"format" json:"format"`
	// File is the log file path. Empty logs to stderr only.
	File string `yaml:"file" json:"file"`
	// MaxSizeMB caps the log file size before rotation.
	MaxSizeMB int `yaml:"max_size_mb" json:"max_size_mb"`
	// MaxFiles caps how many rotated files are kept.
	MaxFiles int `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a Config carrying the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Workers: runtime.NumCPU(),
		},
		Search: SearchConfig{
			MaxResults: 20,
			MinScore:   0.001,
		},
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      7654,
			CacheSize: 512,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DebounceDuration returns the parsed debounce window, falling back to
// 500ms when the string does not parse.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetUserConfigPath returns the path of the user configuration file,
// following the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/trove/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/trove/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "trove", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "trove", "config.yaml")
	}
	return filepath.Join(home, ".config", "trove", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user configuration if present. A missing file is
// not an error.
func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("load user config %s: %w", path, err)
	}
	return cfg, nil
}

// Load loads the configuration for the project rooted at dir. Settings
// apply in order of increasing precedence: defaults, user config, project
// config, environment variables. The final result is validated.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userCfg, err := loadUserConfig()
	if err != nil {
		return nil, trerrors.Wrap(trerrors.CodeConfigInvalid, "user config", err)
	}
	if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, trerrors.Wrap(trerrors.CodeConfigInvalid, "project config", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, trerrors.Wrap(trerrors.CodeConfigInvalid, "validate config", err)
	}
	return cfg, nil
}

// LoadFile loads the configuration from an explicit file path, bypassing
// project-config discovery. The file must exist. User config and TROVE_*
// environment overrides still apply in their usual order.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	userCfg, err := loadUserConfig()
	if err != nil {
		return nil, trerrors.Wrap(trerrors.CodeConfigInvalid, "user config", err)
	}
	if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadYAML(path); err != nil {
		return nil, trerrors.Wrap(trerrors.CodeConfigInvalid, "config file", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, trerrors.Wrap(trerrors.CodeConfigInvalid, "validate config", err)
	}
	return cfg, nil
}

// loadFromFile merges .trove.yaml (or .trove.yml) from dir, when present.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ProjectConfigName)
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, projectConfigAlt)
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

// loadYAML parses path and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}

	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.MinScore != 0 {
		c.Search.MinScore = other.Search.MinScore
	}

	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.CacheSize != 0 {
		c.Server.CacheSize = other.Server.CacheSize
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies TROVE_* environment variable overrides. Values
// that fail to parse are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TROVE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.Workers = n
		}
	}
	if v := os.Getenv("TROVE_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("TROVE_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 {
			c.Search.MinScore = f
		}
	}
	if v := os.Getenv("TROVE_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("TROVE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 65535 {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("TROVE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.CacheSize = n
		}
	}
	if v := os.Getenv("TROVE_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("TROVE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TROVE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("TROVE_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Index.Workers < 0 {
		return fmt.Errorf("index.workers must be non-negative, got %d", c.Index.Workers)
	}

	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.MinScore < 0 {
		return fmt.Errorf("search.min_score must be non-negative, got %f", c.Search.MinScore)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.CacheSize < 1 {
		return fmt.Errorf("server.cache_size must be positive, got %d", c.Server.CacheSize)
	}

	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce is not a duration: %q", c.Watch.Debounce)
	} else if d < 0 {
		return fmt.Errorf("watch.debounce must be non-negative, got %s", d)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if f := strings.ToLower(c.Logging.Format); f != "" && f != "text" && f != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %s", c.Logging.Format)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// project config file. When neither appears, startDir itself is returned.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", startDir, err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ProjectConfigName)) ||
			fileExists(filepath.Join(currentDir, projectConfigAlt)) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
