package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RecoveryConfig represents file recovery defaults
type RecoveryConfig struct {
	// OutputDir is where recovered files are written
	OutputDir string `yaml:"output_dir"`

	// Types restricts recovery to the named file types (empty = all known)
	Types []string `yaml:"types"`

	// MinSizeBytes skips files smaller than this
	MinSizeBytes int64 `yaml:"min_size_bytes"`

	// Timeout bounds a recovery run (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`
}

// CatalogConfig represents evidence catalog configuration
type CatalogConfig struct {
	// Enabled records recovery runs in the catalog database
	Enabled bool `yaml:"enabled"`

	// DBPath overrides the default catalog database location
	DBPath string `yaml:"db_path"`
}

// Config represents vestige configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// StegoOutputSuffix is appended to the cover filename stem when no
	// output path is given to stego encode
	StegoOutputSuffix string `yaml:"stego_output_suffix"`

	// CleanOutputSuffix is appended to the source filename stem when no
	// output path is given to the metadata clear commands
	CleanOutputSuffix string `yaml:"clean_output_suffix"`

	// Recovery contains file recovery defaults
	Recovery RecoveryConfig `yaml:"recovery"`

	// Catalog contains evidence catalog configuration
	Catalog CatalogConfig `yaml:"catalog"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		StegoOutputSuffix: "_encoded",
		CleanOutputSuffix: "_clean",
		Recovery: RecoveryConfig{
			OutputDir:    "recovered",
			Types:        nil, // All known types
			MinSizeBytes: 0,
			Timeout:      0, // No timeout
		},
		Catalog: CatalogConfig{
			Enabled: true,
			DBPath:  "",
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Durations arrive as strings, so parse through a shadow struct.
	type yamlRecovery struct {
		OutputDir    string   `yaml:"output_dir"`
		Types        []string `yaml:"types"`
		MinSizeBytes int64    `yaml:"min_size_bytes"`
		Timeout      string   `yaml:"timeout"`
	}
	type yamlConfig struct {
		LogLevel          string        `yaml:"log_level"`
		StegoOutputSuffix string        `yaml:"stego_output_suffix"`
		CleanOutputSuffix string        `yaml:"clean_output_suffix"`
		Recovery          yamlRecovery  `yaml:"recovery"`
		Catalog           CatalogConfig `yaml:"catalog"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.StegoOutputSuffix != "" {
		cfg.StegoOutputSuffix = yamlCfg.StegoOutputSuffix
	}
	if yamlCfg.CleanOutputSuffix != "" {
		cfg.CleanOutputSuffix = yamlCfg.CleanOutputSuffix
	}
	if yamlCfg.Recovery.OutputDir != "" {
		cfg.Recovery.OutputDir = yamlCfg.Recovery.OutputDir
	}
	if len(yamlCfg.Recovery.Types) > 0 {
		cfg.Recovery.Types = yamlCfg.Recovery.Types
	}
	if yamlCfg.Recovery.MinSizeBytes != 0 {
		cfg.Recovery.MinSizeBytes = yamlCfg.Recovery.MinSizeBytes
	}
	if yamlCfg.Recovery.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Recovery.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid recovery timeout %q: %w", yamlCfg.Recovery.Timeout, err)
		}
		cfg.Recovery.Timeout = timeout
	}

	// Booleans need presence detection so an explicit "enabled: false"
	// is distinguishable from the field being absent.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if catalogSection, exists := rawMap["catalog"]; exists && catalogSection != nil {
			catalogMap, _ := catalogSection.(map[string]interface{})
			if _, exists := catalogMap["enabled"]; exists {
				cfg.Catalog.Enabled = yamlCfg.Catalog.Enabled
			}
			if _, exists := catalogMap["db_path"]; exists {
				cfg.Catalog.DBPath = yamlCfg.Catalog.DBPath
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .vestige/config.yaml in the
// specified directory. If the directory or file doesn't exist, returns
// default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".vestige", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values, so flags take
// precedence over config file settings.
func (c *Config) MergeWithFlags(logLevel *string, outputDir *string, types *[]string, timeout *time.Duration, noCatalog *bool) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if outputDir != nil {
		c.Recovery.OutputDir = *outputDir
	}
	if types != nil {
		c.Recovery.Types = *types
	}
	if timeout != nil {
		c.Recovery.Timeout = *timeout
	}
	if noCatalog != nil && *noCatalog {
		c.Catalog.Enabled = false
	}
}

// Validate validates the configuration values.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.StegoOutputSuffix == "" {
		return fmt.Errorf("stego_output_suffix cannot be empty")
	}
	if c.CleanOutputSuffix == "" {
		return fmt.Errorf("clean_output_suffix cannot be empty")
	}

	if c.Recovery.OutputDir == "" {
		return fmt.Errorf("recovery.output_dir cannot be empty")
	}
	if c.Recovery.MinSizeBytes < 0 {
		return fmt.Errorf("recovery.min_size_bytes must be >= 0, got %d", c.Recovery.MinSizeBytes)
	}
	if c.Recovery.Timeout < 0 {
		return fmt.Errorf("recovery.timeout must be >= 0, got %v", c.Recovery.Timeout)
	}

	return nil
}
