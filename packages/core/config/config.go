package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the hitstep configuration
type Config struct {
	BaseURL            string                    `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	DefaultEnvironment string                    `json:"defaultEnvironment,omitempty" yaml:"defaultEnvironment,omitempty"`
	Environments       map[string]map[string]any `json:"environments,omitempty" yaml:"environments,omitempty"`
	Timeout            int                       `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects    *bool                     `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects       int                       `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL        *bool                     `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy              string                    `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers            map[string]string         `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	RateLimit          float64                   `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // requests per second
	SchemaDir          string                    `json:"schemaDir,omitempty" yaml:"schemaDir,omitempty"`
	PreserveCase       *bool                     `json:"preserveCase,omitempty" yaml:"preserveCase,omitempty"`
	Reporters          []string                  `json:"reporters,omitempty" yaml:"reporters,omitempty"`
	OutputDir          string                    `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	LogFormat          string                    `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
	Parallel           *bool                     `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	Concurrency        int                       `json:"concurrency,omitempty" yaml:"concurrency,omitempty"` // Number of parallel scenarios
	Bail               *bool                     `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose            *bool                     `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor            *bool                     `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetPreserveCase returns the preserve case setting, defaulting to false
// (table values are lower-cased).
func (c *Config) GetPreserveCase() bool {
	return getBool(c.PreserveCase, false)
}

// GetParallel returns the parallel setting, defaulting to false
func (c *Config) GetParallel() bool {
	return getBool(c.Parallel, false)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration returns Timeout as a duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	"hitstep.yaml",
	"hitstep.yml",
	".hitstep.yaml",
	".hitstep.yml",
	"hitstep.config.json",
	".hitstep.config.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// loadConfigFromFile loads a YAML or JSON file over the defaults.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.SchemaDir != "" {
		result.SchemaDir = other.SchemaDir
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.LogFormat != "" {
		result.LogFormat = other.LogFormat
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.PreserveCase != nil {
		result.PreserveCase = other.PreserveCase
	}
	if other.Parallel != nil {
		result.Parallel = other.Parallel
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	// Environments merge by name; a named environment is replaced whole.
	if len(other.Environments) > 0 {
		envs := make(map[string]map[string]any, len(result.Environments)+len(other.Environments))
		for k, v := range result.Environments {
			envs[k] = v
		}
		for k, v := range other.Environments {
			envs[k] = v
		}
		result.Environments = envs
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// SaveConfig writes the configuration as YAML or JSON depending on the
// file extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
