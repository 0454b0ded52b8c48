// Package config provides configuration loading and validation for the CV generator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
)

// Rasterizers
const (
	RasterizerChrome = "chrome"
	RasterizerLaTeX  = "latex"
)

// Config represents the configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults.
type Config struct {
	// Server
	Port             int  `json:"port,omitempty" yaml:"port,omitempty"`
	RateLimitEnabled bool `json:"rate_limit_enabled,omitempty" yaml:"rate_limit_enabled,omitempty"`

	// Storage
	Backend     string `json:"backend,omitempty" yaml:"backend,omitempty"`           // filesystem, sqlite or postgres
	DataDir     string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`         // Directory of the filesystem backend
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`   // Database file of the sqlite backend
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL

	// Rendering
	TemplateDir             string `json:"template_dir,omitempty" yaml:"template_dir,omitempty"` // Overrides the built-in templates
	Rasterizer              string `json:"rasterizer,omitempty" yaml:"rasterizer,omitempty"`     // chrome or latex
	RasterizeTimeoutSeconds int    `json:"rasterize_timeout_seconds,omitempty" yaml:"rasterize_timeout_seconds,omitempty"`
	ChromePath              string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"` // Browser or pdflatex binary

	// Logging
	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"` // json or console
}

// Defaults returns the configuration used when nothing else is set
func Defaults() Config {
	return Config{
		Port:                    8000,
		Backend:                 BackendFilesystem,
		DataDir:                 "cv_data",
		SQLitePath:              filepath.Join("cv_data", "cv.db"),
		Rasterizer:              RasterizerChrome,
		RasterizeTimeoutSeconds: 60,
		LogLevel:                "info",
		LogFormat:               "json",
	}
}

// LoadConfig loads configuration from a JSON file, or a YAML file when the
// extension is .yaml or .yml.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from the process environment
func (c *Config) ApplyEnv() error {
	return c.ApplyEnvFrom(os.Getenv)
}

// ApplyEnvFrom overrides fields from getenv. Unset or empty variables leave
// the field alone.
func (c *Config) ApplyEnvFrom(getenv func(string) string) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"CV_BACKEND", &c.Backend},
		{"CV_DATA_DIR", &c.DataDir},
		{"CV_SQLITE_PATH", &c.SQLitePath},
		{"DATABASE_URL", &c.DatabaseURL},
		{"CV_TEMPLATE_DIR", &c.TemplateDir},
		{"CV_RASTERIZER", &c.Rasterizer},
		{"CHROME_PATH", &c.ChromePath},
		{"LOG_LEVEL", &c.LogLevel},
		{"LOG_FORMAT", &c.LogFormat},
	}
	for _, s := range strs {
		if v := getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &c.Port},
		{"CV_RASTERIZE_TIMEOUT_SECONDS", &c.RasterizeTimeoutSeconds},
	}
	for _, i := range ints {
		v := getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer, got %q", i.key, v)
		}
		*i.dst = n
	}

	if v := getenv("RATE_LIMIT_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config error: RATE_LIMIT_ENABLED must be a boolean, got %q", v)
		}
		c.RateLimitEnabled = b
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.RasterizeTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'rasterize_timeout_seconds' must be non-negative")
	}

	switch c.Backend {
	case "", BackendFilesystem:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config error: 'sqlite_path' is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config error: unknown backend %q (want filesystem, sqlite or postgres)", c.Backend)
	}

	switch c.Rasterizer {
	case "", RasterizerChrome, RasterizerLaTeX:
	default:
		return fmt.Errorf("config error: unknown rasterizer %q (want chrome or latex)", c.Rasterizer)
	}

	switch c.LogFormat {
	case "", "json", "console":
	default:
		return fmt.Errorf("config error: unknown log_format %q (want json or console)", c.LogFormat)
	}

	// Validate file paths exist (if specified)
	if c.TemplateDir != "" {
		if _, err := os.Stat(c.TemplateDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: template directory not found: %s", c.TemplateDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Backend == "" {
		result.Backend = defaults.Backend
	}
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.TemplateDir == "" {
		result.TemplateDir = defaults.TemplateDir
	}
	if result.Rasterizer == "" {
		result.Rasterizer = defaults.Rasterizer
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RasterizeTimeoutSeconds == 0 {
		result.RasterizeTimeoutSeconds = defaults.RasterizeTimeoutSeconds
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// RasterizeTimeout returns the rasterizer deadline as a duration
func (c *Config) RasterizeTimeout() time.Duration {
	return time.Duration(c.RasterizeTimeoutSeconds) * time.Second
}
