// Package config defines the documentation run configuration and its YAML
// loader. Loading expands environment variables, applies defaults, and
// leaves structural validation to Validate so callers control when the run
// is allowed to start.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docweaver/internal/errors"
)

// Config represents a documentation run configuration.
type Config struct {
	// Module is the documented module's name, used as the root of every
	// identity and as the site title.
	Module string `yaml:"module"`

	// Passes declares the platforms to analyze. Order is significant: it
	// fixes merge input order and therefore first-wins tie-breaks.
	Passes []Pass `yaml:"passes"`

	// ExternalDocumentation lists package-list indexes used to resolve
	// references into third-party documentation.
	ExternalDocumentation []ExternalDocumentation `yaml:"externalDocumentation,omitempty"`

	// Output is the directory rendered pages are written to.
	Output string `yaml:"output,omitempty"`

	// CacheRoot holds fetched remote sources and the run history database.
	CacheRoot string `yaml:"cacheRoot,omitempty"`

	// FailOnWarning makes the CLI exit non-zero when a run records any
	// warning or error diagnostics.
	FailOnWarning bool `yaml:"failOnWarning,omitempty"`

	// OfflineMode skips every network access that is not strictly needed:
	// external package-list downloads and link checking.
	OfflineMode bool `yaml:"offlineMode,omitempty"`

	// GenerateIndexPages controls module and package index page creation.
	// Defaults to true.
	GenerateIndexPages *bool `yaml:"generateIndexPages,omitempty"`

	// SkipEmptyPackages drops packages whose members were all filtered
	// away. Defaults to true.
	SkipEmptyPackages *bool `yaml:"skipEmptyPackages,omitempty"`

	// Concurrency bounds parallel platform translation. Zero means one
	// worker per pass, capped at GOMAXPROCS.
	Concurrency int `yaml:"concurrency,omitempty"`

	History   HistoryConfig   `yaml:"history,omitempty"`
	LinkCheck LinkCheckConfig `yaml:"linkCheck,omitempty"`
	Daemon    DaemonConfig    `yaml:"daemon,omitempty"`
}

// ExternalDocumentation points at another site's package-list index.
type ExternalDocumentation struct {
	URL            string `yaml:"url"`
	PackageListURL string `yaml:"packageListUrl,omitempty"`
}

// HistoryConfig controls run history persistence.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
	// Path of the SQLite database. Defaults to <cacheRoot>/runs.db.
	Path string `yaml:"path,omitempty"`
}

// LinkCheckConfig controls external link verification.
type LinkCheckConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
	// Timeout per request, a Go duration string. Defaults to "10s".
	Timeout string     `yaml:"timeout,omitempty"`
	NATS    NATSConfig `yaml:"nats,omitempty"`
}

// NATSConfig connects link checking to a shared result cache and work
// queue. All fields optional; an empty URL keeps checking fully local.
type NATSConfig struct {
	URL      string `yaml:"url,omitempty"`
	Subject  string `yaml:"subject,omitempty"`
	KVBucket string `yaml:"kvBucket,omitempty"`
}

// DaemonConfig controls continuous rebuild mode.
type DaemonConfig struct {
	// Schedule is a cron expression for periodic rebuilds. Empty disables
	// scheduled rebuilds.
	Schedule string `yaml:"schedule,omitempty"`
	// Watch rebuilds when local source roots or the config file change.
	Watch bool `yaml:"watch,omitempty"`
	// Debounce coalesces bursts of file events, a Go duration string.
	// Defaults to "2s".
	Debounce string `yaml:"debounce,omitempty"`
	// MetricsAddr serves Prometheus metrics when set (e.g. ":9105").
	MetricsAddr string `yaml:"metricsAddr,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env files if present; missing files are fine.
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.WrapConfiguration(err, "failed to read config file").
			WithContext("path", configPath)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapConfiguration(err, "failed to unmarshal config").
			WithContext("path", configPath)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// GenerateIndex reports whether index pages should be generated.
func (c *Config) GenerateIndex() bool {
	return c.GenerateIndexPages == nil || *c.GenerateIndexPages
}

// SkipEmpty reports whether empty packages should be dropped.
func (c *Config) SkipEmpty() bool {
	return c.SkipEmptyPackages == nil || *c.SkipEmptyPackages
}

// EffectiveConcurrency resolves the translation worker bound.
func (c *Config) EffectiveConcurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	n := len(c.Passes)
	if max := runtime.GOMAXPROCS(0); n > max {
		n = max
	}
	if n < 1 {
		n = 1
	}
	return n
}

// PassByName returns the pass with the given name.
func (c *Config) PassByName(name string) (*Pass, bool) {
	for i := range c.Passes {
		if c.Passes[i].Name == name {
			return &c.Passes[i], true
		}
	}
	return nil, false
}

// HistoryPath resolves the run history database location.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.CacheRoot, "runs.db")
}
