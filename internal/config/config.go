// Package config provides configuration loading and management for the catalog ingester.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/catalog-ingester/internal/catalog"
	"github.com/stacklok/catalog-ingester/internal/ingestion"
	"github.com/stacklok/catalog-ingester/internal/refresh"
	"github.com/stacklok/catalog-ingester/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of environment variables overriding flags
	EnvPrefix = "CATALOG_INGESTER"

	// DefaultDataDir holds the catalog snapshot and location status files
	DefaultDataDir = "./data"

	// DefaultHTTPTimeout bounds a single HTTP request of the url reader
	DefaultHTTPTimeout = 30 * time.Second
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this calls filepath.Clean internally
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Locations []LocationConfig  `yaml:"locations"`
	Refresh   *RefreshConfig    `yaml:"refresh,omitempty"`
	HTTP      *HTTPConfig       `yaml:"http,omitempty"`
	Storage   *StorageConfig    `yaml:"storage,omitempty"`
	Server    *ServerConfig     `yaml:"server,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// LocationConfig defines a single catalog location. Exactly one of the
// type-specific sections must be set.
type LocationConfig struct {
	// ID identifies the location in the catalog
	ID string `yaml:"id"`

	File *FileConfig `yaml:"file,omitempty"`
	URL  *URLConfig  `yaml:"url,omitempty"`
	Git  *GitConfig  `yaml:"git,omitempty"`
}

// FileConfig defines a descriptor file on the local filesystem
type FileConfig struct {
	// Path can be absolute or relative to the working directory
	Path string `yaml:"path"`
}

// URLConfig defines a descriptor file served over HTTP(S)
type URLConfig struct {
	URL string `yaml:"url"`
}

// GitConfig defines a descriptor file inside a Git repository
type GitConfig struct {
	// Repository is the Git repository URL (HTTP/HTTPS/SSH)
	Repository string `yaml:"repository"`

	// Branch is the Git branch to use (mutually exclusive with Tag and Commit)
	Branch string `yaml:"branch,omitempty"`

	// Tag is the Git tag to use (mutually exclusive with Branch and Commit)
	Tag string `yaml:"tag,omitempty"`

	// Commit is the Git commit SHA to use (mutually exclusive with Branch and Tag)
	Commit string `yaml:"commit,omitempty"`

	// Path is the descriptor file within the repository. Defaults to catalog-info.yaml.
	Path string `yaml:"path,omitempty"`
}

// RefreshConfig defines the refresh loop settings
type RefreshConfig struct {
	// Interval is the wait between refresh cycles (e.g. "10s", "5m")
	Interval string `yaml:"interval,omitempty"`

	// Concurrency is the number of locations refreshed at once. 0 and 1 refresh sequentially.
	Concurrency int `yaml:"concurrency,omitempty"`

	// ContinueOnUpsertFailure keeps storing the remaining components of a
	// location after one of them was rejected
	ContinueOnUpsertFailure bool `yaml:"continueOnUpsertFailure,omitempty"`

	// WatchFiles starts a refresh as soon as a file location changes on disk
	WatchFiles bool `yaml:"watchFiles,omitempty"`
}

// HTTPConfig defines how url locations are fetched
type HTTPConfig struct {
	// Timeout bounds a single request (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// MaxRetries is the number of attempts for a transient failure. 0 uses the default.
	MaxRetries uint `yaml:"maxRetries,omitempty"`

	// InitialInterval is the first backoff interval between attempts (e.g. "500ms")
	InitialInterval string `yaml:"initialInterval,omitempty"`
}

// StorageConfig defines where state is kept across restarts
type StorageConfig struct {
	DataDir string `yaml:"dataDir,omitempty"`
}

// ServerConfig defines the operations server (health, readiness, metrics)
type ServerConfig struct {
	// Address to listen on, e.g. ":8080". The server is disabled when empty.
	Address string `yaml:"address,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.Locations) == 0 {
		return fmt.Errorf("at least one location must be configured")
	}

	ids := make(map[string]bool)
	for i := range c.Locations {
		loc := &c.Locations[i]
		if loc.ID == "" {
			return fmt.Errorf("location[%d]: id is required", i)
		}
		if ids[loc.ID] {
			return fmt.Errorf("location[%d]: duplicate location id '%s'", i, loc.ID)
		}
		ids[loc.ID] = true

		if err := validateLocation(loc, fmt.Sprintf("location[%d] (%s)", i, loc.ID)); err != nil {
			return err
		}
	}

	if err := c.Refresh.validate(); err != nil {
		return err
	}
	if err := c.HTTP.validate(); err != nil {
		return err
	}
	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// validateLocation ensures exactly one source section is set and complete
func validateLocation(loc *LocationConfig, prefix string) error {
	configCount := 0
	if loc.File != nil {
		configCount++
	}
	if loc.URL != nil {
		configCount++
	}
	if loc.Git != nil {
		configCount++
	}

	if configCount == 0 {
		return fmt.Errorf("%s: one of file, url, or git configuration must be specified", prefix)
	}
	if configCount > 1 {
		return fmt.Errorf("%s: only one of file, url, or git configuration may be specified", prefix)
	}

	switch {
	case loc.File != nil && loc.File.Path == "":
		return fmt.Errorf("%s: file.path is required", prefix)
	case loc.URL != nil && loc.URL.URL == "":
		return fmt.Errorf("%s: url.url is required", prefix)
	case loc.Git != nil:
		return validateGitConfig(loc.Git, prefix)
	}
	return nil
}

func validateGitConfig(git *GitConfig, prefix string) error {
	if git.Repository == "" {
		return fmt.Errorf("%s: git.repository is required", prefix)
	}

	refs := 0
	for _, ref := range []string{git.Branch, git.Tag, git.Commit} {
		if ref != "" {
			refs++
		}
	}
	if refs > 1 {
		return fmt.Errorf("%s: only one of git.branch, git.tag, or git.commit may be specified", prefix)
	}
	return nil
}

func (r *RefreshConfig) validate() error {
	if r == nil {
		return nil
	}
	if r.Interval != "" {
		interval, err := time.ParseDuration(r.Interval)
		if err != nil {
			return fmt.Errorf("refresh.interval must be a valid duration (e.g., '10s', '5m'): %w", err)
		}
		if interval <= 0 {
			return fmt.Errorf("refresh.interval must be positive, got %s", r.Interval)
		}
	}
	if r.Concurrency < 0 {
		return fmt.Errorf("refresh.concurrency cannot be negative, got %d", r.Concurrency)
	}
	return nil
}

func (h *HTTPConfig) validate() error {
	if h == nil {
		return nil
	}
	for name, value := range map[string]string{"http.timeout": h.Timeout, "http.initialInterval": h.InitialInterval} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, value)
		}
	}
	return nil
}

// GetType returns the location type inferred from the section that is present
func (l *LocationConfig) GetType() string {
	switch {
	case l.File != nil:
		return ingestion.LocationTypeFile
	case l.URL != nil:
		return ingestion.LocationTypeURL
	case l.Git != nil:
		return ingestion.LocationTypeGit
	}
	return ""
}

// GetTarget returns the target string understood by the reader of the location type
func (l *LocationConfig) GetTarget() string {
	switch {
	case l.File != nil:
		return l.File.Path
	case l.URL != nil:
		return l.URL.URL
	case l.Git != nil:
		target := &ingestion.GitTarget{
			Repository: l.Git.Repository,
			Branch:     l.Git.Branch,
			Tag:        l.Git.Tag,
			Commit:     l.Git.Commit,
			Path:       l.Git.Path,
		}
		return target.String()
	}
	return ""
}

// CatalogLocations converts the configured locations for the catalog
func (c *Config) CatalogLocations() []catalog.Location {
	locations := make([]catalog.Location, 0, len(c.Locations))
	for i := range c.Locations {
		loc := &c.Locations[i]
		locations = append(locations, catalog.Location{
			ID:     loc.ID,
			Type:   loc.GetType(),
			Target: loc.GetTarget(),
		})
	}
	return locations
}

// GetInterval returns the refresh interval, defaulting to refresh.DefaultRefreshInterval
func (r *RefreshConfig) GetInterval() time.Duration {
	if r == nil || r.Interval == "" {
		return refresh.DefaultRefreshInterval
	}
	interval, err := time.ParseDuration(r.Interval)
	if err != nil || interval <= 0 {
		return refresh.DefaultRefreshInterval
	}
	return interval
}

// GetConcurrency returns the number of locations refreshed at once
func (r *RefreshConfig) GetConcurrency() int {
	if r == nil || r.Concurrency < 1 {
		return 1
	}
	return r.Concurrency
}

// GetContinueOnUpsertFailure reports whether a rejected component fails the rest of its location
func (r *RefreshConfig) GetContinueOnUpsertFailure() bool {
	return r != nil && r.ContinueOnUpsertFailure
}

// GetWatchFiles reports whether file locations are watched for changes
func (r *RefreshConfig) GetWatchFiles() bool {
	return r != nil && r.WatchFiles
}

// FilePaths returns the paths of all file locations
func (c *Config) FilePaths() []string {
	var paths []string
	for i := range c.Locations {
		if file := c.Locations[i].File; file != nil {
			paths = append(paths, file.Path)
		}
	}
	return paths
}

// GetTimeout returns the per-request timeout of the url reader
func (h *HTTPConfig) GetTimeout() time.Duration {
	return parseDurationOr(h.timeout(), DefaultHTTPTimeout)
}

// GetMaxRetries returns the number of attempts for a transient url failure
func (h *HTTPConfig) GetMaxRetries() uint {
	if h == nil || h.MaxRetries == 0 {
		return ingestion.DefaultMaxTries
	}
	return h.MaxRetries
}

// GetInitialInterval returns the first backoff interval of the url reader
func (h *HTTPConfig) GetInitialInterval() time.Duration {
	if h == nil {
		return ingestion.DefaultInitialInterval
	}
	return parseDurationOr(h.InitialInterval, ingestion.DefaultInitialInterval)
}

func (h *HTTPConfig) timeout() string {
	if h == nil {
		return ""
	}
	return h.Timeout
}

// GetDataDir returns the directory holding persisted state
func (s *StorageConfig) GetDataDir() string {
	if s == nil || s.DataDir == "" {
		return DefaultDataDir
	}
	return s.DataDir
}

// GetAddress returns the operations server address, empty when disabled
func (s *ServerConfig) GetAddress() string {
	if s == nil {
		return ""
	}
	return s.Address
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
