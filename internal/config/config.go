package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	DefaultIngestInterval = 10 * time.Minute
	DefaultPageSize       = 100
	DefaultWindow         = 24 * time.Hour
	DefaultCacheTTL       = 30 * time.Minute
	DefaultAPIAddr        = ":8080"
	DefaultPercentPolicy  = "exclude_warnings"
)

type Config struct {
	Remote      RemoteConfig      `yaml:"remote"`
	Store       StoreConfig       `yaml:"store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	API         APIConfig         `yaml:"api"`
	Audit       AuditConfig       `yaml:"audit"`
}

// RemoteConfig holds configuration for the platform API client.
type RemoteConfig struct {
	// BaseURL defaults to the public API if empty.
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent overrides the user agent of the credentials file.
	UserAgent string `yaml:"user_agent"`
}

// StoreConfig selects the log store backend.
type StoreConfig struct {
	Type   string         `yaml:"type"`    // e.g., "memory", "sqlite", "redis"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

type IngestConfig struct {
	Interval time.Duration `yaml:"interval"`
	PageSize int           `yaml:"page_size"`
}

type LeaderboardConfig struct {
	// Window is the trailing window of the "recent" counts.
	Window time.Duration `yaml:"window"`

	// Percent is either "exclude_warnings" or "include_all".
	Percent string `yaml:"percent"`

	// CacheTTL is how long a computed leaderboard is served from memory.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// Aliases maps secondary actor ids to their canonical id or a fixed label.
	Aliases map[string]string `yaml:"aliases"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`

	// SigningKey is the HS256 key of admin tokens. Admin routes are disabled if empty.
	SigningKey string `yaml:"signing_key"`
}

// AuditConfig holds configuration for auditing operator actions.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Type: "memory",
		},
		Ingest: IngestConfig{
			Interval: DefaultIngestInterval,
			PageSize: DefaultPageSize,
		},
		Leaderboard: LeaderboardConfig{
			Window:   DefaultWindow,
			Percent:  DefaultPercentPolicy,
			CacheTTL: DefaultCacheTTL,
		},
		API: APIConfig{
			Addr: DefaultAPIAddr,
		},
	}
}

// Load reads and parses the configuration file at the given path.
// Fields absent from the file keep their default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative")
	}

	switch c.Store.Type {
	case "memory", "sqlite", "redis":
	case "":
		c.Store.Type = "memory"
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}

	if c.Ingest.Interval <= 0 {
		return fmt.Errorf("ingest.interval must be positive")
	}
	if c.Ingest.PageSize < 1 || c.Ingest.PageSize > DefaultPageSize {
		return fmt.Errorf("ingest.page_size must be between 1 and %d", DefaultPageSize)
	}

	if err := c.Leaderboard.Validate(); err != nil {
		return fmt.Errorf("validating leaderboard: %w", err)
	}

	switch c.Audit.Type {
	case "", "memory", "file":
	default:
		return fmt.Errorf("unknown audit type %q", c.Audit.Type)
	}
	if c.Audit.Enabled && c.Audit.Type == "file" && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required for file auditing")
	}

	return nil
}

func (l *LeaderboardConfig) Validate() error {
	if l.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	if l.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	switch l.Percent {
	case "exclude_warnings", "include_all":
	case "":
		l.Percent = DefaultPercentPolicy
	default:
		return fmt.Errorf("unknown percent policy %q", l.Percent)
	}
	for from, to := range l.Aliases {
		if from == "" || to == "" {
			return fmt.Errorf("alias %q -> %q must not be empty", from, to)
		}
	}
	return nil
}
