package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/sitepulse/internal/assessor"
	"github.com/raysh454/sitepulse/internal/enumerator"
	"github.com/raysh454/sitepulse/internal/fetcher"
	"github.com/raysh454/sitepulse/internal/linkcheck"
	"github.com/raysh454/sitepulse/internal/pagespeed"
	"github.com/raysh454/sitepulse/internal/tracker"
	"github.com/raysh454/sitepulse/internal/webclient"
)

const (
	DefaultCrawlDepth = 10
	MaxCrawlDepth     = 100
	DefaultUserAgent  = "Mozilla/5.0 (compatible; SitePulse/1.0)"
)

// Config holds the runtime settings of every component. Sections map 1:1 to
// the package configs so a YAML file can tune any of them.
type Config struct {
	// StorageRoot is where the site registry and snapshot history live.
	// A leading "~" expands to the user's home directory.
	StorageRoot string `yaml:"storage_root"`

	// ListenAddr is the HTTP API listen address.
	ListenAddr string `yaml:"listen_addr"`

	LogLevel string `yaml:"log_level"`

	// NATSURL enables publishing job events when non-empty.
	NATSURL string `yaml:"nats_url"`

	// CrawlDepth is the page budget used when a request does not set one.
	CrawlDepth int `yaml:"crawl_depth"`

	// MaxCrawlDepth caps any requested depth.
	MaxCrawlDepth int `yaml:"max_crawl_depth"`

	// JobRetentionTime is how long finished jobs stay queryable.
	JobRetentionTime time.Duration `yaml:"job_retention"`

	WebClient webclient.Config  `yaml:"webclient"`
	Discovery enumerator.Config `yaml:"discovery"`
	Assessor  assessor.Config   `yaml:"assessor"`
	Fetcher   fetcher.Config    `yaml:"fetcher"`
	LinkCheck linkcheck.Config  `yaml:"linkcheck"`
	PageSpeed pagespeed.Config  `yaml:"pagespeed"`
	Tracker   tracker.Config    `yaml:"tracker"`
}

// DefaultConfig returns a Config populated with the stock settings.
func DefaultConfig() *Config {
	return &Config{
		StorageRoot:      "~/.config/sitepulse",
		ListenAddr:       ":8080",
		LogLevel:         "info",
		CrawlDepth:       DefaultCrawlDepth,
		MaxCrawlDepth:    MaxCrawlDepth,
		JobRetentionTime: 30 * time.Minute,
		WebClient: webclient.Config{
			Client:    webclient.ClientNetHTTP,
			UserAgent: DefaultUserAgent,
		},
		Discovery: enumerator.DefaultConfig(),
		Assessor:  assessor.DefaultConfig(),
		Fetcher:   fetcher.DefaultConfig(),
		LinkCheck: linkcheck.DefaultConfig(),
		PageSpeed: pagespeed.DefaultConfig(),
		Tracker: tracker.Config{
			MaxHistory: 50,
		},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path or a missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.MaxCrawlDepth <= 0 {
		return fmt.Errorf("max_crawl_depth must be positive, got %d", c.MaxCrawlDepth)
	}
	if c.CrawlDepth <= 0 || c.CrawlDepth > c.MaxCrawlDepth {
		return fmt.Errorf("crawl_depth must be in [1, %d], got %d", c.MaxCrawlDepth, c.CrawlDepth)
	}
	switch c.PageSpeed.Strategy {
	case "", pagespeed.StrategyMobile, pagespeed.StrategyDesktop:
	default:
		return fmt.Errorf("unknown pagespeed strategy %q", c.PageSpeed.Strategy)
	}
	return nil
}

// ClampDepth maps a requested crawl depth into [1, MaxCrawlDepth].
// Zero or negative uses CrawlDepth.
func (c *Config) ClampDepth(depth int) int {
	if depth <= 0 {
		depth = c.CrawlDepth
	}
	if depth <= 0 {
		depth = DefaultCrawlDepth
	}
	maxDepth := c.MaxCrawlDepth
	if maxDepth <= 0 {
		maxDepth = MaxCrawlDepth
	}
	return min(depth, maxDepth)
}

// StorageDir returns StorageRoot with "~" expanded.
func (c *Config) StorageDir() (string, error) {
	root := c.StorageRoot
	if root == "~" || strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		root = filepath.Join(home, strings.TrimPrefix(root, "~"))
	}
	if root == "" {
		return "", errors.New("storage root is empty")
	}
	return root, nil
}
