package enumerator

import "time"

// Config controls page discovery.
type Config struct {
	// PageTimeout bounds each HTML page fetch.
	PageTimeout time.Duration `yaml:"page_timeout"`

	// SitemapTimeout bounds each sitemap or robots.txt fetch.
	SitemapTimeout time.Duration `yaml:"sitemap_timeout"`

	// MaxPages caps the discovered page set.
	MaxPages int `yaml:"max_pages"`

	// MaxSitemapChildren caps how many child sitemaps of an index are read.
	MaxSitemapChildren int `yaml:"max_sitemap_children"`

	// DeepCrawlPages is how many discovered pages the deep crawl fetches.
	DeepCrawlPages int `yaml:"deep_crawl_pages"`

	// SitemapPaths are probed in order before robots.txt.
	SitemapPaths []string `yaml:"sitemap_paths"`

	// SkipRobots disables the robots.txt Sitemap: fallback.
	SkipRobots bool `yaml:"skip_robots"`
}

// DefaultSitemapPaths are the conventional sitemap locations.
var DefaultSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
	"/sitemap/sitemap.xml",
}

// DefaultConfig returns the stock discovery settings.
func DefaultConfig() Config {
	return Config{
		PageTimeout:        7 * time.Second,
		SitemapTimeout:     3 * time.Second,
		MaxPages:           1500,
		MaxSitemapChildren: 10,
		DeepCrawlPages:     10,
		SitemapPaths:       DefaultSitemapPaths,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PageTimeout <= 0 {
		c.PageTimeout = d.PageTimeout
	}
	if c.SitemapTimeout <= 0 {
		c.SitemapTimeout = d.SitemapTimeout
	}
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.MaxSitemapChildren <= 0 {
		c.MaxSitemapChildren = d.MaxSitemapChildren
	}
	if c.DeepCrawlPages <= 0 {
		c.DeepCrawlPages = d.DeepCrawlPages
	}
	if len(c.SitemapPaths) == 0 {
		c.SitemapPaths = d.SitemapPaths
	}
	return c
}
