package fetcher

import "time"

type Config struct {
	// MaxConcurrency bounds simultaneous page audits in AuditAll.
	MaxConcurrency int `yaml:"max_concurrency"`

	// PageTimeout bounds fetching a single page.
	PageTimeout time.Duration `yaml:"page_timeout"`
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		PageTimeout:    7 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = d.PageTimeout
	}
	return c
}
