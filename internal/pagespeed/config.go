package pagespeed

import "time"

const DefaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Strategy is the device profile PageSpeed emulates.
type Strategy string

const (
	StrategyMobile  Strategy = "mobile"
	StrategyDesktop Strategy = "desktop"
)

type Config struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Strategy Strategy      `yaml:"strategy"`
	Timeout  time.Duration `yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Endpoint: DefaultEndpoint,
		Strategy: StrategyMobile,
		Timeout:  25 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}
