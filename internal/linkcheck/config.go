package linkcheck

import "time"

type Config struct {
	// Timeout bounds each HEAD or GET attempt.
	Timeout time.Duration `yaml:"timeout"`

	// BatchSize is how many links are checked concurrently before the next batch starts.
	BatchSize int `yaml:"batch_size"`

	// RatePerSecond caps request starts across all links; zero disables the cap.
	RatePerSecond float64 `yaml:"rate_per_second"`

	// Burst is the limiter bucket size when RatePerSecond is set.
	Burst int `yaml:"burst"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:   5 * time.Second,
		BatchSize: 50,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.RatePerSecond > 0 && c.Burst <= 0 {
		c.Burst = 1
	}
	return c
}
