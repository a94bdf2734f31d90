package webclient

import "time"

type Client string

const (
	ClientNetHTTP Client = "nethttp"
)

const DefaultUserAgent = "Mozilla/5.0 (compatible; SitePulse/1.0; +https://github.com/raysh454/sitepulse)"

// Config controls WebClient construction.
type Config struct {
	Client Client `yaml:"client"`

	// UserAgent is sent on every request unless the request sets its own.
	UserAgent string `yaml:"user_agent"`

	// Timeout is the default per-request timeout.
	Timeout time.Duration `yaml:"timeout"`

	// MaxBodyBytes caps how much of a body is read. Zero means 10 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// MaxRedirects caps followed redirects. Zero means 10.
	MaxRedirects int `yaml:"max_redirects"`
}

func (c Config) withDefaults() Config {
	if c.Client == "" {
		c.Client = ClientNetHTTP
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 10
	}
	return c
}
