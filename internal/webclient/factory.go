package webclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raysh454/sitepulse/internal/logging"
)

// ErrUnknownClient is returned for a Config.Client with no implementation.
var ErrUnknownClient = errors.New("unknown webclient")

// NewWebClient constructs the WebClient named by cfg.Client. An empty name
// selects net/http, currently the only implementation.
func NewWebClient(cfg Config, logger logging.Logger) (WebClient, error) {
	switch Client(strings.ToLower(strings.TrimSpace(string(cfg.Client)))) {
	case "", ClientNetHTTP:
		c, err := NewNetHTTPClient(cfg, logger, nil)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q (want %q)", ErrUnknownClient, cfg.Client, ClientNetHTTP)
	}
}
