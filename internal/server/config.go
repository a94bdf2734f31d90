package server

import (
	"github.com/raysh454/sitepulse/internal/app"
	"github.com/raysh454/sitepulse/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address. Empty uses AppConfig.ListenAddr.
	ListenAddr string

	// AppConfig configures the application the server creates. Nil uses
	// app.DefaultConfig().
	AppConfig *app.Config

	Logger logging.Logger

	// AllowedOrigin is sent as Access-Control-Allow-Origin; "*" when empty.
	AllowedOrigin string
}
