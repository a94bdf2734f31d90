package server

//go:generate swag init -g internal/server/swagger.go -o internal/server/docs

// @title SitePulse API
// @version 0.1
// @description Start website health audits, stream their progress and browse stored audit history.
// @contact.name SitePulse Maintainers
// @contact.url https://github.com/raysh454/sitepulse
// @BasePath /
