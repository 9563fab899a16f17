package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"PageVault/internal/config"
)

// Server hosts the HTTP API.
type Server struct {
	echo *echo.Echo
	cfg  config.ServerConfig
}

// New assembles the echo instance, middleware, and routes.
func New(cfg config.Config, handlers *Handlers, auth *AuthMiddleware, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout.Std()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	v1 := e.Group("/v1")
	v1.GET("/health", handlers.Health)

	protected := v1.Group("", auth.RequireAuth())
	protected.POST("/items", handlers.ImportOne)
	protected.GET("/items", handlers.ListItems)
	protected.GET("/items/:id", handlers.GetItem)
	protected.POST("/items/:id/summary", handlers.SaveSummary)
	protected.POST("/ai/summary", handlers.StreamSummary)
	protected.POST("/import/map", handlers.DiscoverLinks)
	protected.POST("/import/search", handlers.SearchWeb)
	protected.POST("/import/bulk", handlers.BulkImport)

	return &Server{echo: e, cfg: cfg.Server}
}

// Start blocks serving HTTP until the listener fails or is shut down.
func (s *Server) Start() error {
	return s.echo.Start(s.cfg.Addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
