// Package server exposes the HTTP surface: the Prometheus scrape endpoint,
// a health probe, and a small runtime configuration API. Scrapes read the
// latest published snapshot only; they never run external tools.
package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/javamon/jvm-exporter/internal/config"
	"github.com/javamon/jvm-exporter/internal/snapshot"
)

// Server hosts the scrape and config endpoints.
type Server struct {
	e        *echo.Echo
	provider *config.Provider
	logger   *zap.Logger
}

// New builds the HTTP server around the snapshot registry and config
// provider.
func New(provider *config.Provider, registry *snapshot.Registry, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{e: e, provider: provider, logger: logger}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(&snapshotCollector{registry: registry})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	e.GET("/healthz", s.handleHealth)
	e.GET("/config", s.handleGetConfig)
	e.POST("/config", s.handleSetConfig)

	return s
}

// Start begins serving on the given address. It blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	err := s.e.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleGetConfig(c echo.Context) error {
	cfg := s.provider.Current()
	return c.JSON(http.StatusOK, cfg)
}

// handleSetConfig replaces the active configuration. The new configuration
// applies from the next refresh cycle; the currently published snapshot is
// untouched.
func (s *Server) handleSetConfig(c echo.Context) error {
	cfg := s.provider.Current()
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := s.provider.Replace(cfg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	s.logger.Info("Configuration replaced via config endpoint")
	return c.JSON(http.StatusOK, s.provider.Current())
}
