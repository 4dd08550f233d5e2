// Package server exposes the sketchpm engine over a small JSON RPC surface
// for the desktop shell.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/danieljhkim/sketchpm/internal/engine"
	"github.com/danieljhkim/sketchpm/internal/manifest"
	"github.com/danieljhkim/sketchpm/internal/metrics"
	"github.com/danieljhkim/sketchpm/internal/state"
)

// Service is the subset of the engine served over RPC.
type Service interface {
	InstallPackage(ctx context.Context, req engine.InstallRequest) (*engine.InstallResult, error)
	ListInstalled(ctx context.Context) ([]string, error)
	ListDependencies(ctx context.Context) ([]manifest.Dependency, error)
	History(ctx context.Context, limit int) ([]state.HistoryEntry, error)
}

// Server provides the RPC endpoints.
type Server struct {
	echo    *echo.Echo
	svc     Service
	logger  *zap.Logger
	metrics *metrics.Collector
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewServer creates a new RPC server. collector may be nil.
func NewServer(svc Service, logger *zap.Logger, collector *metrics.Collector, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 7717,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			duration := time.Since(start)
			status := c.Response().Status

			collector.RecordHTTPRequest(c.Path(), strconv.Itoa(status))
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	})

	s := &Server{
		echo:    e,
		svc:     svc,
		logger:  logger,
		metrics: collector,
		config:  cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	rpc := s.echo.Group("/rpc")
	rpc.POST("/installPackage", s.handleInstallPackage)
	rpc.GET("/getInstalledPackages", s.handleGetInstalledPackages)
	rpc.GET("/getDependencies", s.handleGetDependencies)
	rpc.GET("/getInstallHistory", s.handleGetInstallHistory)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx RPC response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleInstallPackage installs one package. A package manager that ran and
// failed is still a 200; only infrastructure errors are a 500.
func (s *Server) handleInstallPackage(c echo.Context) error {
	var req engine.InstallRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid install request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	result, err := s.svc.InstallPackage(c.Request().Context(), req)
	if err != nil {
		return s.internalError(c, "install failed", err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetInstalledPackages(c echo.Context) error {
	names, err := s.svc.ListInstalled(c.Request().Context())
	if err != nil {
		return s.internalError(c, "listing packages failed", err)
	}
	return c.JSON(http.StatusOK, names)
}

func (s *Server) handleGetDependencies(c echo.Context) error {
	deps, err := s.svc.ListDependencies(c.Request().Context())
	if err != nil {
		return s.internalError(c, "listing dependencies failed", err)
	}
	return c.JSON(http.StatusOK, deps)
}

func (s *Server) handleGetInstallHistory(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
		}
		limit = n
	}

	entries, err := s.svc.History(c.Request().Context(), limit)
	if err != nil {
		return s.internalError(c, "reading history failed", err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) internalError(c echo.Context, msg string, err error) error {
	s.logger.Error(msg,
		zap.Error(err),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

// Start starts the HTTP server. It blocks until the server stops and returns
// nil after a graceful Shutdown.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
