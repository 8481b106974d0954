// Package server is the HTTP boundary consumed by the UI collaborator.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"parlaygen/internal/ratelimit"
	"parlaygen/internal/registry"
	"parlaygen/internal/store"
	"parlaygen/internal/types"
)

// Generator is the slice of the orchestration engine the server needs.
type Generator interface {
	Generate(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error)
}

// RateLimiter is the request-counting collaborator.
type RateLimiter interface {
	Allow(ctx context.Context, identity string) ratelimit.Status
	Status(ctx context.Context, identity string) ratelimit.Status
}

// History is the persisted-results collaborator.
type History interface {
	Save(ctx context.Context, set *types.GeneratedSet, backend, event string) error
	Recent(ctx context.Context, limit int) ([]store.Entry, error)
}

// Server wires the engine, registry, limiter, and history store behind
// echo routes.
type Server struct {
	echo     *echo.Echo
	engine   Generator
	registry *registry.Registry
	limiter  RateLimiter
	history  History
	logger   *zap.Logger
	debug    bool
}

// Options configures a Server. Limiter and History may be nil; the
// corresponding endpoints degrade gracefully.
type Options struct {
	Engine   Generator
	Registry *registry.Registry
	Limiter  RateLimiter
	History  History
	Logger   *zap.Logger
	Debug    bool
}

// New creates the HTTP server.
func New(opts Options) *Server {
	s := &Server{
		echo:     echo.New(),
		engine:   opts.Engine,
		registry: opts.Registry,
		limiter:  opts.Limiter,
		history:  opts.History,
		logger:   opts.Logger,
		debug:    opts.Debug,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.POST("/generateParlay", s.handleGenerateParlay)
	s.echo.GET("/healthCheck", s.handleHealthCheck)
	s.echo.GET("/getRateLimitStatus", s.handleRateLimitStatus)
	s.echo.GET("/history", s.handleHistory)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Start blocks serving addr until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
