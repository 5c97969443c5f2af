// Package server provides the HTTP server of the engine bridge
package server

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/bridge/handlers"
	"github.com/sonr-io/keybridge/engine"
)

const (
	DefaultHTTPAddr = ":8090"
)

// Config holds server configuration
type Config struct {
	HTTPAddr string
	// JWTSecret enables bearer token checks on /engine when set.
	JWTSecret []byte
	// AllowedOrigins restricts websocket origins. Empty allows any origin.
	AllowedOrigins []string
	Registry       *prometheus.Registry
	Logger         zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	config         *Config
	echo           *echo.Echo
	upgrader       *websocket.Upgrader
	connections    *handlers.ConnectionManager
	metrics        *handlers.Metrics
	health         *handlers.HealthChecker
	engineHandlers *handlers.EngineHandlers
}

// NewServer creates a server that serves e. Routes are ready on return.
func NewServer(config *Config, e engine.Engine) *Server {
	upgrader := &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(config.AllowedOrigins) == 0 {
				return true
			}
			return slices.Contains(config.AllowedOrigins, r.Header.Get("Origin"))
		},
	}

	connections := handlers.NewConnectionManager()
	metrics := handlers.NewMetrics(config.Registry)

	s := &Server{
		config:         config,
		echo:           echo.New(),
		upgrader:       upgrader,
		connections:    connections,
		metrics:        metrics,
		health:         handlers.NewHealthChecker(e, connections),
		engineHandlers: handlers.NewEngineHandlers(e, upgrader, connections, metrics, config.Logger),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Echo returns the underlying Echo instance for testing
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Health returns the server's health checker.
func (s *Server) Health() *handlers.HealthChecker {
	return s.health
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := s.config.HTTPAddr
	if addr == "" {
		addr = DefaultHTTPAddr
	}
	s.config.Logger.Info().Str("addr", addr).Msg("bridge listening")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes open engine connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.connections.CloseAll()
	return err
}

// setupMiddleware configures Echo middleware
func (s *Server) setupMiddleware() {
	log := s.config.Logger
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health.HealthCheckHandler)
	s.echo.GET("/ready", s.health.ReadinessHandler)
	s.echo.GET("/metrics", s.metrics.Handler())

	var mw []echo.MiddlewareFunc
	if len(s.config.JWTSecret) > 0 {
		mw = append(mw,
			handlers.JWTMiddleware(s.config.JWTSecret),
			handlers.RequireScope(handlers.ScopeEngine),
		)
	}
	s.echo.GET("/engine", s.engineHandlers.WebSocketHandler(), mw...)
}
