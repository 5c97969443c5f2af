// Package bridge runs the crypto engine as a websocket service, so that
// facades in other processes can use it as their background context.
package bridge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/bridge/server"
	"github.com/sonr-io/keybridge/engine/native"
)

// Service encapsulates the bridge server and its lifecycle.
type Service struct {
	config     *Config
	log        zerolog.Logger
	httpServer *server.Server
}

// NewService builds the engine and HTTP server described by config.
func NewService(config *Config, log zerolog.Logger) (*Service, error) {
	e, err := native.New(config.EngineOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	kdf := e.KDFConfig()
	log.Debug().
		Str("scheme", string(e.Scheme())).
		Uint32("kdf_time", kdf.Time).
		Uint32("kdf_memory", kdf.Memory).
		Msg("native engine ready")

	httpServer := server.NewServer(&server.Config{
		HTTPAddr:       fmt.Sprintf(":%d", config.HTTPPort),
		JWTSecret:      config.JWTSecret,
		AllowedOrigins: config.AllowedOrigins,
		Logger:         log,
	}, e)

	return &Service{config: config, log: log, httpServer: httpServer}, nil
}

// Server returns the HTTP server.
func (s *Service) Server() *server.Server {
	return s.httpServer
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then shuts down
// within the configured timeout.
func (s *Service) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.httpServer.Health().Run(ctx, s.config.HealthInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Start()
	}()
	s.log.Info().
		Int("port", s.config.HTTPPort).
		Str("scheme", string(s.config.EngineScheme)).
		Bool("auth", len(s.config.JWTSecret) > 0).
		Msg("bridge service started")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.log.Info().Msg("shutting down bridge service")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info().Msg("bridge service stopped")
	return nil
}
