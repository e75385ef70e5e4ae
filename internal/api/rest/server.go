package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RequestTimeout  time.Duration

	// Per-IP request ceiling; zero disables throttling.
	RateLimitPerMinute int
}

// DefaultServerConfig returns production listener settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:         ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		AllowedOrigins:  []string{"*"},
		RequestTimeout:  30 * time.Second,

		RateLimitPerMinute: 120,
	}
}

// Server is the HTTP front door: REST control surface, websocket upgrade,
// health and metrics endpoints.
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer assembles the mux and middleware chain. wsHandler serves the
// websocket upgrade endpoint; health serves /healthz. limiter may be nil to
// run without request throttling.
func NewServer(
	config ServerConfig,
	handler *Handler,
	tokens TokenValidator,
	wsHandler http.Handler,
	health *HealthHandler,
	limiter RateLimiter,
	logger *zap.Logger,
) *Server {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, tokens)
	mux.Handle("GET /healthz", health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /ws", wsHandler)

	middlewares := []Middleware{
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		MetricsMiddleware(),
		RecoveryMiddleware(logger),
		CORSMiddleware(config.AllowedOrigins),
		TimeoutMiddleware(config.RequestTimeout),
	}
	if limiter != nil && config.RateLimitPerMinute > 0 {
		middlewares = append(middlewares,
			RateLimitMiddleware(limiter, config.RateLimitPerMinute, time.Minute, logger))
	}
	chained := Chain(mux, middlewares...)

	return &Server{
		config: config,
		httpServer: &http.Server{
			Addr:         config.Address,
			Handler:      chained,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("address", s.config.Address))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
