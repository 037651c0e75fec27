// Package server exposes the operator HTTP API: engine controls, market
// selection, trade history, events, and balances.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/edgebot/internal/server/handler"
	"github.com/alanyoungcy/edgebot/internal/server/middleware"
)

// Config holds the HTTP server settings.
type Config struct {
	Port        int
	APIKey      string
	CORSOrigins []string
}

// Handlers aggregates the route handlers mounted on the server.
type Handlers struct {
	Health   *handler.HealthHandler
	Engine   *handler.EngineHandler
	Markets  *handler.MarketHandler
	Trades   *handler.TradeHandler
	Events   *handler.EventHandler
	Balances *handler.BalanceHandler
}

// Server wraps http.Server with the API routes and middleware chain.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the route table and wires the middleware chain
// (auth, then logging, then CORS, outermost last).
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/status", handlers.Engine.Status)
	mux.HandleFunc("POST /api/engine/start", handlers.Engine.Start)
	mux.HandleFunc("POST /api/engine/stop", handlers.Engine.Stop)
	mux.HandleFunc("GET /api/policy", handlers.Engine.GetPolicy)
	mux.HandleFunc("PUT /api/policy", handlers.Engine.UpdatePolicy)

	mux.HandleFunc("GET /api/markets", handlers.Markets.List)
	mux.HandleFunc("GET /api/markets/current", handlers.Markets.Current)
	mux.HandleFunc("POST /api/markets/select", handlers.Markets.Select)

	mux.HandleFunc("GET /api/trades", handlers.Trades.List)
	mux.HandleFunc("GET /api/trades/open", handlers.Trades.Open)

	mux.HandleFunc("GET /api/events", handlers.Events.List)

	if handlers.Balances != nil {
		mux.HandleFunc("GET /api/balances", handlers.Balances.Get)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// Start begins serving. It blocks until the server stops; a graceful
// shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
