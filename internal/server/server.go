package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brickvest-labs/brickvest/internal/domain"
	"github.com/brickvest-labs/brickvest/internal/server/handler"
	"github.com/brickvest-labs/brickvest/internal/server/middleware"
	"github.com/brickvest-labs/brickvest/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// Limiter enables per-client request limiting when set.
	Limiter    domain.RateLimiter
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health     *handler.HealthHandler
	Network    *handler.NetworkHandler
	Properties *handler.PropertyHandler
	Purchases  *handler.PurchaseHandler
	KYC        *handler.KYCHandler
}

// Server is the HTTP + WebSocket API server for the brickvest investing
// platform.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Network reconciliation endpoints.
	mux.HandleFunc("GET /api/network", handlers.Network.GetNetwork)
	mux.HandleFunc("POST /api/network/reconcile", handlers.Network.Reconcile)

	// Property and eligibility endpoints.
	mux.HandleFunc("GET /api/properties", handlers.Properties.ListProperties)
	mux.HandleFunc("GET /api/properties/{id}", handlers.Properties.GetProperty)
	mux.HandleFunc("GET /api/properties/{id}/eligibility", handlers.Properties.GetEligibility)

	// Purchase lifecycle endpoints.
	mux.HandleFunc("POST /api/purchases", handlers.Purchases.StartPurchase)
	mux.HandleFunc("GET /api/purchases", handlers.Purchases.ListPurchases)
	mux.HandleFunc("GET /api/purchases/{id}", handlers.Purchases.GetPurchase)
	mux.HandleFunc("DELETE /api/purchases/{id}", handlers.Purchases.DismissPurchase)

	// KYC endpoints.
	mux.HandleFunc("GET /api/kyc/status", handlers.KYC.GetStatus)
	mux.HandleFunc("POST /api/kyc/submit", handlers.KYC.SubmitVerification)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when a limiter is configured.
	if cfg.Limiter != nil && cfg.RateLimit > 0 && cfg.RateWindow > 0 {
		h = middleware.RateLimit(cfg.Limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
