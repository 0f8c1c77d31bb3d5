// Package server assembles the HTTP surface: routes, middleware and
// lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/blueprintmaster/blueprint/internal/analysis"
	"github.com/blueprintmaster/blueprint/internal/config"
	"github.com/blueprintmaster/blueprint/internal/stats"
	"github.com/blueprintmaster/blueprint/web/handlers"
)

// Server is the blueprint analysis HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *handlers.EventHub
	log        zerolog.Logger
}

// New wires the routes and middleware.
func New(cfg *config.Config, pipeline *analysis.Service, store stats.RecordStore, log zerolog.Logger) *Server {
	hub := handlers.NewEventHub(log)
	blueprint := handlers.NewBlueprintHandlers(pipeline, store, hub, log)
	dashboard := handlers.NewDashboardHandlers(store, log)
	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/blueprint/analyze", blueprint.Analyze)
	mux.HandleFunc("POST /api/blueprint/generate_proposal", blueprint.GenerateProposal)
	mux.HandleFunc("POST /api/blueprint/generate_sub_proposal", blueprint.GenerateSubProposal)
	mux.HandleFunc("POST /api/blueprint/analyze_mindmap", blueprint.AnalyzeMindmap)
	mux.HandleFunc("POST /api/blueprint/smart_mindmap", blueprint.SmartMindmap)
	mux.HandleFunc("POST /api/blueprint/generate_mindmap", blueprint.GenerateMindmap)
	mux.HandleFunc("GET /api/dashboard/books", dashboard.TopBooks)
	mux.HandleFunc("GET /api/dashboard/usage", dashboard.Usage)
	mux.Handle("GET /ws", hub)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	var handler http.Handler = mux
	handler = handlers.RequireAuth(handler, cfg)
	handler = handlers.RateLimitMiddleware(handler, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// No WriteTimeout: analysis streams stay open for minutes.
			IdleTimeout: 120 * time.Second,
		},
		hub: hub,
		log: log,
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler exposes the composed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the event hub and blocks serving HTTP until shutdown.
func (s *Server) Start() error {
	go s.hub.Run()
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the event hub.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.hub.Stop()
	return s.httpServer.Shutdown(ctx)
}
