package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/monban/internal/bus"
	"github.com/ashita-ai/monban/internal/storage"
	"github.com/ashita-ai/monban/internal/triage"
)

// Server is the Monban HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): MCPServer.
type ServerConfig struct {
	// Required dependencies.
	DB           *storage.DB
	Orchestrator *triage.Orchestrator
	Bus          *bus.Bus
	Logger       *slog.Logger

	// Optional dependencies (nil = disabled).
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		Orchestrator:        cfg.Orchestrator,
		Bus:                 cfg.Bus,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	// Report intake — runs the full triage pipeline.
	mux.HandleFunc("POST /v1/reports", h.HandleCreateReport)

	// Classification preview without filing anything.
	mux.HandleFunc("POST /v1/classify", h.HandleClassify)

	// Incident queries. Incident IDs are per user, so every route
	// carries a user_id.
	mux.HandleFunc("GET /v1/incidents", h.HandleListIncidents)
	mux.HandleFunc("GET /v1/incidents/{incident_id}", h.HandleGetIncident)
	mux.HandleFunc("POST /v1/incidents/{incident_id}/status", h.HandleUpdateStatus)

	// Contact management for repeat-issue notices.
	mux.HandleFunc("PUT /v1/contacts/{user_id}", h.HandleSetContact)

	// Event history and bus metrics.
	mux.HandleFunc("GET /v1/events", h.HandleListEvents)
	mux.HandleFunc("GET /v1/metrics", h.HandleMetrics)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", mcpHTTP)
	}

	// Health (no middleware concerns beyond the standard chain).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
