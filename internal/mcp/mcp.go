// Package mcp implements the Model Context Protocol server for Monban.
//
// The MCP server exposes the triage pipeline as tools so that
// MCP-compatible assistants can file reports, look up a user's
// incidents, and update incident status on their behalf.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/monban/internal/storage"
	"github.com/ashita-ai/monban/internal/triage"
)

// Server wraps the MCP server with Monban's triage pipeline.
type Server struct {
	mcpServer    *mcpserver.MCPServer
	orchestrator *triage.Orchestrator
	store        *storage.DB
	logger       *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(orchestrator *triage.Orchestrator, store *storage.DB, logger *slog.Logger, version string) *Server {
	s := &Server{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"monban",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// monban://incidents/recent — recent incidents across all users.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"monban://incidents/recent",
			"Recent Incidents",
			mcplib.WithResourceDescription("Most recently filed incidents across all users"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleIncidentsRecent,
	)
}

func (s *Server) handleIncidentsRecent(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	incidents, err := s.store.RecentIncidents(ctx, 20)
	if err != nil {
		return nil, fmt.Errorf("mcp: recent incidents: %w", err)
	}

	data, err := json.MarshalIndent(incidents, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal incidents: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "monban://incidents/recent",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
