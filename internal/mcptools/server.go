// Package mcptools exposes the valuation and growth analyses as MCP tools
// over stdio, for agent frameworks that orchestrate them.
package mcptools

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/seenimoa/kabuai/internal/infra"
)

const serverName = "kabuai"

// NewServer builds an MCP server with the analysis tools registered.
func NewServer(svc Service, version string, logger zerolog.Logger) *server.MCPServer {
	logger = infra.Component(logger, "mcp")

	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)
	s.AddTool(analyzeValuationTool(), handleAnalyzeValuation(svc, logger))
	s.AddTool(analyzeGrowthTool(), handleAnalyzeGrowth(svc, logger))
	s.AddTool(analyzeCompanyTool(), handleAnalyzeCompany(svc, logger))
	return s
}

// Serve blocks serving s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
