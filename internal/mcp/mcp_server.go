// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/migdelta/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the migdelta MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Migration Delta Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	s.AddTool(mcp.NewTool("summarize_migrations",
		mcp.WithDescription("Summarize per-model schema changes (created, deleted, renamed, added and removed fields) across migration files applied in the given order."),
		mcp.WithString("paths", mcp.Description("Comma-separated migration file paths, in application order."), mcp.Required()),
		mcp.WithBoolean("qualify_fields", mcp.Description("Key field operations on <group>.<model> like model operations. Defaults to the server setting.")),
	), h.handleSummarizeMigrations)

	return s
}

// StartMCPServer starts the migdelta MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager, version string) error {
	s := NewMCPServer(baseCfg, mgr, version)
	return server.ServeStdio(s)
}
