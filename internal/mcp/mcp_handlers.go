package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/migdelta/core"
	"github.com/huangsam/migdelta/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

func (h *toolHandler) handleSummarizeMigrations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.Files = splitPaths(request.GetString("paths", ""))
	cfg.QualifyFields = request.GetBool("qualify_fields", cfg.QualifyFields)

	if len(cfg.Files) == 0 {
		return mcp.NewToolResultError("paths must list at least one migration file"), nil
	}

	result, err := core.GetDiffResults(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summary failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// splitPaths splits a comma-separated list, dropping blanks.
func splitPaths(raw string) []string {
	var paths []string
	for p := range strings.SplitSeq(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	return paths
}
