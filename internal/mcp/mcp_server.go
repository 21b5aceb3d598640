// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// NewMCPServer initializes and configures the backupwatch MCP server without starting it.
// Every analysis tool runs in dry-run mode: nothing is sent to the alerting backend.
func NewMCPServer(baseCfg *contract.Config, metadata contract.MetadataSource, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"Backupwatch Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:  baseCfg,
		metadata: metadata,
		logger:   logger,
	}

	// --- 1. Tool: analyze_schedules ---
	s.AddTool(mcp.NewTool("analyze_schedules",
		mcp.WithDescription("Check every backup task against its recurrence schedule and list creation-date, missing and additional backup alerts."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of alerts returned, -1 for all. Defaults to 10.")),
		mcp.WithString("start", mcp.Description("Only report slots after this instant (RFC 3339 or 'N units ago').")),
		mcp.WithString("stop", mcp.Description("Stop walking schedules at this instant. Defaults to now.")),
	), h.handleAnalyzeSchedules)

	// --- 2. Tool: next_slots ---
	s.AddTool(mcp.NewTool("next_slots",
		mcp.WithDescription("Preview the instants a schedule expects backups at."),
		mcp.WithString("base", mcp.Description("Schedule unit."), mcp.Required(), mcp.Enum("MIN", "HOU", "DAY", "WEE", "MON")),
		mcp.WithNumber("count", mcp.Description("Number of units between slots."), mcp.Required()),
		mcp.WithString("anchor", mcp.Description("Time of day HH:MM for DAY, WEE and MON schedules.")),
		mcp.WithString("weekdays", mcp.Description("Enabled weekdays, e.g. 'mo,we,fr'. Defaults to every day.")),
		mcp.WithString("from", mcp.Description("Reference instant (RFC 3339 or 'N units ago'). Defaults to now.")),
		mcp.WithNumber("n", mcp.Description("Number of slots to list. Defaults to 5.")),
	), h.handleNextSlots)

	// --- 3. Tool: check_sizes ---
	s.AddTool(mcp.NewTool("check_sizes",
		mcp.WithDescription("Find drastic size changes between consecutive backups of the same task and kind."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of alerts returned, -1 for all.")),
	), h.handleCheckSizes)

	// --- 4. Tool: check_storage ---
	s.AddTool(mcp.NewTool("check_storage",
		mcp.WithDescription("List data stores filled above their high water mark."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of alerts returned, -1 for all.")),
	), h.handleCheckStorage)

	return s
}

// StartMCPServer starts the backupwatch MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, metadata contract.MetadataSource, logger *zap.Logger) error {
	s := NewMCPServer(baseCfg, metadata, logger)
	return server.ServeStdio(s)
}
