package cmd

import (
	"github.com/huangsam/backupwatch/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Backupwatch MCP server",
	Long:  `Launch an MCP server that lets AI agents run the analyses in dry-run mode and preview schedules.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr, stdout carries the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, env.Metadata, env.Logger)
	},
}
