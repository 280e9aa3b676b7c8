package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mindkeep/internal/adapters/driving/mcp"
	"github.com/custodia-labs/mindkeep/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools ask questions, add notes and manage tasks for the --user account (or
the default user). The idea graph and mailbox stats are exposed as resources.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  mindkeep mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  mindkeep mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "mindkeep": {
        "command": "/path/to/mindkeep",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		OwnerID: owner.ID,
		QA:      qaService,
		Ingest:  ingestService,
		Tasks:   taskService,
		Ideas:   ideaService,
		Mail:    mailService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if promptWatcher != nil {
		if _, err := promptWatcher.Watch(ctx); err != nil {
			logger.Warn("prompt files will not reload: %v", err)
		}
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
