package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/internal/cli"
	mcpadapter "github.com/synzen/prompt-anything-sub000/pkg/adapters/mcp"
	"github.com/synzen/prompt-anything-sub000/pkg/flow"
	"github.com/synzen/prompt-anything-sub000/pkg/session"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [path]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts a flow as an MCP server.
This allows AI agents (like Claude Desktop) to drive conversations as tool calls.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		logger := appLogger()
		slog.SetDefault(logger)

		def, err := cli.LoadDefinition(context.Background(), path)
		if err != nil {
			log.Fatalf("Error loading flow: %v", err)
		}
		if err := def.Validate(); err != nil {
			log.Fatalf("Error: flow %s: %v", def.Name, err)
		}

		hub := session.NewHub[flow.Data]().WithLogger(logger)

		cfg := def.RunConfig()
		src := session.Source[flow.Data]{
			Flow:    def.Name,
			Initial: def.Initial,
			Config:  &cfg,
			Build: func() (*prompta.Node[flow.Data], error) {
				return def.Build(nil)
			},
		}

		srv := mcpadapter.NewServer(hub, src, mcpadapter.WithFlowDefinition[flow.Data](def))

		switch transport {
		case "stdio":
			// Keep Stdout clean for JSON-RPC framing.
			log.SetOutput(os.Stderr)
			slog.Info("Starting Prompta MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				slog.Error("MCP Server execution failed", "error", err)
				os.Exit(1)
			}
		case "sse":
			slog.Info("Starting Prompta MCP Server (SSE)", "port", port)

			// Create a context that cancels on interrupt signal
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				// Ignore server closed error if it was caused by context cancellation
				if err != http.ErrServerClosed {
					slog.Error("MCP Server execution failed", "error", err)
					os.Exit(1)
				}
			}
			slog.Info("MCP Server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
