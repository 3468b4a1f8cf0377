package main

import (
	"os"
	"os/signal"
	"syscall"

	"cim/internal/mcp"
	"cim/internal/slogutil"
	"cim/internal/version"

	"github.com/spf13/cobra"
)

var serveStdio bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for agent integration",
	Long: `Serve starts the Model Context Protocol (MCP) server, letting MCP
clients query the model over stdio using newline-delimited JSON-RPC 2.0.

One tool is exposed per command: peek, focus, search, trace, deps,
stats, diff, query, and status. The server shuts down cleanly on EOF
or on SIGINT/SIGTERM.

This command is typically invoked by MCP clients, not directly by users.

Example usage:
  cim serve --stdio`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", true, "Use stdio for communication (default)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Logs go to stderr; stdout carries JSON-RPC frames.
	logger := slogutil.NewStderrLogger(slogutil.LevelFromVerbosity(verbosity+1, quietFlag))

	logger.Info("starting MCP server", "version", version.Version)

	repoRoot := mustGetRepoRoot()
	svc := mustGetService(repoRoot, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(svc, version.Version, logger)
	if err := server.Start(ctx); err != nil {
		logger.Error("MCP server error", "error", err)
		return err
	}

	logger.Info("MCP server stopped")
	return nil
}
