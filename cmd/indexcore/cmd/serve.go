package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codeforge-dev/indexcore/internal/app"
	"github.com/codeforge-dev/indexcore/internal/config"
	"github.com/codeforge-dev/indexcore/internal/logging"
	"github.com/codeforge-dev/indexcore/internal/mcptools"
)

func newServeCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server, exposing the full tool surface (create_collection
through federated_search) to an MCP client over stdio.

MCP requires stdout to carry nothing but JSON-RPC frames, so logging here is
always file-only regardless of --debug.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), path)
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "project directory to serve")
	return cmd
}

func runServe(ctx context.Context, path string) error {
	cleanup, err := logging.SetupMCPMode()
	if err != nil {
		return fmt.Errorf("setup mcp logging: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := config.FindProjectRoot(path)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	a, err := app.New(ctx, root, nil)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer func() { _ = a.Close() }()

	srv, err := mcptools.NewServer(mcptools.Config{
		Store:      a.Store,
		Embedder:   a.Embedder,
		Retriever:  a.Retrieval,
		Code:       a.Code,
		Git:        a.Git,
		Federation: a.Federation,
	})
	if err != nil {
		return fmt.Errorf("create mcp server: %w", err)
	}

	return srv.Serve(ctx, a.Config.Server.Transport)
}
