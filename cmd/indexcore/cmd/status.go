package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeforge-dev/indexcore/internal/app"
	"github.com/codeforge-dev/indexcore/internal/config"
)

func newStatusCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show code and git-history index status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd, path)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "project directory to inspect")
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, path string) error {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	a, err := app.New(ctx, root, nil)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer func() { _ = a.Close() }()

	codeStatus, err := a.Code.GetIndexStatus(ctx, root)
	if err != nil {
		return fmt.Errorf("get code index status: %w", err)
	}
	printStatus(cmd, "code", codeStatus.Status, codeStatus.ChunksCount)

	gitStatus, err := a.Git.GetGitIndexStatus(ctx, root)
	if err != nil {
		return fmt.Errorf("get git index status: %w", err)
	}
	printStatus(cmd, "git", gitStatus.Status, gitStatus.ChunksCount)

	return nil
}

func printStatus(cmd *cobra.Command, label, status string, chunksCount *int) {
	if chunksCount != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d chunks)\n", label, status, *chunksCount)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", label, status)
}
