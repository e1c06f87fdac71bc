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
	"github.com/codeforge-dev/indexcore/internal/gitindex"
	"github.com/codeforge-dev/indexcore/internal/index"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index a codebase or its git history",
	}

	cmd.AddCommand(newIndexCodeCmd())
	cmd.AddCommand(newIndexGitCmd())
	return cmd
}

func newIndexCodeCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "code [path]",
		Short: "Scan, chunk, embed, and upsert a codebase",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndexCode(cmd.Context(), cmd, path, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "drop the existing collection and rebuild from scratch")
	return cmd
}

func runIndexCode(ctx context.Context, cmd *cobra.Command, path string, force bool) error {
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

	progress := func(phase string, current, total int, pct float64, message string) {
		fmt.Fprintf(cmd.OutOrStdout(), "\r%s: %d/%d (%.0f%%) %s", phase, current, total, pct, message)
	}
	stats, err := a.Code.IndexCodebase(ctx, root, index.Options{ForceReindex: force}, progress)
	if err != nil {
		return fmt.Errorf("index codebase: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nindexed %d files, %d chunks in %dms (%s)\n",
		stats.FilesIndexed, stats.ChunksCreated, stats.DurationMs, stats.Status)
	for _, e := range stats.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e)
	}
	return nil
}

func newIndexGitCmd() *cobra.Command {
	var (
		force      bool
		maxCommits int
		since      string
	)

	cmd := &cobra.Command{
		Use:   "git [path]",
		Short: "Index a repository's commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndexGit(cmd.Context(), cmd, path, force, maxCommits, since)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "drop the existing collection and rebuild from scratch")
	cmd.Flags().IntVar(&maxCommits, "max-commits", 0, "limit how many commits to index, 0 for unlimited")
	cmd.Flags().StringVar(&since, "since", "", "ISO date (YYYY-MM-DD); only commits on or after this date are indexed")
	return cmd
}

func runIndexGit(ctx context.Context, cmd *cobra.Command, path string, force bool, maxCommits int, since string) error {
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

	progress := func(phase string, current, total int, pct float64, message string) {
		fmt.Fprintf(cmd.OutOrStdout(), "\r%s: %d/%d (%.0f%%) %s", phase, current, total, pct, message)
	}
	stats, err := a.Git.IndexGitHistory(ctx, root, gitindex.Options{
		ForceReindex: force, MaxCommits: maxCommits, SinceDate: since,
	}, progress)
	if err != nil {
		return fmt.Errorf("index git history: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nindexed %d/%d commits, %d chunks in %dms (%s)\n",
		stats.FilesIndexed, stats.FilesScanned, stats.ChunksCreated, stats.DurationMs, stats.Status)
	for _, e := range stats.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e)
	}
	return nil
}
