package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeforge-dev/indexcore/internal/app"
	"github.com/codeforge-dev/indexcore/internal/config"
	"github.com/codeforge-dev/indexcore/internal/federation"
	"github.com/codeforge-dev/indexcore/internal/gitindex"
	"github.com/codeforge-dev/indexcore/internal/index"
	"github.com/codeforge-dev/indexcore/internal/retrieval"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search an indexed codebase, its git history, or multiple repositories",
	}

	cmd.AddCommand(newSearchCodeCmd())
	cmd.AddCommand(newSearchGitCmd())
	cmd.AddCommand(newSearchFederatedCmd())
	return cmd
}

func newSearchCodeCmd() *cobra.Command {
	var (
		path   string
		limit  int
		hybrid bool
	)

	cmd := &cobra.Command{
		Use:   "code <query>",
		Short: "Semantic search over an indexed codebase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchCode(cmd.Context(), cmd, path, strings.Join(args, " "), limit, hybrid)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "project directory to search")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().BoolVar(&hybrid, "hybrid", false, "use server-side dense+sparse fusion instead of dense-only")
	return cmd
}

func runSearchCode(ctx context.Context, cmd *cobra.Command, path, query string, limit int, hybrid bool) error {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	a, err := app.New(ctx, root, nil)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer func() { _ = a.Close() }()

	results, err := a.Code.SearchCode(ctx, root, query, index.SearchOptions{Limit: limit, UseHybrid: hybrid})
	if err != nil {
		return fmt.Errorf("search code: %w", err)
	}
	return printResults(cmd, results)
}

func newSearchGitCmd() *cobra.Command {
	var (
		path  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "git <query>",
		Short: "Search an indexed repository's commit history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchGit(cmd.Context(), cmd, path, strings.Join(args, " "), limit)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "project directory to search")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	return cmd
}

func runSearchGit(ctx context.Context, cmd *cobra.Command, path, query string, limit int) error {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	a, err := app.New(ctx, root, nil)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer func() { _ = a.Close() }()

	results, err := a.Git.SearchHistory(ctx, root, query, gitindex.SearchOptions{Limit: limit})
	if err != nil {
		return fmt.Errorf("search git history: %w", err)
	}
	return printResults(cmd, results)
}

func newSearchFederatedCmd() *cobra.Command {
	var (
		paths      []string
		limit      int
		searchType string
	)

	cmd := &cobra.Command{
		Use:   "federated <query>",
		Short: "Fan a query out across multiple repositories with Reciprocal Rank Fusion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchFederated(cmd.Context(), cmd, paths, strings.Join(args, " "), limit, searchType)
		},
	}
	cmd.Flags().StringSliceVar(&paths, "paths", nil, "repository paths to search (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results across all repositories")
	cmd.Flags().StringVar(&searchType, "type", "both", "code, git, or both")
	_ = cmd.MarkFlagRequired("paths")
	return cmd
}

func runSearchFederated(ctx context.Context, cmd *cobra.Command, paths []string, query string, limit int, searchType string) error {
	if len(paths) == 0 {
		return fmt.Errorf("at least one --paths value is required")
	}

	var st federation.SearchType
	switch searchType {
	case "code":
		st = federation.SearchTypeCode
	case "git":
		st = federation.SearchTypeGit
	case "", "both":
		st = federation.SearchTypeBoth
	default:
		return fmt.Errorf("type must be code, git, or both")
	}

	// Any repository's config bootstraps the shared embedder/store pair; the
	// federator fans the same query out across every path itself.
	root, err := config.FindProjectRoot(paths[0])
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	a, err := app.New(ctx, root, nil)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer func() { _ = a.Close() }()

	results, err := a.Federation.Search(ctx, paths, query, st, limit)
	if err != nil {
		return fmt.Errorf("federated search: %w", err)
	}

	for i, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s] %s (score: %.3f, repo: %s)\n",
			i+1, r.ResultType, r.ID, r.RRFScore, r.RepoPath)
	}
	return nil
}

func printResults(cmd *cobra.Command, results []retrieval.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (score: %.3f)\n", i+1, r.ID, r.Score)
		if content, ok := r.Payload["content"].(string); ok {
			fmt.Fprintln(cmd.OutOrStdout(), "   "+firstLine(content))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
