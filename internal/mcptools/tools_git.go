package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeforge-dev/indexcore/internal/gitindex"
)

type IndexGitHistoryInput struct {
	Path         string `json:"path" jsonschema:"absolute path to a git repository"`
	ForceReindex bool   `json:"force_reindex,omitempty" jsonschema:"drop and rebuild the collection instead of reusing it"`
	MaxCommits   int    `json:"max_commits,omitempty" jsonschema:"limit how many commits to index, 0 for unlimited"`
	SinceDate    string `json:"since_date,omitempty" jsonschema:"ISO date (YYYY-MM-DD); only commits on or after this date are indexed"`
}

type IndexGitHistoryOutput struct {
	CommitsScanned int      `json:"commits_scanned"`
	CommitsIndexed int      `json:"commits_indexed"`
	ChunksCreated  int      `json:"chunks_created"`
	DurationMs     int64    `json:"duration_ms"`
	Status         string   `json:"status" jsonschema:"completed, partial, or failed"`
	Errors         []string `json:"errors,omitempty"`
}

func (s *Server) handleIndexGitHistory(ctx context.Context, _ *mcp.CallToolRequest, in IndexGitHistoryInput) (*mcp.CallToolResult, IndexGitHistoryOutput, error) {
	if s.git == nil {
		return nil, IndexGitHistoryOutput{}, NewInvalidParamsError("git indexer is not configured")
	}
	if in.Path == "" {
		return nil, IndexGitHistoryOutput{}, NewInvalidParamsError("path is required")
	}
	stats, err := s.git.IndexGitHistory(ctx, in.Path, gitindex.Options{
		ForceReindex: in.ForceReindex, MaxCommits: in.MaxCommits, SinceDate: in.SinceDate,
	}, nil)
	if err != nil {
		return nil, IndexGitHistoryOutput{}, MapError(err)
	}
	return nil, IndexGitHistoryOutput{
		CommitsScanned: stats.FilesScanned, CommitsIndexed: stats.FilesIndexed,
		ChunksCreated: stats.ChunksCreated, DurationMs: stats.DurationMs,
		Status: stats.Status, Errors: stats.Errors,
	}, nil
}

type SearchGitHistoryInput struct {
	Path           string   `json:"path" jsonschema:"absolute path to an indexed git repository"`
	Query          string   `json:"query" jsonschema:"search query"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	CommitTypes    []string `json:"commit_types,omitempty" jsonschema:"restrict to these conventional-commit types, e.g. [\"fix\",\"feat\"]"`
	Authors        []string `json:"authors,omitempty" jsonschema:"restrict to commits by any of these authors (OR logic)"`
	DateFrom       string   `json:"date_from,omitempty" jsonschema:"ISO date (YYYY-MM-DD) lower bound, inclusive"`
	DateTo         string   `json:"date_to,omitempty" jsonschema:"ISO date (YYYY-MM-DD) upper bound, inclusive"`
	ScoreThreshold float64  `json:"score_threshold,omitempty" jsonschema:"drop hits scoring below this value"`
}

type SearchGitHistoryOutput struct {
	Results []SearchHit `json:"results"`
}

func (s *Server) handleSearchGitHistory(ctx context.Context, _ *mcp.CallToolRequest, in SearchGitHistoryInput) (*mcp.CallToolResult, SearchGitHistoryOutput, error) {
	if s.git == nil {
		return nil, SearchGitHistoryOutput{}, NewInvalidParamsError("git indexer is not configured")
	}
	if in.Query == "" {
		return nil, SearchGitHistoryOutput{}, NewInvalidParamsError("query is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	results, err := s.git.SearchHistory(ctx, in.Path, in.Query, gitindex.SearchOptions{
		Limit: limit, CommitTypes: in.CommitTypes, Authors: in.Authors,
		DateFrom: in.DateFrom, DateTo: in.DateTo, ScoreThreshold: in.ScoreThreshold,
	})
	if err != nil {
		return nil, SearchGitHistoryOutput{}, MapError(err)
	}
	out := SearchGitHistoryOutput{Results: make([]SearchHit, len(results))}
	for i, r := range results {
		out.Results[i] = SearchHit{ID: r.ID, Score: r.Score, Payload: r.Payload}
	}
	return nil, out, nil
}

type IndexNewCommitsInput struct {
	Path string `json:"path" jsonschema:"absolute path to a git repository already indexed by index_git_history"`
}

type IndexNewCommitsOutput struct {
	CommitsAdded int   `json:"commits_added"`
	ChunksAdded  int   `json:"chunks_added"`
	DurationMs   int64 `json:"duration_ms"`
}

func (s *Server) handleIndexNewCommits(ctx context.Context, _ *mcp.CallToolRequest, in IndexNewCommitsInput) (*mcp.CallToolResult, IndexNewCommitsOutput, error) {
	if s.git == nil {
		return nil, IndexNewCommitsOutput{}, NewInvalidParamsError("git indexer is not configured")
	}
	if in.Path == "" {
		return nil, IndexNewCommitsOutput{}, NewInvalidParamsError("path is required")
	}
	changes, err := s.git.IndexNewCommits(ctx, in.Path, nil)
	if err != nil {
		return nil, IndexNewCommitsOutput{}, MapError(err)
	}
	return nil, IndexNewCommitsOutput{
		CommitsAdded: changes.FilesAdded, ChunksAdded: changes.ChunksAdded, DurationMs: changes.DurationMs,
	}, nil
}

type GetGitIndexStatusInput struct {
	Path string `json:"path" jsonschema:"absolute path to a git repository"`
}

func (s *Server) handleGetGitIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, in GetGitIndexStatusInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	if s.git == nil {
		return nil, IndexStatusOutput{}, NewInvalidParamsError("git indexer is not configured")
	}
	if in.Path == "" {
		return nil, IndexStatusOutput{}, NewInvalidParamsError("path is required")
	}
	status, err := s.git.GetGitIndexStatus(ctx, in.Path)
	if err != nil {
		return nil, IndexStatusOutput{}, MapError(err)
	}
	out := IndexStatusOutput{Status: status.Status, ChunksCount: status.ChunksCount}
	if status.LastUpdated != nil {
		out.LastUpdated = status.LastUpdated.Format("2006-01-02T15:04:05Z07:00")
	}
	return nil, out, nil
}

type ClearGitIndexInput struct {
	Path string `json:"path" jsonschema:"absolute path to a git repository"`
}

func (s *Server) handleClearGitIndex(ctx context.Context, _ *mcp.CallToolRequest, in ClearGitIndexInput) (*mcp.CallToolResult, ClearIndexOutput, error) {
	if s.git == nil {
		return nil, ClearIndexOutput{}, NewInvalidParamsError("git indexer is not configured")
	}
	if in.Path == "" {
		return nil, ClearIndexOutput{}, NewInvalidParamsError("path is required")
	}
	if err := s.git.ClearGitIndex(ctx, in.Path); err != nil {
		return nil, ClearIndexOutput{}, MapError(err)
	}
	return nil, ClearIndexOutput{Cleared: true}, nil
}
