package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeforge-dev/indexcore/internal/index"
)

type IndexCodebaseInput struct {
	Path         string `json:"path" jsonschema:"absolute path to the codebase to index"`
	ForceReindex bool   `json:"force_reindex,omitempty" jsonschema:"drop and rebuild the collection instead of reusing it"`
}

type IndexCodebaseOutput struct {
	FilesScanned  int      `json:"files_scanned"`
	FilesIndexed  int      `json:"files_indexed"`
	ChunksCreated int      `json:"chunks_created"`
	DurationMs    int64    `json:"duration_ms"`
	Status        string   `json:"status" jsonschema:"completed, partial, or failed"`
	Errors        []string `json:"errors,omitempty"`
}

func (s *Server) handleIndexCodebase(ctx context.Context, _ *mcp.CallToolRequest, in IndexCodebaseInput) (*mcp.CallToolResult, IndexCodebaseOutput, error) {
	if s.code == nil {
		return nil, IndexCodebaseOutput{}, NewInvalidParamsError("code indexer is not configured")
	}
	if in.Path == "" {
		return nil, IndexCodebaseOutput{}, NewInvalidParamsError("path is required")
	}
	stats, err := s.code.IndexCodebase(ctx, in.Path, index.Options{ForceReindex: in.ForceReindex}, nil)
	if err != nil {
		return nil, IndexCodebaseOutput{}, MapError(err)
	}
	return nil, IndexCodebaseOutput{
		FilesScanned: stats.FilesScanned, FilesIndexed: stats.FilesIndexed,
		ChunksCreated: stats.ChunksCreated, DurationMs: stats.DurationMs,
		Status: stats.Status, Errors: stats.Errors,
	}, nil
}

type ReindexChangesInput struct {
	Path string `json:"path" jsonschema:"absolute path to the codebase to reindex"`
}

type ReindexChangesOutput struct {
	FilesAdded    int   `json:"files_added"`
	FilesModified int   `json:"files_modified"`
	FilesDeleted  int   `json:"files_deleted"`
	ChunksAdded   int   `json:"chunks_added"`
	DurationMs    int64 `json:"duration_ms"`
}

func (s *Server) handleReindexChanges(ctx context.Context, _ *mcp.CallToolRequest, in ReindexChangesInput) (*mcp.CallToolResult, ReindexChangesOutput, error) {
	if s.code == nil {
		return nil, ReindexChangesOutput{}, NewInvalidParamsError("code indexer is not configured")
	}
	if in.Path == "" {
		return nil, ReindexChangesOutput{}, NewInvalidParamsError("path is required")
	}
	changes, err := s.code.ReindexChanges(ctx, in.Path, nil)
	if err != nil {
		return nil, ReindexChangesOutput{}, MapError(err)
	}
	return nil, ReindexChangesOutput{
		FilesAdded: changes.FilesAdded, FilesModified: changes.FilesModified,
		FilesDeleted: changes.FilesDeleted, ChunksAdded: changes.ChunksAdded, DurationMs: changes.DurationMs,
	}, nil
}

type SearchCodeInput struct {
	Path           string   `json:"path" jsonschema:"absolute path to the indexed codebase"`
	Query          string   `json:"query" jsonschema:"natural-language or code search query"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	FileTypes      []string `json:"file_types,omitempty" jsonschema:"restrict to these file extensions, e.g. [\"go\",\"ts\"]"`
	PathPattern    string   `json:"path_pattern,omitempty" jsonschema:"restrict to relative paths matching this prefix"`
	ScoreThreshold float64  `json:"score_threshold,omitempty" jsonschema:"drop hits scoring below this value"`
	UseHybrid      bool     `json:"use_hybrid,omitempty" jsonschema:"use dense+sparse hybrid search when the collection supports it"`
}

type SearchCodeOutput struct {
	Results []SearchHit `json:"results"`
}

// SearchHit is the common result shape across search_code, search_git_history,
// semantic_search, hybrid_search, contextual_search, and federated_search.
type SearchHit struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (s *Server) handleSearchCode(ctx context.Context, _ *mcp.CallToolRequest, in SearchCodeInput) (*mcp.CallToolResult, SearchCodeOutput, error) {
	if s.code == nil {
		return nil, SearchCodeOutput{}, NewInvalidParamsError("code indexer is not configured")
	}
	if in.Query == "" {
		return nil, SearchCodeOutput{}, NewInvalidParamsError("query is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	results, err := s.code.SearchCode(ctx, in.Path, in.Query, index.SearchOptions{
		Limit: limit, FileTypes: in.FileTypes, PathPattern: in.PathPattern,
		ScoreThreshold: in.ScoreThreshold, UseHybrid: in.UseHybrid,
	})
	if err != nil {
		return nil, SearchCodeOutput{}, MapError(err)
	}
	out := SearchCodeOutput{Results: make([]SearchHit, len(results))}
	for i, r := range results {
		out.Results[i] = SearchHit{ID: r.ID, Score: r.Score, Payload: r.Payload}
	}
	return nil, out, nil
}

type GetIndexStatusInput struct {
	Path string `json:"path" jsonschema:"absolute path to the codebase"`
}

type IndexStatusOutput struct {
	Status      string `json:"status" jsonschema:"not_indexed, indexing, or indexed"`
	ChunksCount *int   `json:"chunks_count,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
}

func (s *Server) handleGetIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, in GetIndexStatusInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	if s.code == nil {
		return nil, IndexStatusOutput{}, NewInvalidParamsError("code indexer is not configured")
	}
	if in.Path == "" {
		return nil, IndexStatusOutput{}, NewInvalidParamsError("path is required")
	}
	status, err := s.code.GetIndexStatus(ctx, in.Path)
	if err != nil {
		return nil, IndexStatusOutput{}, MapError(err)
	}
	out := IndexStatusOutput{Status: status.Status, ChunksCount: status.ChunksCount}
	if status.LastUpdated != nil {
		out.LastUpdated = status.LastUpdated.Format("2006-01-02T15:04:05Z07:00")
	}
	return nil, out, nil
}

type ClearIndexInput struct {
	Path string `json:"path" jsonschema:"absolute path to the codebase"`
}

type ClearIndexOutput struct {
	Cleared bool `json:"cleared"`
}

func (s *Server) handleClearIndex(ctx context.Context, _ *mcp.CallToolRequest, in ClearIndexInput) (*mcp.CallToolResult, ClearIndexOutput, error) {
	if s.code == nil {
		return nil, ClearIndexOutput{}, NewInvalidParamsError("code indexer is not configured")
	}
	if in.Path == "" {
		return nil, ClearIndexOutput{}, NewInvalidParamsError("path is required")
	}
	if err := s.code.ClearIndex(ctx, in.Path); err != nil {
		return nil, ClearIndexOutput{}, MapError(err)
	}
	return nil, ClearIndexOutput{Cleared: true}, nil
}
