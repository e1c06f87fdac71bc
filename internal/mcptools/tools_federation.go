package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeforge-dev/indexcore/internal/federation"
)

type ContextualSearchInput struct {
	Path       string `json:"path" jsonschema:"absolute path to a single repository"`
	Query      string `json:"query" jsonschema:"search query"`
	SearchType string `json:"search_type,omitempty" jsonschema:"code, git, or both; defaults to both"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

type FederatedHit struct {
	ID         string         `json:"id"`
	RepoPath   string         `json:"repo_path"`
	ResultType string         `json:"result_type" jsonschema:"code or git"`
	RawScore   float32        `json:"raw_score"`
	NormScore  float64        `json:"norm_score"`
	RRFScore   float64        `json:"rrf_score"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type ContextualSearchOutput struct {
	Results []FederatedHit `json:"results"`
}

func (s *Server) handleContextualSearch(ctx context.Context, _ *mcp.CallToolRequest, in ContextualSearchInput) (*mcp.CallToolResult, ContextualSearchOutput, error) {
	if s.federation == nil {
		return nil, ContextualSearchOutput{}, NewInvalidParamsError("federator is not configured")
	}
	if in.Path == "" || in.Query == "" {
		return nil, ContextualSearchOutput{}, NewInvalidParamsError("path and query are required")
	}
	searchType, err := parseSearchType(in.SearchType)
	if err != nil {
		return nil, ContextualSearchOutput{}, err
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	results, rerr := s.federation.Search(ctx, []string{in.Path}, in.Query, searchType, limit)
	if rerr != nil {
		return nil, ContextualSearchOutput{}, MapError(rerr)
	}
	return nil, ContextualSearchOutput{Results: toFederatedHits(results)}, nil
}

type FederatedSearchInput struct {
	Paths      []string `json:"paths" jsonschema:"absolute paths to the repositories to search"`
	Query      string   `json:"query" jsonschema:"search query"`
	SearchType string   `json:"search_type,omitempty" jsonschema:"code, git, or both; defaults to both"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results across all repositories, default 10"`
}

type FederatedSearchOutput struct {
	Results []FederatedHit `json:"results"`
}

func (s *Server) handleFederatedSearch(ctx context.Context, _ *mcp.CallToolRequest, in FederatedSearchInput) (*mcp.CallToolResult, FederatedSearchOutput, error) {
	if s.federation == nil {
		return nil, FederatedSearchOutput{}, NewInvalidParamsError("federator is not configured")
	}
	if len(in.Paths) == 0 || in.Query == "" {
		return nil, FederatedSearchOutput{}, NewInvalidParamsError("paths and query are required")
	}
	searchType, err := parseSearchType(in.SearchType)
	if err != nil {
		return nil, FederatedSearchOutput{}, err
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	results, rerr := s.federation.Search(ctx, in.Paths, in.Query, searchType, limit)
	if rerr != nil {
		return nil, FederatedSearchOutput{}, MapError(rerr)
	}
	return nil, FederatedSearchOutput{Results: toFederatedHits(results)}, nil
}

func parseSearchType(raw string) (federation.SearchType, error) {
	switch raw {
	case "":
		return federation.SearchTypeBoth, nil
	case string(federation.SearchTypeCode):
		return federation.SearchTypeCode, nil
	case string(federation.SearchTypeGit):
		return federation.SearchTypeGit, nil
	case string(federation.SearchTypeBoth):
		return federation.SearchTypeBoth, nil
	default:
		return "", NewInvalidParamsError("search_type must be code, git, or both")
	}
}

func toFederatedHits(results []federation.Result) []FederatedHit {
	hits := make([]FederatedHit, len(results))
	for i, r := range results {
		hits[i] = FederatedHit{
			ID: r.ID, RepoPath: r.RepoPath, ResultType: string(r.ResultType),
			RawScore: r.RawScore, NormScore: r.NormScore, RRFScore: r.RRFScore, Payload: r.Payload,
		}
	}
	return hits
}
