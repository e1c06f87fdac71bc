// Package mcptools implements the MCP tool surface (spec §6): every tool
// in the protocol-agnostic call surface (`create_collection` through
// `federated_search`) bridges directly to a single orchestrator —
// internal/vectorstore.VectorStore for the low-level collection/document
// tools, internal/index.Indexer and internal/gitindex.GitIndexer for the
// codebase/git orchestrators, and internal/federation.Federator for the
// cross-repository tools.
package mcptools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeforge-dev/indexcore/internal/embed"
	"github.com/codeforge-dev/indexcore/internal/federation"
	"github.com/codeforge-dev/indexcore/internal/gitindex"
	"github.com/codeforge-dev/indexcore/internal/index"
	"github.com/codeforge-dev/indexcore/internal/retrieval"
	"github.com/codeforge-dev/indexcore/internal/vectorstore"
	"github.com/codeforge-dev/indexcore/pkg/version"
)

// Server bridges MCP clients (Claude Code, Cursor) to the indexing core.
type Server struct {
	mcp *mcp.Server

	store      vectorstore.VectorStore
	embedder   embed.Embedder
	retriever  *retrieval.Retriever
	code       *index.Indexer
	git        *gitindex.GitIndexer
	federation *federation.Federator

	logger *slog.Logger
}

// Config bundles the collaborators a Server dispatches tool calls to.
type Config struct {
	Store      vectorstore.VectorStore
	Embedder   embed.Embedder
	Retriever  *retrieval.Retriever
	Code       *index.Indexer
	Git        *gitindex.GitIndexer
	Federation *federation.Federator
	Logger     *slog.Logger
}

// NewServer builds an MCP server and registers the full tool surface.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, NewInvalidParamsError("vector store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		store:      cfg.Store,
		embedder:   cfg.Embedder,
		retriever:  cfg.Retriever,
		code:       cfg.Code,
		git:        cfg.Git,
		federation: cfg.Federation,
		logger:     cfg.Logger,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "indexcore",
		Version: version.Version,
	}, nil)

	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server, e.g. to call Run with a
// transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve blocks, dispatching tool calls over the given transport until ctx is
// canceled or the transport closes. Only stdio is currently wired, which is
// the only transport Claude Code and Cursor speak (spec §6).
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch transport {
	case "", "stdio":
		s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func (s *Server) registerTools() {
	s.logger.Debug("registering mcp tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_collection",
		Description: "Create a vector-store collection, optionally with hybrid (dense+sparse) search enabled.",
	}, s.handleCreateCollection)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_collections",
		Description: "List every collection currently in the vector store.",
	}, s.handleListCollections)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_collection_info",
		Description: "Get point count, vector size, hybrid flag, and distance metric for a collection.",
	}, s.handleGetCollectionInfo)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_collection",
		Description: "Delete a collection and all of its points.",
	}, s.handleDeleteCollection)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add_documents",
		Description: "Embed and upsert documents into a collection.",
	}, s.handleAddDocuments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_documents",
		Description: "Delete documents from a collection by id.",
	}, s.handleDeleteDocuments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "semantic_search",
		Description: "Dense-vector search over a collection.",
	}, s.handleSemanticSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "hybrid_search",
		Description: "Server-side RRF-fused dense+sparse search over a hybrid collection.",
	}, s.handleHybridSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_codebase",
		Description: "Full index of a codebase: scan, chunk, embed, and upsert every file.",
	}, s.handleIndexCodebase)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex_changes",
		Description: "Merkle-diff a codebase against its last snapshot and index only the delta.",
	}, s.handleReindexChanges)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Semantic search over an indexed codebase. Prefer this over grep for meaning-based matches.",
	}, s.handleSearchCode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Check whether a codebase's index is not_indexed, indexing, or indexed.",
	}, s.handleGetIndexStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_index",
		Description: "Drop a codebase's index collection and snapshot.",
	}, s.handleClearIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_git_history",
		Description: "Full index of a repository's commit history.",
	}, s.handleIndexGitHistory)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_git_history",
		Description: "Search commit history with optional type, author, and date-range filters.",
	}, s.handleSearchGitHistory)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_new_commits",
		Description: "Append only the commits made since the last git-history index run.",
	}, s.handleIndexNewCommits)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_git_index_status",
		Description: "Check whether a repository's git-history index is not_indexed, indexing, or indexed.",
	}, s.handleGetGitIndexStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_git_index",
		Description: "Drop a repository's git-history index collection and snapshot.",
	}, s.handleClearGitIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "contextual_search",
		Description: "Search both the code and git-history index of a single repository, fused into one ranked list.",
	}, s.handleContextualSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "federated_search",
		Description: "Fan a query out across multiple repositories and fuse the results with Reciprocal Rank Fusion.",
	}, s.handleFederatedSearch)

	s.logger.Info("mcp tools registered", slog.Int("count", 20))
}
