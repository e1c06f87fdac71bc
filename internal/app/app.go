// Package app wires the core's collaborators together from a loaded
// config (spec §6/§9): scanner, chunker, sparse encoder, embedder, vector
// store, snapshot store, and the Code/Git/Federation/Retrieval orchestrators
// built on top of them. The CLI commands (cmd/indexcore/cmd) and the MCP
// server (internal/mcptools) both start from an App rather than repeating
// this wiring at every call site.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/codeforge-dev/indexcore/internal/chunk"
	"github.com/codeforge-dev/indexcore/internal/config"
	"github.com/codeforge-dev/indexcore/internal/embed"
	"github.com/codeforge-dev/indexcore/internal/federation"
	"github.com/codeforge-dev/indexcore/internal/gitindex"
	"github.com/codeforge-dev/indexcore/internal/index"
	"github.com/codeforge-dev/indexcore/internal/retrieval"
	"github.com/codeforge-dev/indexcore/internal/scanner"
	"github.com/codeforge-dev/indexcore/internal/snapshot"
	"github.com/codeforge-dev/indexcore/internal/sparse"
	"github.com/codeforge-dev/indexcore/internal/vectorstore"
)

// App bundles every collaborator a tool-surface or CLI call needs.
type App struct {
	Config     *config.Config
	Store      vectorstore.VectorStore
	Embedder   embed.Embedder
	Snapshots  *snapshot.Store
	Code       *index.Indexer
	Git        *gitindex.GitIndexer
	Federation *federation.Federator
	Retrieval  *retrieval.Retriever

	closers []func() error
}

// New loads configuration rooted at dir and constructs every collaborator.
// The embedder dials Ollama, so New can block briefly on model discovery;
// callers on a CLI fast path should wrap ctx with a timeout.
func New(ctx context.Context, dir string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	embedder, err := embed.NewEmbedder(ctx, embed.ProviderType(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	host, port, err := parseQdrantURL(cfg.VectorStore.URL)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("parse vector_store.url: %w", err)
	}
	store, err := vectorstore.NewClient(vectorstore.QdrantConfig{
		Host:   host,
		Port:   port,
		APIKey: cfg.VectorStore.APIKey,
	}, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("connect vector store: %w", err)
	}

	scn, err := scanner.New()
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	chunker := chunk.NewCodeChunkerWithOptions(chunk.CodeChunkerOptions{
		MaxChunkTokens:   cfg.Chunking.MaxChunkSize,
		OverlapTokens:    cfg.Chunking.ChunkOverlap,
		MaxChunksPerFile: cfg.Chunking.MaxChunksPerFile,
	})
	enc := sparse.NewEncoder()
	snapshots := snapshot.NewStore(snapshotDir(dir))
	distance := distanceFromConfig(cfg.VectorStore.Distance)

	indexCfg := index.DefaultConfig()
	indexCfg.BatchRetryAttempts = cfg.Indexing.BatchRetryAttempts
	indexCfg.MaxChunksPerFile = cfg.Chunking.MaxChunksPerFile
	indexCfg.MaxTotalChunks = cfg.Chunking.MaxTotalChunks
	indexCfg.EnableHybridSearch = cfg.VectorStore.EnableHybridSearch
	indexCfg.Distance = distance
	codeIx := index.New(store, embedder, scn, chunker, enc, snapshots, indexCfg, logger)

	gitCfg := gitindex.DefaultConfig()
	gitCfg.BatchRetryAttempts = cfg.Indexing.BatchRetryAttempts
	gitCfg.EnableHybridSearch = cfg.VectorStore.EnableHybridSearch
	gitCfg.Distance = distance
	gitIx := gitindex.New(store, embedder, enc, snapshots, gitCfg, logger)

	fed := federation.New(codeIx, gitIx)
	retr := retrieval.New(store, embedder, enc)

	return &App{
		Config:     cfg,
		Store:      store,
		Embedder:   embedder,
		Snapshots:  snapshots,
		Code:       codeIx,
		Git:        gitIx,
		Federation: fed,
		Retrieval:  retr,
		closers:    []func() error{embedder.Close},
	}, nil
}

// Close releases every collaborator that owns a live connection or file
// handle (currently just the embedder's HTTP client).
func (a *App) Close() error {
	var firstErr error
	for _, closer := range a.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func parseQdrantURL(raw string) (host string, port int, err error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, err
	}
	host = u.Hostname()
	if host == "" {
		host = raw
	}
	if u.Port() == "" {
		return host, 6334, nil
	}
	port, err = strconv.Atoi(u.Port())
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", raw, err)
	}
	return host, port, nil
}

func snapshotDir(projectDir string) string {
	return filepath.Join(projectDir, ".indexcore", "snapshots")
}

func distanceFromConfig(raw string) vectorstore.Distance {
	switch raw {
	case string(vectorstore.DistanceEuclid):
		return vectorstore.DistanceEuclid
	case string(vectorstore.DistanceDot):
		return vectorstore.DistanceDot
	default:
		return vectorstore.DistanceCosine
	}
}
