package indexer

import (
	"context"

	"github.com/codeforge-dev/indexcore/internal/index"
)

// Indexer is the code-indexing contract the tool surface (internal/mcptools)
// and the CLI (cmd/indexcore) program against, instead of the concrete
// *index.Indexer type — so either can be exercised against a test double
// that never touches a real vector store.
//
// Implementations must be safe for concurrent use across different paths;
// the per-collection advisory lock (spec §5) serializes concurrent
// orchestrations of the *same* path.
type Indexer interface {
	IndexCodebase(ctx context.Context, path string, opts index.Options, progress index.ProgressFunc) (index.Stats, error)
	ReindexChanges(ctx context.Context, path string, progress index.ProgressFunc) (index.ChangeStats, error)
	SearchCode(ctx context.Context, path, query string, opts index.SearchOptions) ([]index.SearchResult, error)
	GetIndexStatus(ctx context.Context, path string) (index.Status, error)
	ClearIndex(ctx context.Context, path string) error
}

var _ Indexer = (*index.Indexer)(nil)
