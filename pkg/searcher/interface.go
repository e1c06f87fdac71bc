package searcher

import (
	"context"

	"github.com/codeforge-dev/indexcore/internal/retrieval"
)

// Searcher is the single-collection query contract the tool surface
// (internal/mcptools) and the CLI (cmd/indexcore) program against, instead
// of the concrete *retrieval.Retriever type.
type Searcher interface {
	Search(ctx context.Context, collection, query string, opts retrieval.SearchOptions) ([]retrieval.Result, error)
}

var _ Searcher = (*retrieval.Retriever)(nil)
