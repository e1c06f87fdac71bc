// Package retrieval implements the Retriever (spec §4.11): turns a text
// query into a dense or hybrid vector-store search, applying filter
// rewriting and a score threshold, and implements the Federator's
// client-side RRF fusion (spec §4.12) on top of per-repository results.
package retrieval

import (
	"context"
	"fmt"

	coreerrors "github.com/codeforge-dev/indexcore/internal/errors"
	"github.com/codeforge-dev/indexcore/internal/sparse"
	"github.com/codeforge-dev/indexcore/internal/vectorstore"
)

// Embedder is the subset of the Embedder capability (spec §6) the
// Retriever consumes: a single query embedding plus the dimensionality the
// collection was created with.
type Embedder interface {
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SparseEncoder produces the BM25 sparse vector for a query (spec §4.8).
type SparseEncoder interface {
	Generate(text string, avgDocLen float64) sparse.Vector
}

// Result is a single ranked hit returned to a caller.
type Result struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// SearchOptions configures a Retriever.Search call.
type SearchOptions struct {
	Limit          int
	ScoreThreshold float64
	UseHybrid      bool
	Filter         vectorstore.Filter
}

// Retriever dispatches a text query onto a dense or server-side-fused
// hybrid vector-store search (spec §4.11).
type Retriever struct {
	Store    vectorstore.VectorStore
	Embedder Embedder
	Sparse   SparseEncoder
}

// New builds a Retriever over the given collaborators.
func New(store vectorstore.VectorStore, embedder Embedder, enc SparseEncoder) *Retriever {
	return &Retriever{Store: store, Embedder: embedder, Sparse: enc}
}

// Search embeds query and dispatches a dense or hybrid search against
// collection, applying opts.ScoreThreshold and stripping the
// indexing-marker point (which never matches by construction: reserved ID,
// zero vector, so it simply never turns up in a content search).
func (r *Retriever) Search(ctx context.Context, collection, query string, opts SearchOptions) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	dense, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindEmbeddingError, "retriever.search", collection, err)
	}

	var hits []vectorstore.Hit
	if opts.UseHybrid {
		info, err := r.Store.GetCollectionInfo(ctx, collection)
		if err != nil {
			return nil, coreerrors.Wrap(coreerrors.KindVectorStoreError, "retriever.search", collection, err)
		}
		if info.HybridEnabled && r.Sparse != nil {
			sv := r.Sparse.Generate(query, 0)
			hits, err = r.Store.HybridSearch(ctx, collection, dense, vectorstore.SparseVector{
				Indices: sv.Indices, Values: sv.Values,
			}, opts.Limit, opts.Filter)
		} else {
			// Collection lacks sparse configuration: fall back to dense-only
			// (spec §4.11).
			hits, err = r.Store.Search(ctx, collection, dense, opts.Limit, opts.Filter)
		}
		if err != nil {
			return nil, coreerrors.Wrap(coreerrors.KindVectorStoreError, "retriever.search", collection, err)
		}
	} else {
		hits, err = r.Store.Search(ctx, collection, dense, opts.Limit, opts.Filter)
		if err != nil {
			return nil, coreerrors.Wrap(coreerrors.KindVectorStoreError, "retriever.search", collection, err)
		}
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if h.ID == "" {
			continue
		}
		if opts.ScoreThreshold > 0 && float64(h.Score) < opts.ScoreThreshold {
			continue
		}
		results = append(results, Result{ID: h.ID, Score: h.Score, Payload: h.Payload})
	}
	return results, nil
}

// BuildFilter turns a raw JSON-shaped filter object into a vectorstore
// Filter (spec §4.11): a plain {k: v} map is rewritten to an all-must
// equality filter; a structured object carrying "must"/"should"/"must_not"
// keys is parsed leaf by leaf; nil or an empty map means "no filter".
func BuildFilter(raw map[string]any) (vectorstore.Filter, error) {
	if len(raw) == 0 {
		return vectorstore.Filter{}, nil
	}

	_, hasMust := raw["must"]
	_, hasShould := raw["should"]
	_, hasMustNot := raw["must_not"]
	if !hasMust && !hasShould && !hasMustNot {
		return vectorstore.MatchFilter(raw), nil
	}

	f := vectorstore.Filter{}
	var err error
	if f.Must, err = parseConditions(raw["must"]); err != nil {
		return f, err
	}
	if f.Should, err = parseConditions(raw["should"]); err != nil {
		return f, err
	}
	if f.MustNot, err = parseConditions(raw["must_not"]); err != nil {
		return f, err
	}
	return f, nil
}

func parseConditions(raw any) ([]vectorstore.Condition, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, coreerrors.New(coreerrors.KindInvalidFilter, "retrieval.buildFilter", "", "filter clause must be a list", nil)
	}
	out := make([]vectorstore.Condition, 0, len(list))
	for _, item := range list {
		cond, ok := item.(map[string]any)
		if !ok {
			return nil, coreerrors.New(coreerrors.KindInvalidFilter, "retrieval.buildFilter", "", "filter condition must be an object", nil)
		}
		key, _ := cond["key"].(string)
		if key == "" {
			return nil, coreerrors.New(coreerrors.KindInvalidFilter, "retrieval.buildFilter", "", "filter condition missing key", nil)
		}
		c := vectorstore.Condition{Key: key}
		if m, ok := cond["match"].(map[string]any); ok {
			mc := &vectorstore.MatchCondition{}
			if v, ok := m["value"]; ok {
				mc.Value = v
			}
			if any, ok := m["any"].([]any); ok {
				mc.Any = any
			}
			if text, ok := m["text"].(string); ok {
				mc.Text = text
			}
			c.Match = mc
		}
		if rg, ok := cond["range"].(map[string]any); ok {
			rc := &vectorstore.RangeCondition{}
			if gte, ok := rg["gte"].(float64); ok {
				rc.Gte = &gte
			}
			if lte, ok := rg["lte"].(float64); ok {
				rc.Lte = &lte
			}
			c.Range = rc
		}
		out = append(out, c)
	}
	return out, nil
}

// ValidateDateRange rejects a dateFrom > dateTo pair before any RPC is
// issued (spec §4.10).
func ValidateDateRange(dateFrom, dateTo string) error {
	if dateFrom != "" && dateTo != "" && dateFrom > dateTo {
		return coreerrors.New(coreerrors.KindInvalidDateRange, "retrieval.validateDateRange", "", fmt.Sprintf("dateFrom %q is after dateTo %q", dateFrom, dateTo), nil)
	}
	return nil
}
