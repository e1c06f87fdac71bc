// Package searcher declares the black-box search contract that sits above
// a single collection's retrieval path (internal/retrieval.Retriever) and
// above the cross-repository federated path (internal/federation.Federator).
//
// # Architecture
//
//	┌───────────────────┐
//	│  internal/mcptools │  (tool surface, spec §6)
//	└─────────┬─────────┘
//	          │
//	┌─────────▼─────────┐
//	│      Searcher       │  ← this package
//	│     (interface)      │
//	└─────────┬─────────┘
//	          │
//	┌─────────▼─────────────────┐
//	│  internal/retrieval.Retriever  │  dense / server-side hybrid, one collection
//	└────────────────────────────┘
//
// The Federator (internal/federation) wraps a Retriever per repository and
// fuses their ranked lists with its own Reciprocal Rank Fusion pass
// (spec §4.12); it is not itself a Searcher, since it ranks tagged groups
// rather than a single collection.
//
// # Usage
//
//	var s Searcher = retrieval.New(store, embedder, sparseEncoder)
//	results, err := s.Search(ctx, collectionName, "token bucket rate limiter", retrieval.SearchOptions{Limit: 10})
package searcher
