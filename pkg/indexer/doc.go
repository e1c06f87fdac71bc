// Package indexer declares the black-box contract the orchestration layer
// programs against (Eskil Steenberg's "Black Box Design": small interfaces,
// replaceable implementations, one responsibility per module).
//
// # Architecture
//
//	┌───────────────────┐
//	│  internal/mcptools │  (tool surface, spec §6)
//	└─────────┬─────────┘
//	          │
//	┌─────────▼─────────┐
//	│      Indexer       │  ← this package
//	│     (interface)     │
//	└─────────┬─────────┘
//	          │
//	    ┌─────┴─────┐
//	    │           │
//	┌───▼───┐   ┌───▼───┐
//	│  code  │   │  git  │   (internal/index.Indexer, internal/gitindex.GitIndexer)
//	└───────┘   └───────┘
//
// # Usage
//
//	var ix Indexer = index.New(store, embedder, scn, chunker, enc, snapshots, index.DefaultConfig(), logger)
//	stats, err := ix.Index(ctx, path, IndexOptions{ForceReindex: true}, nil)
package indexer
