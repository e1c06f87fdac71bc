package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeforge-dev/indexcore/internal/vectorstore"
)

type CreateCollectionInput struct {
	Name         string `json:"name" jsonschema:"collection name"`
	VectorSize   uint64 `json:"vector_size" jsonschema:"dense vector dimensionality"`
	Distance     string `json:"distance,omitempty" jsonschema:"Cosine, Euclid, or Dot; defaults to Cosine"`
	EnableHybrid bool   `json:"enable_hybrid,omitempty" jsonschema:"also configure a named sparse vector with an IDF modifier"`
}

type CreateCollectionOutput struct {
	Created bool `json:"created"`
}

func (s *Server) handleCreateCollection(ctx context.Context, _ *mcp.CallToolRequest, in CreateCollectionInput) (*mcp.CallToolResult, CreateCollectionOutput, error) {
	if in.Name == "" {
		return nil, CreateCollectionOutput{}, NewInvalidParamsError("name is required")
	}
	if in.VectorSize == 0 {
		return nil, CreateCollectionOutput{}, NewInvalidParamsError("vector_size must be positive")
	}
	dist := vectorstore.DistanceCosine
	switch in.Distance {
	case "", string(vectorstore.DistanceCosine):
		dist = vectorstore.DistanceCosine
	case string(vectorstore.DistanceEuclid):
		dist = vectorstore.DistanceEuclid
	case string(vectorstore.DistanceDot):
		dist = vectorstore.DistanceDot
	default:
		return nil, CreateCollectionOutput{}, NewInvalidParamsError("distance must be Cosine, Euclid, or Dot")
	}
	if err := s.store.CreateCollection(ctx, in.Name, in.VectorSize, dist, in.EnableHybrid); err != nil {
		return nil, CreateCollectionOutput{}, MapError(err)
	}
	return nil, CreateCollectionOutput{Created: true}, nil
}

type ListCollectionsInput struct{}

type ListCollectionsOutput struct {
	Collections []string `json:"collections"`
}

func (s *Server) handleListCollections(ctx context.Context, _ *mcp.CallToolRequest, _ ListCollectionsInput) (*mcp.CallToolResult, ListCollectionsOutput, error) {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, ListCollectionsOutput{}, MapError(err)
	}
	return nil, ListCollectionsOutput{Collections: names}, nil
}

type GetCollectionInfoInput struct {
	Name string `json:"name" jsonschema:"collection name"`
}

type GetCollectionInfoOutput struct {
	PointsCount   uint64 `json:"points_count"`
	VectorSize    uint64 `json:"vector_size"`
	HybridEnabled bool   `json:"hybrid_enabled"`
	Distance      string `json:"distance"`
}

func (s *Server) handleGetCollectionInfo(ctx context.Context, _ *mcp.CallToolRequest, in GetCollectionInfoInput) (*mcp.CallToolResult, GetCollectionInfoOutput, error) {
	if in.Name == "" {
		return nil, GetCollectionInfoOutput{}, NewInvalidParamsError("name is required")
	}
	info, err := s.store.GetCollectionInfo(ctx, in.Name)
	if err != nil {
		return nil, GetCollectionInfoOutput{}, MapError(err)
	}
	return nil, GetCollectionInfoOutput{
		PointsCount: info.PointsCount, VectorSize: info.VectorSize,
		HybridEnabled: info.HybridEnabled, Distance: string(info.Distance),
	}, nil
}

type DeleteCollectionInput struct {
	Name string `json:"name" jsonschema:"collection name"`
}

type DeleteCollectionOutput struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) handleDeleteCollection(ctx context.Context, _ *mcp.CallToolRequest, in DeleteCollectionInput) (*mcp.CallToolResult, DeleteCollectionOutput, error) {
	if in.Name == "" {
		return nil, DeleteCollectionOutput{}, NewInvalidParamsError("name is required")
	}
	if err := s.store.DeleteCollection(ctx, in.Name); err != nil {
		return nil, DeleteCollectionOutput{}, MapError(err)
	}
	return nil, DeleteCollectionOutput{Deleted: true}, nil
}

// Document is a single add_documents input row: an id, the text to embed,
// and an arbitrary payload merged with the embedded content.
type Document struct {
	ID      string         `json:"id" jsonschema:"stable document id"`
	Content string         `json:"content" jsonschema:"text to embed"`
	Payload map[string]any `json:"payload,omitempty" jsonschema:"arbitrary metadata stored alongside the vector"`
}

type AddDocumentsInput struct {
	Collection string     `json:"collection" jsonschema:"target collection name"`
	Documents  []Document `json:"documents" jsonschema:"documents to embed and upsert"`
}

type AddDocumentsOutput struct {
	Upserted int `json:"upserted"`
}

func (s *Server) handleAddDocuments(ctx context.Context, _ *mcp.CallToolRequest, in AddDocumentsInput) (*mcp.CallToolResult, AddDocumentsOutput, error) {
	if s.embedder == nil {
		return nil, AddDocumentsOutput{}, NewInvalidParamsError("no embedder is configured")
	}
	if in.Collection == "" {
		return nil, AddDocumentsOutput{}, NewInvalidParamsError("collection is required")
	}
	if len(in.Documents) == 0 {
		return nil, AddDocumentsOutput{}, NewInvalidParamsError("documents must be non-empty")
	}

	texts := make([]string, len(in.Documents))
	for i, d := range in.Documents {
		texts[i] = d.Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, AddDocumentsOutput{}, MapError(err)
	}

	points := make([]vectorstore.Point, len(in.Documents))
	for i, d := range in.Documents {
		payload := map[string]any{"content": d.Content}
		for k, v := range d.Payload {
			payload[k] = v
		}
		points[i] = vectorstore.Point{ID: d.ID, Dense: embeddings[i], Payload: payload}
	}
	if err := s.store.Upsert(ctx, in.Collection, points); err != nil {
		return nil, AddDocumentsOutput{}, MapError(err)
	}
	return nil, AddDocumentsOutput{Upserted: len(points)}, nil
}

type DeleteDocumentsInput struct {
	Collection string   `json:"collection" jsonschema:"target collection name"`
	IDs        []string `json:"ids" jsonschema:"document ids to delete"`
}

type DeleteDocumentsOutput struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleDeleteDocuments(ctx context.Context, _ *mcp.CallToolRequest, in DeleteDocumentsInput) (*mcp.CallToolResult, DeleteDocumentsOutput, error) {
	if in.Collection == "" {
		return nil, DeleteDocumentsOutput{}, NewInvalidParamsError("collection is required")
	}
	if len(in.IDs) == 0 {
		return nil, DeleteDocumentsOutput{}, NewInvalidParamsError("ids must be non-empty")
	}
	if err := s.store.DeletePoints(ctx, in.Collection, in.IDs); err != nil {
		return nil, DeleteDocumentsOutput{}, MapError(err)
	}
	return nil, DeleteDocumentsOutput{Deleted: len(in.IDs)}, nil
}

type SemanticSearchInput struct {
	Collection string         `json:"collection" jsonschema:"collection to search"`
	Query      string         `json:"query" jsonschema:"text query to embed and search with"`
	Limit      int            `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Filter     map[string]any `json:"filter,omitempty" jsonschema:"flat {key: value} equality filter"`
}

type SemanticSearchOutput struct {
	Results []SearchHit `json:"results"`
}

func (s *Server) handleSemanticSearch(ctx context.Context, _ *mcp.CallToolRequest, in SemanticSearchInput) (*mcp.CallToolResult, SemanticSearchOutput, error) {
	if s.retriever == nil {
		return nil, SemanticSearchOutput{}, NewInvalidParamsError("no retriever is configured")
	}
	if in.Collection == "" || in.Query == "" {
		return nil, SemanticSearchOutput{}, NewInvalidParamsError("collection and query are required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	results, err := s.retriever.Search(ctx, in.Collection, in.Query, retrieverOptionsFor(limit, in.Filter, false))
	if err != nil {
		return nil, SemanticSearchOutput{}, MapError(err)
	}
	out := SemanticSearchOutput{Results: make([]SearchHit, len(results))}
	for i, r := range results {
		out.Results[i] = SearchHit{ID: r.ID, Score: r.Score, Payload: r.Payload}
	}
	return nil, out, nil
}

type HybridSearchInput struct {
	Collection string         `json:"collection" jsonschema:"hybrid-enabled collection to search"`
	Query      string         `json:"query" jsonschema:"text query to embed and search with"`
	Limit      int            `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Filter     map[string]any `json:"filter,omitempty" jsonschema:"flat {key: value} equality filter"`
}

type HybridSearchOutput struct {
	Results []SearchHit `json:"results"`
}

func (s *Server) handleHybridSearch(ctx context.Context, _ *mcp.CallToolRequest, in HybridSearchInput) (*mcp.CallToolResult, HybridSearchOutput, error) {
	if s.retriever == nil {
		return nil, HybridSearchOutput{}, NewInvalidParamsError("no retriever is configured")
	}
	if in.Collection == "" || in.Query == "" {
		return nil, HybridSearchOutput{}, NewInvalidParamsError("collection and query are required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	results, err := s.retriever.Search(ctx, in.Collection, in.Query, retrieverOptionsFor(limit, in.Filter, true))
	if err != nil {
		return nil, HybridSearchOutput{}, MapError(err)
	}
	out := HybridSearchOutput{Results: make([]SearchHit, len(results))}
	for i, r := range results {
		out.Results[i] = SearchHit{ID: r.ID, Score: r.Score, Payload: r.Payload}
	}
	return nil, out, nil
}
