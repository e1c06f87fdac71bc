package vectorstore

import (
	"context"
	"log/slog"

	qdrant "github.com/qdrant/go-client/qdrant"

	coreerrors "github.com/codeforge-dev/indexcore/internal/errors"
)

// prefetchMultiplier sizes each hybrid-search prefetch branch relative to
// the caller's requested limit (spec §4.11: "each limited to 4 × limit").
const prefetchMultiplier = 4

// originalIDPayloadKey stores the caller-facing string ID in the payload so
// search and get results can recover it; Qdrant point IDs themselves are
// deterministic UUIDs (see pointid.go) and carry no information back.
const originalIDPayloadKey = "_point_id"

// QdrantConfig configures the underlying gRPC connection.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// Client is the Qdrant-backed VectorStore adapter.
type Client struct {
	conn *qdrant.Client
	log  *slog.Logger
}

var _ VectorStore = (*Client)(nil)

// NewClient dials the configured Qdrant instance.
func NewClient(cfg QdrantConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.connect", cfg.Host, err)
	}
	return &Client{conn: conn, log: logger}, nil
}

func distanceProto(d Distance) qdrant.Distance {
	switch d {
	case DistanceEuclid:
		return qdrant.Distance_Euclid
	case DistanceDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

func distanceFromProto(d qdrant.Distance) Distance {
	switch d {
	case qdrant.Distance_Euclid:
		return DistanceEuclid
	case qdrant.Distance_Dot:
		return DistanceDot
	default:
		return DistanceCosine
	}
}

// CreateCollection creates a collection sized to vectorSize, optionally with
// a named sparse vector ("text", IDF-modified) alongside the named dense
// vector ("dense") when enableHybrid is set (spec §6).
func (c *Client) CreateCollection(ctx context.Context, name string, vectorSize uint64, distance Distance, enableHybrid bool) error {
	req := &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_ParamsMap{
				ParamsMap: &qdrant.VectorParamsMap{
					Map: map[string]*qdrant.VectorParams{
						DenseVectorName: {Size: vectorSize, Distance: distanceProto(distance)},
					},
				},
			},
		},
	}
	if enableHybrid {
		idf := qdrant.Modifier_Idf
		req.SparseVectorsConfig = &qdrant.SparseVectorConfig{
			Map: map[string]*qdrant.SparseVectorParams{
				SparseVectorName: {Modifier: &idf},
			},
		}
	}
	if err := c.conn.CreateCollection(ctx, req); err != nil {
		return coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.createCollection", name, err)
	}
	return nil
}

// CollectionExists reports whether name already exists.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := c.conn.CollectionExists(ctx, name)
	if err != nil {
		return false, coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.collectionExists", name, err)
	}
	return exists, nil
}

// GetCollectionInfo returns point count, vector size, hybrid flag, and
// distance metric for an existing collection.
func (c *Client) GetCollectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	info, err := c.conn.GetCollectionInfo(ctx, name)
	if err != nil {
		return CollectionInfo{}, coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.getCollectionInfo", name, err)
	}

	out := CollectionInfo{PointsCount: info.GetPointsCount()}

	params := info.GetConfig().GetParams()
	if vc := params.GetVectorsConfig(); vc != nil {
		if m := vc.GetParamsMap(); m != nil {
			if dense, ok := m.GetMap()[DenseVectorName]; ok {
				out.VectorSize = dense.GetSize()
				out.Distance = distanceFromProto(dense.GetDistance())
			}
		} else if single := vc.GetParams(); single != nil {
			out.VectorSize = single.GetSize()
			out.Distance = distanceFromProto(single.GetDistance())
		}
	}
	if sv := params.GetSparseVectorsConfig(); sv != nil {
		if _, ok := sv.GetMap()[SparseVectorName]; ok {
			out.HybridEnabled = true
		}
	}
	return out, nil
}

// DeleteCollection drops a collection entirely.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.conn.DeleteCollection(ctx, name); err != nil {
		return coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.deleteCollection", name, err)
	}
	return nil
}

// ListCollections returns the names of every collection in the store.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	names, err := c.conn.ListCollections(ctx)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.listCollections", "", err)
	}
	return names, nil
}

// Upsert writes dense-only points (no sparse component).
func (c *Client) Upsert(ctx context.Context, name string, points []Point) error {
	return c.upsert(ctx, name, points, false)
}

// UpsertWithSparse writes points including their sparse vectors under the
// "text" named vector.
func (c *Client) UpsertWithSparse(ctx context.Context, name string, points []Point) error {
	return c.upsert(ctx, name, points, true)
}

func (c *Client) upsert(ctx context.Context, name string, points []Point, withSparse bool) error {
	wire := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		wire = append(wire, toPointStruct(p, withSparse))
	}
	_, err := c.conn.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         wire,
	})
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.upsert", name, err)
	}
	return nil
}

func toPointStruct(p Point, withSparse bool) *qdrant.PointStruct {
	payload := make(map[string]any, len(p.Payload)+1)
	for k, v := range p.Payload {
		payload[k] = v
	}
	payload[originalIDPayloadKey] = p.ID

	vectors := map[string]*qdrant.Vector{
		DenseVectorName: {Data: p.Dense},
	}
	if withSparse && p.Sparse != nil {
		vectors[SparseVectorName] = &qdrant.Vector{
			Data:    p.Sparse.Values,
			Indices: &qdrant.SparseIndices{Data: p.Sparse.Indices},
		}
	}

	return &qdrant.PointStruct{
		Id: &qdrant.PointId{
			PointIdOptions: &qdrant.PointId_Uuid{Uuid: qdrantPointID(p.ID)},
		},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_VectorsMap{VectorsMap: &qdrant.NamedVectors{Vectors: vectors}},
		},
		Payload: qdrant.MapToPayload(payload),
	}
}

func vectorInput(data []float32) *qdrant.VectorInput {
	return &qdrant.VectorInput{Variant: &qdrant.VectorInput_Dense{Dense: &qdrant.DenseVector{Data: data}}}
}

func sparseVectorInput(sv SparseVector) *qdrant.VectorInput {
	return &qdrant.VectorInput{Variant: &qdrant.VectorInput_Sparse{Sparse: &qdrant.SparseVector{
		Values:  sv.Values,
		Indices: sv.Indices,
	}}}
}

// Search issues a dense-only query using the named "dense" vector.
func (c *Client) Search(ctx context.Context, name string, vector []float32, limit int, filter Filter) ([]Hit, error) {
	lim := uint64(limit)
	using := DenseVectorName
	resp, err := c.conn.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          &qdrant.Query{Variant: &qdrant.Query_Nearest{Nearest: vectorInput(vector)}},
		Using:          &using,
		Limit:          &lim,
		Filter:         buildFilter(filter),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.search", name, err)
	}
	return toHits(resp), nil
}

// HybridSearch performs server-side RRF fusion over two prefetch branches,
// one per named vector (spec §4.11).
func (c *Client) HybridSearch(ctx context.Context, name string, dense []float32, sparse SparseVector, limit int, filter Filter) ([]Hit, error) {
	lim := uint64(limit)
	prefetchLimit := uint64(limit * prefetchMultiplier)
	denseUsing := DenseVectorName
	sparseUsing := SparseVectorName
	wireFilter := buildFilter(filter)
	withPayload := &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}}

	resp, err := c.conn.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Prefetch: []*qdrant.PrefetchQuery{
			{
				Query:  &qdrant.Query{Variant: &qdrant.Query_Nearest{Nearest: vectorInput(dense)}},
				Using:  &denseUsing,
				Limit:  &prefetchLimit,
				Filter: wireFilter,
			},
			{
				Query:  &qdrant.Query{Variant: &qdrant.Query_Nearest{Nearest: sparseVectorInput(sparse)}},
				Using:  &sparseUsing,
				Limit:  &prefetchLimit,
				Filter: wireFilter,
			},
		},
		Query:       &qdrant.Query{Variant: &qdrant.Query_Fusion{Fusion: qdrant.Fusion_RRF}},
		Limit:       &lim,
		Filter:      wireFilter,
		WithPayload: withPayload,
	})
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.hybridSearch", name, err)
	}
	return toHits(resp), nil
}

func toHits(scored []*qdrant.ScoredPoint) []Hit {
	hits := make([]Hit, 0, len(scored))
	for _, sp := range scored {
		payload := fromValueMap(sp.GetPayload())
		hits = append(hits, Hit{
			ID:      idFromPayload(payload),
			Score:   sp.GetScore(),
			Payload: payload,
		})
	}
	return hits
}

// GetPoint fetches a single point by its caller-facing string ID.
func (c *Client) GetPoint(ctx context.Context, name string, id string) (*Point, error) {
	withPayload := &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}}
	withVectors := &qdrant.WithVectorsSelector{SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: true}}

	resp, err := c.conn.Get(ctx, &qdrant.GetPoints{
		CollectionName: name,
		Ids:            []*qdrant.PointId{{PointIdOptions: &qdrant.PointId_Uuid{Uuid: qdrantPointID(id)}}},
		WithPayload:    withPayload,
		WithVectors:    withVectors,
	})
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.getPoint", name, err)
	}
	if len(resp) == 0 {
		return nil, nil
	}
	rp := resp[0]
	payload := fromValueMap(rp.GetPayload())
	point := &Point{
		ID:      idFromPayload(payload),
		Payload: payload,
	}
	if nv := rp.GetVectors().GetVectors(); nv != nil {
		if named := nv.GetVectorsMap(); named != nil {
			if dv, ok := named.Vectors[DenseVectorName]; ok {
				point.Dense = dv.GetData()
			}
			if sv, ok := named.Vectors[SparseVectorName]; ok {
				point.Sparse = &SparseVector{Indices: sv.GetIndices().GetData(), Values: sv.GetData()}
			}
		}
	}
	return point, nil
}

// DeletePoints removes points by their caller-facing string IDs.
func (c *Client) DeletePoints(ctx context.Context, name string, ids []string) error {
	wireIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		wireIDs = append(wireIDs, &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: qdrantPointID(id)}})
	}
	_, err := c.conn.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: wireIDs},
			},
		},
	})
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.deletePoints", name, err)
	}
	return nil
}

// DeletePointsByFilter removes every point matching filter, e.g. all points
// for a deleted or modified relative path during incremental reindex.
func (c *Client) DeletePointsByFilter(ctx context.Context, name string, filter Filter) error {
	wireFilter := buildFilter(filter)
	if wireFilter == nil {
		return coreerrors.New(coreerrors.KindInvalidFilter, "vectorstore.deletePointsByFilter", name, "filter must not be empty", nil)
	}
	_, err := c.conn.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: wireFilter},
		},
	})
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindVectorStoreError, "vectorstore.deletePointsByFilter", name, err)
	}
	return nil
}

func fromValueMap(fields map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = valueToAny(it)
		}
		return out
	case *qdrant.Value_StructValue:
		return fromValueMap(kind.StructValue.GetFields())
	default:
		return nil
	}
}

func idFromPayload(payload map[string]any) string {
	if v, ok := payload[originalIDPayloadKey].(string); ok && v != "" {
		delete(payload, originalIDPayloadKey)
		return v
	}
	return ""
}
