// Package vectorstore implements the VectorStore capability (spec §6) against
// Qdrant: collection lifecycle, named dense/sparse vector upsert, dense and
// RRF-fused hybrid search, point retrieval, and filtered deletion.
package vectorstore

import "context"

// Distance is a vector-store similarity metric.
type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceEuclid Distance = "Euclid"
	DistanceDot    Distance = "Dot"
)

// DenseVectorName and SparseVectorName are the named vectors a hybrid
// collection is configured with: an IDF-modified sparse vector named "text"
// alongside the dense vector named "dense" (spec §6).
const (
	DenseVectorName  = "dense"
	SparseVectorName = "text"
)

// SparseVector is a pair of parallel index/value arrays (spec §3).
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// Point is a vector-store row: a stable string ID (normalized to a
// deterministic UUID by the adapter), its dense vector, an optional sparse
// vector, and an arbitrary JSON-shaped payload.
type Point struct {
	ID      string
	Dense   []float32
	Sparse  *SparseVector
	Payload map[string]any
}

// Hit is a single scored search result.
type Hit struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	PointsCount   uint64
	VectorSize    uint64
	HybridEnabled bool
	Distance      Distance
}

// MatchCondition matches a field against a single value, one of a set
// ("any"), or a text/full-text term.
type MatchCondition struct {
	Value any
	Any   []any
	Text  string
}

// RangeCondition matches a numeric field against an inclusive bound.
type RangeCondition struct {
	Gte *float64
	Lte *float64
}

// Condition is one filter leaf: exactly one of Match or Range is set.
type Condition struct {
	Key   string
	Match *MatchCondition
	Range *RangeCondition
}

// Filter is the filter language of spec §6: must/should/must_not over
// Conditions. A zero-value Filter (all slices empty) means "no filter".
type Filter struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// IsEmpty reports whether f has no conditions at all.
func (f Filter) IsEmpty() bool {
	return len(f.Must) == 0 && len(f.Should) == 0 && len(f.MustNot) == 0
}

// MatchFilter builds the common case of a flat {key: value} map rewritten to
// an all-must equality filter (spec §4.11).
func MatchFilter(kv map[string]any) Filter {
	if len(kv) == 0 {
		return Filter{}
	}
	f := Filter{Must: make([]Condition, 0, len(kv))}
	for k, v := range kv {
		f.Must = append(f.Must, Condition{Key: k, Match: &MatchCondition{Value: v}})
	}
	return f
}

// VectorStore is the consumed capability described in spec §6.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, vectorSize uint64, distance Distance, enableHybrid bool) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	GetCollectionInfo(ctx context.Context, name string) (CollectionInfo, error)
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)

	Upsert(ctx context.Context, name string, points []Point) error
	UpsertWithSparse(ctx context.Context, name string, points []Point) error

	Search(ctx context.Context, name string, vector []float32, limit int, filter Filter) ([]Hit, error)
	HybridSearch(ctx context.Context, name string, dense []float32, sparse SparseVector, limit int, filter Filter) ([]Hit, error)

	GetPoint(ctx context.Context, name string, id string) (*Point, error)
	DeletePoints(ctx context.Context, name string, ids []string) error
	DeletePointsByFilter(ctx context.Context, name string, filter Filter) error
}
