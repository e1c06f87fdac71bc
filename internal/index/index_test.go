package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeforge-dev/indexcore/internal/chunk"
	"github.com/codeforge-dev/indexcore/internal/collection"
	"github.com/codeforge-dev/indexcore/internal/scanner"
	"github.com/codeforge-dev/indexcore/internal/snapshot"
	"github.com/codeforge-dev/indexcore/internal/sparse"
	"github.com/codeforge-dev/indexcore/internal/vectorstore"
)

type fakeEmbedder struct{ dims int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dims), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int               { return f.dims }
func (f *fakeEmbedder) ModelName() string              { return "fake" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                   { return nil }

// fakeStore is an in-memory VectorStore good enough to exercise the
// orchestrator's lifecycle without a real Qdrant instance.
type fakeStore struct {
	collections map[string]bool
	hybrid      map[string]bool
	points      map[string]map[string]vectorstore.Point
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: map[string]bool{},
		hybrid:      map[string]bool{},
		points:      map[string]map[string]vectorstore.Point{},
	}
}

func (s *fakeStore) CreateCollection(ctx context.Context, name string, vectorSize uint64, distance vectorstore.Distance, enableHybrid bool) error {
	s.collections[name] = true
	s.hybrid[name] = enableHybrid
	s.points[name] = map[string]vectorstore.Point{}
	return nil
}

func (s *fakeStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.collections[name], nil
}

func (s *fakeStore) GetCollectionInfo(ctx context.Context, name string) (vectorstore.CollectionInfo, error) {
	return vectorstore.CollectionInfo{PointsCount: uint64(len(s.points[name])), HybridEnabled: s.hybrid[name]}, nil
}

func (s *fakeStore) DeleteCollection(ctx context.Context, name string) error {
	delete(s.collections, name)
	delete(s.points, name)
	delete(s.hybrid, name)
	return nil
}

func (s *fakeStore) ListCollections(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names, nil
}

func (s *fakeStore) Upsert(ctx context.Context, name string, points []vectorstore.Point) error {
	for _, p := range points {
		s.points[name][p.ID] = p
	}
	return nil
}

func (s *fakeStore) UpsertWithSparse(ctx context.Context, name string, points []vectorstore.Point) error {
	return s.Upsert(ctx, name, points)
}

func (s *fakeStore) Search(ctx context.Context, name string, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error) {
	var hits []vectorstore.Hit
	for id, p := range s.points[name] {
		if id == vectorstore.CodeMarkerID {
			continue
		}
		hits = append(hits, vectorstore.Hit{ID: id, Score: 1, Payload: p.Payload})
	}
	return hits, nil
}

func (s *fakeStore) HybridSearch(ctx context.Context, name string, dense []float32, sp vectorstore.SparseVector, limit int, filter vectorstore.Filter) ([]vectorstore.Hit, error) {
	return s.Search(ctx, name, dense, limit, filter)
}

func (s *fakeStore) GetPoint(ctx context.Context, name string, id string) (*vectorstore.Point, error) {
	p, ok := s.points[name][id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *fakeStore) DeletePoints(ctx context.Context, name string, ids []string) error {
	for _, id := range ids {
		delete(s.points[name], id)
	}
	return nil
}

func (s *fakeStore) DeletePointsByFilter(ctx context.Context, name string, filter vectorstore.Filter) error {
	for _, cond := range filter.Must {
		if cond.Key != "relativePath" || cond.Match == nil {
			continue
		}
		target, _ := cond.Match.Value.(string)
		for id, p := range s.points[name] {
			if rp, _ := p.Payload["relativePath"].(string); rp == target {
				delete(s.points[name], id)
			}
		}
	}
	return nil
}

func newTestIndexer(t *testing.T) (*Indexer, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	scn, err := scanner.New()
	require.NoError(t, err)
	ix := New(store, &fakeEmbedder{dims: 8}, scn, chunk.NewCodeChunker(), sparse.NewEncoder(), snapshot.NewStore(t.TempDir()), DefaultConfig(), nil)
	return ix, store
}

func writeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"), 0o644))
	return dir
}

func TestIndexCodebase_CompletesAndPersistsSnapshot(t *testing.T) {
	ix, store := newTestIndexer(t)
	dir := writeRepo(t)

	stats, err := ix.IndexCodebase(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, statusCompleted, stats.Status)
	assert.Equal(t, 1, stats.FilesScanned)
	assert.Greater(t, stats.ChunksCreated, 0)
	assert.Empty(t, stats.Errors)

	status, err := ix.GetIndexStatus(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, statusIndexed, status.Status)
	require.NotNil(t, status.ChunksCount)
	assert.Equal(t, stats.ChunksCreated, *status.ChunksCount)

	root, _ := resolveCanonicalPath(dir)
	assert.True(t, store.collections[collection.Name(collection.Code, root, "")])
}

func TestGetIndexStatus_NotIndexedWhenCollectionAbsent(t *testing.T) {
	ix, _ := newTestIndexer(t)
	dir := writeRepo(t)

	status, err := ix.GetIndexStatus(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, statusNotIndexed, status.Status)
}

func TestReindexChanges_RequiresExistingSnapshot(t *testing.T) {
	ix, _ := newTestIndexer(t)
	dir := writeRepo(t)

	_, err := ix.ReindexChanges(context.Background(), dir, nil)
	require.Error(t, err)
}

func TestReindexChanges_PicksUpModifiedAndAddedFiles(t *testing.T) {
	ix, _ := newTestIndexer(t)
	dir := writeRepo(t)

	_, err := ix.IndexCodebase(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.go"), []byte("package main\n\nfunc Extra() int {\n\treturn 1\n}\n"), 0o644))

	changes, err := ix.ReindexChanges(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, changes.FilesAdded)
	assert.Greater(t, changes.ChunksAdded, 0)
}

func TestReindexChanges_NoopWhenNothingChanged(t *testing.T) {
	ix, _ := newTestIndexer(t)
	dir := writeRepo(t)

	_, err := ix.IndexCodebase(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	changes, err := ix.ReindexChanges(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, changes.FilesAdded)
	assert.Equal(t, 0, changes.FilesModified)
	assert.Equal(t, 0, changes.FilesDeleted)
}

func TestSearchCode_ReturnsIndexedChunks(t *testing.T) {
	ix, _ := newTestIndexer(t)
	dir := writeRepo(t)

	_, err := ix.IndexCodebase(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	results, err := ix.SearchCode(context.Background(), dir, "main", SearchOptions{Limit: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestClearIndex_RemovesCollectionAndSnapshot(t *testing.T) {
	ix, store := newTestIndexer(t)
	dir := writeRepo(t)

	_, err := ix.IndexCodebase(context.Background(), dir, Options{}, nil)
	require.NoError(t, err)

	require.NoError(t, ix.ClearIndex(context.Background(), dir))

	root, _ := resolveCanonicalPath(dir)
	assert.False(t, store.collections[collection.Name(collection.Code, root, "")])

	status, err := ix.GetIndexStatus(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, statusNotIndexed, status.Status)
}
